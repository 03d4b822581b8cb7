// Package pgstore implements store.ItemRepository on PostgreSQL through a pgx
// connection pool. Statements use $n placeholders and the generated key is
// read back with RETURNING.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/store"
)

// PingTimeout bounds the startup connectivity check.
const PingTimeout = 10 * time.Second

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS item (
    id BIGSERIAL PRIMARY KEY,
    item_name VARCHAR(10),
    price INTEGER,
    quantity INTEGER
)`
	insertSQL = "INSERT INTO item (item_name, price, quantity) VALUES ($1, $2, $3) RETURNING id"
	updateSQL = "UPDATE item SET item_name = $1, price = $2, quantity = $3 WHERE id = $4"
	selectSQL = "SELECT id, item_name, price, quantity FROM item"
)

// ErrTxActive is returned by Begin when ctx already carries a transaction.
var ErrTxActive = errors.New("transaction already active in context")

type txKey struct{}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL repository and its transaction manager.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open creates a connection pool for dsn and verifies connectivity. Statement
// failures are logged through logger.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newTraceLogger(logger.Named("pgx")),
		LogLevel: tracelog.LogLevelWarn,
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres", zap.String("host", cfg.ConnConfig.Host))

	return &Store{pool: pool, log: logger}, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.log.Info("closing postgres connection pool")
	s.pool.Close()
}

// EnsureSchema creates the item table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure item schema: %w", err)
	}
	return nil
}

// Begin starts a transaction and returns a context carrying it.
func (s *Store) Begin(ctx context.Context) (context.Context, pgx.Tx, error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return nil, nil, ErrTxActive
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

// WithinTx runs fn in the ambient transaction, or in a new one that commits
// when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	txCtx, tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// Save inserts the item and assigns the returned key.
func (s *Store) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := store.CheckNew(item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	var id int64
	if err := s.conn(ctx).QueryRow(ctx, insertSQL, item.ItemName, item.Price, item.Quantity).Scan(&id); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	item.ID = id
	return item, nil
}

// Update overwrites name, price and quantity.
func (s *Store) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	tag, err := s.conn(ctx).Exec(ctx, updateSQL, param.ItemName, param.Price, param.Quantity, id)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update item %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// FindByID selects by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	items, err := s.query(ctx, selectSQL+" WHERE id = $1", id)
	if err != nil {
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, err)
	}

	switch len(items) {
	case 0:
		return model.Item{}, false, nil
	case 1:
		return items[0], true, nil
	default:
		return model.Item{}, false, fmt.Errorf("find item %d: %w", id, store.ErrAmbiguousResult)
	}
}

// FindAll numbers the placeholders of the filters that are present.
func (s *Store) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	query, args := buildFindAll(cond)

	items, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	return items, nil
}

func buildFindAll(cond model.ItemSearch) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if cond.HasName() {
		args = append(args, store.LikePattern(cond.ItemName))
		clauses = append(clauses, "item_name LIKE $"+strconv.Itoa(len(args))+` ESCAPE '\'`)
	}
	if cond.HasMaxPrice() {
		args = append(args, *cond.MaxPrice)
		clauses = append(clauses, "price <= $"+strconv.Itoa(len(args)))
	}

	query := selectSQL
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query + " ORDER BY id", args
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Item])
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}
