package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrTxActive is returned by Begin when ctx already carries a transaction.
var ErrTxActive = errors.New("transaction already active in context")

type txKey struct{}

// Tx is a unit of work over one connection. Repositories may attach
// per-transaction state with Resource and defer writes with BeforeCommit.
type Tx struct {
	*sqlx.Tx

	ctx          context.Context
	mu           sync.Mutex
	beforeCommit []func(context.Context) error
	resources    map[any]any
}

// TxFrom returns the transaction carried by ctx.
func TxFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// Begin starts a transaction and returns a context carrying it. The caller
// must Commit or Rollback.
func (db *DB) Begin(ctx context.Context) (context.Context, *Tx, error) {
	if _, ok := TxFrom(ctx); ok {
		return nil, nil, ErrTxActive
	}

	sqlxTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlxTx, resources: make(map[any]any)}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	return tx.ctx, tx, nil
}

// WithinTx runs fn inside the ambient transaction, or inside a new one that
// is committed when fn succeeds and rolled back otherwise.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}

	txCtx, tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	return tx.Commit()
}

// BeforeCommit registers fn to run, in registration order, right before the
// transaction commits. A failing hook rolls the transaction back.
func (tx *Tx) BeforeCommit(fn func(context.Context) error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.beforeCommit = append(tx.beforeCommit, fn)
}

// Resource returns the value stored under key, creating it on first use.
func (tx *Tx) Resource(key any, create func() any) any {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if v, ok := tx.resources[key]; ok {
		return v
	}
	v := create()
	tx.resources[key] = v
	return v
}

// Commit runs the before-commit hooks and commits.
func (tx *Tx) Commit() error {
	tx.mu.Lock()
	hooks := tx.beforeCommit
	tx.beforeCommit = nil
	tx.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(tx.ctx); err != nil {
			_ = tx.Tx.Rollback()
			return fmt.Errorf("before commit: %w", err)
		}
	}

	if err := tx.Tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
