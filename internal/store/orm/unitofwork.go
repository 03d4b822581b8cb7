package orm

import (
	"sort"
	"sync"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// entry is one managed item and the state it had when it was last
// synchronised with the database.
type entry struct {
	item     model.Item
	snapshot model.Item
}

// unitOfWork is the identity map of one transaction. Items read or saved in
// the transaction are tracked here; changes are written back by flush.
type unitOfWork struct {
	mu      sync.Mutex
	managed map[int64]*entry
}

func newUnitOfWork() *unitOfWork {
	return &unitOfWork{managed: make(map[int64]*entry)}
}

// get returns the managed state of id.
func (u *unitOfWork) get(id int64) (model.Item, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	e, ok := u.managed[id]
	if !ok {
		return model.Item{}, false
	}
	return e.item, true
}

// manage starts tracking item unless its id is already tracked, and returns
// the managed state.
func (u *unitOfWork) manage(item model.Item) model.Item {
	u.mu.Lock()
	defer u.mu.Unlock()

	if e, ok := u.managed[item.ID]; ok {
		return e.item
	}
	u.managed[item.ID] = &entry{item: item, snapshot: item}
	return item
}

// modify applies param to the managed item. It reports false when id is not
// tracked.
func (u *unitOfWork) modify(id int64, param model.ItemUpdate) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	e, ok := u.managed[id]
	if !ok {
		return false
	}
	e.item.Apply(param)
	return true
}

// change is the set of columns of one item that differ from its snapshot.
type change struct {
	id      int64
	columns map[string]any
}

// dirty lists the pending changes ordered by id.
func (u *unitOfWork) dirty() []change {
	u.mu.Lock()
	defer u.mu.Unlock()

	var changes []change
	for id, e := range u.managed {
		if columns := diff(e.snapshot, e.item); len(columns) > 0 {
			changes = append(changes, change{id: id, columns: columns})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].id < changes[j].id })
	return changes
}

// synced marks the current state of id as written.
func (u *unitOfWork) synced(id int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if e, ok := u.managed[id]; ok {
		e.snapshot = e.item
	}
}

func diff(before, after model.Item) map[string]any {
	columns := make(map[string]any)
	if before.ItemName != after.ItemName {
		columns["item_name"] = after.ItemName
	}
	if before.Price != after.Price {
		columns["price"] = after.Price
	}
	if before.Quantity != after.Quantity {
		columns["quantity"] = after.Quantity
	}
	return columns
}
