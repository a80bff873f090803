// Package registry tracks the set of live virtual tables by name so one
// table can look up another, the mechanism a future window() join
// operator would use to find its input tables. Component C6.
package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/linuxfood/setab/internal/nlog"
)

// Table is the minimal surface a registered entry must provide. vtab.Table
// satisfies this without registry importing vtab, avoiding an import
// cycle between table construction (which registers itself) and lookup.
type Table interface {
	Name() string
	Close() error
}

// Registry is a concurrency-safe name -> Table lookup, shared by every
// table its owner creates.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tables: make(map[string]Table)}
}

// Add registers t under name, replacing any previous entry of the same
// name.
func (r *Registry) Add(name string, t Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = t
}

// Get looks up a table by name. ok is false if no table is registered
// under that name.
func (r *Registry) Get(name string) (t Table, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok = r.tables[name]
	return t, ok
}

// Remove drops name from the registry. It is a no-op if name isn't
// present.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
}

// Rename moves the entry at oldName to newName. It is a no-op if oldName
// isn't present.
func (r *Registry) Rename(oldName, newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[oldName]
	if !ok {
		return
	}
	r.tables[newName] = t
	delete(r.tables, oldName)
}

// Each calls fn once per registered table, in no particular order. fn
// must not call back into the Registry.
func (r *Registry) Each(fn func(name string, t Table)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, t := range r.tables {
		fn(name, t)
	}
}

// Len reports how many tables are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// CloseAll closes every registered table concurrently, draining the
// registry. It returns the first error encountered, if any, but still
// attempts to close every table.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	tables := make([]Table, 0, len(r.tables))
	for name, t := range r.tables {
		tables = append(tables, t)
		delete(r.tables, name)
	}
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, t := range tables {
		t := t
		g.Go(func() error {
			if err := t.Close(); err != nil {
				nlog.Warningln("registry: close", t.Name(), "failed:", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
