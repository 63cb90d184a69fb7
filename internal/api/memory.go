package api

import (
	"context"
	"sync"
	"time"

	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/util"
)

// collection holds the records of one collection in insertion order.
type collection struct {
	mu      sync.RWMutex
	order   []string
	records map[string]record.Record
}

func newCollection() *collection {
	return &collection{records: make(map[string]record.Record)}
}

func (c *collection) remove(id string) {
	delete(c.records, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// MemoryAPI keeps every collection in memory. Data is lost on restart.
// Safe for concurrent use; each operation is atomic with respect to the
// collection it touches.
type MemoryAPI struct {
	mu          sync.RWMutex
	collections map[string]*collection
	now         func() time.Time
}

// NewMemoryAPI creates an empty in-memory backend.
func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

// getOrCreateCollection returns the named collection, creating it on first use.
func (m *MemoryAPI) getOrCreateCollection(name string) *collection {
	m.mu.RLock()
	c, ok := m.collections[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		return c
	}
	c = newCollection()
	m.collections[name] = c
	return c
}

// lookup returns the named collection without creating it.
func (m *MemoryAPI) lookup(name string) (*collection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	return c, ok
}

// Collections returns the names of collections created so far.
func (m *MemoryAPI) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	return names
}

func (m *MemoryAPI) Create(ctx context.Context, name string, data record.Record) (CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return CreateResult{}, err
	}
	normalized, err := record.Normalize(data)
	if err != nil {
		return CreateResult{}, errortypes.ValidationError(err, "invalid record data").WithField("collection", name)
	}

	c := m.getOrCreateCollection(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	id := util.GenerateID(name, m.now())
	for {
		if _, taken := c.records[id]; !taken {
			break
		}
		id = util.GenerateID(name, m.now())
	}

	c.records[id] = normalized.WithID(id)
	c.order = append(c.order, id)
	return CreateResult{ID: id}, nil
}

func (m *MemoryAPI) Get(ctx context.Context, name, id string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := m.lookup(name)
	if !ok {
		return nil, errortypes.NotFound(name, id)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok {
		return nil, errortypes.NotFound(name, id)
	}
	return r.Clone(), nil
}

func (m *MemoryAPI) List(ctx context.Context, name string, query record.Query) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := record.NormalizeQuery(query)
	if err != nil {
		return nil, errortypes.ValidationError(err, "invalid query").WithField("collection", name)
	}

	c, ok := m.lookup(name)
	if !ok {
		return []record.Record{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]record.Record, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		if r.Matches(q) {
			items = append(items, r.Clone())
		}
	}
	return items, nil
}

func (m *MemoryAPI) Update(ctx context.Context, name, id string, data record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := record.Normalize(data)
	if err != nil {
		return errortypes.ValidationError(err, "invalid record data").WithField("collection", name)
	}

	c, ok := m.lookup(name)
	if !ok {
		return errortypes.NotFound(name, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.records[id]
	if !ok {
		return errortypes.NotFound(name, id)
	}
	c.records[id] = existing.Merge(patch)
	return nil
}

func (m *MemoryAPI) Delete(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := m.lookup(name)
	if !ok {
		return errortypes.NotFound(name, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return errortypes.NotFound(name, id)
	}
	c.remove(id)
	return nil
}
