// Package memory implements core.Driver in process memory.
//
// Rows are stored as column maps keyed by database and collection.
// A transaction works on a private copy of the tables it touches and
// publishes them on commit. It is meant for tests and examples.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
)

// ErrTxDone is returned by operations on a finished transaction.
var ErrTxDone = errors.New("memory: transaction is finished")

type tableSet map[string][]map[string]any

// Driver is the in-memory core.Driver. Safe for concurrent use.
type Driver struct {
	mutex  sync.RWMutex
	tables tableSet
}

var _ core.Driver = (*Driver)(nil)

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{tables: make(tableSet)}
}

func tableKey(schema *core.SchemaCore) string {
	return schema.Database + "." + schema.Collection
}

func copyRow(row map[string]any) map[string]any {
	c := make(map[string]any, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}

func copyTable(rows []map[string]any) []map[string]any {
	c := make([]map[string]any, len(rows))
	for i, row := range rows {
		c[i] = copyRow(row)
	}
	return c
}

// Rows returns a copy of the committed rows of a collection, in insertion order.
func (d *Driver) Rows(schema *core.SchemaCore) []map[string]any {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return copyTable(d.tables[tableKey(schema)])
}

// transaction keeps the private copies of the tables it touched.
// Tables are copied lazily on first access.
type transaction struct {
	driver *Driver
	mutex  sync.Mutex
	tables tableSet
	done   bool
}

func (t *transaction) Commit(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.driver.mutex.Lock()
	defer t.driver.mutex.Unlock()
	for key, rows := range t.tables {
		t.driver.tables[key] = rows
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.tables = nil
	return nil
}

// access runs fn with the table for schema, either the transaction's copy or
// the committed one, under the matching lock. fn returns the new table
// content when write is true.
func (d *Driver) access(ctx context.Context, schema *core.SchemaCore, write bool, fn func(rows []map[string]any) []map[string]any) error {
	key := tableKey(schema)

	if tx := core.TransactionFrom(ctx); tx != nil {
		if t, ok := tx.Unwrap().(*transaction); ok && t.driver == d {
			t.mutex.Lock()
			defer t.mutex.Unlock()
			if t.done {
				return ErrTxDone
			}
			rows, ok := t.tables[key]
			if !ok {
				d.mutex.RLock()
				rows = copyTable(d.tables[key])
				d.mutex.RUnlock()
				t.tables[key] = rows
			}
			if updated := fn(rows); write {
				t.tables[key] = updated
			}
			return nil
		}
	}

	if write {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		d.tables[key] = fn(d.tables[key])
		return nil
	}
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	fn(d.tables[key])
	return nil
}

func (d *Driver) Connect(ctx context.Context) error { return nil }

func (d *Driver) Ping(ctx context.Context) error { return nil }

func (d *Driver) Close(ctx context.Context) error { return nil }

func (d *Driver) Transaction(ctx context.Context) (core.Transaction, error) {
	return &transaction{driver: d, tables: make(tableSet)}, nil
}

func (d *Driver) Insert(ctx context.Context, schema *core.SchemaCore, documents ...any) error {
	if len(documents) == 0 {
		return nil
	}
	return d.access(ctx, schema, true, func(rows []map[string]any) []map[string]any {
		for _, doc := range documents {
			rows = append(rows, core.StructColumns(schema, doc))
		}
		return rows
	})
}

func (d *Driver) find(ctx context.Context, schema *core.SchemaCore, query *core.Where, single bool) ([]map[string]any, error) {
	if query == nil {
		query = &core.Where{}
	}
	var resultList []map[string]any
	err := d.access(ctx, schema, false, func(rows []map[string]any) []map[string]any {
		for _, row := range rows {
			if match(row, query.Condition) {
				resultList = append(resultList, copyRow(row))
			}
		}
		return rows
	})
	if err != nil {
		return nil, err
	}

	if len(query.Sort) > 0 {
		sort.SliceStable(resultList, func(i, j int) bool {
			return less(resultList[i], resultList[j], query.Sort)
		})
	}
	if query.Offset > 0 {
		if query.Offset >= len(resultList) {
			return nil, nil
		}
		resultList = resultList[query.Offset:]
	}
	limit := query.Limit
	if single {
		limit = 1
	}
	if limit > 0 && limit < len(resultList) {
		resultList = resultList[:limit]
	}
	return resultList, nil
}

func (d *Driver) FindOne(ctx context.Context, schema *core.SchemaCore, query *core.Where) (any, error) {
	rowList, err := d.find(ctx, schema, query, true)
	if err != nil {
		return nil, err
	}
	if len(rowList) == 0 {
		return nil, nil
	}
	return rowList[0], nil
}

func (d *Driver) FindMany(ctx context.Context, schema *core.SchemaCore, query *core.Where) (any, error) {
	return d.find(ctx, schema, query, false)
}

func (d *Driver) Update(ctx context.Context, schema *core.SchemaCore, condition *core.Condition, changes core.Changes) error {
	return d.access(ctx, schema, true, func(rows []map[string]any) []map[string]any {
		for _, row := range rows {
			if !match(row, condition) {
				continue
			}
			for column, value := range changes {
				row[column] = value
			}
		}
		return rows
	})
}

func (d *Driver) Delete(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) error {
	return d.access(ctx, schema, true, func(rows []map[string]any) []map[string]any {
		kept := rows[:0:0]
		for _, row := range rows {
			if !match(row, condition) {
				kept = append(kept, row)
			}
		}
		return kept
	})
}

func (d *Driver) Count(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) (int64, error) {
	var count int64
	err := d.access(ctx, schema, false, func(rows []map[string]any) []map[string]any {
		for _, row := range rows {
			if match(row, condition) {
				count++
			}
		}
		return rows
	})
	return count, err
}
