// Package core provides the fundamental building blocks of the golem ORM.
// This file defines the Model[T], which represents the entry point for working
// with a specific schema (entity). A Model handles persistence, queries,
// lifecycle hooks, soft-deletes and transaction binding of rows.
package core

import (
	"context"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotRow is returned when a value handed to a Model is not a row
	// (a non-nil pointer to a struct embedding Base).
	ErrNotRow = errors.New("core: value is not a row")
	// ErrNoPrimaryKey is returned when an operation needs the primary key
	// of a schema that does not declare one.
	ErrNoPrimaryKey = errors.New("core: schema has no primary key")
	// ErrNotPersisted is returned when deleting a row that was never saved.
	ErrNotPersisted = errors.New("core: row is not persisted")
)

// Model represents a repository-like abstraction for a schema T.
//
// It wraps a SchemaMeta[T] and a Driver, exposing high-level operations such as
// Create, Save, Delete, Find, FindMany and Paginate. Every row operation runs
// the hooks registered on the schema (see Hooks) around the driver call.
//
// *T must implement Row, which is achieved by embedding Base in T.
type Model[T any] struct {
	schema *SchemaMeta[T]
	driver Driver
}

// NewModel creates a new Model instance bound to a schema and driver.
//
// It panics if *T does not implement Row.
//
// Example:
//
//	userModel := core.NewModel(userSchema, postgresDriver)
func NewModel[T any](schema *SchemaMeta[T], driver Driver) *Model[T] {
	if _, ok := any(new(T)).(Row); !ok {
		panic(errors.Wrapf(ErrNotRow, "core: %s does not embed core.Base", reflect.TypeOf(new(T)).Elem()))
	}
	return &Model[T]{schema: schema, driver: driver}
}

// Name returns the name of the Go type mapped by the model.
func (m *Model[T]) Name() string { return m.schema.Name }

// Schema returns the schema of the model.
func (m *Model[T]) Schema() *SchemaMeta[T] { return m.schema }

// Hooks returns the hook registry shared by every handle on the model.
func (m *Model[T]) Hooks() *Hooks { return m.schema.hooks }

// Query starts a new query on the model's schema.
func (m *Model[T]) Query() *Query[T] { return NewQuery(m.schema) }

// WithTenant creates a new Model[T] instance bound to a different database.
//
// It clones the schema and replaces only the Database name in SchemaCore.
// The clone keeps the hook registry of the source model.
func (m *Model[T]) WithTenant(database string) *Model[T] {
	cloneSchema := *m.schema
	cloneSchema.Database = database
	return &Model[T]{schema: &cloneSchema, driver: m.driver}
}

// clientFor returns the execution client bound to ctx.
func clientFor(ctx context.Context) Client {
	if tx := TransactionFrom(ctx); tx != nil {
		return tx
	}
	return poolClient{}
}

// rowContext binds the row to the transaction of ctx or, when ctx has
// none, returns a context carrying the row's own open transaction.
func rowContext(ctx context.Context, row Row) context.Context {
	if tx := TransactionFrom(ctx); tx != nil {
		row.base().UseTransaction(tx)
		return ctx
	}
	if tx := row.Transaction(); tx != nil && !tx.IsDone() {
		return WithTransaction(ctx, tx)
	}
	return ctx
}

func (m *Model[T]) rowOf(doc *T) (Row, error) {
	if doc == nil {
		return nil, errors.Wrapf(ErrNotRow, "core: nil %s", m.schema.Name)
	}
	row, ok := asRow(doc)
	if !ok {
		return nil, errors.Wrapf(ErrNotRow, "core: %T", doc)
	}
	return row, nil
}

// withSoftDelete applies soft-delete filtering rules to a query.
// It automatically excludes deleted records unless WithDeleted or OnlyDeleted
// flags are set in the query options.
func (m *Model[T]) withSoftDelete(where *Where) *Where {
	if where == nil {
		where = &Where{}
	}
	if m.schema.deletedAtField == nil {
		return where
	}
	eff := where.clone()
	col := m.schema.deletedAtField.DatabaseColumnName

	if where.OnlyDeleted {
		eff.Condition = foldConditionsAnd(nonNil(
			where.Condition,
			Column(col).Nil().Not(),
		)...)
		return eff
	}
	if !where.WithDeleted {
		eff.Condition = foldConditionsAnd(nonNil(
			where.Condition,
			Column(col).Nil(),
		)...)
	}
	return eff
}

func nonNil(conds ...*Condition) []*Condition {
	out := conds[:0:0]
	for _, c := range conds {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// hydrate maps a driver row into a new entity bound to the transaction of ctx.
func (m *Model[T]) hydrate(ctx context.Context, raw map[string]any) (*T, Row, error) {
	value := new(T)
	if err := mapToStruct(&m.schema.SchemaCore, raw, value); err != nil {
		return nil, nil, errors.Wrapf(err, "core: hydrate %s", m.schema.Name)
	}
	row, _ := asRow(value)
	row.base().setPersisted(true)
	if tx := TransactionFrom(ctx); tx != nil {
		row.base().UseTransaction(tx)
	}
	return value, row, nil
}

// Create inserts a new entity into the database.
//
// Hooks run in this order: before create, before save, insert, after
// create, after save. createdAt and updatedAt fields (if defined in the
// schema) are set right before the insert.
func (m *Model[T]) Create(ctx context.Context, doc *T) error {
	row, err := m.rowOf(doc)
	if err != nil {
		return err
	}
	return m.insert(rowContext(ctx, row), doc, row)
}

// Save inserts the entity when it is new and updates it otherwise.
func (m *Model[T]) Save(ctx context.Context, doc *T) error {
	row, err := m.rowOf(doc)
	if err != nil {
		return err
	}
	ctx = rowContext(ctx, row)
	if row.IsPersisted() {
		return m.update(ctx, doc, row)
	}
	return m.insert(ctx, doc, row)
}

func (m *Model[T]) insert(ctx context.Context, doc *T, row Row) error {
	return dispatchOperation(ctx, OperationInsert, doc, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookCreate, row); err != nil {
			return err
		}
		if err := hooks.exec(ctx, PhaseBefore, HookSave, row); err != nil {
			return err
		}

		now := time.Now()
		val := reflect.ValueOf(doc).Elem()
		if m.schema.createdAtField != nil {
			setTimeField(val.FieldByName(m.schema.createdAtField.StructFieldName), now)
		}
		if m.schema.updatedAtField != nil {
			setTimeField(val.FieldByName(m.schema.updatedAtField.StructFieldName), now)
		}

		if err := m.driver.Insert(ctx, &m.schema.SchemaCore, doc); err != nil {
			return errors.Wrapf(err, "core: insert %s", m.schema.Name)
		}
		row.base().setPersisted(true)

		if err := hooks.exec(ctx, PhaseAfter, HookCreate, row); err != nil {
			return err
		}
		return hooks.exec(ctx, PhaseAfter, HookSave, row)
	})
}

// byPrimaryKey returns the condition matching the row's primary key.
func (m *Model[T]) byPrimaryKey(doc *T) (*Field, *Condition, error) {
	pk, id, ok := primaryKeyValue(&m.schema.SchemaCore, doc)
	if !ok {
		return nil, nil, errors.Wrapf(ErrNoPrimaryKey, "core: %s", m.schema.Name)
	}
	return pk, Column(pk.DatabaseColumnName).Eq(id), nil
}

func (m *Model[T]) update(ctx context.Context, doc *T, row Row) error {
	pk, condition, err := m.byPrimaryKey(doc)
	if err != nil {
		return err
	}
	return dispatchOperation(ctx, OperationUpdate, doc, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookUpdate, row); err != nil {
			return err
		}
		if err := hooks.exec(ctx, PhaseBefore, HookSave, row); err != nil {
			return err
		}

		if m.schema.updatedAtField != nil {
			setTimeField(reflect.ValueOf(doc).Elem().FieldByName(m.schema.updatedAtField.StructFieldName), time.Now())
		}
		changes := Changes(StructColumns(&m.schema.SchemaCore, doc))
		delete(changes, pk.DatabaseColumnName)
		if err := m.driver.Update(ctx, &m.schema.SchemaCore, condition, changes); err != nil {
			return errors.Wrapf(err, "core: update %s", m.schema.Name)
		}

		if err := hooks.exec(ctx, PhaseAfter, HookUpdate, row); err != nil {
			return err
		}
		return hooks.exec(ctx, PhaseAfter, HookSave, row)
	})
}

// Delete removes the entity from the database.
//
// If soft-delete is enabled (deletedAt field exists), it sets the deletedAt
// timestamp instead of physically removing the record.
func (m *Model[T]) Delete(ctx context.Context, doc *T) error {
	row, err := m.rowOf(doc)
	if err != nil {
		return err
	}
	if !row.IsPersisted() {
		return errors.Wrapf(ErrNotPersisted, "core: delete %s", m.schema.Name)
	}
	_, condition, err := m.byPrimaryKey(doc)
	if err != nil {
		return err
	}
	ctx = rowContext(ctx, row)
	return dispatchOperation(ctx, OperationDelete, doc, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookDelete, row); err != nil {
			return err
		}

		if m.schema.deletedAtField != nil {
			now := time.Now()
			setTimeField(reflect.ValueOf(doc).Elem().FieldByName(m.schema.deletedAtField.StructFieldName), now)
			changes := Changes{m.schema.deletedAtField.DatabaseColumnName: now}
			if err := m.driver.Update(ctx, &m.schema.SchemaCore, condition, changes); err != nil {
				return errors.Wrapf(err, "core: soft delete %s", m.schema.Name)
			}
		} else if err := m.driver.Delete(ctx, &m.schema.SchemaCore, condition); err != nil {
			return errors.Wrapf(err, "core: delete %s", m.schema.Name)
		}
		row.base().setDeleted()

		return hooks.exec(ctx, PhaseAfter, HookDelete, row)
	})
}

// Find returns the entity whose primary key equals id, or nil when none matches.
func (m *Model[T]) Find(ctx context.Context, id any) (*T, error) {
	pk := m.schema.PrimaryKey()
	if pk == nil {
		return nil, errors.Wrapf(ErrNoPrimaryKey, "core: %s", m.schema.Name)
	}
	q := m.Query()
	q.AndWhere(Column(pk.DatabaseColumnName).Eq(id))
	return m.FindOne(ctx, q)
}

// FindOne returns the first entity matching the query, or nil when none matches.
//
// The before find hooks receive the query and may narrow it; the after find
// hooks receive the row.
func (m *Model[T]) FindOne(ctx context.Context, qb *Query[T]) (*T, error) {
	if qb == nil {
		qb = m.Query()
	}
	qb.useClient(clientFor(ctx))

	var result *T
	err := dispatchOperation(ctx, OperationFind, qb, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookFind, qb); err != nil {
			return err
		}

		raw, err := m.driver.FindOne(ctx, &m.schema.SchemaCore, m.withSoftDelete(qb.where))
		if err != nil {
			return errors.Wrapf(err, "core: find %s", m.schema.Name)
		}
		record, ok := raw.(map[string]any)
		if !ok || record == nil {
			return nil
		}
		value, row, err := m.hydrate(ctx, record)
		if err != nil {
			return err
		}
		if err := hooks.exec(ctx, PhaseAfter, HookFind, row); err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// FindMany returns every entity matching the query.
//
// The before fetch hooks receive the query; the after fetch hooks receive
// the rows, possibly empty.
func (m *Model[T]) FindMany(ctx context.Context, qb *Query[T]) ([]*T, error) {
	if qb == nil {
		qb = m.Query()
	}
	qb.useClient(clientFor(ctx))

	var results []*T
	err := dispatchOperation(ctx, OperationFind, qb, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookFetch, qb); err != nil {
			return err
		}

		values, rows, err := m.fetch(ctx, m.withSoftDelete(qb.where))
		if err != nil {
			return err
		}
		if err := hooks.exec(ctx, PhaseAfter, HookFetch, rows); err != nil {
			return err
		}
		results = values
		return nil
	})
	return results, err
}

func (m *Model[T]) fetch(ctx context.Context, where *Where) ([]*T, []Row, error) {
	raw, err := m.driver.FindMany(ctx, &m.schema.SchemaCore, where)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "core: fetch %s", m.schema.Name)
	}
	records, _ := raw.([]map[string]any)
	values := make([]*T, 0, len(records))
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		value, row, err := m.hydrate(ctx, record)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, value)
		rows = append(rows, row)
	}
	return values, rows, nil
}

// Paginate returns one page of the entities matching the query.
//
// The query is cloned into a count query before anything runs; the before
// paginate hooks receive both. page starts at 1, perPage defaults to
// DefaultPerPage.
func (m *Model[T]) Paginate(ctx context.Context, qb *Query[T], page, perPage int) (*Page[T], error) {
	if qb == nil {
		qb = m.Query()
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	qb.useClient(clientFor(ctx))
	countQuery := qb.Clone()

	var result *Page[T]
	err := dispatchOperation(ctx, OperationPaginate, qb, func(ctx context.Context) error {
		hooks := m.schema.hooks
		if err := hooks.exec(ctx, PhaseBefore, HookPaginate, PaginateQueries{Count: countQuery, Query: qb}); err != nil {
			return err
		}

		total, err := m.driver.Count(ctx, &m.schema.SchemaCore, m.withSoftDelete(countQuery.where).Condition)
		if err != nil {
			return errors.Wrapf(err, "core: count %s", m.schema.Name)
		}
		where := m.withSoftDelete(qb.where).clone()
		where.Limit = perPage
		where.Offset = (page - 1) * perPage
		values, _, err := m.fetch(ctx, where)
		if err != nil {
			return err
		}

		p := newPage(values, total, page, perPage)
		if err := hooks.exec(ctx, PhaseAfter, HookPaginate, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	return result, err
}

// Count returns the number of entities matching the query.
//
// It applies soft-delete rules automatically and delegates counting to the driver.
func (m *Model[T]) Count(ctx context.Context, qb *Query[T]) (int64, error) {
	if qb == nil {
		qb = m.Query()
	}
	qb.useClient(clientFor(ctx))
	where := m.withSoftDelete(qb.where)
	var count int64
	err := dispatchOperation(ctx, OperationFind, qb, func(ctx context.Context) error {
		var err error
		count, err = m.driver.Count(ctx, &m.schema.SchemaCore, where.Condition)
		return err
	})
	return count, err
}

// UpdateWhere applies changes to every entity matching a condition.
//
// It bypasses row hooks. The updatedAt column (if defined in the schema) is
// set automatically; changes itself is left untouched and may be nil.
func (m *Model[T]) UpdateWhere(ctx context.Context, condition *Condition, changes Changes) error {
	applied := make(Changes, len(changes)+1)
	for column, value := range changes {
		applied[column] = value
	}
	if m.schema.updatedAtField != nil {
		applied[m.schema.updatedAtField.DatabaseColumnName] = time.Now()
	}
	return dispatchOperation(ctx, OperationUpdate, applied, func(ctx context.Context) error {
		return m.driver.Update(ctx, &m.schema.SchemaCore, condition, applied)
	})
}

// DeleteWhere removes every entity matching a condition, softly when the
// schema has a deletedAt field. It bypasses row hooks.
func (m *Model[T]) DeleteWhere(ctx context.Context, condition *Condition) error {
	return dispatchOperation(ctx, OperationDelete, condition, func(ctx context.Context) error {
		if m.schema.deletedAtField != nil {
			changes := Changes{m.schema.deletedAtField.DatabaseColumnName: time.Now()}
			return m.driver.Update(ctx, &m.schema.SchemaCore, condition, changes)
		}
		return m.driver.Delete(ctx, &m.schema.SchemaCore, condition)
	})
}
