package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryEntity struct {
	Base
	ID    int64  `db:"id"`
	Email string `db:"email_address"`
	Age   int
}

func TestQuery_WhereResolvesColumns(t *testing.T) {
	q := NewQuery(Schema[queryEntity]())

	byName := q.Where("Email").Eq("a@b.c")
	assert.Equal(t, "email_address", byName.FieldName)
	assert.Equal(t, OpEq, *byName.Operator)

	bySelector := q.Where(func(e *queryEntity) any { return &e.Email }).Like("%@b.c")
	assert.Equal(t, "email_address", bySelector.FieldName)

	untagged := q.Where("Age").Gt(18)
	assert.Equal(t, "Age", untagged.FieldName)

	assert.Panics(t, func() { q.Where(42) })
}

func TestQuery_FilterAndAndWhere(t *testing.T) {
	q := NewQuery(Schema[queryEntity]()).Filter(func(f Filter[queryEntity]) []*Condition {
		return []*Condition{f.Where("Age").Gte(18)}
	})
	require.NotNil(t, q.Options().Condition)
	assert.Equal(t, OpGte, *q.Options().Condition.Operator)

	q.AndWhere(q.Where("ID").In(1, 2))
	cond := q.Options().Condition
	assert.Equal(t, OpAnd, *cond.Operator)
	assert.Len(t, cond.Children, 2)

	q.AndWhere(nil)
	assert.Same(t, cond, q.Options().Condition)
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	q := NewQuery(Schema[queryEntity]()).OrderBy("id", 1).Limit(5).Offset(10)
	q.useClient(poolClient{})

	c := q.Clone()
	c.OrderBy("age", -1).Limit(1)
	c.AndWhere(c.Where("Age").Lt(3))

	assert.Len(t, q.Options().Sort, 1)
	assert.Equal(t, 5, q.Options().Limit)
	assert.Nil(t, q.Options().Condition)
	assert.Len(t, c.Options().Sort, 2)
	assert.Equal(t, 10, c.Options().Offset)
	assert.Equal(t, q.Client(), c.Client())
	assert.Equal(t, "queryEntity", c.Collection())
}

func TestSchema_OverrideFieldAndSkipsBase(t *testing.T) {
	schema := Schema[queryEntity](
		Table[queryEntity]("entities"),
		OverrideField(func(e *queryEntity) *int64 { return &e.ID }, PrimaryKey()),
	)
	assert.Equal(t, "entities", schema.Collection)
	assert.Equal(t, "queryEntity", schema.Name)
	require.Len(t, schema.Fields, 3)
	require.NotNil(t, schema.PrimaryKey())
	assert.Equal(t, "id", schema.PrimaryKey().DatabaseColumnName)
	assert.NotNil(t, schema.Hooks())
}

func TestMapToStruct(t *testing.T) {
	schema := Schema[queryEntity]()
	var out queryEntity
	err := mapToStruct(&schema.SchemaCore, map[string]any{
		"id":            int32(7),
		"email_address": "x@y.z",
		"age":           int64(30),
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, "x@y.z", out.Email)
	assert.Equal(t, 30, out.Age)

	err = mapToStruct(&schema.SchemaCore, map[string]any{"id": []string{"nope"}}, &out)
	assert.Error(t, err)
}
