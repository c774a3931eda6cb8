package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition_Builders(t *testing.T) {
	c := Column("age").Gt(18)
	assert.Equal(t, "age", c.FieldName)
	assert.Equal(t, OpGt, *c.Operator)
	assert.Equal(t, 18, c.Value)

	in := Column("id").In(1, 2)
	assert.Equal(t, []any{1, 2}, in.Value)

	and := c.And(Column("status").Eq("active"))
	assert.Equal(t, OpAnd, *and.Operator)
	assert.Len(t, and.Children, 2)
	assert.Same(t, c, and.Children[0])
}

func TestCondition_String(t *testing.T) {
	c := Column("age").Gt(18).And(Column("status").Eq("active"))
	assert.Equal(t, "(age GT 18 AND status EQ active)", c.String())
	assert.Equal(t, "NOT (deleted_at NIL)", Column("deleted_at").Nil().Not().String())
	assert.Equal(t, "(a EQ 1 OR b LIKE x%)", Column("a").Eq(1).Or(Column("b").Like("x%")).String())
	assert.Equal(t, "<all>", (*Condition)(nil).String())
}

func TestOperator_IsLogical(t *testing.T) {
	for _, op := range []Operator{OpAnd, OpOr, OpNot} {
		assert.True(t, op.IsLogical(), op)
	}
	for _, op := range []Operator{OpNil, OpEq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn} {
		assert.False(t, op.IsLogical(), op)
	}
}
