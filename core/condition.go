package core

import (
	"fmt"
	"strings"
)

// Operator is the operator of a Condition, logical (And, Or, Not) or
// applied to a column value.
type Operator string

// Operators are variables so conditions can point at them.
var (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"

	OpNil  Operator = "NIL"
	OpEq   Operator = "EQ"
	OpGt   Operator = "GT"
	OpGte  Operator = "GTE"
	OpLt   Operator = "LT"
	OpLte  Operator = "LTE"
	OpLike Operator = "LIKE" // SQL LIKE pattern, % and _ wildcards
	OpIn   Operator = "IN"
)

// IsLogical reports whether op combines child conditions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// Condition is one node of a filter tree. Leaves compare FieldName with
// Value; logical nodes combine Children.
//
//	core.Column("age").Gt(18).And(core.Column("status").Eq("active"))
type Condition struct {
	FieldName string
	Operator  *Operator
	Value     any
	Children  []*Condition
}

// Column starts a condition on a database column.
func Column(name string) *Condition {
	return &Condition{FieldName: name}
}

func (c *Condition) set(op *Operator, v any) *Condition {
	c.Operator = op
	c.Value = v
	return c
}

func combine(op *Operator, children []*Condition) *Condition {
	return &Condition{Operator: op, Children: children}
}

func (c *Condition) And(conditions ...*Condition) *Condition {
	return combine(&OpAnd, append([]*Condition{c}, conditions...))
}

func (c *Condition) Or(conditions ...*Condition) *Condition {
	return combine(&OpOr, append([]*Condition{c}, conditions...))
}

func (c *Condition) Not() *Condition {
	return combine(&OpNot, []*Condition{c})
}

// Nil matches NULL (or missing) values.
func (c *Condition) Nil() *Condition { return c.set(&OpNil, nil) }

func (c *Condition) Eq(v any) *Condition {
	return c.set(&OpEq, v)
}

func (c *Condition) Gt(v any) *Condition {
	return c.set(&OpGt, v)
}

func (c *Condition) Gte(v any) *Condition {
	return c.set(&OpGte, v)
}

func (c *Condition) Lt(v any) *Condition {
	return c.set(&OpLt, v)
}

func (c *Condition) Lte(v any) *Condition {
	return c.set(&OpLte, v)
}

// Like matches a SQL LIKE pattern.
func (c *Condition) Like(pattern any) *Condition { return c.set(&OpLike, pattern) }

// In matches any of values. An empty list matches nothing.
func (c *Condition) In(values ...any) *Condition { return c.set(&OpIn, values) }

// String renders the condition for logs, e.g. (age GT 18 AND status EQ active).
func (c *Condition) String() string {
	if c == nil || c.Operator == nil {
		return "<all>"
	}
	if !c.Operator.IsLogical() {
		if *c.Operator == OpNil {
			return c.FieldName + " NIL"
		}
		return fmt.Sprintf("%s %s %v", c.FieldName, *c.Operator, c.Value)
	}
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	if *c.Operator == OpNot {
		return "NOT (" + strings.Join(parts, " AND ") + ")"
	}
	return "(" + strings.Join(parts, " "+string(*c.Operator)+" ") + ")"
}
