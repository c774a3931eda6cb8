package postgres

import (
	"testing"

	"github.com/leandroluk/golem-observer/core"
	"github.com/stretchr/testify/assert"
)

type account struct {
	core.Base
	ID    int64  `db:"id"`
	Email string `db:"email"`
}

func TestBuildCondition(t *testing.T) {
	tests := []struct {
		name string
		cond *core.Condition
		sql  string
		args []any
	}{
		{"nil", nil, "1=1", []any{}},
		{"eq", (&core.Condition{FieldName: "id"}).Eq(1), `"id" = $1`, []any{1}},
		{"like", (&core.Condition{FieldName: "email"}).Like("%@x"), `"email" ILIKE $1`, []any{"%@x"}},
		{"is null", (&core.Condition{FieldName: "deleted_at"}).Nil(), `"deleted_at" IS NULL`, []any{}},
		{"not", (&core.Condition{FieldName: "deleted_at"}).Nil().Not(), `NOT ("deleted_at" IS NULL)`, []any{}},
		{"in", (&core.Condition{FieldName: "id"}).In(1, 2), `"id" IN ($1, $2)`, []any{1, 2}},
		{"empty in", (&core.Condition{FieldName: "id"}).In(), "1=0", []any{}},
		{
			"and",
			(&core.Condition{FieldName: "id"}).Gt(1).And((&core.Condition{FieldName: "id"}).Lte(9)),
			`("id" > $1 AND "id" <= $2)`,
			[]any{1, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []any{}
			assert.Equal(t, tt.sql, buildCondition(tt.cond, &args))
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildSelect(t *testing.T) {
	schema := core.Schema[account](core.Table[account]("accounts"), core.Database[account]("tenant"))
	where := &core.Where{
		Condition: (&core.Condition{FieldName: "email"}).Eq("a@b.c"),
		Sort:      []core.Sort{{FieldName: "id", Order: -1}},
		Limit:     10,
		Offset:    20,
	}

	sql, args := buildSelect(&schema.SchemaCore, where, false)
	assert.Equal(t, `SELECT "id", "email" FROM "tenant"."accounts" WHERE "email" = $1 ORDER BY "id" DESC LIMIT 10 OFFSET 20`, sql)
	assert.Equal(t, []any{"a@b.c"}, args)

	sql, _ = buildSelect(&schema.SchemaCore, &core.Where{}, true)
	assert.Equal(t, `SELECT "id", "email" FROM "tenant"."accounts" WHERE 1=1 LIMIT 1`, sql)
}
