// Package postgres implements core.Driver on top of pgx.
//
// Statements run on the pgx.Tx of the transaction carried by the context
// (see core.WithTransaction) and on the connection pool otherwise.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leandroluk/golem-observer/core"
	"go.uber.org/zap"
)

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Driver is the PostgreSQL core.Driver.
type Driver struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ core.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger logs every statement at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New opens a connection pool for connString.
func New(ctx context.Context, connString string, opts ...Option) (*Driver, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open pool")
	}
	return NewFromPool(pool, opts...), nil
}

// NewFromPool creates a Driver over an existing pool.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Driver {
	d := &Driver{pool: pool, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func formatTable(schema *core.SchemaCore) string {
	if schema.Database != "" {
		return fmt.Sprintf("%q.%q", schema.Database, schema.Collection)
	}
	return fmt.Sprintf("%q", schema.Collection)
}

// buildCondition renders a condition tree as a SQL boolean expression,
// appending the bound values to argList.
func buildCondition(condition *core.Condition, argList *[]any) string {
	if condition == nil || condition.Operator == nil {
		return "1=1"
	}
	if len(condition.Children) > 0 {
		partList := []string{}
		for _, child := range condition.Children {
			partList = append(partList, buildCondition(child, argList))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return "(" + strings.Join(partList, " AND ") + ")"
		case core.OpOr:
			return "(" + strings.Join(partList, " OR ") + ")"
		case core.OpNot:
			return "NOT (" + strings.Join(partList, " AND ") + ")"
		}
	}

	column := fmt.Sprintf("%q", condition.FieldName)
	bind := func(op string) string {
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s %s $%d", column, op, len(*argList))
	}
	switch *condition.Operator {
	case core.OpNil:
		return column + " IS NULL"
	case core.OpEq:
		return bind("=")
	case core.OpGt:
		return bind(">")
	case core.OpGte:
		return bind(">=")
	case core.OpLt:
		return bind("<")
	case core.OpLte:
		return bind("<=")
	case core.OpLike:
		return bind("ILIKE")
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "1=0"
		}
		placeholderList := []string{}
		for _, v := range valueList {
			*argList = append(*argList, v)
			placeholderList = append(placeholderList, fmt.Sprintf("$%d", len(*argList)))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholderList, ", "))
	}
	return "1=1"
}

// buildSelect renders the SELECT statement for a find.
func buildSelect(schema *core.SchemaCore, query *core.Where, single bool) (string, []any) {
	columnNameList := []string{}
	for _, field := range schema.Fields {
		columnNameList = append(columnNameList, fmt.Sprintf("%q", field.DatabaseColumnName))
	}

	argList := []any{}
	whereClause := buildCondition(query.Condition, &argList)
	sqlQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(columnNameList, ", "), formatTable(schema), whereClause)

	if len(query.Sort) > 0 {
		orderPartList := []string{}
		for _, sortItem := range query.Sort {
			direction := "ASC"
			if sortItem.Order < 0 {
				direction = "DESC"
			}
			orderPartList = append(orderPartList, fmt.Sprintf("%q %s", sortItem.FieldName, direction))
		}
		sqlQuery += " ORDER BY " + strings.Join(orderPartList, ", ")
	}
	if single {
		sqlQuery += " LIMIT 1"
	} else if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return sqlQuery, argList
}

// client returns the pgx.Tx bound to ctx, or the pool.
func (driver *Driver) client(ctx context.Context, sqlQuery string) querier {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if pgTx, ok := tx.Unwrap().(*postgresTransaction); ok {
			driver.logger.Debug("postgres statement", zap.String("sql", sqlQuery), zap.String("tx", tx.ID()))
			return pgTx.transaction
		}
	}
	driver.logger.Debug("postgres statement", zap.String("sql", sqlQuery))
	return driver.pool
}

func (driver *Driver) exec(ctx context.Context, sqlQuery string, args ...any) error {
	_, err := driver.client(ctx, sqlQuery).Exec(ctx, sqlQuery, args...)
	return err
}

func (driver *Driver) find(ctx context.Context, schema *core.SchemaCore, query *core.Where, single bool) ([]map[string]any, error) {
	if query == nil {
		query = &core.Where{}
	}
	sqlQuery, argList := buildSelect(schema, query, single)

	rowList, err := driver.client(ctx, sqlQuery).Query(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, err
	}
	defer rowList.Close()

	columnDescriptionList := rowList.FieldDescriptions()
	var resultList []map[string]any

	for rowList.Next() {
		valueList, err := rowList.Values()
		if err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(valueList))
		for i, col := range columnDescriptionList {
			rowMap[col.Name] = valueList[i]
		}
		resultList = append(resultList, rowMap)
		if single {
			break
		}
	}
	return resultList, rowList.Err()
}

func (driver *Driver) Connect(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *Driver) Ping(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *Driver) Close(ctx context.Context) error {
	driver.pool.Close()
	return nil
}

func (driver *Driver) Transaction(ctx context.Context) (core.Transaction, error) {
	tx, err := driver.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &postgresTransaction{transaction: tx}, nil
}

func (driver *Driver) Insert(ctx context.Context, schema *core.SchemaCore, documents ...any) error {
	if len(documents) == 0 {
		return nil
	}

	columnNameList := []string{}
	for _, field := range schema.Fields {
		columnNameList = append(columnNameList, fmt.Sprintf("%q", field.DatabaseColumnName))
	}
	columnList := "(" + strings.Join(columnNameList, ", ") + ")"

	for _, doc := range documents {
		valueList, placeholderList := core.StructValues(schema, doc)
		sqlQuery := fmt.Sprintf("INSERT INTO %s %s VALUES (%s)",
			formatTable(schema), columnList, strings.Join(placeholderList, ", "))

		if err := driver.exec(ctx, sqlQuery, valueList...); err != nil {
			return err
		}
	}
	return nil
}

func (driver *Driver) FindOne(ctx context.Context, schema *core.SchemaCore, query *core.Where) (any, error) {
	rowList, err := driver.find(ctx, schema, query, true)
	if err != nil {
		return nil, err
	}
	if len(rowList) == 0 {
		return nil, nil
	}
	return rowList[0], nil
}

func (driver *Driver) FindMany(ctx context.Context, schema *core.SchemaCore, query *core.Where) (any, error) {
	return driver.find(ctx, schema, query, false)
}

func (driver *Driver) Update(ctx context.Context, schema *core.SchemaCore, condition *core.Condition, changes core.Changes) error {
	if len(changes) == 0 {
		return nil
	}
	argList := []any{}
	whereClause := buildCondition(condition, &argList)

	setPartList := []string{}
	for column, value := range changes {
		argList = append(argList, value)
		setPartList = append(setPartList, fmt.Sprintf("%q = $%d", column, len(argList)))
	}

	sqlQuery := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		formatTable(schema), strings.Join(setPartList, ", "), whereClause)

	return driver.exec(ctx, sqlQuery, argList...)
}

func (driver *Driver) Delete(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) error {
	argList := []any{}
	whereClause := buildCondition(condition, &argList)
	sqlQuery := fmt.Sprintf("DELETE FROM %s WHERE %s", formatTable(schema), whereClause)
	return driver.exec(ctx, sqlQuery, argList...)
}

func (driver *Driver) Count(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) (int64, error) {
	argList := []any{}
	whereClause := buildCondition(condition, &argList)
	sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", formatTable(schema), whereClause)

	var count int64
	if err := driver.client(ctx, sqlQuery).QueryRow(ctx, sqlQuery, argList...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
