// Package mongo implements core.Driver on top of the official MongoDB driver.
//
// Documents are stored with the schema's column names as keys. Operations
// run in the session of the transaction carried by the context, if any.
package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
	"go.mongodb.org/mongo-driver/bson"
	mdb "go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrNoDatabase is returned when neither the schema nor the driver name a database.
var ErrNoDatabase = errors.New("mongo: database name is empty")

// Driver is the MongoDB core.Driver.
type Driver struct {
	client          *mdb.Client
	defaultDatabase string
	logger          *zap.Logger
}

var _ core.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger logs every operation at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New connects to uri. defaultDB is used for schemas that do not set a Database.
func New(ctx context.Context, uri string, defaultDB string, opts ...Option) (*Driver, error) {
	clientOpts := mopt.Client().ApplyURI(uri)
	clientOpts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mdb.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo: connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongo: ping")
	}
	return NewFromClient(client, defaultDB, opts...), nil
}

// NewFromClient creates a Driver over an existing client.
func NewFromClient(client *mdb.Client, defaultDB string, opts ...Option) *Driver {
	d := &Driver{client: client, defaultDatabase: defaultDB, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (driver *Driver) coll(schema *core.SchemaCore) (*mdb.Collection, error) {
	dbName := driver.defaultDatabase
	if schema.Database != "" {
		dbName = schema.Database
	}
	if dbName == "" {
		return nil, errors.Wrapf(ErrNoDatabase, "mongo: collection %q", schema.Collection)
	}
	return driver.client.Database(dbName).Collection(schema.Collection), nil
}

// withSession binds the session of the context's transaction, if any.
func (driver *Driver) withSession(ctx context.Context, op string, schema *core.SchemaCore) context.Context {
	fields := []zap.Field{zap.String("op", op), zap.String("collection", schema.Collection)}
	if tx := core.TransactionFrom(ctx); tx != nil {
		if mt, ok := tx.Unwrap().(*mongoTransaction); ok {
			driver.logger.Debug("mongo operation", append(fields, zap.String("tx", tx.ID()))...)
			return mdb.NewSessionContext(ctx, mt.session)
		}
	}
	driver.logger.Debug("mongo operation", fields...)
	return ctx
}

func (driver *Driver) Connect(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *Driver) Ping(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *Driver) Close(ctx context.Context) error {
	return driver.client.Disconnect(ctx)
}

func (driver *Driver) Transaction(ctx context.Context) (core.Transaction, error) {
	session, err := driver.client.StartSession()
	if err != nil {
		return nil, err
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &mongoTransaction{session: session}, nil
}

func (driver *Driver) Insert(ctx context.Context, schema *core.SchemaCore, documents ...any) error {
	if len(documents) == 0 {
		return nil
	}
	coll, err := driver.coll(schema)
	if err != nil {
		return err
	}
	ctx = driver.withSession(ctx, "insert", schema)
	documentList := make([]any, 0, len(documents))
	for _, doc := range documents {
		documentList = append(documentList, bson.M(core.StructColumns(schema, doc)))
	}
	_, err = coll.InsertMany(ctx, documentList)
	return err
}

func (driver *Driver) find(ctx context.Context, schema *core.SchemaCore, query *core.Where, single bool) ([]map[string]any, error) {
	if query == nil {
		query = &core.Where{}
	}
	coll, err := driver.coll(schema)
	if err != nil {
		return nil, err
	}
	ctx = driver.withSession(ctx, "find", schema)
	findOpts := mopt.Find()
	if len(query.Sort) > 0 {
		findOpts.SetSort(buildSort(query.Sort))
	}
	if single {
		findOpts.SetLimit(1)
	} else if query.Limit > 0 {
		findOpts.SetLimit(int64(query.Limit))
	}
	if query.Offset > 0 {
		findOpts.SetSkip(int64(query.Offset))
	}

	cursor, err := coll.Find(ctx, buildFilter(query.Condition), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resultList []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		resultList = append(resultList, toRow(doc))
		if single {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return resultList, nil
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
	coll, err := driver.coll(schema)
	if err != nil {
		return err
	}
	ctx = driver.withSession(ctx, "update", schema)
	_, err = coll.UpdateMany(ctx, buildFilter(condition), bson.M{"$set": bson.M(changes)})
	return err
}

func (driver *Driver) Delete(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) error {
	coll, err := driver.coll(schema)
	if err != nil {
		return err
	}
	ctx = driver.withSession(ctx, "delete", schema)
	_, err = coll.DeleteMany(ctx, buildFilter(condition))
	return err
}

func (driver *Driver) Count(ctx context.Context, schema *core.SchemaCore, condition *core.Condition) (int64, error) {
	coll, err := driver.coll(schema)
	if err != nil {
		return 0, err
	}
	ctx = driver.withSession(ctx, "count", schema)
	return coll.CountDocuments(ctx, buildFilter(condition))
}
