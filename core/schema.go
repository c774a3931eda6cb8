// Package core provides the fundamental building blocks of the golem ORM.
// This file defines the schema system, which maps Go structs to database
// collections/tables, describes fields and supports schema building.
package core

import "reflect"

// Field represents a struct field mapped to a database column.
//
// It contains metadata such as the Go field name, database column name,
// type information, constraints (primary key, unique, required), default value,
// and special markers for timestamp fields (createdAt, updatedAt, deletedAt).
type Field struct {
	StructFieldName    string       // Name of the field in the Go struct
	DatabaseColumnName string       // Name of the column in the database
	Type               reflect.Type // Go type of the field
	IsPrimaryKey       bool         // Whether this field is a primary key
	IsUnique           bool         // Whether this field is unique
	IsRequired         bool         // Whether this field is required
	DefaultValue       string       // Default value (if any)
	MemoryOffset       uintptr      // Memory offset within the struct

	// Special timestamp markers
	IsCreatedAt bool
	IsUpdatedAt bool
	IsDeletedAt bool
}

// FieldOption is a function used to configure a Field.
type FieldOption func(*Field)

// PrimaryKey marks the field as a primary key.
func PrimaryKey() FieldOption {
	return func(f *Field) { f.IsPrimaryKey = true }
}

// Unique marks the field as unique.
func Unique() FieldOption {
	return func(f *Field) { f.IsUnique = true }
}

// Required marks the field as required (non-nullable).
func Required() FieldOption {
	return func(f *Field) { f.IsRequired = true }
}

// Default sets a default value for the field.
func Default(value string) FieldOption {
	return func(f *Field) { f.DefaultValue = value }
}

// CreatedAt marks the field as the createdAt timestamp.
func CreatedAt() FieldOption {
	return func(f *Field) { f.IsCreatedAt = true }
}

// UpdatedAt marks the field as the updatedAt timestamp.
func UpdatedAt() FieldOption {
	return func(f *Field) { f.IsUpdatedAt = true }
}

// DeletedAt marks the field as the deletedAt timestamp (for soft deletes).
func DeletedAt() FieldOption {
	return func(f *Field) { f.IsDeletedAt = true }
}

// SchemaCore contains the minimal schema information required at runtime.
//
// It includes the database name, collection/table name, fields, and a
// map of fields indexed by their memory offsets.
type SchemaCore struct {
	Database       string
	Collection     string
	Fields         []*Field
	fieldsByOffset map[uintptr]*Field
}

// PrimaryKey returns the primary key field, or nil if none was declared.
func (s *SchemaCore) PrimaryKey() *Field {
	for _, f := range s.Fields {
		if f.IsPrimaryKey {
			return f
		}
	}
	return nil
}

// SchemaMeta extends SchemaCore with runtime metadata.
//
// It contains the hook registry, the name of the mapped Go type and cached
// references to special fields (createdAt, updatedAt, deletedAt).
type SchemaMeta[T any] struct {
	SchemaCore
	Name string

	hooks *Hooks

	createdAtField *Field
	updatedAtField *Field
	deletedAtField *Field
}

// Hooks returns the hook registry of the schema.
func (s *SchemaMeta[T]) Hooks() *Hooks { return s.hooks }

// SchemaBuilder is used to construct a schema definition from a Go struct.
//
// It collects field metadata using reflection and applies customization
// through SchemaOptions.
type SchemaBuilder[T any] struct {
	database       string
	collection     string
	tagKey         string
	structType     reflect.Type
	fields         []*Field
	fieldsByOffset map[uintptr]*Field
}

// SchemaOption represents a function that customizes the schema builder.
type SchemaOption[T any] func(*SchemaBuilder[T])

// TagKey sets the struct tag key to use for database column mapping.
func TagKey[T any](key string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.tagKey = key }
}

// Table sets the database collection/table name for the schema.
func Table[T any](name string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.collection = name }
}

// Database sets the database name for the schema.
func Database[T any](name string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.database = name }
}

// OverrideField allows modifying the metadata of a specific field
// (e.g., making it required, unique, primary key, etc.).
func OverrideField[T any, F any](selector func(*T) *F, opts ...FieldOption) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) {
		if schemaBuilder.fieldsByOffset == nil || len(schemaBuilder.fields) == 0 {
			// first pass: fields are not reflected yet
			return
		}
		offset := offsetOf(selector)
		if field, ok := schemaBuilder.fieldsByOffset[offset]; ok {
			for _, opt := range opts {
				opt(field)
			}
		} else {
			panic("core: OverrideField: field not found by selector")
		}
	}
}

var baseType = reflect.TypeOf(Base{})

// Schema builds a SchemaMeta[T] by reflecting on struct fields
// and applying the given SchemaOptions.
//
// Only exported, directly declared fields are mapped; the embedded Base is
// skipped. Special timestamp fields (createdAt, updatedAt, deletedAt) are
// detected from the FieldOptions applied via OverrideField.
func Schema[T any](options ...SchemaOption[T]) *SchemaMeta[T] {
	var zero T
	structType := reflect.TypeOf(zero)
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	builder := &SchemaBuilder[T]{
		structType:     structType,
		collection:     structType.Name(),
		fieldsByOffset: make(map[uintptr]*Field),
	}

	// Apply options before building fields (Table/Database/TagKey/etc.)
	for _, option := range options {
		option(builder)
	}

	// Reflect fields from struct type
	for _, sf := range reflect.VisibleFields(structType) {
		if len(sf.Index) != 1 || !sf.IsExported() || sf.Type == baseType {
			continue
		}
		dbName := ""
		if builder.tagKey != "" {
			dbName = sf.Tag.Get(builder.tagKey)
		} else {
			dbName = sf.Tag.Get("db")
		}
		if dbName == "-" {
			continue
		}
		if dbName == "" {
			dbName = sf.Name
		}

		field := &Field{
			StructFieldName:    sf.Name,
			DatabaseColumnName: dbName,
			Type:               sf.Type,
			MemoryOffset:       sf.Offset,
		}
		builder.fields = append(builder.fields, field)
		builder.fieldsByOffset[sf.Offset] = field
	}

	// Re-apply options so that OverrideField can work after fields exist
	for _, option := range options {
		option(builder)
	}

	meta := &SchemaMeta[T]{
		SchemaCore: SchemaCore{
			Database:       builder.database,
			Collection:     builder.collection,
			Fields:         builder.fields,
			fieldsByOffset: builder.fieldsByOffset,
		},
		Name:  structType.Name(),
		hooks: NewHooks(),
	}

	// Detect special fields once
	for _, f := range builder.fields {
		if f.IsCreatedAt {
			meta.createdAtField = f
		}
		if f.IsUpdatedAt {
			meta.updatedAtField = f
		}
		if f.IsDeletedAt {
			meta.deletedAtField = f
		}
	}

	return meta
}
