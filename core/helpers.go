// Package core provides the fundamental building blocks of the golem ORM.
// This file contains helper functions for reflection, field mapping,
// condition folding, and common value transformations.
package core

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// offsetOf returns the memory offset of a struct field selected by the given selector function.
//
// Example:
//
//	type User struct {
//	    ID   int
//	    Name string
//	}
//
//	offset := offsetOf(func(u *User) *string { return &u.Name })
func offsetOf[T any, F any](selector func(*T) *F) uintptr {
	var zero T
	base := uintptr(unsafe.Pointer(&zero))
	ptr := selector(&zero)
	return uintptr(unsafe.Pointer(ptr)) - base
}

// fieldNameFromSelectorFor resolves the Go struct field name from a selector function.
//
// It takes a function of the form func(*T) *F (or func(*T) any returning a
// field pointer) and uses reflection to map it back to the struct field name.
//
// Panics if the argument is not a function, or if the function does not return a field pointer.
func fieldNameFromSelectorFor[T any](selector any) string {
	if selector == nil {
		return ""
	}
	selectorValue := reflect.ValueOf(selector)
	if selectorValue.Kind() != reflect.Func {
		panic("selector must be a function")
	}

	// create *T
	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	arg := reflect.New(typ) // *T

	// execute the selector and obtain its return value
	out := selectorValue.Call([]reflect.Value{arg})
	if len(out) == 0 {
		panic("selector must return a pointer to a field")
	}
	ret := out[0]
	if ret.Kind() == reflect.Interface {
		ret = ret.Elem()
	}
	if ret.Kind() != reflect.Pointer {
		panic("selector must return a pointer to a field")
	}

	// calculate offset of the returned pointer relative to *T
	offset := ret.Pointer() - arg.Pointer()

	// find the field whose offset matches
	for _, sf := range reflect.VisibleFields(typ) {
		if len(sf.Index) == 1 && sf.Offset == offset {
			return sf.Name // Go struct field name
		}
	}
	return "???"
}

// mapToStruct maps a row (map[string]any) into a struct instance of type T.
//
// Row keys are database column names resolved through the schema. Values
// are assigned with support for:
//  1. Exact type matching
//  2. Value → pointer conversions (e.g. time.Time → *time.Time)
//  3. Pointer → value conversions (e.g. *time.Time → time.Time)
//  4. Convertible types (e.g. int32 → int64)
//
// Columns unknown to the schema fall back to a case-insensitive field name match.
func mapToStruct[T any](schema *SchemaCore, row map[string]any, out *T) error {
	value := reflect.ValueOf(out).Elem()
	for rowKey, rowValue := range row {
		var field reflect.Value
		for _, f := range schema.Fields {
			if f.DatabaseColumnName == rowKey {
				field = value.FieldByName(f.StructFieldName)
				break
			}
		}
		if !field.IsValid() {
			field = value.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, rowKey) })
		}
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		if err := assignValue(field, rowValue); err != nil {
			return errors.Wrapf(err, "core: column %q", rowKey)
		}
	}
	return nil
}

func assignValue(field reflect.Value, rowValue any) error {
	if rowValue == nil {
		// If the field is a pointer, set to nil; otherwise keep the zero value
		if field.Kind() == reflect.Pointer {
			field.Set(reflect.Zero(field.Type()))
		}
		return nil
	}

	rv := reflect.ValueOf(rowValue)

	switch {
	// 1) exact type match
	case rv.Type().AssignableTo(field.Type()):
		field.Set(rv)
	// 2) value → pointer
	case field.Kind() == reflect.Pointer && rv.Type().AssignableTo(field.Type().Elem()):
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv)
		field.Set(ptr)
	// 3) pointer → value
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem().AssignableTo(field.Type()):
		field.Set(rv.Elem())
	// 4) convertible types
	case rv.Type().ConvertibleTo(field.Type()):
		field.Set(rv.Convert(field.Type()))
	case field.Kind() == reflect.Pointer && rv.Type().ConvertibleTo(field.Type().Elem()):
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv.Convert(field.Type().Elem()))
		field.Set(ptr)
	default:
		return errors.Newf("cannot assign %s to %s", rv.Type(), field.Type())
	}
	return nil
}

// foldConditionsAnd combines multiple conditions into a single condition
// using logical AND. If zero conditions are provided, it returns nil.
// If one condition is provided, it returns that condition.
func foldConditionsAnd(conds ...*Condition) *Condition {
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		acc := conds[0]
		for i := 1; i < len(conds); i++ {
			acc = acc.And(conds[i])
		}
		return acc
	}
}

// StructValues extracts field values from a struct according to its schema.
//
// It returns two slices:
//   - values: field values in order
//   - placeholders: parameter placeholders ($1, $2, ...) for SQL queries
//
// Example:
//
//	values, placeholders := StructValues(userSchema, &user)
func StructValues(schema *SchemaCore, doc any) ([]any, []string) {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	valueList := []any{}
	placeholderList := []string{}

	for index, field := range schema.Fields {
		valueList = append(valueList, fieldValue(value.FieldByName(field.StructFieldName)))
		placeholderList = append(placeholderList, fmt.Sprintf("$%d", index+1))
	}

	return valueList, placeholderList
}

// StructColumns returns the document as a column → value map.
func StructColumns(schema *SchemaCore, doc any) map[string]any {
	valueList, _ := StructValues(schema, doc)
	row := make(map[string]any, len(valueList))
	for i, field := range schema.Fields {
		row[field.DatabaseColumnName] = valueList[i]
	}
	return row
}

func fieldValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

// primaryKeyValue returns the primary key value of a document.
func primaryKeyValue(schema *SchemaCore, doc any) (*Field, any, bool) {
	pk := schema.PrimaryKey()
	if pk == nil {
		return nil, nil, false
	}
	value := reflect.Indirect(reflect.ValueOf(doc))
	return pk, fieldValue(value.FieldByName(pk.StructFieldName)), true
}

// setTimeField sets a time.Time value into a struct field, supporting both
// value and pointer kinds.
//
// If the field is a struct time.Time, it sets the value directly.
// If the field is a *time.Time, it sets or allocates as needed.
func setTimeField(field reflect.Value, t time.Time) {
	if !field.IsValid() || !field.CanSet() {
		return
	}
	timeType := reflect.TypeOf(time.Time{})

	switch field.Kind() {
	case reflect.Struct:
		if field.Type() == timeType {
			field.Set(reflect.ValueOf(t))
		}
	case reflect.Pointer:
		if field.Type().Elem() == timeType {
			if field.IsNil() {
				ptr := reflect.New(timeType)
				ptr.Elem().Set(reflect.ValueOf(t))
				field.Set(ptr)
			} else {
				field.Elem().Set(reflect.ValueOf(t))
			}
		}
	}
}
