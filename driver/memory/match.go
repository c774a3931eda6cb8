package memory

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/leandroluk/golem-observer/core"
)

// match reports whether row satisfies condition. A nil condition matches everything.
func match(row map[string]any, condition *core.Condition) bool {
	if condition == nil || condition.Operator == nil {
		return true
	}
	switch *condition.Operator {
	case core.OpAnd:
		for _, child := range condition.Children {
			if !match(row, child) {
				return false
			}
		}
		return true
	case core.OpOr:
		for _, child := range condition.Children {
			if match(row, child) {
				return true
			}
		}
		return false
	case core.OpNot:
		for _, child := range condition.Children {
			if !match(row, child) {
				return true
			}
		}
		return false
	}

	value := row[condition.FieldName]
	switch *condition.Operator {
	case core.OpNil:
		return isNil(value)
	case core.OpEq:
		return equal(value, condition.Value)
	case core.OpGt:
		c, ok := compare(value, condition.Value)
		return ok && c > 0
	case core.OpGte:
		c, ok := compare(value, condition.Value)
		return ok && c >= 0
	case core.OpLt:
		c, ok := compare(value, condition.Value)
		return ok && c < 0
	case core.OpLte:
		c, ok := compare(value, condition.Value)
		return ok && c <= 0
	case core.OpLike:
		s, ok := value.(string)
		return ok && likePattern(fmt.Sprintf("%v", condition.Value)).MatchString(s)
	case core.OpIn:
		candidates, ok := condition.Value.([]any)
		if !ok {
			candidates = []any{condition.Value}
		}
		for _, candidate := range candidates {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

// likePattern compiles a case-insensitive SQL LIKE pattern.
func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values of the same family: numbers, strings or times.
func compare(a, b any) (int, bool) {
	if isNil(a) || isNil(b) {
		return 0, false
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok || x == y {
			return 0, ok
		}
		if !x {
			return -1, true
		}
		return 1, true
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// less orders two rows by the sort rules. Nil values sort first.
func less(a, b map[string]any, sortList []core.Sort) bool {
	for _, s := range sortList {
		va, vb := a[s.FieldName], b[s.FieldName]
		var c int
		switch {
		case isNil(va) && isNil(vb):
			continue
		case isNil(va):
			c = -1
		case isNil(vb):
			c = 1
		default:
			c, _ = compare(va, vb)
		}
		if c == 0 {
			continue
		}
		if s.Order < 0 {
			return c > 0
		}
		return c < 0
	}
	return false
}
