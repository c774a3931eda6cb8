package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leandroluk/golem-observer/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toMongoLikePattern converts a SQL-like pattern into an anchored MongoDB
// regex pattern.
//
// It replaces % with .* (wildcard for multiple characters) and
// _ with . (wildcard for a single character).
//
// Example:
//
//	input := "%admin_"
//	regex := toMongoLikePattern(input)
//	// regex == "^.*admin.$"
func toMongoLikePattern(input string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range input {
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
	return b.String()
}

// buildFilter translates a condition tree into a MongoDB filter document.
func buildFilter(condition *core.Condition) bson.M {
	if condition == nil || condition.Operator == nil {
		return bson.M{}
	}
	if len(condition.Children) > 0 {
		childFilterList := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			childFilterList = append(childFilterList, buildFilter(child))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return bson.M{"$and": childFilterList}
		case core.OpOr:
			return bson.M{"$or": childFilterList}
		case core.OpNot:
			return bson.M{"$nor": childFilterList}
		default:
			return bson.M{}
		}
	}

	fieldName := condition.FieldName
	switch *condition.Operator {
	case core.OpNil:
		return bson.M{fieldName: bson.M{"$eq": nil}}
	case core.OpEq:
		return bson.M{fieldName: condition.Value}
	case core.OpGt:
		return bson.M{fieldName: bson.M{"$gt": condition.Value}}
	case core.OpGte:
		return bson.M{fieldName: bson.M{"$gte": condition.Value}}
	case core.OpLt:
		return bson.M{fieldName: bson.M{"$lt": condition.Value}}
	case core.OpLte:
		return bson.M{fieldName: bson.M{"$lte": condition.Value}}
	case core.OpLike:
		pattern := toMongoLikePattern(fmt.Sprintf("%v", condition.Value))
		return bson.M{fieldName: primitive.Regex{Pattern: pattern, Options: "i"}}
	case core.OpIn:
		var array []any
		switch v := condition.Value.(type) {
		case []any:
			array = v
		default:
			array = []any{condition.Value}
		}
		return bson.M{fieldName: bson.M{"$in": array}}
	default:
		return bson.M{}
	}
}

// buildSort translates sort rules into an ordered sort document.
func buildSort(sortList []core.Sort) bson.D {
	sortDoc := bson.D{}
	for _, sortItem := range sortList {
		direction := 1
		if sortItem.Order < 0 {
			direction = -1
		}
		sortDoc = append(sortDoc, bson.E{Key: sortItem.FieldName, Value: direction})
	}
	return sortDoc
}

// toRow converts a decoded document into a plain row, turning BSON-only
// value types into their Go equivalents.
func toRow(doc bson.M) map[string]any {
	row := make(map[string]any, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case primitive.DateTime:
			row[key] = v.Time()
		case primitive.A:
			row[key] = []any(v)
		default:
			row[key] = value
		}
	}
	return row
}
