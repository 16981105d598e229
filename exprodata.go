package foldquery

import (
	"fmt"
	"strconv"
	"strings"
)

// compilePredicateOData renders pred as an OData v4 $filter expression
// (spec §4.C, OData side). Grounded on the same FilterPredicate algebra as
// compilePredicateSQL in exprsql.go, but targeting OData's
// eq/ne/gt/ge/lt/le/and/or/not/contains/startswith/endswith function
// syntax instead of SQL operators, with no parameter placeholders — OData
// filters are always inlined literals.
func compilePredicateOData(pred *FilterPredicate) (string, error) {
	if pred == nil {
		return "true", nil
	}
	switch pred.Kind {
	case PredicateAnd:
		return joinODataPredicates(pred.Predicates, " and ")
	case PredicateOr:
		return joinODataPredicates(pred.Predicates, " or ")
	case PredicateNot:
		inner, err := compilePredicateOData(pred.Child)
		if err != nil {
			return "", err
		}
		return "not (" + inner + ")", nil
	case PredicateComparison:
		return compileComparisonOData(pred)
	default:
		return "", NewUnknownPredicateKindError(pred.Kind)
	}
}

func joinODataPredicates(children []*FilterPredicate, sep string) (string, error) {
	if len(children) == 0 {
		return "true", nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		sql, err := compilePredicateOData(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+sql+")")
	}
	return strings.Join(parts, sep), nil
}

var odataComparisonOps = map[ComparisonOp]string{
	OpEquals:             "eq",
	OpNotEquals:          "ne",
	OpGreaterThan:        "gt",
	OpGreaterThanOrEqual: "ge",
	OpLessThan:           "lt",
	OpLessThanOrEqual:    "le",
}

func compileComparisonOData(pred *FilterPredicate) (string, error) {
	field := pred.Column

	if pred.Operator == OpIsNull {
		return field + " eq null", nil
	}
	if pred.Operator == OpIsNotNull {
		return field + " ne null", nil
	}

	if pred.Value.IsNull() {
		if pred.Operator.IsOrderedComparison() {
			return "false", nil
		}
		if pred.Operator == OpEquals {
			return field + " eq null", nil
		}
		if pred.Operator == OpNotEquals {
			return field + " ne null", nil
		}
	}

	if pred.Operator.IsLikeFamily() {
		return compileLikeOData(pred, field)
	}

	if !pred.Value.IsScalarFoldable() {
		return "", fmt.Errorf("value kind %q is not foldable for operator %q", pred.Value.Kind, pred.Operator)
	}

	op, ok := odataComparisonOps[pred.Operator]
	if !ok {
		return "", fmt.Errorf("unsupported comparison operator %q", pred.Operator)
	}

	literal := odataLiteral(pred.Value)
	lhs := field
	if (pred.Operator == OpEquals || pred.Operator == OpNotEquals) && !pred.EffectiveCaseSensitive() && pred.Value.Kind == ScalarKindText {
		lhs = "tolower(" + field + ")"
		literal = odataLiteral(&ScalarValue{Kind: ScalarKindText, Text: strings.ToLower(pred.Value.Text)})
	}
	return fmt.Sprintf("%s %s %s", lhs, op, literal), nil
}

// odataFuncNames maps the LIKE family to OData's string functions, which
// take the haystack first, as fn(haystack, needle) (the same order as
// SQL's "column LIKE pattern").
var odataFuncNames = map[ComparisonOp]string{
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
}

func compileLikeOData(pred *FilterPredicate, field string) (string, error) {
	if pred.Value == nil || pred.Value.Kind != ScalarKindText {
		return "", fmt.Errorf("%s requires a text value", pred.Operator)
	}
	fn := odataFuncNames[pred.Operator]
	haystack := field
	needle := odataLiteral(pred.Value)
	if !pred.EffectiveCaseSensitive() {
		haystack = "tolower(" + field + ")"
		needle = odataLiteral(&ScalarValue{Kind: ScalarKindText, Text: strings.ToLower(pred.Value.Text)})
	}
	return fmt.Sprintf("%s(%s, %s)", fn, haystack, needle), nil
}

// odataLiteral renders v as an inline OData v4 literal.
func odataLiteral(v *ScalarValue) string {
	if v == nil || v.Kind == ScalarKindNull {
		return "null"
	}
	switch v.Kind {
	case ScalarKindBool:
		return strconv.FormatBool(v.Bool)
	case ScalarKindInt:
		return strconv.FormatInt(v.Int64, 10)
	case ScalarKindFloat:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case ScalarKindDecimal:
		return v.Decimal + "M"
	case ScalarKindText:
		return "'" + strings.ReplaceAll(v.Text, "'", "''") + "'"
	case ScalarKindDate:
		return v.Time.Format("2006-01-02")
	case ScalarKindDateTime, ScalarKindDateTimeZone:
		return v.Time.Format("2006-01-02T15:04:05Z07:00")
	case ScalarKindDuration:
		return "duration'" + v.Duration.String() + "'"
	default:
		return "null"
	}
}
