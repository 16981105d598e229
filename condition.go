package foldquery

import "time"

// ScalarKind tags the ScalarValue union. Only these kinds may ever be
// emitted as a SQL parameter or an OData literal; anything else breaks
// folding at the predicate/formula value check (spec §4.C, §9).
type ScalarKind string

const (
	ScalarKindNull         ScalarKind = "null"
	ScalarKindBool         ScalarKind = "bool"
	ScalarKindInt          ScalarKind = "integer"
	ScalarKindFloat        ScalarKind = "number"
	ScalarKindDecimal      ScalarKind = "decimal"
	ScalarKindText         ScalarKind = "string"
	ScalarKindBinary       ScalarKind = "binary"
	ScalarKindDate         ScalarKind = "date"
	ScalarKindDateTime     ScalarKind = "datetime"
	ScalarKindDateTimeZone ScalarKind = "datetimezone"
	ScalarKindTime         ScalarKind = "time"
	ScalarKindDuration     ScalarKind = "duration"
	ScalarKindAny          ScalarKind = "any" // changeType target only: no-op
)

// ScalarValue is the dynamically-typed value carried by a comparison or a
// row-formula literal. Exactly one payload field is meaningful, selected by
// Kind; Text/Decimal are string-backed by design (see spec §9) so that
// formatting is never lossy.
type ScalarValue struct {
	Kind ScalarKind `json:"kind"`

	Bool     bool          `json:"bool,omitempty"`
	Int64    int64         `json:"int64,omitempty"`
	Float64  float64       `json:"float64,omitempty"`
	Decimal  string        `json:"decimal,omitempty"` // string-backed to avoid float round-trip loss
	Text     string        `json:"text,omitempty"`
	Binary   []byte        `json:"binary,omitempty"`
	Time     time.Time     `json:"time,omitempty"` // Date / DateTime / DateTimeZone / Time
	Duration time.Duration `json:"duration,omitempty"`
}

// IsScalarFoldable reports whether v may be emitted as a SQL parameter or
// OData literal. Binary values are scalar-typed but refused here.
// LIKE-family operators do not consult this check; they accept only a
// text value.
func (v *ScalarValue) IsScalarFoldable() bool {
	if v == nil {
		return true // absent value, e.g. isNull/isNotNull
	}
	switch v.Kind {
	case ScalarKindNull, ScalarKindBool, ScalarKindInt, ScalarKindFloat,
		ScalarKindDecimal, ScalarKindText, ScalarKindDate, ScalarKindDateTime,
		ScalarKindDateTimeZone, ScalarKindTime, ScalarKindDuration:
		return true
	default:
		return false
	}
}

// IsNull reports whether v represents the predicate-value null (distinct
// from an absent *ScalarValue, which means "no value", e.g. for isNull).
func (v *ScalarValue) IsNull() bool {
	return v != nil && v.Kind == ScalarKindNull
}

// ComparisonOp enumerates the comparison operators in the filter-predicate
// algebra (spec §3).
type ComparisonOp string

const (
	OpEquals             ComparisonOp = "equals"
	OpNotEquals          ComparisonOp = "notEquals"
	OpGreaterThan        ComparisonOp = "greaterThan"
	OpGreaterThanOrEqual ComparisonOp = "greaterThanOrEqual"
	OpLessThan           ComparisonOp = "lessThan"
	OpLessThanOrEqual    ComparisonOp = "lessThanOrEqual"
	OpContains           ComparisonOp = "contains"
	OpStartsWith         ComparisonOp = "startsWith"
	OpEndsWith           ComparisonOp = "endsWith"
	OpIsNull             ComparisonOp = "isNull"
	OpIsNotNull          ComparisonOp = "isNotNull"
)

// orderedComparisons is the set of operators whose null-predicate-value
// behavior is "fold to literal false" rather than "parameterise the null".
var orderedComparisons = map[ComparisonOp]bool{
	OpGreaterThan:        true,
	OpGreaterThanOrEqual: true,
	OpLessThan:           true,
	OpLessThanOrEqual:    true,
}

// IsOrderedComparison reports whether op is one of the four ordered
// comparisons (>, >=, <, <=).
func (op ComparisonOp) IsOrderedComparison() bool {
	return orderedComparisons[op]
}

// likeFamily is the set of operators that stringify their haystack and so
// are exempt from the scalar-value-kind refusal (spec §4.C).
var likeFamily = map[ComparisonOp]bool{
	OpContains:   true,
	OpStartsWith: true,
	OpEndsWith:   true,
}

// IsLikeFamily reports whether op is contains/startsWith/endsWith.
func (op ComparisonOp) IsLikeFamily() bool {
	return likeFamily[op]
}

// LogicOp connects children of a composite FilterPredicate.
type LogicOp string

const (
	LogicAnd LogicOp = "and"
	LogicOr  LogicOp = "or"
	LogicNot LogicOp = "not"
)

// PredicateKind tags the FilterPredicate union.
type PredicateKind string

const (
	PredicateAnd        PredicateKind = "and"
	PredicateOr         PredicateKind = "or"
	PredicateNot        PredicateKind = "not"
	PredicateComparison PredicateKind = "comparison"
)

// FilterPredicate is the recursive filter algebra described in spec §3:
// and{predicates[]} | or{predicates[]} | not{predicate} |
// comparison{column, operator, value?, caseSensitive?}.
type FilterPredicate struct {
	Kind PredicateKind `json:"kind"`

	// PredicateAnd / PredicateOr
	Predicates []*FilterPredicate `json:"predicates,omitempty"`

	// PredicateNot
	Child *FilterPredicate `json:"child,omitempty"`

	// PredicateComparison
	Column        string       `json:"column,omitempty"`
	Operator      ComparisonOp `json:"operator,omitempty"`
	Value         *ScalarValue `json:"value,omitempty"`
	CaseSensitive *bool        `json:"caseSensitive,omitempty"` // nil means "unspecified"; default is case-sensitive (spec §9 Open Question)
}

// EffectiveCaseSensitive resolves the Open Question in spec §9: the
// default case-sensitivity of equals/notEquals is case-sensitive even when
// CaseSensitive is explicitly set to false. This is preserved for
// behavioural compatibility with the reference engine. The explain trace
// does not report when this overrides an explicit setting.
func (p *FilterPredicate) EffectiveCaseSensitive() bool {
	if p.Operator == OpEquals || p.Operator == OpNotEquals {
		return true
	}
	if p.CaseSensitive == nil {
		return true
	}
	return *p.CaseSensitive
}

// And builds an 'and' predicate node.
func And(predicates ...*FilterPredicate) *FilterPredicate {
	return &FilterPredicate{Kind: PredicateAnd, Predicates: predicates}
}

// Or builds an 'or' predicate node.
func Or(predicates ...*FilterPredicate) *FilterPredicate {
	return &FilterPredicate{Kind: PredicateOr, Predicates: predicates}
}

// Not builds a 'not' predicate node.
func Not(child *FilterPredicate) *FilterPredicate {
	return &FilterPredicate{Kind: PredicateNot, Child: child}
}

// Cmp builds a leaf comparison predicate.
func Cmp(column string, op ComparisonOp, value *ScalarValue) *FilterPredicate {
	return &FilterPredicate{Kind: PredicateComparison, Column: column, Operator: op, Value: value}
}

// TextValue, IntValue, FloatValue, BoolValue, and NullValue build the
// ScalarValue literals callers need to assemble a FilterPredicate without
// reaching into the ScalarValue struct directly.
func TextValue(s string) *ScalarValue  { return &ScalarValue{Kind: ScalarKindText, Text: s} }
func IntValue(n int64) *ScalarValue    { return &ScalarValue{Kind: ScalarKindInt, Int64: n} }
func FloatValue(f float64) *ScalarValue { return &ScalarValue{Kind: ScalarKindFloat, Float64: f} }
func BoolValue(b bool) *ScalarValue    { return &ScalarValue{Kind: ScalarKindBool, Bool: b} }
func NullValue() *ScalarValue          { return &ScalarValue{Kind: ScalarKindNull} }
