package foldquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveCaseSensitive_EqualsAlwaysCaseSensitive(t *testing.T) {
	insensitive := false
	p := Cmp("Region", OpEquals, &ScalarValue{Kind: ScalarKindText, Text: "east"})
	p.CaseSensitive = &insensitive

	assert.True(t, p.EffectiveCaseSensitive(), "equals must stay case-sensitive even when CaseSensitive=false (spec open question)")
}

func TestEffectiveCaseSensitive_ContainsHonorsFlag(t *testing.T) {
	insensitive := false
	p := Cmp("Region", OpContains, &ScalarValue{Kind: ScalarKindText, Text: "east"})
	p.CaseSensitive = &insensitive

	assert.False(t, p.EffectiveCaseSensitive(), "contains should honor an explicit CaseSensitive=false")
}

func TestEffectiveCaseSensitive_DefaultsTrue(t *testing.T) {
	p := Cmp("Region", OpContains, &ScalarValue{Kind: ScalarKindText, Text: "east"})
	assert.True(t, p.EffectiveCaseSensitive(), "unset CaseSensitive should default to case-sensitive")
}

func TestIsOrderedComparison(t *testing.T) {
	cases := map[ComparisonOp]bool{
		OpGreaterThan:        true,
		OpGreaterThanOrEqual: true,
		OpLessThan:           true,
		OpLessThanOrEqual:    true,
		OpEquals:             false,
		OpContains:           false,
	}
	for op, want := range cases {
		assert.Equal(t, want, op.IsOrderedComparison(), "%s.IsOrderedComparison()", op)
	}
}

func TestIsLikeFamily(t *testing.T) {
	cases := map[ComparisonOp]bool{
		OpContains:   true,
		OpStartsWith: true,
		OpEndsWith:   true,
		OpEquals:     false,
	}
	for op, want := range cases {
		assert.Equal(t, want, op.IsLikeFamily(), "%s.IsLikeFamily()", op)
	}
}

func TestScalarValueFoldability(t *testing.T) {
	foldable := []*ScalarValue{
		nil,
		{Kind: ScalarKindNull},
		{Kind: ScalarKindText, Text: "x"},
		{Kind: ScalarKindInt, Int64: 1},
		{Kind: ScalarKindDecimal, Decimal: "1.50"},
	}
	for _, v := range foldable {
		assert.True(t, v.IsScalarFoldable(), "expected foldable: %#v", v)
	}

	notFoldable := &ScalarValue{Kind: ScalarKindBinary, Binary: []byte{1, 2, 3}}
	assert.False(t, notFoldable.IsScalarFoldable(), "binary values must not be scalar-foldable outside LIKE-family operators")
}

func TestAndOrNotBuilders(t *testing.T) {
	leaf := Cmp("Sales", OpGreaterThan, &ScalarValue{Kind: ScalarKindInt, Int64: 10})
	composite := And(leaf, Not(Or(leaf)))

	assert.Equal(t, PredicateAnd, composite.Kind)
	assert.Len(t, composite.Predicates, 2)
	assert.Equal(t, PredicateNot, composite.Predicates[1].Kind, "expected second child to be a 'not' node")
}
