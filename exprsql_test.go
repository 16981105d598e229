package foldquery

import (
	"testing"

	"github.com/lychee-technology/foldquery/internal/dialect"
	"github.com/lychee-technology/foldquery/internal/formula"
)

func TestCompilePredicateSQL_SimpleComparison(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	pred := Cmp("region", OpEquals, strParam("east"))

	sql, err := compilePredicateSQL(pred, tbl, pb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != `"region" = ?` {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if len(pb.params) != 1 || pb.params[0].Text != "east" {
		t.Fatalf("unexpected params: %#v", pb.params)
	}
}

func TestCompilePredicateSQL_AndOr(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	pred := And(
		Cmp("sales", OpGreaterThan, intParam(10)),
		Or(Cmp("region", OpEquals, strParam("east")), Cmp("region", OpEquals, strParam("west"))),
	)

	sql, err := compilePredicateSQL(pred, tbl, pb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql == "" || len(pb.params) != 3 {
		t.Fatalf("unexpected sql=%q params=%#v", sql, pb.params)
	}
}

func TestCompilePredicateSQL_OrderedComparisonAgainstNullFoldsFalse(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	pred := Cmp("sales", OpGreaterThan, nullParam())

	sql, err := compilePredicateSQL(pred, tbl, pb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != "1=0" {
		t.Fatalf("expected literal false, got %s", sql)
	}
}

func TestCompilePredicateSQL_ContainsEscapesWildcards(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	pred := Cmp("name", OpContains, strParam("50%_off"))

	sql, err := compilePredicateSQL(pred, tbl, pb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql == "" {
		t.Fatalf("expected non-empty sql")
	}
	if pb.params[0].Text != `%50\%\_off%` {
		t.Fatalf("expected escaped pattern, got %q", pb.params[0].Text)
	}
}

func TestCompilePredicateSQL_UnknownKindIsFatal(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	pred := &FilterPredicate{Kind: PredicateKind("xor")}

	_, err := compilePredicateSQL(pred, tbl, pb)
	if err == nil {
		t.Fatalf("expected fatal error for unknown predicate kind")
	}
	var fe *FoldError
	if !asFoldError(err, &fe) {
		t.Fatalf("expected a *FoldError, got %T: %v", err, err)
	}
	if fe.Code != ErrCodeUnknownPredicateKind {
		t.Fatalf("unexpected code: %s", fe.Code)
	}
}

func TestCompileFormulaSQL_ArithmeticAndCall(t *testing.T) {
	tbl, _ := dialect.ForName(dialect.Postgres)
	pb := &paramBuilder{}
	node, err := formula.Parse(`upper([Region]) + "!"`)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	sql, err := compileFormulaSQL(node, tbl, pb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql == "" {
		t.Fatalf("expected non-empty sql")
	}
}

func asFoldError(err error, target **FoldError) bool {
	if fe, ok := err.(*FoldError); ok {
		*target = fe
		return true
	}
	return false
}
