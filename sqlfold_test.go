package foldquery

import (
	"strings"
	"testing"

	"github.com/lychee-technology/foldquery/internal/dialect"
)

func newTestState(t *testing.T, d dialect.Name, sourceSQL string, columns []string) *sqlState {
	t.Helper()
	tbl, ok := dialect.ForName(d)
	if !ok {
		t.Fatalf("unexpected dialect %s", d)
	}
	src := &QuerySource{Kind: SourceDatabase, SourceSQL: sourceSQL, Columns: columns, ConnectionID: "conn1"}
	return newSQLState(src, tbl)
}

func testCtx() *sqlFoldContext {
	return &sqlFoldContext{
		resolveQuery: func(id string) (*Query, bool) { return nil, false },
		visiting:     map[string]bool{},
		privacy:      PrivacyOptions{Mode: PrivacyIgnore},
	}
}

func TestApplySqlStep_FilterRowsWraps(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step := Step{ID: "s1", Operation: QueryOperation{Kind: OpFilterRows, Predicate: Cmp("region", OpEquals, strParam("east"))}}

	next, folded, reason, err := applySqlStep(state, step, testCtx())
	if err != nil || !folded {
		t.Fatalf("expected fold success, got folded=%v reason=%s err=%v", folded, reason, err)
	}
	if !strings.Contains(next.sql, "WHERE") {
		t.Fatalf("expected WHERE clause in %s", next.sql)
	}
}

func TestApplySqlStep_SelectColumnsThenFilter(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step1 := Step{ID: "s1", Operation: QueryOperation{Kind: OpSelectColumns, Columns: []string{"region", "amount"}}}
	next, folded, _, err := applySqlStep(state, step1, testCtx())
	if err != nil || !folded {
		t.Fatalf("unexpected: folded=%v err=%v", folded, err)
	}
	if len(next.columns) != 2 {
		t.Fatalf("expected tracked columns, got %#v", next.columns)
	}
}

func TestApplySqlStep_RemoveColumnsNeedsKnownSchema(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step := Step{ID: "s1", Operation: QueryOperation{Kind: OpRemoveColumns, Columns: []string{"amount"}}}
	_, folded, reason, err := applySqlStep(state, step, testCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if folded || reason != ReasonNonFoldableSchema {
		t.Fatalf("expected non_foldable_schema soft miss, got folded=%v reason=%s", folded, reason)
	}
}

func TestApplySqlStep_SortThenTakeUsesOffsetFetchOnSQLServer(t *testing.T) {
	state := newTestState(t, dialect.SQLServer, "SELECT * FROM sales", []string{"id"})
	one := 10

	sortStep := Step{ID: "s1", Operation: QueryOperation{Kind: OpSortRows, SortKeys: []SortSpec{{Column: "id", Direction: SortAscending}}}}
	next, folded, _, err := applySqlStep(state, sortStep, testCtx())
	if err != nil || !folded {
		t.Fatalf("sort step failed: folded=%v err=%v", folded, err)
	}

	takeStep := Step{ID: "s2", Operation: QueryOperation{Kind: OpTake, Count: &RowFormulaOrLiteral{Literal: &one}}}
	next2, folded2, reason, err := applySqlStep(next, takeStep, testCtx())
	if err != nil || !folded2 {
		t.Fatalf("take step failed: folded=%v reason=%s err=%v", folded2, reason, err)
	}
	if !strings.Contains(next2.sql, "FETCH NEXT") {
		t.Fatalf("expected OFFSET/FETCH syntax, got %s", next2.sql)
	}
}

func TestApplySqlStep_UnknownOperationIsFatal(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step := Step{ID: "s1", Operation: QueryOperation{Kind: QueryOperationKind("pivot")}}
	_, _, _, err := applySqlStep(state, step, testCtx())
	if err == nil {
		t.Fatalf("expected fatal error for unknown operation kind")
	}
}

func TestApplySqlStep_ExpandTableColumnIsSoftMiss(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step := Step{ID: "s1", Operation: QueryOperation{Kind: OpExpandTableColumn}}
	_, folded, reason, err := applySqlStep(state, step, testCtx())
	if err != nil || folded || reason != ReasonUnsupportedOp {
		t.Fatalf("expected unsupported_op soft miss, got folded=%v reason=%s err=%v", folded, reason, err)
	}
}

func TestFinalizeFragment_NormalizesPlaceholders(t *testing.T) {
	state := newTestState(t, dialect.Postgres, "SELECT * FROM sales", nil)
	step := Step{ID: "s1", Operation: QueryOperation{Kind: OpFilterRows, Predicate: Cmp("region", OpEquals, strParam("east"))}}
	next, _, _, _ := applySqlStep(state, step, testCtx())

	frag := finalizeFragment(next)
	if !strings.Contains(frag.SQL, "$1") {
		t.Fatalf("expected dollar-style placeholder, got %s", frag.SQL)
	}
	if len(frag.Params) != 1 {
		t.Fatalf("expected one param, got %#v", frag.Params)
	}
}
