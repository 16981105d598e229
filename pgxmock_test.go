package foldquery

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// TestCompiledFragment_ExecutesAgainstMockedPostgresDriver exercises the
// folding engine end-to-end: a Query folds into a NativeFragment, and the
// resulting SQL/params are handed to a mocked pgx driver exactly as a real
// caller would, asserting both the rendered placeholder style and the
// parameter ordering invariant (spec §4.D fragment.params always matches
// '?' occurrence order).
func TestCompiledFragment_ExecutesAgainstMockedPostgresDriver(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	q := &Query{
		ID: "q1",
		Source: QuerySource{
			Kind:      SourceDatabase,
			SourceSQL: "SELECT * FROM sales",
			Dialect:   DialectPostgres,
			Columns:   []string{"region", "amount"},
		},
		Steps: []Step{
			{ID: "s1", Operation: QueryOperation{
				Kind: OpFilterRows,
				Predicate: And(
					Cmp("region", OpEquals, strParam("east")),
					Cmp("amount", OpGreaterThan, intParam(100)),
				),
			}},
		},
	}

	plan, err := Compile(q, nil)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if plan.Kind != PlanNative {
		t.Fatalf("expected native plan, got %s", plan.Kind)
	}

	args := make([]any, len(plan.Fragment.Params))
	for i, p := range plan.Fragment.Params {
		switch p.Kind {
		case ScalarKindText:
			args[i] = p.Text
		case ScalarKindInt:
			args[i] = p.Int64
		}
	}

	mock.ExpectQuery(plan.Fragment.SQL).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"region", "amount"}).AddRow("east", int64(150)))

	rows, err := mock.Query(context.Background(), plan.Fragment.SQL, args...)
	if err != nil {
		t.Fatalf("mock query failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatalf("expected one row back from the mock")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
