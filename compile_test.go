package foldquery

import "testing"

func simpleFilterQuery(dialect Dialect) *Query {
	return &Query{
		ID: "q1",
		Source: QuerySource{
			Kind:      SourceDatabase,
			SourceSQL: "SELECT * FROM sales",
			Dialect:   dialect,
			Columns:   []string{"region", "amount"},
		},
		Steps: []Step{
			{ID: "s1", Name: "filter by region", Operation: QueryOperation{Kind: OpFilterRows, Predicate: Cmp("region", OpEquals, strParam("east"))}},
			{ID: "s2", Name: "select columns", Operation: QueryOperation{Kind: OpSelectColumns, Columns: []string{"region", "amount"}}},
		},
	}
}

func TestCompile_FullyNativePlan(t *testing.T) {
	plan, err := Compile(simpleFilterQuery(DialectPostgres), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != PlanNative {
		t.Fatalf("expected native plan, got %s", plan.Kind)
	}
	if len(plan.LocalSteps) != 0 {
		t.Fatalf("expected no local steps, got %#v", plan.LocalSteps)
	}
	if plan.Fragment == nil || plan.Fragment.SQL == "" {
		t.Fatalf("expected a populated fragment")
	}
}

func TestCompile_HybridPlanStopsAtUnsupportedOp(t *testing.T) {
	q := simpleFilterQuery(DialectPostgres)
	q.Steps = append(q.Steps, Step{ID: "s3", Name: "pivot", Operation: QueryOperation{Kind: OpOther, OtherName: "pivot"}})

	plan, err := Compile(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != PlanHybrid {
		t.Fatalf("expected hybrid plan, got %s", plan.Kind)
	}
	if len(plan.LocalSteps) != 1 || plan.LocalSteps[0].ID != "s3" {
		t.Fatalf("expected exactly step s3 to remain local, got %#v", plan.LocalSteps)
	}
	if plan.Explain.StopReason != ReasonUnsupportedOp {
		t.Fatalf("expected unsupported_op stop reason, got %s", plan.Explain.StopReason)
	}
}

func TestCompile_UnknownDialectIsFatal(t *testing.T) {
	q := simpleFilterQuery(Dialect("oracle"))
	_, err := Compile(q, nil)
	if err == nil {
		t.Fatalf("expected fatal error for unknown dialect")
	}
}

func TestCompile_ODataSource(t *testing.T) {
	q := &Query{
		ID: "q1",
		Source: QuerySource{Kind: SourceOData, URL: "https://example.com/Sales"},
		Steps: []Step{
			{ID: "s1", Operation: QueryOperation{Kind: OpFilterRows, Predicate: Cmp("Region", OpEquals, strParam("east"))}},
		},
	}
	plan, err := Compile(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != PlanNative || plan.Fragment == nil || plan.Fragment.ODataURL == "" {
		t.Fatalf("expected native odata plan, got %#v", plan)
	}
}

func TestCompile_NilQueryIsFatal(t *testing.T) {
	_, err := Compile(nil, nil)
	if err == nil {
		t.Fatalf("expected fatal error for nil query")
	}
}

func TestCompile_QueryRefUnknownFallsBackLocal(t *testing.T) {
	q := &Query{
		ID:     "q1",
		Source: QuerySource{Kind: SourceQueryRef, QueryID: "missing"},
		Steps:  []Step{{ID: "s1", Operation: QueryOperation{Kind: OpSelectColumns, Columns: []string{"a"}}}},
	}
	plan, err := Compile(q, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Kind != PlanLocal {
		t.Fatalf("expected local plan for unresolved query ref, got %s", plan.Kind)
	}
	if plan.Explain.StopReason != ReasonUnknownQueryRef {
		t.Fatalf("expected unknown_query_ref reason, got %s", plan.Explain.StopReason)
	}
}
