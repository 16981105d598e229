package foldquery

// PlanKind tags the CompiledPlan union.
type PlanKind string

const (
	// PlanLocal: nothing folded; every step runs against the materialised
	// source locally.
	PlanLocal PlanKind = "local"
	// PlanNative: every step folded into a single native query.
	PlanNative PlanKind = "native"
	// PlanHybrid: a prefix of steps folded into a native query; the
	// remaining suffix runs locally against that query's result.
	PlanHybrid PlanKind = "hybrid"
)

// NativeFragment is the folded portion of a plan: a complete, executable
// native query plus its ordered parameters.
type NativeFragment struct {
	Dialect  Dialect        `json:"dialect,omitempty"` // "" when this fragment is an OData request, not SQL
	SQL      string         `json:"sql,omitempty"`
	Params   []*ScalarValue `json:"params,omitempty"`
	ODataURL string         `json:"odataUrl,omitempty"` // set instead of SQL for OData-native fragments
	Columns  []string       `json:"columns,omitempty"`  // best-known output columns of the fragment, if derivable
}

// CompiledPlan is the discriminated union returned by Compile: either a
// fully local plan, a fully native plan, or a hybrid split at LocalSteps[0].
type CompiledPlan struct {
	Kind PlanKind `json:"kind"`
	// Fragment is populated for PlanNative and PlanHybrid.
	Fragment *NativeFragment `json:"fragment,omitempty"`
	// LocalSteps are the steps (in order) that must still run locally,
	// starting against Fragment's result for PlanHybrid, or against the
	// original materialised source for PlanLocal.
	LocalSteps []Step        `json:"localSteps,omitempty"`
	Explain    *ExplainResult `json:"explain,omitempty"`
}
