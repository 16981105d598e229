// Package-level entry point: Compile takes a Query plus options and
// returns the CompiledPlan the rest of this file's component orchestrates
// the six parts of the compiler (spec §2, §4) into.
package foldquery

import (
	"go.uber.org/zap"

	"github.com/lychee-technology/foldquery/internal/dialect"
	"github.com/lychee-technology/foldquery/internal/placeholder"
)

// CompileOptions carries the narrow set of collaborators the compiler
// consumes from its surrounding system (spec §1 Non-goals: the compiler
// never discovers schema, resolves query references, or executes
// anything on its own).
type CompileOptions struct {
	// ResolveQuery resolves a Query by id for merge/append right-hand
	// sides and SourceQueryRef sources. Required whenever a Query uses
	// either.
	ResolveQuery func(id string) (*Query, bool)

	// SchemaHook optionally resolves a database source's output columns
	// when QuerySource.Columns is nil, enabling removeColumns/
	// renameColumn/changeType to fold against sources whose shape the
	// caller didn't pre-populate.
	SchemaHook SchemaHook

	Privacy PrivacyOptions
	Logger  *zap.Logger
}

func (o *CompileOptions) logger() *zap.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o *CompileOptions) resolver() func(id string) (*Query, bool) {
	if o != nil && o.ResolveQuery != nil {
		return o.ResolveQuery
	}
	return func(string) (*Query, bool) { return nil, false }
}

// Compile decomposes q into a CompiledPlan: the longest foldable prefix of
// q.Steps pushed into a single native query, plus whatever suffix must run
// locally. Compile never mutates q and never performs I/O; it is a pure
// function of (q, opts) as required by spec §5.
func Compile(q *Query, opts *CompileOptions) (*CompiledPlan, error) {
	if q == nil {
		return nil, NewInvalidQueryError("query must not be nil")
	}
	if opts == nil {
		opts = &CompileOptions{}
	}
	log := opts.logger()

	switch q.Source.Kind {
	case SourceDatabase:
		return compileDatabase(q, opts, log)
	case SourceOData:
		return compileOData(q, opts, log)
	case SourceQueryRef:
		return compileQueryRef(q, opts, log)
	default:
		return localOnlyPlan(q, ReasonUnsupportedOp), nil
	}
}

// Explain runs Compile and returns just its explain trace, for callers
// that want the diagnostics without the plan (cmd/foldexplain).
func Explain(q *Query, opts *CompileOptions) (*ExplainResult, error) {
	plan, err := Compile(q, opts)
	if err != nil {
		return nil, err
	}
	return plan.Explain, nil
}

func compileDatabase(q *Query, opts *CompileOptions, log *zap.Logger) (*CompiledPlan, error) {
	tbl, ok := dialect.ForName(dialect.Name(q.Source.Dialect))
	if !ok {
		return nil, NewUnknownDialectError(q.Source.Dialect)
	}

	state := newSQLState(&q.Source, tbl)
	ctx := &sqlFoldContext{
		resolveQuery: opts.resolver(),
		schemaHook:   opts.SchemaHook,
		privacy:      opts.Privacy,
		visiting:     map[string]bool{q.ID: true},
	}
	if state.columns == nil && ctx.schemaHook != nil {
		if cols, err := ctx.schemaHook(&q.Source); err == nil {
			state.columns = ColumnNames(cols)
		}
	}

	explain := &ExplainResult{}
	var localSteps []Step
	for i, step := range q.Steps {
		next, folded, reason, err := applySqlStep(state, step, ctx)
		if err != nil {
			return nil, err
		}
		explain.Steps = append(explain.Steps, StepTrace{StepID: step.ID, Name: step.Name, Folded: folded, Reason: reason})
		if !folded {
			explain.StoppedAt = step.ID
			explain.StopReason = reason
			localSteps = q.Steps[i:]
			for _, rest := range q.Steps[i+1:] {
				explain.Steps = append(explain.Steps, StepTrace{StepID: rest.ID, Name: rest.Name, Folded: false, Reason: reason})
			}
			break
		}
		state = next
		log.Debug("folded step", zap.String("stepId", step.ID), zap.String("queryId", q.ID))
	}

	if _, n := placeholder.Normalize(state.sql, placeholderStyleFor(state.tbl.Name), 0); n != len(state.pb.params) {
		return nil, NewPlaceholderMismatchError(len(state.pb.params), n)
	}
	frag := finalizeFragment(state)
	kind := PlanNative
	if len(localSteps) > 0 {
		kind = PlanHybrid
	}
	return &CompiledPlan{Kind: kind, Fragment: &frag, LocalSteps: localSteps, Explain: explain}, nil
}

func compileOData(q *Query, opts *CompileOptions, log *zap.Logger) (*CompiledPlan, error) {
	state := newODataState(&q.Source)

	explain := &ExplainResult{}
	var localSteps []Step
	for i, step := range q.Steps {
		next, folded, reason, err := applyODataStep(state, step)
		if err != nil {
			return nil, err
		}
		explain.Steps = append(explain.Steps, StepTrace{StepID: step.ID, Name: step.Name, Folded: folded, Reason: reason})
		if !folded {
			explain.StoppedAt = step.ID
			explain.StopReason = reason
			localSteps = q.Steps[i:]
			for _, rest := range q.Steps[i+1:] {
				explain.Steps = append(explain.Steps, StepTrace{StepID: rest.ID, Name: rest.Name, Folded: false, Reason: reason})
			}
			break
		}
		state = next
		log.Debug("folded odata step", zap.String("stepId", step.ID), zap.String("queryId", q.ID))
	}

	frag, err := finalizeODataFragment(state)
	if err != nil {
		return nil, err
	}
	kind := PlanNative
	if len(localSteps) > 0 {
		kind = PlanHybrid
	}
	return &CompiledPlan{Kind: kind, Fragment: &frag, LocalSteps: localSteps, Explain: explain}, nil
}

// compileQueryRef resolves a SourceQueryRef indirection and recompiles
// through the referenced query, detecting a cycle in the chain of query
// references up front rather than recursing forever.
func compileQueryRef(q *Query, opts *CompileOptions, log *zap.Logger) (*CompiledPlan, error) {
	resolve := opts.resolver()
	referenced, found := resolve(q.Source.QueryID)
	if !found {
		return localOnlyPlan(q, ReasonUnknownQueryRef), nil
	}
	if referenced.ID == q.ID {
		return localOnlyPlan(q, ReasonQueryCycle), nil
	}
	for cur, seen := referenced, map[string]bool{q.ID: true}; cur.Source.Kind == SourceQueryRef; {
		if seen[cur.ID] {
			return localOnlyPlan(q, ReasonQueryCycle), nil
		}
		seen[cur.ID] = true
		if cur, found = resolve(cur.Source.QueryID); !found {
			break
		}
	}
	inner, err := Compile(referenced, opts)
	if err != nil {
		return nil, err
	}
	// Append this query's own steps after whatever the referenced query
	// already folded; only the referenced query's local remainder plus
	// our own steps stay local, its native fragment still applies as-is.
	combinedLocal := append(append([]Step(nil), inner.LocalSteps...), q.Steps...)
	explain := &ExplainResult{Steps: append([]StepTrace(nil), inner.Explain.Steps...)}
	for _, step := range q.Steps {
		explain.Steps = append(explain.Steps, StepTrace{StepID: step.ID, Name: step.Name, Folded: false, Reason: ReasonUnsupportedOp})
	}
	for _, s := range explain.Steps {
		if !s.Folded {
			explain.StoppedAt, explain.StopReason = s.StepID, s.Reason
			break
		}
	}
	return &CompiledPlan{Kind: planKindFor(inner.Fragment, combinedLocal), Fragment: inner.Fragment, LocalSteps: combinedLocal, Explain: explain}, nil
}

func planKindFor(fragment *NativeFragment, localSteps []Step) PlanKind {
	switch {
	case fragment == nil:
		return PlanLocal
	case len(localSteps) == 0:
		return PlanNative
	default:
		return PlanHybrid
	}
}

func localOnlyPlan(q *Query, reason Reason) *CompiledPlan {
	explain := &ExplainResult{}
	for i, step := range q.Steps {
		explain.Steps = append(explain.Steps, StepTrace{StepID: step.ID, Name: step.Name, Folded: false, Reason: reason})
		if i == 0 {
			explain.StoppedAt = step.ID
			explain.StopReason = reason
		}
	}
	return &CompiledPlan{Kind: PlanLocal, LocalSteps: q.Steps, Explain: explain}
}
