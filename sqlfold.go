package foldquery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lychee-technology/foldquery/internal/dialect"
	"github.com/lychee-technology/foldquery/internal/formula"
	"github.com/lychee-technology/foldquery/internal/placeholder"
)

// sqlState is the accumulator threaded through applySqlStep: the SQL
// folding engine, component D. Grounded on the teacher's
// internal/queryoptimizer/optimizer.go Plan/queryBuilder pair, generalised
// from a single fixed entity_main/EAV query shape into a step-by-step
// SELECT-wrapping machine over an arbitrary source query.
//
// Invariant (spec §4.D): sql is always a complete, parenthesisable SELECT
// statement — every transition either appends a clause to it directly or
// wraps it as "SELECT ... FROM (<sql>) AS src ...".
type sqlState struct {
	tbl dialect.Table

	sql     string
	pb      *paramBuilder
	columns []string // nil if the output column set is not statically known

	connectionID    string
	privacySourceID string

	// Deferred ORDER BY (spec §4.D SQL-Server handling): sortPending is
	// recorded by sortRows but only spliced into sql once it is safe to
	// do so — either because another dialect tolerates ORDER BY in a
	// derived table, or because a take/skip step needs it for
	// OFFSET/FETCH anyway.
	sortPending []SortSpec
}

func newSQLState(source *QuerySource, tbl dialect.Table) *sqlState {
	return &sqlState{
		tbl:             tbl,
		sql:             source.SourceSQL,
		pb:              &paramBuilder{},
		columns:         append([]string(nil), source.Columns...),
		connectionID:    connectionIdentity(source),
		privacySourceID: source.PrivacySourceID,
	}
}

func connectionIdentity(source *QuerySource) string {
	if source.ConnectionID != "" {
		return source.ConnectionID
	}
	if source.Connection != nil {
		return fmt.Sprintf("%v", source.Connection)
	}
	return ""
}

func (s *sqlState) alias() string { return "src" }

// wrap establishes select as the new outer query over the current
// fragment, first flattening any pending ORDER BY if the dialect requires
// it to appear on the now-innermost select. Returns a Reason if the
// dialect forbids flattening at this point (SQL Server without an
// accompanying OFFSET/TOP).
func (s *sqlState) wrap(buildOuter func(inner string) string) (Reason, bool) {
	if len(s.sortPending) > 0 {
		if s.tbl.Name == dialect.SQLServer {
			return ReasonSQLServerOrderByInSource, false
		}
		s.embedPendingSort()
	}
	s.sql = buildOuter(s.sql)
	return "", true
}

func (s *sqlState) embedPendingSort() {
	if len(s.sortPending) == 0 {
		return
	}
	s.sql = s.sql + " ORDER BY " + s.orderByClause(s.sortPending)
	s.sortPending = nil
}

func (s *sqlState) orderByClause(keys []SortSpec) string {
	terms := make([]string, len(keys))
	for i, k := range keys {
		terms[i] = s.tbl.OrderByTerm(s.tbl.QuoteIdent(k.Column), k.Direction == SortDescending, string(k.Nulls))
	}
	return strings.Join(terms, ", ")
}

// sqlFoldContext carries the cross-cutting dependencies applySqlStep needs
// beyond the fragment itself: sibling-query resolution for merge/append,
// a schema hook for column-set-dependent operations, and the privacy
// firewall configuration.
type sqlFoldContext struct {
	resolveQuery func(id string) (*Query, bool)
	schemaHook   SchemaHook
	privacy      PrivacyOptions
	visiting     map[string]bool // query ids currently being folded, for cycle detection
}

// applySqlStep attempts to fold one Step into state, returning the
// resulting state and true on success, or the original state, false, and
// a Reason on a soft miss. A non-nil error is always fatal (spec §7).
func applySqlStep(state *sqlState, step Step, ctx *sqlFoldContext) (*sqlState, bool, Reason, error) {
	op := step.Operation
	switch op.Kind {
	case OpSelectColumns:
		return foldSelectColumns(state, op.Columns, true)
	case OpRemoveColumns:
		return foldSelectColumns(state, op.Columns, false)
	case OpFilterRows:
		return foldFilterRows(state, op.Predicate)
	case OpSortRows:
		return foldSortRows(state, op.SortKeys)
	case OpDistinctRows:
		return foldDistinctRows(state, op.DistinctColumns)
	case OpGroupBy:
		return foldGroupBy(state, op.GroupColumns, op.Aggregations)
	case OpRenameColumn:
		return foldRenameColumn(state, op.RenameFrom, op.RenameTo)
	case OpChangeType:
		return foldChangeType(state, op.ChangeTypeColumn, op.ChangeTypeTarget)
	case OpTransformColumns:
		return foldTransformColumns(state, op.TransformColumn, op.TransformFormula)
	case OpAddColumn:
		return foldAddColumn(state, op.NewColumnName, op.AddFormula)
	case OpTake:
		return foldTakeSkip(state, op.Count, true)
	case OpSkip:
		return foldTakeSkip(state, op.Count, false)
	case OpMerge:
		return foldMerge(state, op.Merge, ctx)
	case OpAppend:
		return foldAppend(state, op.AppendQueryIDs, ctx)
	case OpExpandTableColumn:
		return state, false, ReasonUnsupportedOp, nil
	case OpOther:
		return state, false, ReasonUnsupportedOp, nil
	default:
		return nil, false, "", NewUnknownOperationKindError(op.Kind)
	}
}

func foldSelectColumns(state *sqlState, columns []string, keep bool) (*sqlState, bool, Reason, error) {
	next := *state
	pb := state.pb
	var selectCols []string
	var newColumns []string

	if keep {
		selectCols = make([]string, len(columns))
		for i, c := range columns {
			selectCols[i] = state.tbl.QuoteIdent(c)
		}
		newColumns = append([]string(nil), columns...)
	} else {
		if state.columns == nil {
			return state, false, ReasonNonFoldableSchema, nil
		}
		removed := make(map[string]bool, len(columns))
		for _, c := range columns {
			removed[c] = true
		}
		for _, c := range state.columns {
			if !removed[c] {
				selectCols = append(selectCols, state.tbl.QuoteIdent(c))
				newColumns = append(newColumns, c)
			}
		}
	}

	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(selectCols, ", "), inner, next.alias())
	})
	if !ok {
		return state, false, reason, nil
	}
	next.pb = pb
	next.columns = newColumns
	return &next, true, "", nil
}

func foldFilterRows(state *sqlState, pred *FilterPredicate) (*sqlState, bool, Reason, error) {
	next := *state
	pb := &paramBuilder{params: append([]*ScalarValue(nil), state.pb.params...)}
	whereSQL, err := compilePredicateSQL(pred, state.tbl, pb)
	if err != nil {
		var fe *FoldError
		if errors.As(err, &fe) {
			return nil, false, "", err
		}
		return state, false, ReasonUnsupportedOperator, nil
	}
	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT * FROM (%s) AS %s WHERE %s", inner, next.alias(), whereSQL)
	})
	if !ok {
		return state, false, reason, nil
	}
	next.pb = pb
	return &next, true, "", nil
}

func foldSortRows(state *sqlState, keys []SortSpec) (*sqlState, bool, Reason, error) {
	next := *state
	next.sortPending = append([]SortSpec(nil), keys...)
	return &next, true, "", nil
}

func foldDistinctRows(state *sqlState, columns []string) (*sqlState, bool, Reason, error) {
	next := *state
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = state.tbl.QuoteIdent(c)
		}
		selectList = strings.Join(quoted, ", ")
	}
	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT DISTINCT %s FROM (%s) AS %s", selectList, inner, next.alias())
	})
	if !ok {
		return state, false, reason, nil
	}
	if len(columns) > 0 {
		next.columns = append([]string(nil), columns...)
	}
	return &next, true, "", nil
}

var aggSQL = map[AggregationOp]string{
	AggSum: "SUM", AggCount: "COUNT", AggAverage: "AVG", AggMin: "MIN", AggMax: "MAX",
}

func foldGroupBy(state *sqlState, groupColumns []string, aggs []Aggregation) (*sqlState, bool, Reason, error) {
	next := *state
	groupQuoted := make([]string, len(groupColumns))
	for i, c := range groupColumns {
		groupQuoted[i] = state.tbl.QuoteIdent(c)
	}

	selectList := append([]string(nil), groupQuoted...)
	newColumns := append([]string(nil), groupColumns...)
	for _, agg := range aggs {
		as := agg.As
		if as == "" {
			as = agg.Column
		}
		var expr string
		if agg.Op == AggCountDistinct {
			expr = fmt.Sprintf("COUNT(DISTINCT %s)", state.tbl.QuoteIdent(agg.Column))
		} else {
			fn, ok := aggSQL[agg.Op]
			if !ok {
				return state, false, ReasonUnsupportedOp, nil
			}
			expr = fmt.Sprintf("%s(%s)", fn, state.tbl.QuoteIdent(agg.Column))
		}
		selectList = append(selectList, fmt.Sprintf("%s AS %s", expr, state.tbl.QuoteIdent(as)))
		newColumns = append(newColumns, as)
	}
	if len(selectList) == 0 {
		return state, false, ReasonUnsupportedOp, nil
	}

	groupByClause := ""
	if len(groupQuoted) > 0 {
		groupByClause = " GROUP BY " + strings.Join(groupQuoted, ", ")
	}

	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s FROM (%s) AS %s%s", strings.Join(selectList, ", "), inner, next.alias(), groupByClause)
	})
	if !ok {
		return state, false, reason, nil
	}
	next.columns = newColumns
	return &next, true, "", nil
}

func foldRenameColumn(state *sqlState, from, to string) (*sqlState, bool, Reason, error) {
	if state.columns == nil {
		return state, false, ReasonNonFoldableSchema, nil
	}
	next := *state
	selectList := make([]string, len(state.columns))
	newColumns := make([]string, len(state.columns))
	for i, c := range state.columns {
		if c == from {
			selectList[i] = fmt.Sprintf("%s AS %s", state.tbl.QuoteIdent(c), state.tbl.QuoteIdent(to))
			newColumns[i] = to
		} else {
			selectList[i] = state.tbl.QuoteIdent(c)
			newColumns[i] = c
		}
	}
	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(selectList, ", "), inner, next.alias())
	})
	if !ok {
		return state, false, reason, nil
	}
	next.columns = newColumns
	return &next, true, "", nil
}

var castSQL = map[ScalarKind]string{
	ScalarKindInt:      "INTEGER",
	ScalarKindFloat:    "DOUBLE PRECISION",
	ScalarKindDecimal:  "DECIMAL",
	ScalarKindText:     "TEXT",
	ScalarKindBool:     "BOOLEAN",
	ScalarKindDate:     "DATE",
	ScalarKindDateTime: "TIMESTAMP",
}

func foldChangeType(state *sqlState, column string, target ScalarKind) (*sqlState, bool, Reason, error) {
	if target == ScalarKindAny {
		return state, true, "", nil // no-op target
	}
	sqlType, ok := castSQL[target]
	if !ok {
		return state, false, ReasonUnsupportedValueType, nil
	}
	if state.columns == nil {
		return state, false, ReasonNonFoldableSchema, nil
	}
	next := *state
	selectList := make([]string, len(state.columns))
	for i, c := range state.columns {
		if c == column {
			selectList[i] = fmt.Sprintf("CAST(%s AS %s) AS %s", state.tbl.QuoteIdent(c), sqlType, state.tbl.QuoteIdent(c))
		} else {
			selectList[i] = state.tbl.QuoteIdent(c)
		}
	}
	reason, okWrap := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(selectList, ", "), inner, next.alias())
	})
	if !okWrap {
		return state, false, reason, nil
	}
	return &next, true, "", nil
}

func foldTransformColumns(state *sqlState, column, formulaSrc string) (*sqlState, bool, Reason, error) {
	if state.columns == nil {
		return state, false, ReasonNonFoldableSchema, nil
	}
	node, err := formula.Parse(formulaSrc)
	if err != nil {
		return state, false, ReasonUnsupportedFormula, nil
	}
	next := *state
	exprPB := &paramBuilder{}
	exprSQL, err := compileFormulaSQL(node, state.tbl, exprPB)
	if err != nil {
		return state, false, ReasonUnsupportedFormula, nil
	}
	selectList := make([]string, len(state.columns))
	for i, c := range state.columns {
		if c == column {
			selectList[i] = fmt.Sprintf("%s AS %s", exprSQL, state.tbl.QuoteIdent(c))
		} else {
			selectList[i] = state.tbl.QuoteIdent(c)
		}
	}
	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(selectList, ", "), inner, next.alias())
	})
	if !ok {
		return state, false, reason, nil
	}
	// The expression sits in the SELECT list, ahead of the wrapped query.
	next.pb = &paramBuilder{params: append(exprPB.params, state.pb.params...)}
	return &next, true, "", nil
}

func foldAddColumn(state *sqlState, name, formulaSrc string) (*sqlState, bool, Reason, error) {
	node, err := formula.Parse(formulaSrc)
	if err != nil {
		return state, false, ReasonUnsupportedFormula, nil
	}
	next := *state
	exprPB := &paramBuilder{}
	exprSQL, err := compileFormulaSQL(node, state.tbl, exprPB)
	if err != nil {
		return state, false, ReasonUnsupportedFormula, nil
	}
	reason, ok := next.wrap(func(inner string) string {
		return fmt.Sprintf("SELECT %s.*, %s AS %s FROM (%s) AS %s", next.alias(), exprSQL, state.tbl.QuoteIdent(name), inner, next.alias())
	})
	if !ok {
		return state, false, reason, nil
	}
	// The expression sits in the SELECT list, ahead of the wrapped query.
	next.pb = &paramBuilder{params: append(exprPB.params, state.pb.params...)}
	if state.columns != nil {
		next.columns = append(append([]string(nil), state.columns...), name)
	}
	return &next, true, "", nil
}

func foldTakeSkip(state *sqlState, count *RowFormulaOrLiteral, isTake bool) (*sqlState, bool, Reason, error) {
	if count == nil || count.Literal == nil {
		return state, false, ReasonUnsupportedFormula, nil
	}
	n := *count.Literal

	next := *state
	next.embedPendingSort()
	if state.tbl.RequiresOrderByForOffset && strings.Contains(next.sql, "ORDER BY") == false && !orderByEmbedded(state.sql) {
		// SQL Server needs a deterministic ORDER BY before OFFSET/FETCH;
		// synthesize one over the first known column if possible.
		if len(state.columns) == 0 {
			return state, false, ReasonSQLServerOrderByInSource, nil
		}
		next.sql = next.sql + " ORDER BY " + state.tbl.QuoteIdent(state.columns[0])
	}

	var clause string
	if state.tbl.SupportsOffsetFetch {
		if isTake {
			clause = fmt.Sprintf(" OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
		} else {
			clause = fmt.Sprintf(" OFFSET %d ROWS", n)
		}
	} else {
		if isTake {
			clause = fmt.Sprintf(" LIMIT %d", n)
		} else {
			clause = fmt.Sprintf(" LIMIT -1 OFFSET %d", n)
		}
	}
	next.sql = next.sql + clause
	return &next, true, "", nil
}

func orderByEmbedded(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "ORDER BY")
}

func joinSQL(t JoinType) (string, bool) {
	switch t {
	case JoinInner:
		return "INNER JOIN", true
	case JoinLeft:
		return "LEFT JOIN", true
	case JoinRight:
		return "RIGHT JOIN", true
	case JoinFull:
		return "FULL OUTER JOIN", true
	default:
		return "", false // semi/anti joins always remain local
	}
}

func foldMerge(state *sqlState, merge *MergeOp, ctx *sqlFoldContext) (*sqlState, bool, Reason, error) {
	if merge == nil || merge.Mode != JoinModeFlat {
		return state, false, ReasonUnsupportedOp, nil
	}
	joinKeyword, ok := joinSQL(merge.Type)
	if !ok {
		return state, false, ReasonUnsupportedJoinType, nil
	}
	for _, c := range append([]*KeyComparer{merge.Comparer}, merge.PerKeyComparers...) {
		if c != nil && !c.CaseSensitive {
			return state, false, ReasonUnsupportedOp, nil
		}
	}

	right, found := ctx.resolveQuery(merge.RightQueryID)
	if !found {
		return state, false, ReasonUnknownQueryRef, nil
	}
	if ctx.visiting[merge.RightQueryID] {
		return state, false, ReasonQueryCycle, nil
	}

	rightState, rightFolded, _, err := sqlFoldQueryToFragment(right, ctx)
	if err != nil {
		return nil, false, "", err
	}
	if !rightFolded || rightState.connectionID != state.connectionID || state.connectionID == "" {
		return state, false, ReasonCrossConnection, nil
	}

	allowed, warning := privacyFirewallCheck(state.privacySourceID, rightState.privacySourceID, ctx.privacy)
	_ = warning
	if !allowed {
		return state, false, ReasonPrivacyFirewall, nil
	}

	leftKeys := merge.ResolvedLeftKeys()
	rightKeys := merge.ResolvedRightKeys()
	if len(leftKeys) == 0 || len(leftKeys) != len(rightKeys) {
		return state, false, ReasonUnsupportedOp, nil
	}

	next := *state
	onClauses := make([]string, len(leftKeys))
	for i := range leftKeys {
		lcol := fmt.Sprintf("l.%s", state.tbl.QuoteIdent(leftKeys[i]))
		rcol := fmt.Sprintf("r.%s", state.tbl.QuoteIdent(rightKeys[i]))
		switch state.tbl.Name {
		case dialect.Postgres:
			onClauses[i] = fmt.Sprintf("%s IS NOT DISTINCT FROM %s", lcol, rcol)
		case dialect.MySQL:
			onClauses[i] = fmt.Sprintf("%s <=> %s", lcol, rcol)
		case dialect.SQLite:
			onClauses[i] = fmt.Sprintf("%s IS %s", lcol, rcol)
		default:
			onClauses[i] = fmt.Sprintf("(%s = %s OR (%s IS NULL AND %s IS NULL))", lcol, rcol, lcol, rcol)
		}
	}

	rightSelect := "r.*"
	if len(merge.RightColumns) > 0 {
		quoted := make([]string, len(merge.RightColumns))
		for i, c := range merge.RightColumns {
			quoted[i] = "r." + state.tbl.QuoteIdent(c)
		}
		rightSelect = strings.Join(quoted, ", ")
	}

	reason, wrapped := next.wrap(func(inner string) string {
		return fmt.Sprintf(
			"SELECT l.*, %s FROM (%s) AS l %s (%s) AS r ON %s",
			rightSelect, inner, joinKeyword, rightState.sql, strings.Join(onClauses, " AND "),
		)
	})
	if !wrapped {
		return state, false, reason, nil
	}
	for _, p := range rightState.pb.params {
		next.pb.addParam(p)
	}
	next.columns = nil // projection after a join is not tracked further without a schema hook
	return &next, true, "", nil
}

func foldAppend(state *sqlState, queryIDs []string, ctx *sqlFoldContext) (*sqlState, bool, Reason, error) {
	if len(queryIDs) == 0 {
		return state, true, "", nil
	}
	next := *state
	next.pb = &paramBuilder{params: append([]*ScalarValue(nil), state.pb.params...)}
	parts := []string{next.sql}
	for _, id := range queryIDs {
		q, found := ctx.resolveQuery(id)
		if !found {
			return state, false, ReasonUnknownQueryRef, nil
		}
		if ctx.visiting[id] {
			return state, false, ReasonQueryCycle, nil
		}
		other, folded, _, err := sqlFoldQueryToFragment(q, ctx)
		if err != nil {
			return nil, false, "", err
		}
		if !folded || other.connectionID != state.connectionID {
			return state, false, ReasonAppendSourceMismatch, nil
		}
		if allowed, _ := privacyFirewallCheck(state.privacySourceID, other.privacySourceID, ctx.privacy); !allowed {
			return state, false, ReasonPrivacyFirewall, nil
		}
		parts = append(parts, other.sql)
		for _, p := range other.pb.params {
			next.pb.addParam(p)
		}
	}
	next.sql = strings.Join(parts, " UNION ALL ")
	return &next, true, "", nil
}

// sqlFoldQueryToFragment folds a referenced query (merge/append right-hand
// side) to completion, used only internally by foldMerge/foldAppend.
// Cycle detection relies on ctx.visiting, which the caller must have
// already marked for the query currently being folded.
func sqlFoldQueryToFragment(q *Query, ctx *sqlFoldContext) (*sqlState, bool, *ExplainResult, error) {
	ctx.visiting[q.ID] = true
	defer delete(ctx.visiting, q.ID)

	tbl, ok := dialect.ForName(dialect.Name(q.Source.Dialect))
	if !ok {
		return nil, false, nil, NewUnknownDialectError(q.Source.Dialect)
	}
	state := newSQLState(&q.Source, tbl)
	if state.columns == nil && ctx.schemaHook != nil {
		if cols, err := ctx.schemaHook(&q.Source); err == nil {
			state.columns = ColumnNames(cols)
		}
	}
	explain := &ExplainResult{}
	for _, step := range q.Steps {
		next, folded, reason, err := applySqlStep(state, step, ctx)
		if err != nil {
			return nil, false, nil, err
		}
		explain.Steps = append(explain.Steps, StepTrace{StepID: step.ID, Name: step.Name, Folded: folded, Reason: reason})
		if !folded {
			return state, false, explain, nil
		}
		state = next
	}
	return state, true, explain, nil
}

// finalizeFragment embeds any pending ORDER BY and rewrites '?' to the
// dialect's native placeholder style, producing the NativeFragment handed
// back by Compile.
func finalizeFragment(state *sqlState) NativeFragment {
	state.embedPendingSort()
	style := placeholderStyleFor(state.tbl.Name)
	sql, _ := placeholder.Normalize(state.sql, style, 0)
	return NativeFragment{
		Dialect: Dialect(state.tbl.Name),
		SQL:     sql,
		Params:  state.pb.params,
		Columns: state.columns,
	}
}

func placeholderStyleFor(name dialect.Name) placeholder.Style {
	switch name {
	case dialect.Postgres:
		return placeholder.StylePositionalDollar
	case dialect.SQLServer:
		return placeholder.StylePositionalAt
	default:
		return placeholder.StyleQuestion
	}
}
