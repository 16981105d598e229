// Package foldquery implements the query-folding compiler: given a
// declarative query (a source plus an ordered list of tabular
// transformation steps) it decides how much of that query can be pushed
// down into an external SQL database or OData v4 feed as a single native
// query, and returns a plan for whatever prefix folds plus the steps that
// must still run locally.
package foldquery

// Dialect identifies one of the four supported SQL backends.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
	DialectSQLServer Dialect = "sqlserver"
)

// Query is the declarative IR: a stable id, a source, and an ordered list
// of steps. Queries are looked up by id (never by pointer) so that cyclic
// query -> query references can be detected without owning pointers.
type Query struct {
	ID     string      `json:"id"`
	Source QuerySource `json:"source"`
	Steps  []Step      `json:"steps"`
}

// Step carries a stable id, a display name, and a tagged operation. The
// display name is never interpreted by the compiler; it exists purely for
// the explain trace and caller UI.
type Step struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Operation QueryOperation `json:"operation"`
}

// QuerySourceKind tags the QuerySource union.
type QuerySourceKind string

const (
	SourceDatabase QuerySourceKind = "database"
	SourceOData    QuerySourceKind = "odata"
	SourceQueryRef QuerySourceKind = "query"
	SourceOther    QuerySourceKind = "other"
)

// QuerySource is a tagged union over the source variants relevant to
// folding, plus a catch-all for the connector sources (csv, json, parquet,
// api, range, table) that are never folded here.
type QuerySource struct {
	Kind QuerySourceKind `json:"kind"`

	// SourceDatabase
	Connection   any      `json:"connection,omitempty"`
	ConnectionID string   `json:"connectionId,omitempty"` // explicit identity override, takes precedence over Connection
	SourceSQL    string   `json:"sourceSql,omitempty"`     // the source SQL text, e.g. "SELECT * FROM sales"
	Dialect      Dialect  `json:"dialect,omitempty"`
	Columns      []string `json:"columns,omitempty"` // optional: known output columns of SourceSQL; nil if unknown

	// SourceOData
	URL string `json:"url,omitempty"`

	// SourceQueryRef
	QueryID string `json:"queryId,omitempty"`

	// PrivacySourceID identifies this source for privacy-level lookups
	// (options.privacyLevelsBySourceId). Empty means "unclassified".
	PrivacySourceID string `json:"privacySourceId,omitempty"`
}

// QueryOperationKind tags the QueryOperation union. OpOther is never
// folded — it always breaks folding at that step and is reported with
// reason unsupported_op. A Kind outside this set is a fatal error.
type QueryOperationKind string

const (
	OpSelectColumns     QueryOperationKind = "selectColumns"
	OpRemoveColumns     QueryOperationKind = "removeColumns"
	OpFilterRows        QueryOperationKind = "filterRows"
	OpSortRows          QueryOperationKind = "sortRows"
	OpDistinctRows      QueryOperationKind = "distinctRows"
	OpGroupBy           QueryOperationKind = "groupBy"
	OpRenameColumn      QueryOperationKind = "renameColumn"
	OpChangeType        QueryOperationKind = "changeType"
	OpTransformColumns  QueryOperationKind = "transformColumns"
	OpAddColumn         QueryOperationKind = "addColumn"
	OpMerge             QueryOperationKind = "merge"
	OpExpandTableColumn QueryOperationKind = "expandTableColumn"
	OpAppend            QueryOperationKind = "append"
	OpTake              QueryOperationKind = "take"
	OpSkip              QueryOperationKind = "skip"
	OpOther             QueryOperationKind = "other"
)

// QueryOperation is a tagged union over every foldable operation plus a
// catch-all (OpOther) for everything else in the IR.
type QueryOperation struct {
	Kind QueryOperationKind `json:"kind"`

	// OpSelectColumns / OpRemoveColumns
	Columns []string `json:"columns,omitempty"`

	// OpFilterRows
	Predicate *FilterPredicate `json:"predicate,omitempty"`

	// OpSortRows
	SortKeys []SortSpec `json:"sortKeys,omitempty"`

	// OpDistinctRows: empty Columns means "distinct over the full row"
	DistinctColumns []string `json:"distinctColumns,omitempty"`

	// OpGroupBy
	GroupColumns []string      `json:"groupColumns,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`

	// OpRenameColumn
	RenameFrom string `json:"renameFrom,omitempty"`
	RenameTo   string `json:"renameTo,omitempty"`

	// OpChangeType
	ChangeTypeColumn string     `json:"changeTypeColumn,omitempty"`
	ChangeTypeTarget ScalarKind `json:"changeTypeTarget,omitempty"` // "any" is represented as ScalarKindAny

	// OpTransformColumns
	TransformColumn  string     `json:"transformColumn,omitempty"`
	TransformTarget  ScalarKind `json:"transformTarget,omitempty"`
	TransformFormula string     `json:"transformFormula,omitempty"` // row-formula source text

	// OpAddColumn
	NewColumnName string `json:"newColumnName,omitempty"`
	AddFormula    string `json:"addFormula,omitempty"`

	// OpMerge
	Merge *MergeOp `json:"merge,omitempty"`

	// OpExpandTableColumn
	ExpandColumn         string   `json:"expandColumn,omitempty"`
	ExpandColumns        []string `json:"expandColumns,omitempty"`
	ExpandNewColumnNames []string `json:"expandNewColumnNames,omitempty"`

	// OpAppend
	AppendQueryIDs []string `json:"appendQueryIds,omitempty"`

	// OpTake / OpSkip
	Count *RowFormulaOrLiteral `json:"count,omitempty"`

	OtherName string `json:"otherName,omitempty"` // for OpOther, preserved for explain diagnostics
}

// RowFormulaOrLiteral lets take/skip counts and similar scalar arguments be
// either a literal int or (rarely) a row-formula expression; in practice
// callers almost always supply Literal.
type RowFormulaOrLiteral struct {
	Literal *int   `json:"literal,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// SortDirection enumerates ascending/descending.
type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// NullsOrder enumerates explicit null placement in a sort, when requested.
type NullsOrder string

const (
	NullsUnspecified NullsOrder = ""
	NullsFirst       NullsOrder = "first"
	NullsLast        NullsOrder = "last"
)

// SortSpec describes one ORDER BY key.
type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
	Nulls     NullsOrder    `json:"nulls,omitempty"`
}

// AggregationOp enumerates supported group-by aggregations.
type AggregationOp string

const (
	AggSum           AggregationOp = "sum"
	AggCount         AggregationOp = "count"
	AggAverage       AggregationOp = "average"
	AggMin           AggregationOp = "min"
	AggMax           AggregationOp = "max"
	AggCountDistinct AggregationOp = "countDistinct"
)

// Aggregation describes one aggregated output column.
type Aggregation struct {
	Column string        `json:"column"`
	Op     AggregationOp `json:"op"`
	As     string        `json:"as,omitempty"` // output name; defaults to Column if empty
}

// JoinMode distinguishes a flat (column-projecting) merge from a nested
// (single new table-valued column) merge.
type JoinMode string

const (
	JoinModeFlat   JoinMode = "flat"
	JoinModeNested JoinMode = "nested"
)

// JoinType enumerates supported join semantics. Only inner/left/right/full
// are ever folded to SQL; the semi/anti variants always remain local.
type JoinType string

const (
	JoinInner     JoinType = "inner"
	JoinLeft      JoinType = "left"
	JoinRight     JoinType = "right"
	JoinFull      JoinType = "full"
	JoinLeftAnti  JoinType = "leftAnti"
	JoinRightAnti JoinType = "rightAnti"
	JoinLeftSemi  JoinType = "leftSemi"
	JoinRightSemi JoinType = "rightSemi"
)

// KeyComparer optionally overrides per-key equality semantics for a merge;
// nil means ordinary (null-safe) equality for every key.
type KeyComparer struct {
	CaseSensitive bool `json:"caseSensitive"`
}

// MergeOp describes a merge (join) step.
type MergeOp struct {
	RightQueryID    string         `json:"rightQueryId"`
	Mode            JoinMode       `json:"mode"`
	Type            JoinType       `json:"type"`
	LeftKeys        []string       `json:"leftKeys,omitempty"` // list form; takes precedence over legacy scalar form
	RightKeys       []string       `json:"rightKeys,omitempty"`
	LeftKeyScalar   string         `json:"leftKeyScalar,omitempty"` // legacy scalar form, used only when LeftKeys is empty
	RightKeyScalar  string         `json:"rightKeyScalar,omitempty"`
	Comparer        *KeyComparer   `json:"comparer,omitempty"`
	PerKeyComparers []*KeyComparer `json:"perKeyComparers,omitempty"` // optional, one per key; nil entries mean "use Comparer"
	NewColumnName   string         `json:"newColumnName,omitempty"`   // nested mode only
	RightColumns    []string       `json:"rightColumns,omitempty"`    // optional projection of right-side columns
}

// ResolvedLeftKeys normalizes the legacy-scalar/list duality: list form wins.
func (m *MergeOp) ResolvedLeftKeys() []string {
	if len(m.LeftKeys) > 0 {
		return m.LeftKeys
	}
	if m.LeftKeyScalar != "" {
		return []string{m.LeftKeyScalar}
	}
	return nil
}

// ResolvedRightKeys normalizes the legacy-scalar/list duality: list form wins.
func (m *MergeOp) ResolvedRightKeys() []string {
	if len(m.RightKeys) > 0 {
		return m.RightKeys
	}
	if m.RightKeyScalar != "" {
		return []string{m.RightKeyScalar}
	}
	return nil
}
