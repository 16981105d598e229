package foldquery

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// odataState accumulates OData v4 query options across steps (component
// E). Unlike sqlState's SELECT-wrapping, OData options compose into a
// fixed small set of independent query-string parameters, so folding here
// means merging into that option set rather than rewriting query text.
type odataState struct {
	baseURL string

	selectCols []string
	filter     *FilterPredicate // combined with AND as more filterRows steps fold
	orderBy    []SortSpec
	skip       *int
	top        *int

	columns []string
}

func newODataState(source *QuerySource) *odataState {
	return &odataState{baseURL: source.URL}
}

// applyODataStep attempts to fold one Step against state. Only the
// option-affecting operations (select/filter/sort/take/skip) are ever
// foldable to OData; everything else, including distinctRows and the
// row-level computations (merge, transformColumns, addColumn, groupBy),
// has no OData v4 system-query-option equivalent and always remains local.
func applyODataStep(state *odataState, step Step) (*odataState, bool, Reason, error) {
	op := step.Operation
	switch op.Kind {
	case OpSelectColumns:
		next := *state
		next.selectCols = append([]string(nil), op.Columns...)
		next.columns = append([]string(nil), op.Columns...)
		return &next, true, "", nil
	case OpFilterRows:
		if _, err := compilePredicateOData(op.Predicate); err != nil {
			var fe *FoldError
			if errors.As(err, &fe) {
				return nil, false, "", err
			}
			return state, false, ReasonUnsupportedOperator, nil
		}
		next := *state
		if next.filter == nil {
			next.filter = op.Predicate
		} else {
			next.filter = And(next.filter, op.Predicate)
		}
		return &next, true, "", nil
	case OpSortRows:
		next := *state
		next.orderBy = append([]SortSpec(nil), op.SortKeys...)
		return &next, true, "", nil
	case OpTake:
		if op.Count == nil || op.Count.Literal == nil {
			return state, false, ReasonUnsupportedFormula, nil
		}
		next := *state
		n := *op.Count.Literal
		next.top = &n
		return &next, true, "", nil
	case OpSkip:
		if op.Count == nil || op.Count.Literal == nil {
			return state, false, ReasonUnsupportedFormula, nil
		}
		next := *state
		n := *op.Count.Literal
		next.skip = &n
		return &next, true, "", nil
	case OpRemoveColumns, OpRenameColumn, OpChangeType, OpTransformColumns,
		OpAddColumn, OpMerge, OpExpandTableColumn, OpAppend, OpDistinctRows,
		OpGroupBy, OpOther:
		return state, false, ReasonODataUnsupportedOption, nil
	default:
		return nil, false, "", NewUnknownOperationKindError(op.Kind)
	}
}

// finalizeODataFragment renders state as a complete request URL. Per spec
// §4.E, system query options are always emitted in a fixed order —
// $filter, then $orderby, then $skip, then $top — independent of the
// order the corresponding steps folded in, so that two equivalent queries
// always produce byte-identical URLs.
func finalizeODataFragment(state *odataState) (NativeFragment, error) {
	values := url.Values{}
	if len(state.selectCols) > 0 {
		values.Set("$select", strings.Join(state.selectCols, ","))
	}
	if state.filter != nil {
		filterStr, err := compilePredicateOData(state.filter)
		if err != nil {
			return NativeFragment{}, err
		}
		values.Set("$filter", filterStr)
	}
	if len(state.orderBy) > 0 {
		terms := make([]string, len(state.orderBy))
		for i, k := range state.orderBy {
			dir := ""
			if k.Direction == SortDescending {
				dir = " desc"
			}
			terms[i] = k.Column + dir
		}
		values.Set("$orderby", strings.Join(terms, ","))
	}
	if state.skip != nil {
		values.Set("$skip", strconv.Itoa(*state.skip))
	}
	if state.top != nil {
		values.Set("$top", strconv.Itoa(*state.top))
	}

	query := encodeODataOptionsInOrder(values)
	fullURL := state.baseURL
	if query != "" {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL = fullURL + sep + query
	}

	return NativeFragment{ODataURL: fullURL, Columns: state.columns}, nil
}

// encodeODataOptionsInOrder renders values as a query string in the fixed
// $select/$filter/$orderby/$skip/$top order rather than url.Values'
// alphabetical Encode(), since OData clients and test fixtures commonly
// assert on that order.
func encodeODataOptionsInOrder(values url.Values) string {
	order := []string{"$select", "$filter", "$orderby", "$skip", "$top"}
	var parts []string
	for _, key := range order {
		if v := values.Get(key); v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", key, url.QueryEscape(v)))
		}
	}
	return strings.Join(parts, "&")
}
