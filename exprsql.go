package foldquery

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/foldquery/internal/dialect"
	"github.com/lychee-technology/foldquery/internal/formula"
)

// compilePredicateSQL renders pred as a SQL boolean expression against
// tbl's dialect rules, threading parameters through pb. It is component C
// (SQL side), grounded on the teacher's optimizer.go buildFilterSQL /
// buildPredicateSQL recursive-descent shape, generalised from the
// Main/EAV storage-target switch to the and/or/not/comparison predicate
// algebra in condition.go.
func compilePredicateSQL(pred *FilterPredicate, tbl dialect.Table, pb *paramBuilder) (string, error) {
	if pred == nil {
		return "1=1", nil
	}
	switch pred.Kind {
	case PredicateAnd:
		return joinPredicates(pred.Predicates, " AND ", tbl, pb)
	case PredicateOr:
		return joinPredicates(pred.Predicates, " OR ", tbl, pb)
	case PredicateNot:
		inner, err := compilePredicateSQL(pred.Child, tbl, pb)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case PredicateComparison:
		return compileComparisonSQL(pred, tbl, pb)
	default:
		return "", NewUnknownPredicateKindError(pred.Kind)
	}
}

func joinPredicates(children []*FilterPredicate, sep string, tbl dialect.Table, pb *paramBuilder) (string, error) {
	if len(children) == 0 {
		return "1=1", nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		sql, err := compilePredicateSQL(child, tbl, pb)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+sql+")")
	}
	return strings.Join(parts, sep), nil
}

func compileComparisonSQL(pred *FilterPredicate, tbl dialect.Table, pb *paramBuilder) (string, error) {
	col := tbl.QuoteIdent(pred.Column)

	if pred.Operator == OpIsNull {
		return col + " IS NULL", nil
	}
	if pred.Operator == OpIsNotNull {
		return col + " IS NOT NULL", nil
	}

	if pred.Value.IsNull() {
		// Spec §9: a null predicate value against an ordered comparison
		// folds to a literal false, matching three-valued SQL logic
		// instead of emitting "col > NULL" (which is also always
		// unknown, but we fold it to an explicit, readable constant).
		if pred.Operator.IsOrderedComparison() {
			return "1=0", nil
		}
	}

	if pred.Operator.IsLikeFamily() {
		return compileLikeSQL(pred, col, tbl, pb)
	}

	if !pred.Value.IsScalarFoldable() {
		return "", fmt.Errorf("value kind %q is not foldable for operator %q", pred.Value.Kind, pred.Operator)
	}

	op, ok := comparisonSymbols[pred.Operator]
	if !ok {
		return "", fmt.Errorf("unsupported comparison operator %q", pred.Operator)
	}

	lhs := col
	rhs := pb.addParam(pred.Value)
	if pred.Operator == OpEquals || pred.Operator == OpNotEquals {
		if !pred.EffectiveCaseSensitive() && pred.Value.Kind == ScalarKindText {
			lhs = "LOWER(" + col + ")"
			rhs = "LOWER(" + rhs + ")"
		}
	}
	return fmt.Sprintf("%s %s %s", lhs, op, rhs), nil
}

var comparisonSymbols = map[ComparisonOp]string{
	OpEquals:             "=",
	OpNotEquals:          "!=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
}

// compileLikeSQL renders contains/startsWith/endsWith as a LIKE predicate,
// escaping the wildcard characters '%' and '_' in the literal pattern and
// wrapping nullable text columns in COALESCE so that a NULL column value
// folds to "no match" rather than SQL's three-valued NULL, matching the
// in-memory engine's boolean semantics (spec §4.C, §9).
func compileLikeSQL(pred *FilterPredicate, col string, tbl dialect.Table, pb *paramBuilder) (string, error) {
	if pred.Value == nil || pred.Value.Kind != ScalarKindText {
		return "", fmt.Errorf("%s requires a text value", pred.Operator)
	}
	escaped := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_").Replace(pred.Value.Text)

	var pattern string
	switch pred.Operator {
	case OpContains:
		pattern = "%" + escaped + "%"
	case OpStartsWith:
		pattern = escaped + "%"
	case OpEndsWith:
		pattern = "%" + escaped
	}

	lhs := tbl.CastText(col)
	lhs = "COALESCE(" + lhs + ", '')"
	rhs := pb.addParam(strParam(pattern))

	if pred.EffectiveCaseSensitive() {
		return fmt.Sprintf("%s LIKE %s ESCAPE '\\'", lhs, rhs), nil
	}
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s) ESCAPE '\\'", lhs, rhs), nil
}

// compileFormulaSQL renders a parsed row-formula AST as a single SQL
// scalar expression, used by addColumn/transformColumns. Unsupported
// nodes (anything outside the literal/column/unary/binary/ternary/
// whitelisted-call set parsed by internal/formula) never occur because
// the parser itself enforces the whitelist.
func compileFormulaSQL(node *formula.Node, tbl dialect.Table, pb *paramBuilder) (string, error) {
	if node == nil {
		return "NULL", nil
	}
	switch node.Kind {
	case formula.NodeLiteral:
		switch {
		case node.IsNull:
			return "NULL", nil
		case node.IsString:
			return pb.addParam(strParam(node.LiteralText)), nil
		default:
			return pb.addParam(&ScalarValue{Kind: ScalarKindDecimal, Decimal: node.LiteralText}), nil
		}
	case formula.NodeColumn:
		return tbl.QuoteIdent(node.Column), nil
	case formula.NodeUnary:
		inner, err := compileFormulaSQL(node.Expr, tbl, pb)
		if err != nil {
			return "", err
		}
		if node.Op == "!" {
			return "NOT (" + inner + ")", nil
		}
		return "(-" + inner + ")", nil
	case formula.NodeBinary:
		left, err := compileFormulaSQL(node.Left, tbl, pb)
		if err != nil {
			return "", err
		}
		right, err := compileFormulaSQL(node.Right, tbl, pb)
		if err != nil {
			return "", err
		}
		return compileBinaryOpSQL(node.Op, left, right, tbl)
	case formula.NodeTernary:
		cond, err := compileFormulaSQL(node.Cond, tbl, pb)
		if err != nil {
			return "", err
		}
		thenExpr, err := compileFormulaSQL(node.Then, tbl, pb)
		if err != nil {
			return "", err
		}
		elseExpr, err := compileFormulaSQL(node.Else, tbl, pb)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, thenExpr, elseExpr), nil
	case formula.NodeCall:
		return compileCallSQL(node, tbl, pb)
	default:
		return "", fmt.Errorf("unsupported formula node kind %q", node.Kind)
	}
}

func compileBinaryOpSQL(op, left, right string, tbl dialect.Table) (string, error) {
	switch op {
	case "+", "-", "*", "/":
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case "==":
		return fmt.Sprintf("(%s = %s)", left, right), nil
	case "!=", ">", ">=", "<", "<=":
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case "&&":
		return fmt.Sprintf("(%s AND %s)", left, right), nil
	case "||":
		return fmt.Sprintf("(%s OR %s)", left, right), nil
	default:
		return "", fmt.Errorf("unsupported formula operator %q", op)
	}
}

func compileCallSQL(node *formula.Node, tbl dialect.Table, pb *paramBuilder) (string, error) {
	args := make([]string, len(node.Args))
	for i, a := range node.Args {
		sql, err := compileFormulaSQL(a, tbl, pb)
		if err != nil {
			return "", err
		}
		args[i] = sql
	}
	switch node.Func {
	case "upper":
		return fmt.Sprintf("UPPER(%s)", args[0]), nil
	case "lower":
		return fmt.Sprintf("LOWER(%s)", args[0]), nil
	case "trim":
		return fmt.Sprintf("TRIM(%s)", args[0]), nil
	case "length":
		return fmt.Sprintf("LENGTH(%s)", args[0]), nil
	case "coalesce":
		return fmt.Sprintf("COALESCE(%s)", strings.Join(args, ", ")), nil
	case "concat":
		if len(args) == 0 {
			return "''", nil
		}
		expr := args[0]
		for _, a := range args[1:] {
			expr = tbl.StringConcat(expr, a)
		}
		return expr, nil
	case "round":
		return fmt.Sprintf("ROUND(%s)", strings.Join(args, ", ")), nil
	case "abs":
		return fmt.Sprintf("ABS(%s)", args[0]), nil
	default:
		return "", fmt.Errorf("function %q is not in the fold whitelist", node.Func)
	}
}
