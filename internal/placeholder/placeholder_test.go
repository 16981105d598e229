package placeholder

import "testing"

func TestNormalize_DollarStyle(t *testing.T) {
	got, n := Normalize("SELECT * FROM t WHERE a = ? AND b = ?", StylePositionalDollar, 0)
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want || n != 2 {
		t.Fatalf("got %q (n=%d), want %q (n=2)", got, n, want)
	}
}

func TestNormalize_AtStyle(t *testing.T) {
	got, n := Normalize("SELECT * FROM t WHERE a = ?", StylePositionalAt, 0)
	if got != "SELECT * FROM t WHERE a = @p1" || n != 1 {
		t.Fatalf("got %q (n=%d)", got, n)
	}
}

func TestNormalize_StartIndexOffset(t *testing.T) {
	got, n := Normalize("a = ? AND b = ?", StylePositionalDollar, 2)
	if got != "a = $3 AND b = $4" || n != 2 {
		t.Fatalf("got %q (n=%d)", got, n)
	}
}

func TestNormalize_IgnoresQuotedQuestionMark(t *testing.T) {
	got, n := Normalize(`SELECT '?' , a = ?`, StylePositionalDollar, 0)
	if got != `SELECT '?' , a = $1` || n != 1 {
		t.Fatalf("got %q (n=%d)", got, n)
	}
}

func TestNormalize_IgnoresLineComment(t *testing.T) {
	got, n := Normalize("a = ? -- is ? a placeholder?\nAND b = ?", StylePositionalDollar, 0)
	if n != 2 {
		t.Fatalf("expected 2 real placeholders, got %d: %s", n, got)
	}
}

func TestNormalize_IgnoresJSONOperators(t *testing.T) {
	got, n := Normalize("doc ?| arr AND a = ?", StylePositionalDollar, 0)
	want := "doc ?| arr AND a = $1"
	if got != want || n != 1 {
		t.Fatalf("got %q (n=%d), want %q", got, n, want)
	}
}

func TestNormalize_IgnoresDollarQuotedBody(t *testing.T) {
	sql := "SELECT $$ a ? b $$ , a = ?"
	got, n := Normalize(sql, StylePositionalDollar, 0)
	if n != 1 {
		t.Fatalf("expected 1 real placeholder inside dollar-quoted body, got %d: %s", n, got)
	}
}

func TestNormalize_QuestionStyleIsNoOp(t *testing.T) {
	got, n := Normalize("a = ? AND b = ?", StyleQuestion, 0)
	if got != "a = ? AND b = ?" || n != 2 {
		t.Fatalf("got %q (n=%d)", got, n)
	}
}
