// Command foldsample hand-builds a Query IR for each supported SQL dialect
// plus one OData example, compiles each, and prints the resulting plan.
// It exists as executable documentation of the external interface (spec
// §6), mirroring the teacher's cmd/sample demo-data generator.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	foldquery "github.com/lychee-technology/foldquery"
)

func newID() string {
	return uuid.New().String()
}

func intPtr(n int) *int { return &n }

func databaseSample(dialect foldquery.Dialect) *foldquery.Query {
	return &foldquery.Query{
		ID: newID(),
		Source: foldquery.QuerySource{
			Kind:      foldquery.SourceDatabase,
			SourceSQL: "SELECT * FROM sales",
			Dialect:   dialect,
			Columns:   []string{"region", "amount", "closed_at"},
		},
		Steps: []foldquery.Step{
			{
				ID:   newID(),
				Name: "keep east region",
				Operation: foldquery.QueryOperation{
					Kind:      foldquery.OpFilterRows,
					Predicate: foldquery.Cmp("region", foldquery.OpEquals, foldquery.TextValue("east")),
				},
			},
			{
				ID:   newID(),
				Name: "sort by amount descending",
				Operation: foldquery.QueryOperation{
					Kind: foldquery.OpSortRows,
					SortKeys: []foldquery.SortSpec{
						{Column: "amount", Direction: foldquery.SortDescending},
					},
				},
			},
			{
				ID:   newID(),
				Name: "top 10",
				Operation: foldquery.QueryOperation{
					Kind:  foldquery.OpTake,
					Count: &foldquery.RowFormulaOrLiteral{Literal: intPtr(10)},
				},
			},
		},
	}
}

func odataSample() *foldquery.Query {
	return &foldquery.Query{
		ID: newID(),
		Source: foldquery.QuerySource{
			Kind: foldquery.SourceOData,
			URL:  "https://odata.example.com/v4/Customers",
		},
		Steps: []foldquery.Step{
			{
				ID:   newID(),
				Name: "active customers only",
				Operation: foldquery.QueryOperation{
					Kind:      foldquery.OpFilterRows,
					Predicate: foldquery.Cmp("status", foldquery.OpEquals, foldquery.TextValue("active")),
				},
			},
			{
				ID:   newID(),
				Name: "first 25",
				Operation: foldquery.QueryOperation{
					Kind:  foldquery.OpTake,
					Count: &foldquery.RowFormulaOrLiteral{Literal: intPtr(25)},
				},
			},
		},
	}
}

func main() {
	dialects := []foldquery.Dialect{
		foldquery.DialectPostgres,
		foldquery.DialectMySQL,
		foldquery.DialectSQLite,
		foldquery.DialectSQLServer,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, d := range dialects {
		q := databaseSample(d)
		plan, err := foldquery.Compile(q, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: compile error: %v\n", d, err)
			continue
		}
		fmt.Printf("--- %s ---\n", d)
		_ = enc.Encode(plan)
	}

	q := odataSample()
	plan, err := foldquery.Compile(q, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "odata: compile error: %v\n", err)
		return
	}
	fmt.Println("--- odata ---")
	_ = enc.Encode(plan)
}
