// Command foldexplain reads a Query + options JSON document from a path
// argument (or stdin if omitted) and prints its ExplainResult, the
// smallest possible realization of "the explain layer... used for
// debugging/telemetry" (spec §6). Grounded on the teacher's cmd/tools
// single-purpose CLI shape: one flag-free argument, stdlib os/io only.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	foldquery "github.com/lychee-technology/foldquery"
)

type explainRequest struct {
	Query   foldquery.Query          `json:"query"`
	Privacy foldquery.PrivacyOptions `json:"privacy"`
}

func main() {
	var r io.Reader = os.Stdin
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "foldexplain: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	var req explainRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "foldexplain: invalid query document: %v\n", err)
		os.Exit(1)
	}

	explain, err := foldquery.Explain(&req.Query, &foldquery.CompileOptions{Privacy: req.Privacy})
	if err != nil {
		fmt.Fprintf(os.Stderr, "foldexplain: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(explain)
}
