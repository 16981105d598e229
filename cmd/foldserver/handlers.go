package main

import (
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	foldquery "github.com/lychee-technology/foldquery"
)

// querySchema validates an inbound request body against the shape of
// foldquery.Query before it is unmarshalled into one, the same
// validate-the-wire-payload role the teacher gives jsonschema-go in
// internal/transformer.go.
var querySchema = mustResolveSchema()

func mustResolveSchema() *jsonschema.Resolved {
	schema, err := jsonschema.For[foldquery.Query](nil)
	if err != nil {
		panic(err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

type compileRequest struct {
	Query foldquery.Query `json:"query"`
}

type compileResponse struct {
	Kind       foldquery.PlanKind        `json:"kind"`
	Fragment   *foldquery.NativeFragment `json:"fragment,omitempty"`
	LocalSteps []foldquery.Step          `json:"localSteps,omitempty"`
	Explain    *foldquery.ExplainResult  `json:"explain"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*foldquery.Query, bool) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSONError(w, logger, http.StatusBadRequest, err)
		return nil, false
	}
	if query, ok := raw["query"]; ok {
		if err := querySchema.Validate(query); err != nil {
			writeJSONError(w, logger, http.StatusUnprocessableEntity, err)
			return nil, false
		}
	}

	body, err := json.Marshal(raw)
	if err != nil {
		writeJSONError(w, logger, http.StatusBadRequest, err)
		return nil, false
	}
	var req compileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, logger, http.StatusBadRequest, err)
		return nil, false
	}
	return &req.Query, true
}

func compileHandler(cfg *foldquery.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, logger, http.StatusMethodNotAllowed, errMethodNotAllowed)
			return
		}
		query, ok := decodeQuery(w, r, logger)
		if !ok {
			return
		}

		plan, err := foldquery.Compile(query, &foldquery.CompileOptions{
			Privacy: foldquery.PrivacyOptions{Mode: cfg.Folding.DefaultPrivacyMode},
			Logger:  logger,
		})
		if err != nil {
			writeJSONError(w, logger, http.StatusUnprocessableEntity, err)
			return
		}

		writeJSON(w, http.StatusOK, compileResponse{
			Kind:       plan.Kind,
			Fragment:   plan.Fragment,
			LocalSteps: plan.LocalSteps,
			Explain:    plan.Explain,
		})
	}
}

func explainHandler(cfg *foldquery.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, logger, http.StatusMethodNotAllowed, errMethodNotAllowed)
			return
		}
		query, ok := decodeQuery(w, r, logger)
		if !ok {
			return
		}

		explain, err := foldquery.Explain(query, &foldquery.CompileOptions{
			Privacy: foldquery.PrivacyOptions{Mode: cfg.Folding.DefaultPrivacyMode},
			Logger:  logger,
		})
		if err != nil {
			writeJSONError(w, logger, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, explain)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var errMethodNotAllowed = httpError("method not allowed")

type httpError string

func (e httpError) Error() string { return string(e) }
