package gatewayd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/fedgate/internal/plan"
	"github.com/n9te9/fedgate/internal/validate"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

type requestIDKey struct{}

// WithRequestID stamps every request with a correlation ID, generating one
// from the X-Request-Id header if the caller supplied it, and a fresh
// UUID otherwise. The ID is echoed back on the response and threaded
// through the request context so handlers can attach it to log lines.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the correlation ID stashed by WithRequestID, or "" if
// the request never passed through it.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// planRequest is the POSTed body: a GraphQL document plus the usual
// operationName/variables envelope.
type planRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// gqlError mirrors the GraphQL-over-HTTP error shape used by server/gateway.go.
type gqlError struct {
	Message string `json:"message"`
}

// Handler serves the planning endpoint: parse -> validate -> plan. It
// never executes a plan against subgraphs (spec scope ends at plan
// production), so the response body is the Plan IR itself.
type Handler struct {
	Schema *model.ComposedSchema
	log    *slog.Logger
}

// NewHandler builds a Handler around a already-composed schema.
func NewHandler(schema *model.ComposedSchema) *Handler {
	return &Handler{Schema: schema, log: slog.Default()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With("request_id", requestID(r.Context()))

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrors(w, http.StatusBadRequest, err)
		return
	}

	l := lexer.New(req.Query)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		log.Error("parse failed", "errors", errs)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"errors": errs})
		return
	}

	if errs := validate.Document(h.Schema, doc); len(errs) > 0 {
		log.Warn("validation failed", "count", len(errs))
		h.writeErrors(w, http.StatusOK, errs...)
		return
	}

	planner := plan.New(h.Schema)
	rootPlan, err := planner.Plan(doc, req.OperationName, req.Variables)
	if err != nil {
		h.writeErrors(w, http.StatusOK, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": rootPlan}); err != nil {
		log.Error("failed to encode plan", "error", err)
	}
}

func (h *Handler) writeErrors(w http.ResponseWriter, status int, errs ...error) {
	out := make([]gqlError, 0, len(errs))
	for _, e := range errs {
		out = append(out, gqlError{Message: e.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"errors": out})
}
