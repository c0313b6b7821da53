package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxRequestBytes bounds a single JSON-RPC body. Descriptions are the
// largest ledger field.
const maxRequestBytes = 1 << 20

// Handler dispatches ledger methods for an authenticated caller.
type Handler interface {
	Handle(ctx context.Context, caller, method string, params json.RawMessage) (any, error)
}

// Server serves the ledger over JSON-RPC.
type Server struct {
	handler Handler
}

// NewServer builds the ledger router. /health answers without credentials
// so health checks work before any key exists. /rpc runs behind authMiddleware,
// which must put a caller on the context.
func NewServer(handler Handler, authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	srv := &Server{handler: handler}

	r := chi.NewRouter()
	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Post("/rpc", srv.handleRPC)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleRPC answers every ledger failure with HTTP 200 and a JSON-RPC
// error. Guard failures carry their stable code in error.data. Errors
// without a code are reported as internal and their text is withheld.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		WriteError(w, nil, requestErrorCode(err), err.Error(), nil)
		return
	}

	caller, ok := CallerFromContext(r.Context())
	if !ok || caller == "" {
		http.Error(w, "missing caller", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), caller, req.Method, req.Params)
	var coded CodedError
	switch {
	case err == nil:
		WriteResult(w, req.ID, result)
	case errors.As(err, &coded):
		WriteCodedError(w, req.ID, coded)
	default:
		WriteError(w, req.ID, ErrInternal, "internal error", nil)
	}
}
