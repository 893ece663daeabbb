package http

import (
	"net/http"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// transferFailure is returned when a transfer was only partly written.
type transferFailure struct {
	errorBody
	Partial services.TransferResult `json:"partial"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	var in services.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	t, err := s.deps.Ledger.CreateTransaction(r.Context(), owner, in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidateReports(owner)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	var in services.TransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	res, err := s.deps.Ledger.CreateTransfer(r.Context(), owner, in)
	if res.Contra.ID != "" {
		s.invalidateReports(owner)
	}
	if err != nil {
		if res.Contra.ID == "" {
			s.writeError(w, r, applog.OpCreate, err)
			return
		}
		// Rows already written stay written; tell the client which.
		status, code := statusFor(err)
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transfer partially written",
			"error", err, "contra_id", res.Contra.ID, "legs_written", len(res.Legs))
		writeJSON(w, status, transferFailure{
			errorBody: errorBody{Error: "transfer partially written", Code: code, RequestID: trace.GetRequestID(r.Context())},
			Partial:   res,
		})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
