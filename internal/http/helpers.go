package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/report"
)

// HeaderUserID carries the caller identity set by the upstream authenticator.
const HeaderUserID = "X-User-ID"

const maxBodyBytes = 1 << 20

var (
	errUnauthenticated = errors.New("missing " + HeaderUserID + " header")
	errEmptyBody       = core.Validation("body", "empty request body")
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the core error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrBackend), errors.Is(err, core.ErrPartialFailure):
		return http.StatusBadGateway, applog.ErrorTypeBackend
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, applog.ErrorTypeTimeout
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeError logs server-side failures and renders err. Backend and internal
// failures are not echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, applog.NewFields().WithErrorType(code))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code, RequestID: trace.GetRequestID(r.Context())})
}

func userID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", errUnauthenticated
	}
	return id, nil
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing data
// are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.Validation("body", fmt.Sprintf("larger than %d bytes", maxBodyBytes))
		}
		return core.Validation("body", err.Error())
	}
	if dec.More() {
		return core.Validation("body", "trailing data after JSON object")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

// parseRange reads from/to query dates. With neither given the current
// month in loc is used; a single bound leaves the other side open.
func parseRange(r *http.Request, now time.Time, loc *time.Location) (core.Date, core.Date, error) {
	q := r.URL.Query()
	fromStr, toStr := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if fromStr == "" && toStr == "" {
		from, to := report.MonthRange(now.In(loc))
		return from, to, nil
	}

	var from, to core.Date
	var err error
	if fromStr != "" {
		if from, err = core.ParseDate(fromStr); err != nil {
			return core.Date{}, core.Date{}, core.Validation("from", "expected YYYY-MM-DD")
		}
	}
	if toStr != "" {
		if to, err = core.ParseDate(toStr); err != nil {
			return core.Date{}, core.Date{}, core.Validation("to", "expected YYYY-MM-DD")
		}
	}
	return from, to, nil
}

// parseLimit reads a positive integer query parameter, clamped to max.
func parseLimit(r *http.Request, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, core.Validation("limit", "expected a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func reportKey(owner string, from, to core.Date) report.Key {
	return report.Key{Owner: owner, Range: from.String() + ".." + to.String()}
}
