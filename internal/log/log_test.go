package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return New(Config{Handler: h, Component: component}), &buf
}

func TestLogger_StampsComponent(t *testing.T) {
	l, buf := newBufferLogger(ComponentProvision)
	l.With(FieldOwnerID, "u1").InfoContext(context.Background(), "Provisioned")

	out := buf.String()
	for _, want := range []string{"component=provision", "owner_id=u1", "msg=Provisioned"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	buf.Reset()
	l.WithComponent(ComponentReport).Debug("built")
	if !strings.Contains(buf.String(), "component=report") {
		t.Errorf("output %q", buf.String())
	}
}

func TestMiddleware_RequestIDReachesHandlerLogger(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP)
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-7" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("handled")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), "request_id=req-7") {
		t.Errorf("output %q", buf.String())
	}
}

func TestStructuredLogger_LevelFromStatus(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP)
	sl := NewStructuredLogger(l)
	r := httptest.NewRequest(http.MethodGet, "/api/report", nil)

	sl.LogHTTPEnd(context.Background(), r, 502, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=502") {
		t.Errorf("output %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "Report failed", errors.New("boom"), ComponentReport, OpAggregate, nil)
	for _, want := range []string{"error=boom", "operation=aggregate", "component=report"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output %q missing %q", buf.String(), want)
		}
	}
}
