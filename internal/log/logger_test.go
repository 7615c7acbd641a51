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

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentPayments, Output: &buf})

	logger.InfoContext(context.Background(), "Edit applied", FieldScope, "day_only")

	out := buf.String()
	if !strings.Contains(out, "component=payments") || !strings.Contains(out, "scope=day_only") {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithEdit("netflix", "2024-04-05", "manual_months", []string{"2024-05"}).
		WithMonth(2024, 4).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldServiceID] != "netflix" || f[FieldScope] != "manual_months" || f[FieldError] != "boom" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Errorf("ToSlice should produce key/value pairs")
	}

	noMonths := NewFields().WithEdit("a", "b", "day_only", nil)
	if _, ok := noMonths[FieldMonths]; ok {
		t.Error("empty months should be omitted")
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP})

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("expected request logger, got %+v", got)
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing: %s", buf.String())
	}

	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("fallback logger should use the app component")
	}
}
