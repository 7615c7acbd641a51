package http

import (
	"context"
	"net/http"
	"time"

	applog "addebiti/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady runs every readiness check with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range s.readiness {
		if err := check(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.engine.Settings.Get(ctx)
	if err != nil {
		s.writeSettingsError(w, r, err)
		return
	}
	NewJSONResponse().Body(settings).Write(w)
}

func (s *Server) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Settings.AcceptTerms(r.Context()); err != nil {
		s.writeSettingsError(w, r, err)
		return
	}
	NewJSONResponse().Success().Write(w)
}

func (s *Server) handleCompleteSetup(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Settings.CompleteSetup(r.Context()); err != nil {
		s.writeSettingsError(w, r, err)
		return
	}
	NewJSONResponse().Success().Write(w)
}

func (s *Server) writeSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	applog.FromContext(ctx).ErrorContext(ctx, "Settings operation failed",
		applog.FieldOperation, applog.OpSettings, applog.FieldError, err.Error())
	InternalServerError("failed to update settings").Write(w)
}
