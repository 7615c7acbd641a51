package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"addebiti/internal/core"
	applog "addebiti/internal/log"
	"addebiti/internal/services"
)

const serviceNotFoundDetail = "Service not found"

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.engine.Subscriptions.List(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list services",
			applog.FieldOperation, applog.OpList, applog.FieldError, err.Error())
		InternalServerError("failed to list services").Write(w)
		return
	}
	NewJSONResponse().Body(list).Write(w)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	svc, err := ParseServiceBody(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, err := s.engine.Subscriptions.Create(ctx, svc)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Body(created).Write(w)
}

func (s *Server) handleReplaceService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	svc, err := ParseServiceBody(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	replaced, err := s.engine.Subscriptions.Replace(ctx, chi.URLParam(r, "id"), svc)
	if err != nil {
		s.writeServiceError(w, r, applog.OpReplace, err)
		return
	}
	NewJSONResponse().Body(replaced).Write(w)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Subscriptions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Success().Write(w)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, services.ErrServiceNotFound):
		NotFoundError(serviceNotFoundDetail).Write(w)
	case errors.Is(err, core.ErrEmptyServiceName), errors.Is(err, core.ErrInvalidWithdrawalDay):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		ctx := r.Context()
		applog.FromContext(ctx).ErrorContext(ctx, "Service operation failed",
			applog.NewFields().
				WithOperation(op).
				WithError(err).
				ToSlice()...)
		InternalServerError("failed to " + op + " service").Write(w)
	}
}
