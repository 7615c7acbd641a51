package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"addebiti/internal/cache"
	"addebiti/internal/core"
	applog "addebiti/internal/log"
	"addebiti/internal/services"
)

type calendarResponse struct {
	PaymentDates []int `json:"payment_dates"`
}

func (s *Server) handleResolvePayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := chi.URLParam(r, "date")

	payments, err := s.engine.Payments.ResolvePayments(ctx, date)
	if err != nil {
		if errors.Is(err, core.ErrMalformedDate) {
			BadRequestError(err.Error()).Write(w)
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to resolve payments",
			applog.NewFields().WithOperation(applog.OpResolve).WithError(err).ToSlice()...)
		InternalServerError("failed to resolve payments").Write(w)
		return
	}

	NewJSONResponse().Body(payments).Write(w)
}

func (s *Server) handleSavePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	req, err := ParseEditRequest(r)
	if err != nil {
		logger.WarnContext(ctx, "Invalid edit request", applog.FieldError, err.Error())
		if errors.Is(err, ErrMissingEditTarget) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	scope := req.ScopeOrDefault()
	fields := applog.NewFields().WithEdit(req.ServiceID, req.Date, string(scope), req.Months)

	if err := s.engine.Payments.ApplyEdit(ctx, req); err != nil {
		if errors.Is(err, core.ErrMalformedDate) {
			logger.WarnContext(ctx, "Edit rejected", fields.WithError(err).ToSlice()...)
			BadRequestError(err.Error()).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Failed to apply edit", fields.WithError(err).ToSlice()...)
		InternalServerError("failed to save payment").Write(w)
		return
	}

	if _, known := services.GetScopeApplier(scope); known && s.metrics != nil {
		s.metrics.IncrementEdits(string(scope))
	}
	NewJSONResponse().Success().Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := ParseMonthParams(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	key := cache.CalendarKey(params.Year, params.Month)
	var version uint64
	if s.calendar != nil {
		if days, ok := s.calendar.Get(key); ok {
			s.recordCacheLookup(true)
			NewJSONResponse().Body(calendarResponse{PaymentDates: days}).Write(w)
			return
		}
		s.recordCacheLookup(false)
		version = s.calendar.Version()
	}

	days, err := s.engine.Payments.CalendarDays(ctx, params.Year, params.Month)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to build calendar",
			applog.NewFields().
				WithOperation(applog.OpCalendar).
				WithMonth(params.Year, params.Month).
				WithError(err).
				ToSlice()...)
		InternalServerError("failed to build calendar").Write(w)
		return
	}

	if s.calendar != nil {
		s.calendar.SetIfUnchanged(key, days, version)
	}
	NewJSONResponse().Body(calendarResponse{PaymentDates: days}).Write(w)
}

func (s *Server) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}
