// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"addebiti/internal/core"
)

const maxBodyBytes = 1 << 20

var ErrMissingEditTarget = errors.New("service_id and date are required")

// MonthParams holds year/month path parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads {year} and {month} from the route. No range check
// is applied to month.
func ParseMonthParams(r *http.Request) (MonthParams, error) {
	year, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "year")))
	if err != nil {
		return MonthParams{}, fmt.Errorf("invalid year: %w", err)
	}
	month, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "month")))
	if err != nil {
		return MonthParams{}, fmt.Errorf("invalid month: %w", err)
	}
	return MonthParams{Year: year, Month: month}, nil
}

// editPayload is the JSON shape of a save request.
type editPayload struct {
	ServiceID      string   `json:"service_id"`
	Date           string   `json:"date"`
	ServiceName    *string  `json:"service_name"`
	Amount         *float64 `json:"amount"`
	WithdrawalDate *int     `json:"withdrawal_date"`
	Scope          string   `json:"scope"`
	Months         []string `json:"months"`
}

func (p editPayload) toEditRequest() (core.EditRequest, error) {
	req := core.EditRequest{
		ServiceID:      strings.TrimSpace(p.ServiceID),
		Date:           strings.TrimSpace(p.Date),
		ServiceName:    p.ServiceName,
		Amount:         p.Amount,
		WithdrawalDate: p.WithdrawalDate,
		Scope:          core.Scope(strings.TrimSpace(p.Scope)),
		Months:         p.Months,
	}
	if req.ServiceID == "" || req.Date == "" {
		return core.EditRequest{}, ErrMissingEditTarget
	}
	return req, nil
}

// RequestBodyParser reads the body once and decodes it as JSON when it looks
// like JSON, otherwise as form values merged with the query string.
type RequestBodyParser struct {
	body     []byte
	query    url.Values
	formData url.Values
	isJSON   bool
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{query: r.URL.Query()}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		p.isJSON = true
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("invalid form body: %w", err)
		return p.err
	}
	for k, v := range p.query {
		if _, ok := form[k]; !ok {
			form[k] = v
		}
	}
	p.formData = form
	return nil
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// DecodeJSON unmarshals the body into v. Unknown fields are ignored.
func (p *RequestBodyParser) DecodeJSON(v any) error {
	if err := json.Unmarshal(p.body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// Get returns a sanitized form value.
func (p *RequestBodyParser) Get(key string) string {
	if p.formData == nil {
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

// Has reports whether key was sent with a non-empty value.
func (p *RequestBodyParser) Has(key string) bool {
	return p.Get(key) != ""
}

// List returns every value of key, splitting comma-separated entries.
func (p *RequestBodyParser) List(key string) []string {
	if p.formData == nil {
		return nil
	}
	var out []string
	for _, v := range p.formData[key] {
		for _, part := range strings.Split(v, ",") {
			if part = sanitizeInput(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseEditRequest builds an edit from a JSON body or, failing that, from
// form and query values.
func ParseEditRequest(r *http.Request) (core.EditRequest, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.EditRequest{}, err
	}

	if p.IsJSON() {
		var payload editPayload
		if err := p.DecodeJSON(&payload); err != nil {
			return core.EditRequest{}, err
		}
		return payload.toEditRequest()
	}

	payload := editPayload{
		ServiceID: p.Get("service_id"),
		Date:      p.Get("date"),
		Scope:     p.Get("scope"),
		Months:    p.List("months"),
	}
	if p.Has("service_name") {
		name := p.Get("service_name")
		payload.ServiceName = &name
	}
	if p.Has("amount") {
		amount, err := strconv.ParseFloat(p.Get("amount"), 64)
		if err != nil {
			return core.EditRequest{}, fmt.Errorf("invalid amount: %w", err)
		}
		payload.Amount = &amount
	}
	if p.Has("withdrawal_date") {
		day, err := strconv.Atoi(p.Get("withdrawal_date"))
		if err != nil {
			return core.EditRequest{}, fmt.Errorf("invalid withdrawal_date: %w", err)
		}
		payload.WithdrawalDate = &day
	}
	return payload.toEditRequest()
}

// servicePayload is the body of service create and replace requests.
type servicePayload struct {
	ServiceName    string  `json:"service_name"`
	WithdrawalDate int     `json:"withdrawal_date"`
	Amount         float64 `json:"amount"`
}

// ParseServiceBody decodes a service record. Any id in the body is ignored.
func ParseServiceBody(r *http.Request) (core.SubscriptionService, error) {
	var payload servicePayload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		return core.SubscriptionService{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return core.SubscriptionService{
		ServiceName:    sanitizeInput(payload.ServiceName),
		WithdrawalDate: payload.WithdrawalDate,
		Amount:         payload.Amount,
	}, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
