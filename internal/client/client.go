// Package client talks to the downstream platform services. Every call is a
// single synchronous request with a fixed deadline; failures are reported as
// *ServiceUnavailableError and are never retried.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/model"
	"github.com/dhos/janitor/internal/platform/cache"
)

// Downstream service names. Resettable services double as reset targets.
const (
	LocationsAPI      = "dhos-locations-api"
	UsersAPI          = "dhos-users-api"
	ServicesAPI       = "dhos-services-api"
	ActivationAuthAPI = "dhos-activation-auth-api"
	AuditAPI          = "dhos-audit-api"
	EncountersAPI     = "dhos-encounters-api"
	FuegoAPI          = "dhos-fuego-api"
	MessagesAPI       = "dhos-messages-api"
	QuestionsAPI      = "dhos-questions-api"
	TelemetryAPI      = "dhos-telemetry-api"
	BGReadingsAPI     = "gdm-bg-readings-api"
	ObservationsAPI   = "dhos-observations-api"

	MedicationsAPI = "dhos-medications-api"
	TrustomerAPI   = "dhos-trustomer-api"
	URLAPI         = "dhos-url-api"
	ArticlesAPI    = "gdm-articles-api"
	GDMBFF         = "gdm-bff"
	SENDBFF        = "send-bff"
)

// ResettableTargets lists the services a reset may drop, in reset order.
var ResettableTargets = []string{
	LocationsAPI,
	UsersAPI,
	ServicesAPI,
	ActivationAuthAPI,
	AuditAPI,
	EncountersAPI,
	FuegoAPI,
	MessagesAPI,
	QuestionsAPI,
	TelemetryAPI,
	BGReadingsAPI,
	ObservationsAPI,
}

// AllServices lists every downstream service with a configurable base URL.
var AllServices = append([]string{GDMBFF, SENDBFF, MedicationsAPI, TrustomerAPI, URLAPI, ArticlesAPI}, ResettableTargets...)

// ServiceUnavailableError reports a transport failure or non-2xx response
// from a downstream service.
type ServiceUnavailableError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *ServiceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", e.Service, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s %s: unexpected status %d", e.Service, e.Method, e.Path, e.StatusCode)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// Classification marks the error for task status reporting.
func (e *ServiceUnavailableError) Classification() string { return "service_unavailable" }

// Config configures a Repository.
type Config struct {
	// BaseURLs maps service name to base URL.
	BaseURLs       map[string]string
	Timeout        time.Duration
	DropTimeout    time.Duration
	CustomerCode   string
	APIKey         string
	StaticCacheTTL time.Duration
}

// Repository holds one HTTP client per downstream service.
type Repository struct {
	clients      map[string]*resty.Client
	logger       zerolog.Logger
	dropTimeout  time.Duration
	customerCode string
	apiKey       string

	trustomer   *cache.TTL[string, model.TrustomerConfig]
	medications *cache.TTL[string, []model.Medication]
}

// New builds clients for every service in cfg.BaseURLs.
func New(cfg Config, logger zerolog.Logger) (*Repository, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.DropTimeout <= 0 {
		cfg.DropTimeout = 30 * time.Second
	}
	if cfg.StaticCacheTTL <= 0 {
		cfg.StaticCacheTTL = time.Hour
	}

	r := &Repository{
		clients:      make(map[string]*resty.Client, len(cfg.BaseURLs)),
		logger:       logger.With().Str("component", "client").Logger(),
		dropTimeout:  cfg.DropTimeout,
		customerCode: strings.ToLower(cfg.CustomerCode),
		apiKey:       cfg.APIKey,
		trustomer:    cache.New[string, model.TrustomerConfig](1, cfg.StaticCacheTTL),
		medications:  cache.New[string, []model.Medication](8, cfg.StaticCacheTTL),
	}
	for service, base := range cfg.BaseURLs {
		if base == "" {
			continue
		}
		if _, err := url.Parse(base); err != nil {
			return nil, fmt.Errorf("invalid base url for %s: %w", service, err)
		}
		r.clients[service] = resty.New().
			SetBaseURL(strings.TrimRight(base, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json")
	}
	return r, nil
}

// request describes one downstream call.
type request struct {
	method  string
	path    string
	token   string
	headers map[string]string
	query   url.Values
	body    any
}

func bearer(token string) string { return "Bearer " + token }

// call performs req against service and decodes a JSON response into out
// when out is non-nil.
func (r *Repository) call(ctx context.Context, service string, req request, out any) error {
	c, ok := r.clients[service]
	if !ok {
		return &ServiceUnavailableError{Service: service, Method: req.method, Path: req.path,
			Err: fmt.Errorf("no base url configured")}
	}

	rq := c.R().SetContext(ctx)
	if req.token != "" {
		rq.SetHeader("Authorization", bearer(req.token))
	}
	for k, v := range req.headers {
		rq.SetHeader(k, v)
	}
	if req.query != nil {
		rq.SetQueryParamsFromValues(req.query)
	}
	if req.body != nil {
		rq.SetHeader("Content-Type", "application/json").SetBody(req.body)
	}
	if out != nil {
		rq.SetResult(out).ExpectContentType("application/json")
	}

	resp, err := rq.Execute(req.method, req.path)
	if err != nil {
		su := &ServiceUnavailableError{Service: service, Method: req.method, Path: req.path, Err: err}
		if resp != nil && resp.RawResponse != nil {
			su.StatusCode = resp.StatusCode()
			su.Err = fmt.Errorf("decode response: %w", err)
		}
		return su
	}
	if resp.Header().Get("Deprecation") != "" {
		r.logger.Warn().Str("service", service).Str("method", req.method).Str("path", req.path).
			Msg("request to a deprecated route detected")
	}
	if !resp.IsSuccess() {
		return &ServiceUnavailableError{Service: service, Method: req.method, Path: req.path, StatusCode: resp.StatusCode()}
	}
	return nil
}

// Drop asks a resettable service to delete all of its data and returns the
// service's response document.
func (r *Repository) Drop(ctx context.Context, service, systemJWT string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.dropTimeout)
	defer cancel()

	var out json.RawMessage
	if err := r.call(ctx, service, request{method: http.MethodPost, path: "/drop_data", token: systemJWT}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
