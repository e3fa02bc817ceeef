package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dhos/janitor/internal/model"
)

var errEmptyHistory = errors.New("response has no score system history")

// ---------------------------------------------------------------------------
// Questions API
// ---------------------------------------------------------------------------

func (r *Repository) CreateQuestionType(ctx context.Context, jwt string, doc map[string]any) error {
	return r.postDoc(ctx, QuestionsAPI, "/dhos/v1/question_type", jwt, doc)
}

func (r *Repository) CreateQuestionOptionType(ctx context.Context, jwt string, doc map[string]any) error {
	return r.postDoc(ctx, QuestionsAPI, "/dhos/v1/question_option_type", jwt, doc)
}

func (r *Repository) CreateQuestion(ctx context.Context, jwt string, doc map[string]any) error {
	return r.postDoc(ctx, QuestionsAPI, "/dhos/v1/question", jwt, doc)
}

// ---------------------------------------------------------------------------
// Telemetry API
// ---------------------------------------------------------------------------

func (r *Repository) CreatePatientInstallation(ctx context.Context, patientJWT, patientID string, doc map[string]any) error {
	return r.postDoc(ctx, TelemetryAPI, "/dhos/v1/patient/"+url.PathEscape(patientID)+"/installation", patientJWT, doc)
}

func (r *Repository) CreateClinicianInstallation(ctx context.Context, clinicianJWT, clinicianID string, doc map[string]any) error {
	return r.postDoc(ctx, TelemetryAPI, "/dhos/v1/clinician/"+url.PathEscape(clinicianID)+"/installation", clinicianJWT, doc)
}

func (r *Repository) postDoc(ctx context.Context, service, path, jwt string, doc map[string]any) error {
	return r.call(ctx, service, request{method: http.MethodPost, path: path, token: jwt, body: doc}, nil)
}

// ---------------------------------------------------------------------------
// Trustomer config and medication catalogue (cached)
// ---------------------------------------------------------------------------

func (r *Repository) apiKeyHeaders(product string) map[string]string {
	return map[string]string{
		"Authorization": r.apiKey,
		"X-Trustomer":   r.customerCode,
		"X-Product":     product,
	}
}

// TrustomerConfig returns the customer configuration, cached for the
// static data TTL.
func (r *Repository) TrustomerConfig(ctx context.Context) (model.TrustomerConfig, error) {
	return r.trustomer.GetOrLoad(r.customerCode, func() (model.TrustomerConfig, error) {
		path := "/dhos/v1/trustomer/" + url.PathEscape(r.customerCode)
		r.logger.Info().Str("path", path).Msg("fetching trustomer config")
		var out model.TrustomerConfig
		err := r.call(ctx, TrustomerAPI, request{
			method:  http.MethodGet,
			path:    path,
			headers: r.apiKeyHeaders("polaris"),
		}, &out)
		return out, err
	})
}

// Medications returns the medication catalogue entries carrying tag, cached
// for the static data TTL.
func (r *Repository) Medications(ctx context.Context, tag string) ([]model.Medication, error) {
	return r.medications.GetOrLoad(tag, func() ([]model.Medication, error) {
		var out []model.Medication
		var q url.Values
		if tag != "" {
			q = url.Values{"tag": {tag}}
		}
		err := r.call(ctx, MedicationsAPI, request{
			method:  http.MethodGet,
			path:    "/dhos/v1/medication",
			headers: r.apiKeyHeaders("gdm"),
			query:   q,
		}, &out)
		return out, err
	})
}
