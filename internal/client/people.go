package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dhos/janitor/internal/model"
)

// ---------------------------------------------------------------------------
// Services API (patients)
// ---------------------------------------------------------------------------

// SearchPatients lists patients enrolled in product.
func (r *Repository) SearchPatients(ctx context.Context, jwt, product string, active bool) ([]model.Patient, error) {
	var out []model.Patient
	err := r.call(ctx, ServicesAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v1/patient/search",
		token:  jwt,
		query:  url.Values{"product_name": {product}, "active": {strconv.FormatBool(active)}},
	}, &out)
	return out, err
}

// PatientsAtLocation lists active product patients at a location.
func (r *Repository) PatientsAtLocation(ctx context.Context, jwt, locationID, product string) ([]model.Patient, error) {
	var out []model.Patient
	err := r.call(ctx, ServicesAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v2/location/" + url.PathEscape(locationID) + "/patient",
		token:  jwt,
		query:  url.Values{"product_name": {product}, "active": {"true"}},
	}, &out)
	return out, err
}

// CreatePatient posts a generated patient under product.
func (r *Repository) CreatePatient(ctx context.Context, jwt, product string, p model.Patient) (model.Patient, error) {
	var out model.Patient
	err := r.call(ctx, ServicesAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/patient",
		token:  jwt,
		query:  url.Values{"product_name": {product}},
		body:   p,
	}, &out)
	return out, err
}

// UpdatePatient patches a patient with an arbitrary partial document.
func (r *Repository) UpdatePatient(ctx context.Context, jwt, patientID string, patch any) error {
	return r.call(ctx, ServicesAPI, request{
		method: http.MethodPatch,
		path:   "/dhos/v1/patient/" + url.PathEscape(patientID),
		token:  jwt,
		body:   patch,
	}, nil)
}

// ---------------------------------------------------------------------------
// Users API (clinicians)
// ---------------------------------------------------------------------------

// CliniciansAtLocation lists clinicians assigned to a location.
func (r *Repository) CliniciansAtLocation(ctx context.Context, jwt, locationID string) ([]model.Clinician, error) {
	var out []model.Clinician
	err := r.call(ctx, UsersAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v1/location/" + url.PathEscape(locationID) + "/clinician",
		token:  jwt,
	}, &out)
	return out, err
}

// Clinicians lists clinicians working on product.
func (r *Repository) Clinicians(ctx context.Context, jwt, product string) ([]model.Clinician, error) {
	var out struct {
		Results []model.Clinician `json:"results"`
	}
	err := r.call(ctx, UsersAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v2/clinicians",
		token:  jwt,
		query:  url.Values{"product_name": {product}},
	}, &out)
	return out.Results, err
}

// CreateClinician posts a clinician without sending a welcome email.
func (r *Repository) CreateClinician(ctx context.Context, jwt string, c model.Clinician) error {
	return r.call(ctx, UsersAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/clinician",
		token:  jwt,
		query:  url.Values{"send_welcome_email": {"false"}},
		body:   c,
	}, nil)
}

// UpdateClinician patches the clinician with the given email.
func (r *Repository) UpdateClinician(ctx context.Context, jwt, email string, patch any) error {
	return r.call(ctx, UsersAPI, request{
		method: http.MethodPatch,
		path:   "/dhos/v1/clinician",
		token:  jwt,
		query:  url.Values{"email": {email}},
		body:   patch,
	}, nil)
}

// ---------------------------------------------------------------------------
// Locations API
// ---------------------------------------------------------------------------

// SearchLocations returns the compact location index for products,
// optionally restricted to location type codes.
func (r *Repository) SearchLocations(ctx context.Context, jwt string, products []string, types ...string) (model.LocationIndex, error) {
	q := url.Values{"product_name": products, "compact": {"true"}}
	if len(types) > 0 {
		q.Set("location_types", strings.Join(types, "|"))
	}
	out := model.LocationIndex{}
	err := r.call(ctx, LocationsAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v1/location/search",
		token:  jwt,
		query:  q,
	}, &out)
	return out, err
}

// CreateLocation posts a location.
func (r *Repository) CreateLocation(ctx context.Context, jwt string, l model.Location) error {
	return r.call(ctx, LocationsAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/location",
		token:  jwt,
		body:   l,
	}, nil)
}
