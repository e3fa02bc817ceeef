package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dhos/janitor/internal/model"
)

// CreatePatientActivation issues an activation code and OTP for a patient.
func (r *Repository) CreatePatientActivation(ctx context.Context, jwt, patientID string) (model.Activation, error) {
	var out model.Activation
	err := r.call(ctx, ActivationAuthAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/patient/" + url.PathEscape(patientID) + "/activation",
		token:  jwt,
	}, &out)
	return out, err
}

// CreateDevice registers a ward device.
func (r *Repository) CreateDevice(ctx context.Context, jwt string, d model.Device) error {
	return r.call(ctx, ActivationAuthAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/device",
		token:  jwt,
		body:   d,
	}, nil)
}

// CreateDeviceActivation issues an activation for a registered device.
func (r *Repository) CreateDeviceActivation(ctx context.Context, jwt, deviceID string) (model.Activation, error) {
	var out model.Activation
	err := r.call(ctx, ActivationAuthAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/device/" + url.PathEscape(deviceID) + "/activation",
		token:  jwt,
	}, &out)
	return out, err
}

// ExchangeActivation trades an activation code and OTP for an
// authorisation code. The call is unauthenticated.
func (r *Repository) ExchangeActivation(ctx context.Context, code, otp string) (string, error) {
	var out struct {
		AuthorisationCode string `json:"authorisation_code"`
	}
	err := r.call(ctx, ActivationAuthAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/activation/" + url.PathEscape(code),
		body:   map[string]string{"otp": otp},
	}, &out)
	return out.AuthorisationCode, err
}

// PatientJWT fetches a patient token using an authorisation code.
func (r *Repository) PatientJWT(ctx context.Context, patientID, authorisationCode string) (string, error) {
	var out struct {
		JWT string `json:"jwt"`
	}
	err := r.call(ctx, ActivationAuthAPI, request{
		method:  http.MethodGet,
		path:    "/dhos/v1/patient/" + url.PathEscape(patientID) + "/jwt",
		headers: map[string]string{"X-Authorisation-Code": authorisationCode},
	}, &out)
	return out.JWT, err
}
