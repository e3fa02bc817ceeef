package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dhos/janitor/internal/model"
)

// ---------------------------------------------------------------------------
// Encounters API
// ---------------------------------------------------------------------------

// EncountersForPatient lists a patient's encounters.
func (r *Repository) EncountersForPatient(ctx context.Context, jwt, patientID string) ([]model.Encounter, error) {
	var out []model.Encounter
	err := r.call(ctx, EncountersAPI, request{
		method: http.MethodGet,
		path:   "/dhos/v2/encounter",
		token:  jwt,
		query:  url.Values{"patient_id": {patientID}},
	}, &out)
	return out, err
}

// CreateEncounter posts an encounter and returns it as stored.
func (r *Repository) CreateEncounter(ctx context.Context, jwt string, e model.Encounter) (model.Encounter, error) {
	var out model.Encounter
	err := r.call(ctx, EncountersAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v2/encounter",
		token:  jwt,
		body:   e,
	}, &out)
	return out, err
}

// UpdateSpO2Scale changes an encounter's SpO2 scale and returns the
// resulting score system history entry.
func (r *Repository) UpdateSpO2Scale(ctx context.Context, jwt, encounterID string, scale int) (model.ScoreSystemHistory, error) {
	var out struct {
		History []model.ScoreSystemHistory `json:"score_system_history"`
	}
	err := r.call(ctx, EncountersAPI, request{
		method: http.MethodPatch,
		path:   "/dhos/v1/encounter/" + url.PathEscape(encounterID),
		token:  jwt,
		body:   map[string]int{"spo2_scale": scale},
	}, &out)
	if err != nil {
		return model.ScoreSystemHistory{}, err
	}
	if len(out.History) == 0 {
		return model.ScoreSystemHistory{}, &ServiceUnavailableError{Service: EncountersAPI, Method: http.MethodPatch,
			Path: "/dhos/v1/encounter/" + encounterID, StatusCode: http.StatusOK, Err: errEmptyHistory}
	}
	return out.History[0], nil
}

// UpdateScoreSystemHistory backdates a score system change.
func (r *Repository) UpdateScoreSystemHistory(ctx context.Context, jwt, historyID string, changed time.Time) error {
	return r.call(ctx, EncountersAPI, request{
		method: http.MethodPatch,
		path:   "/dhos/v1/score_system_history/" + url.PathEscape(historyID),
		token:  jwt,
		body:   map[string]string{"changed_time": model.FormatTime(changed)},
	}, nil)
}

// ---------------------------------------------------------------------------
// SEND BFF (observations)
// ---------------------------------------------------------------------------

// SearchEncounters lists the open encounters at a SEND location.
func (r *Repository) SearchEncounters(ctx context.Context, jwt, locationID string) ([]model.Encounter, error) {
	var out model.EncounterSearch
	err := r.call(ctx, SENDBFF, request{
		method: http.MethodGet,
		path:   "/send/v1/encounter/search",
		token:  jwt,
		query:  url.Values{"location": {locationID}},
	}, &out)
	return out.Results, err
}

// CreateObservationSet posts an observation set. suppress stops the BFF
// publishing a score notification for it.
func (r *Repository) CreateObservationSet(ctx context.Context, jwt string, set model.ObservationSet, suppress bool) error {
	return r.call(ctx, SENDBFF, request{
		method: http.MethodPost,
		path:   "/send/v1/observation_set",
		token:  jwt,
		query:  url.Values{"suppress_obs_publish": {strconv.FormatBool(suppress)}},
		body:   set,
	}, nil)
}

// ---------------------------------------------------------------------------
// GDM BFF (readings)
// ---------------------------------------------------------------------------

// CreateReading posts a blood glucose reading on behalf of a patient.
func (r *Repository) CreateReading(ctx context.Context, patientJWT, patientID string, reading model.Reading) error {
	return r.call(ctx, GDMBFF, request{
		method: http.MethodPost,
		path:   "/gdm/v1/patient/" + url.PathEscape(patientID) + "/reading",
		token:  patientJWT,
		body:   reading,
	}, nil)
}

// ---------------------------------------------------------------------------
// Messages API
// ---------------------------------------------------------------------------

// CreateMessage posts a message. locationIDs scope clinician-sent messages.
func (r *Repository) CreateMessage(ctx context.Context, jwt string, m model.Message, locationIDs []string) error {
	var headers map[string]string
	if len(locationIDs) > 0 {
		headers = map[string]string{"X-Location-Ids": strings.Join(locationIDs, ",")}
	}
	return r.call(ctx, MessagesAPI, request{
		method:  http.MethodPost,
		path:    "/dhos/v1/message",
		token:   jwt,
		headers: headers,
		body:    m,
	}, nil)
}

// ---------------------------------------------------------------------------
// Fuego (EPR integration)
// ---------------------------------------------------------------------------

// CreateFHIRPatient posts a patient to the EPR and returns it with its
// FHIR resource id.
func (r *Repository) CreateFHIRPatient(ctx context.Context, jwt string, p model.FHIRPatient) (model.FHIRPatient, error) {
	var out model.FHIRPatient
	err := r.call(ctx, FuegoAPI, request{
		method: http.MethodPost,
		path:   "/dhos/v1/patient_create",
		token:  jwt,
		body:   p,
	}, &out)
	return out, err
}
