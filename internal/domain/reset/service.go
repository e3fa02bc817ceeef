// Package reset drops every platform service's data and repopulates it with
// seed fixtures and freshly generated patients.
package reset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/fixtures"
	"github.com/dhos/janitor/internal/generator"
	"github.com/dhos/janitor/internal/model"
)

// Clients is the downstream surface a reset drives.
type Clients interface {
	TrustomerConfig(ctx context.Context) (model.TrustomerConfig, error)
	Medications(ctx context.Context, tag string) ([]model.Medication, error)
	Drop(ctx context.Context, service, systemJWT string) (json.RawMessage, error)

	SearchLocations(ctx context.Context, jwt string, products []string, types ...string) (model.LocationIndex, error)
	CreateLocation(ctx context.Context, jwt string, l model.Location) error

	Clinicians(ctx context.Context, jwt, product string) ([]model.Clinician, error)
	CliniciansAtLocation(ctx context.Context, jwt, locationID string) ([]model.Clinician, error)
	CreateClinician(ctx context.Context, jwt string, c model.Clinician) error
	UpdateClinician(ctx context.Context, jwt, email string, patch any) error

	SearchPatients(ctx context.Context, jwt, product string, active bool) ([]model.Patient, error)
	PatientsAtLocation(ctx context.Context, jwt, locationID, product string) ([]model.Patient, error)
	CreatePatient(ctx context.Context, jwt, product string, p model.Patient) (model.Patient, error)
	UpdatePatient(ctx context.Context, jwt, patientID string, patch any) error

	CreatePatientActivation(ctx context.Context, jwt, patientID string) (model.Activation, error)
	CreateDevice(ctx context.Context, jwt string, d model.Device) error
	CreateDeviceActivation(ctx context.Context, jwt, deviceID string) (model.Activation, error)

	CreateEncounter(ctx context.Context, jwt string, e model.Encounter) (model.Encounter, error)
	UpdateSpO2Scale(ctx context.Context, jwt, encounterID string, scale int) (model.ScoreSystemHistory, error)
	UpdateScoreSystemHistory(ctx context.Context, jwt, historyID string, changed time.Time) error
	SearchEncounters(ctx context.Context, jwt, locationID string) ([]model.Encounter, error)
	CreateObservationSet(ctx context.Context, jwt string, set model.ObservationSet, suppress bool) error

	CreateFHIRPatient(ctx context.Context, jwt string, p model.FHIRPatient) (model.FHIRPatient, error)
	CreateMessage(ctx context.Context, jwt string, m model.Message, locationIDs []string) error
	CreateReading(ctx context.Context, patientJWT, patientID string, reading model.Reading) error

	CreateQuestionType(ctx context.Context, jwt string, doc map[string]any) error
	CreateQuestionOptionType(ctx context.Context, jwt string, doc map[string]any) error
	CreateQuestion(ctx context.Context, jwt string, doc map[string]any) error
	CreatePatientInstallation(ctx context.Context, patientJWT, patientID string, doc map[string]any) error
	CreateClinicianInstallation(ctx context.Context, clinicianJWT, clinicianID string, doc map[string]any) error
}

// Tokens issues the identities a reset acts as.
type Tokens interface {
	SystemJWT(systemID string) (string, error)
	ClinicianJWT(email, uuid string) (string, error)
	PatientJWT(ctx context.Context, patientID string) (string, error)
}

// ProductSettings is the number of patients to generate per product.
type ProductSettings struct {
	GDM  int `json:"GDM"`
	DBM  int `json:"DBM"`
	SEND int `json:"SEND"`
}

// LocationConfig asks for a generated SEND hierarchy instead of the seeded
// SEND locations.
type LocationConfig struct {
	Hospitals int
	Wards     int
}

type Request struct {
	Targets   []string
	Products  ProductSettings
	Locations *LocationConfig
}

// Result maps each dropped target to the response of its drop call.
type Result map[string]json.RawMessage

type Service struct {
	clients         Clients
	tokens          Tokens
	seed            *fixtures.Set
	logger          zerolog.Logger
	readingsProfile string

	newRand func() *generator.Rand
	now     func() time.Time
}

func NewService(clients Clients, tokens Tokens, seed *fixtures.Set, readingsProfile string, logger zerolog.Logger) *Service {
	return &Service{
		clients:         clients,
		tokens:          tokens,
		seed:            seed,
		logger:          logger.With().Str("component", "reset").Logger(),
		readingsProfile: readingsProfile,
		newRand:         generator.NewTimeSeededRand,
		now:             time.Now,
	}
}

// Reset drops every selected target, then populates each in the same order.
// The first failure aborts the run.
func (s *Service) Reset(ctx context.Context, req Request) (Result, error) {
	logger := s.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}

	cfg, err := s.clients.TrustomerConfig(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Targets) == 0 {
		logger.Debug().Msg("no microservices specified, resetting all")
	}
	targets, err := ResolveTargets(req.Targets, cfg)
	if err != nil {
		return nil, err
	}

	systemJWT, err := s.tokens.SystemJWT("")
	if err != nil {
		return nil, err
	}

	result := make(Result, len(targets))
	for _, target := range targets {
		logger.Info().Str("target", target).Msg("dropping target")
		body, err := s.clients.Drop(ctx, target, systemJWT)
		if err != nil {
			return nil, err
		}
		result[target] = body
	}

	r := &run{
		Service:   s,
		logger:    logger,
		rnd:       s.newRand(),
		req:       req,
		trustomer: cfg,
		systemJWT: systemJWT,
		now:       s.now().UTC(),
	}
	for _, target := range targets {
		logger.Info().Str("target", target).Msg("resetting target")
		if err := r.populate(ctx, target); err != nil {
			return nil, fmt.Errorf("populate %s: %w", target, err)
		}
	}
	return result, nil
}
