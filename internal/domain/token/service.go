package token

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/fixtures"
	"github.com/dhos/janitor/internal/model"
	"github.com/dhos/janitor/internal/platform/auth"
	"github.com/dhos/janitor/internal/platform/cache"
)

// DefaultSystemID identifies the janitor itself when it calls other services.
const DefaultSystemID = "dhos-robot"

// Activator is the activation-auth surface needed to mint patient tokens.
type Activator interface {
	CreatePatientActivation(ctx context.Context, jwt, patientID string) (model.Activation, error)
	ExchangeActivation(ctx context.Context, code, otp string) (string, error)
	PatientJWT(ctx context.Context, patientID, authorisationCode string) (string, error)
}

type Config struct {
	SystemLifetime    time.Duration
	ClinicianLifetime time.Duration
	PatientLifetime   time.Duration
	// TTLCoefficient scales each lifetime to get the cache TTL, so a cached
	// token is always dropped before it expires.
	TTLCoefficient float64
}

func (c Config) withDefaults() Config {
	if c.SystemLifetime <= 0 {
		c.SystemLifetime = 24 * time.Hour
	}
	if c.ClinicianLifetime <= 0 {
		c.ClinicianLifetime = time.Hour
	}
	if c.PatientLifetime <= 0 {
		c.PatientLifetime = time.Hour
	}
	if c.TTLCoefficient <= 0 || c.TTLCoefficient >= 1 {
		c.TTLCoefficient = 0.75
	}
	return c
}

func scaled(d time.Duration, k float64) time.Duration {
	return time.Duration(float64(d) * k)
}

// Service issues system, clinician and patient tokens and memoizes them.
type Service struct {
	cfg       Config
	signer    *auth.Signer
	seed      *fixtures.Set
	activator Activator
	logger    zerolog.Logger

	system    *cache.TTL[string, string]
	clinician *cache.TTL[string, string]
	patient   *cache.TTL[string, string]
}

func NewService(cfg Config, signer *auth.Signer, seed *fixtures.Set, activator Activator, logger zerolog.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:       cfg,
		signer:    signer,
		seed:      seed,
		activator: activator,
		logger:    logger.With().Str("component", "token").Logger(),
		system:    cache.New[string, string](16, scaled(cfg.SystemLifetime, cfg.TTLCoefficient)),
		clinician: cache.New[string, string](128, scaled(cfg.ClinicianLifetime, cfg.TTLCoefficient)),
		patient:   cache.New[string, string](128, scaled(cfg.PatientLifetime, cfg.TTLCoefficient)),
	}
}

// StartCleanup drops expired tokens from every cache each interval until ctx
// is cancelled.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) {
	s.system.StartCleanup(ctx, interval)
	s.clinician.StartCleanup(ctx, interval)
	s.patient.StartCleanup(ctx, interval)
}

// SystemJWT returns a token for systemID, which defaults to DefaultSystemID.
func (s *Service) SystemJWT(systemID string) (string, error) {
	if systemID == "" {
		systemID = DefaultSystemID
	}
	return s.system.GetOrLoad(systemID, func() (string, error) {
		perms, err := s.seed.Permissions("System")
		if err != nil {
			return "", err
		}
		tok, err := s.signer.Sign(perms, map[string]any{
			"can_edit_ews": true,
			"system_id":    systemID,
		}, s.cfg.SystemLifetime)
		if err != nil {
			return "", fmt.Errorf("sign system jwt: %w", err)
		}
		s.logger.Info().Str("system_id", systemID).Msg("created system jwt")
		return tok, nil
	})
}

// ClinicianJWT returns a token for the seeded clinician matching email or
// uuid. Its scope is the union of the clinician's group permissions.
func (s *Service) ClinicianJWT(email, uuid string) (string, error) {
	return s.clinician.GetOrLoad(email+"|"+uuid, func() (string, error) {
		c, err := s.seed.Clinician(email, uuid)
		if err != nil {
			return "", err
		}
		perms, err := s.seed.GroupPermissions(c.Groups)
		if err != nil {
			return "", err
		}
		products := c.Products
		if products == nil {
			products = []model.ClinicianProduct{}
		}
		var jobTitle any
		if c.JobTitle != "" {
			jobTitle = c.JobTitle
		}
		tok, err := s.signer.Sign(perms, map[string]any{
			"clinician_id": c.UUID,
			"job_title":    jobTitle,
			"products":     products,
			"can_edit_ews": c.CanEditEWS,
		}, s.cfg.ClinicianLifetime)
		if err != nil {
			return "", fmt.Errorf("sign clinician jwt: %w", err)
		}
		s.logger.Info().Str("clinician_id", c.UUID).Msg("created clinician jwt")
		return tok, nil
	})
}

// StaticActivation reports the fixed activation of seeded patients "1".."9":
// code is the id and the OTP is the id repeated four times.
func StaticActivation(patientID string) (model.Activation, bool) {
	n, err := strconv.Atoi(patientID)
	if err != nil || n < 1 || n > 9 || strconv.Itoa(n) != patientID {
		return model.Activation{}, false
	}
	return model.Activation{ActivationCode: patientID, OTP: strings.Repeat(patientID, 4)}, true
}

// PatientJWT activates the patient with activation-auth and returns the
// token it issues.
func (s *Service) PatientJWT(ctx context.Context, patientID string) (string, error) {
	return s.patient.GetOrLoad(patientID, func() (string, error) {
		activation, ok := StaticActivation(patientID)
		if !ok {
			system, err := s.SystemJWT("")
			if err != nil {
				return "", err
			}
			activation, err = s.activator.CreatePatientActivation(ctx, system, patientID)
			if err != nil {
				return "", fmt.Errorf("create activation for patient %s: %w", patientID, err)
			}
		}
		code, err := s.activator.ExchangeActivation(ctx, activation.ActivationCode, activation.OTP)
		if err != nil {
			return "", fmt.Errorf("exchange activation for patient %s: %w", patientID, err)
		}
		tok, err := s.activator.PatientJWT(ctx, patientID, code)
		if err != nil {
			return "", fmt.Errorf("fetch jwt for patient %s: %w", patientID, err)
		}
		s.logger.Debug().Str("patient_id", patientID).Msg("fetched patient jwt")
		return tok, nil
	})
}
