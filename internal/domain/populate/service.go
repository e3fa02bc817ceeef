// Package populate tops up existing GDM and DBM patients with recent
// readings, messages and visits.
package populate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/generator"
	"github.com/dhos/janitor/internal/model"
)

const (
	messageProbability = 0.33
	visitProbability   = 0.1
)

// Prandial tags drawn from each day. Tag 7 appears twice so a day can hold
// eight readings.
var dailyTags = []int{1, 2, 3, 4, 5, 6, 7, 7}

// Clients is the downstream surface populate uses.
type Clients interface {
	SearchPatients(ctx context.Context, jwt, product string, active bool) ([]model.Patient, error)
	Clinicians(ctx context.Context, jwt, product string) ([]model.Clinician, error)
	UpdatePatient(ctx context.Context, jwt, patientID string, patch any) error
	CreateMessage(ctx context.Context, jwt string, m model.Message, locationIDs []string) error
	CreateReading(ctx context.Context, patientJWT, patientID string, reading model.Reading) error
}

type Tokens interface {
	SystemJWT(systemID string) (string, error)
	ClinicianJWT(email, uuid string) (string, error)
	PatientJWT(ctx context.Context, patientID string) (string, error)
}

type Request struct {
	Days         int
	UseSystemJWT bool
}

// Result counts what was posted.
type Result struct {
	Patients int `json:"patients"`
	Readings int `json:"readings"`
	Messages int `json:"messages"`
	Visits   int `json:"visits"`
}

type Service struct {
	clients         Clients
	tokens          Tokens
	logger          zerolog.Logger
	readingsProfile string

	newRand func() *generator.Rand
	now     func() time.Time
}

func NewService(clients Clients, tokens Tokens, readingsProfile string, logger zerolog.Logger) *Service {
	return &Service{
		clients:         clients,
		tokens:          tokens,
		logger:          logger.With().Str("component", "populate").Logger(),
		readingsProfile: readingsProfile,
		newRand:         generator.NewTimeSeededRand,
		now:             time.Now,
	}
}

// Populate adds days of data to every GDM patient and every active DBM
// patient. Each patient's clinician is a random GDM superclinician.
func (s *Service) Populate(ctx context.Context, req Request) (Result, error) {
	logger := s.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	var res Result
	logger.Info().Int("days", req.Days).Msg("populating GDM/DBM data")

	systemJWT, err := s.tokens.SystemJWT("")
	if err != nil {
		return res, err
	}
	gdm, err := s.clients.SearchPatients(ctx, systemJWT, model.ProductGDM, true)
	if err != nil {
		return res, err
	}
	clinicians, err := s.clients.Clinicians(ctx, systemJWT, model.ProductGDM)
	if err != nil {
		return res, err
	}
	dbm, err := s.clients.SearchPatients(ctx, systemJWT, model.ProductDBM, true)
	if err != nil {
		return res, err
	}
	logger.Info().Int("gdm_patients", len(gdm)).Int("dbm_patients", len(dbm)).Msg("found patients")

	p := &patientRun{
		Service:    s,
		logger:     logger,
		rnd:        s.newRand(),
		now:        s.now().UTC(),
		req:        req,
		clinicians: clinicians,
	}
	seen := make(map[string]bool, len(gdm)+len(dbm))
	for _, batch := range [][]model.Patient{gdm, dbm} {
		for i := range batch {
			if seen[batch[i].UUID] {
				continue
			}
			seen[batch[i].UUID] = true
			if err := p.patient(ctx, &batch[i], &res); err != nil {
				return res, fmt.Errorf("patient %s: %w", batch[i].UUID, err)
			}
		}
	}
	logger.Info().
		Int("patients", res.Patients).
		Int("readings", res.Readings).
		Int("messages", res.Messages).
		Int("visits", res.Visits).
		Msg("finished populating GDM/DBM data")
	return res, nil
}

type patientRun struct {
	*Service
	logger     zerolog.Logger
	rnd        *generator.Rand
	now        time.Time
	req        Request
	clinicians []model.Clinician
}

func (r *patientRun) patient(ctx context.Context, p *model.Patient, res *Result) error {
	diagnosis, ok := generator.DiabetesDiagnosis(p)
	if !ok || diagnosis.ReadingsPlan == nil {
		r.logger.Debug().Str("patient_id", p.UUID).Msg("skipping patient without a readings plan")
		return nil
	}
	clinician, err := generator.PickClinician(r.rnd, r.clinicians, "GDM Superclinician")
	if err != nil {
		return err
	}

	readings := r.readings(p, diagnosis)
	messages, err := r.messages(p)
	if err != nil {
		return err
	}
	var visits []model.Visit
	if r.rnd.Float64() <= visitProbability && len(p.Locations) > 0 {
		visits = append(visits, model.Visit{
			VisitDate: model.FormatTime(r.now),
			Clinician: clinician.UUID,
			Location:  p.Locations[0],
		})
	}
	if len(readings) == 0 && len(messages) == 0 && len(visits) == 0 {
		r.logger.Debug().Str("patient_id", p.UUID).Msg("generated no new data for patient")
		return nil
	}

	patientJWT, err := r.tokens.PatientJWT(ctx, p.UUID)
	if err != nil {
		return err
	}
	var clinicianJWT string
	if r.req.UseSystemJWT {
		clinicianJWT, err = r.tokens.SystemJWT("")
	} else {
		clinicianJWT, err = r.tokens.ClinicianJWT(clinician.EmailAddress, clinician.UUID)
	}
	if err != nil {
		return err
	}

	r.logger.Debug().Str("patient_id", p.UUID).Int("readings", len(readings)).Msg("posting readings")
	for _, reading := range readings {
		if err := r.clients.CreateReading(ctx, patientJWT, p.UUID, reading); err != nil {
			return err
		}
	}
	for _, m := range messages {
		var jwt string
		switch m.SenderType {
		case model.PartySystem:
			if jwt, err = r.tokens.SystemJWT(""); err != nil {
				return err
			}
		case model.PartyLocation:
			jwt = clinicianJWT
		case model.PartyPatient:
			jwt = patientJWT
		default:
			return fmt.Errorf("unexpected message sender type %q", m.SenderType)
		}
		if err := r.clients.CreateMessage(ctx, jwt, m, nil); err != nil {
			return err
		}
	}
	if len(visits) > 0 {
		patch := map[string]any{"record": map[string]any{"visits": visits}}
		if err := r.clients.UpdatePatient(ctx, clinicianJWT, p.UUID, patch); err != nil {
			return err
		}
	}

	res.Patients++
	res.Readings += len(readings)
	res.Messages += len(messages)
	res.Visits += len(visits)
	return nil
}

// readings takes readings_per_day shuffled tags on each of the last days,
// skipping a day with probability 1 - days_per_week/7.
func (r *patientRun) readings(p *model.Patient, d *model.Diagnosis) []model.Reading {
	plan := d.ReadingsPlan
	var doses []model.Dose
	if d.ManagementPlan != nil {
		doses = d.ManagementPlan.Doses
	}
	gen := generator.NewReadingsGenerator(r.rnd, r.readingsProfile, r.logger)
	today := model.StartOfDay(r.now)

	var out []model.Reading
	for i := 1; i <= r.req.Days; i++ {
		if r.rnd.IntN(7) >= plan.DaysPerWeekToTakeReadings {
			continue
		}
		tags := append([]int(nil), dailyTags...)
		r.rnd.Shuffle(len(tags), func(a, b int) { tags[a], tags[b] = tags[b], tags[a] })
		day := today.AddDate(0, 0, -i)
		for _, tag := range tags[:min(plan.ReadingsPerDay, len(tags))] {
			out = append(out, gen.CreateReading(day, tag, doses))
		}
	}
	return out
}

// messages generates at most one message, sent some time in the last day.
func (r *patientRun) messages(p *model.Patient) ([]model.Message, error) {
	if r.rnd.Float64() > messageProbability || len(p.Locations) == 0 {
		return nil, nil
	}
	msgs, err := generator.NewMessageGenerator(r.rnd).Generate(p, 1)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		ts := model.FormatTime(r.now.Add(-time.Duration(r.rnd.Between(0, 24)) * time.Hour))
		msgs[i].Created, msgs[i].Modified = ts, ts
	}
	return msgs, nil
}
