package reset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dhos/janitor/internal/fixtures"
	"github.com/dhos/janitor/internal/model"
)

// fakeClients keeps created entities in memory so later steps can search
// them, and records every call in order.
type fakeClients struct {
	seed      *fixtures.Set
	trustomer model.TrustomerConfig
	err       map[string]error

	calls        []string
	locations    []model.Location
	clinicians   []model.Clinician
	patients     map[string][]model.Patient
	patches      map[string]any
	devices      []model.Device
	encounters   []model.Encounter
	spo2         []int
	histories    []time.Time
	observations []bool
	fhir         []model.FHIRPatient
	messages     []model.Message
	readings     map[string]int
	installs     []string
}

func newFakeClients(seed *fixtures.Set) *fakeClients {
	return &fakeClients{
		seed: seed,
		trustomer: model.TrustomerConfig{GDMConfig: model.GDMConfig{
			MedicationTags: []string{"gdm-uk-default"},
		}},
		err:      map[string]error{},
		patients: map[string][]model.Patient{},
		patches:  map[string]any{},
		readings: map[string]int{},
	}
}

func (f *fakeClients) record(call string, args ...any) error {
	if len(args) > 0 {
		call = fmt.Sprintf("%s %s", call, strings.TrimSpace(fmt.Sprintln(args...)))
	}
	f.calls = append(f.calls, call)
	name, _, _ := strings.Cut(call, " ")
	return f.err[name]
}

func (f *fakeClients) callsTo(name string) []string {
	var out []string
	for _, c := range f.calls {
		if c == name || strings.HasPrefix(c, name+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeClients) TrustomerConfig(context.Context) (model.TrustomerConfig, error) {
	return f.trustomer, f.record("TrustomerConfig")
}

func (f *fakeClients) Medications(_ context.Context, tag string) ([]model.Medication, error) {
	return []model.Medication{
		{UUID: "med-1", Name: "Insulin Aspart", SCTCode: "325072002", Unit: "units"},
		{UUID: "med-2", Name: "Metformin", SCTCode: "109081006", Unit: "mg"},
	}, f.record("Medications", tag)
}

func (f *fakeClients) Drop(_ context.Context, service, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"dropped":"` + service + `"}`), f.record("Drop", service)
}

func (f *fakeClients) SearchLocations(_ context.Context, _ string, products []string, types ...string) (model.LocationIndex, error) {
	out := model.LocationIndex{}
	for _, l := range f.seed.Locations {
		if !hasAnyProduct(l, products) {
			continue
		}
		if len(types) > 0 && !contains(types, l.LocationType) {
			continue
		}
		out[l.UUID] = l
	}
	return out, f.record("SearchLocations", strings.Join(products, ","), strings.Join(types, "|"))
}

func (f *fakeClients) CreateLocation(_ context.Context, _ string, l model.Location) error {
	f.locations = append(f.locations, l)
	return f.record("CreateLocation", l.UUID)
}

func (f *fakeClients) Clinicians(_ context.Context, _, product string) ([]model.Clinician, error) {
	var out []model.Clinician
	for _, c := range f.seed.Clinicians {
		if c.HasProduct(product) {
			out = append(out, c)
		}
	}
	return out, f.record("Clinicians", product)
}

func (f *fakeClients) CliniciansAtLocation(_ context.Context, _, locationID string) ([]model.Clinician, error) {
	var out []model.Clinician
	for _, c := range f.seed.Clinicians {
		if contains(c.Locations, locationID) {
			out = append(out, c)
		}
	}
	return out, f.record("CliniciansAtLocation", locationID)
}

func (f *fakeClients) CreateClinician(_ context.Context, _ string, c model.Clinician) error {
	f.clinicians = append(f.clinicians, c)
	return f.record("CreateClinician", c.UUID)
}

func (f *fakeClients) UpdateClinician(_ context.Context, _, email string, patch any) error {
	f.patches[email] = patch
	return f.record("UpdateClinician", email)
}

func (f *fakeClients) SearchPatients(_ context.Context, _, product string, _ bool) ([]model.Patient, error) {
	return append([]model.Patient(nil), f.patients[product]...), f.record("SearchPatients", product)
}

func (f *fakeClients) PatientsAtLocation(_ context.Context, _, locationID, product string) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range f.patients[product] {
		if contains(p.Locations, locationID) {
			out = append(out, p)
		}
	}
	return out, f.record("PatientsAtLocation", locationID, product)
}

func (f *fakeClients) CreatePatient(_ context.Context, _, product string, p model.Patient) (model.Patient, error) {
	f.patients[product] = append(f.patients[product], p)
	return p, f.record("CreatePatient", product, p.UUID)
}

func (f *fakeClients) UpdatePatient(_ context.Context, _, patientID string, patch any) error {
	f.patches[patientID] = patch
	return f.record("UpdatePatient", patientID)
}

func (f *fakeClients) CreatePatientActivation(_ context.Context, _, patientID string) (model.Activation, error) {
	return model.Activation{ActivationCode: "code", OTP: "otp"}, f.record("CreatePatientActivation", patientID)
}

func (f *fakeClients) CreateDevice(_ context.Context, _ string, d model.Device) error {
	f.devices = append(f.devices, d)
	return f.record("CreateDevice", d.UUID)
}

func (f *fakeClients) CreateDeviceActivation(_ context.Context, _, deviceID string) (model.Activation, error) {
	return model.Activation{ActivationCode: "code", OTP: "otp"}, f.record("CreateDeviceActivation", deviceID)
}

func (f *fakeClients) CreateEncounter(_ context.Context, _ string, e model.Encounter) (model.Encounter, error) {
	e.UUID = fmt.Sprintf("encounter-%d", len(f.encounters))
	f.encounters = append(f.encounters, e)
	return e, f.record("CreateEncounter", e.UUID)
}

func (f *fakeClients) UpdateSpO2Scale(_ context.Context, _, encounterID string, scale int) (model.ScoreSystemHistory, error) {
	f.spo2 = append(f.spo2, scale)
	return model.ScoreSystemHistory{UUID: "history-" + encounterID, SpO2Scale: scale}, f.record("UpdateSpO2Scale", encounterID)
}

func (f *fakeClients) UpdateScoreSystemHistory(_ context.Context, _, historyID string, changed time.Time) error {
	f.histories = append(f.histories, changed)
	return f.record("UpdateScoreSystemHistory", historyID)
}

func (f *fakeClients) SearchEncounters(_ context.Context, _, locationID string) ([]model.Encounter, error) {
	var out []model.Encounter
	for _, e := range f.encounters {
		if e.LocationUUID == locationID {
			out = append(out, e)
		}
	}
	return out, f.record("SearchEncounters", locationID)
}

func (f *fakeClients) CreateObservationSet(_ context.Context, _ string, set model.ObservationSet, suppress bool) error {
	f.observations = append(f.observations, suppress)
	return f.record("CreateObservationSet", set.EncounterID)
}

func (f *fakeClients) CreateFHIRPatient(_ context.Context, _ string, p model.FHIRPatient) (model.FHIRPatient, error) {
	p.FHIRResourceID = "fhir-" + p.MRN
	f.fhir = append(f.fhir, p)
	return p, f.record("CreateFHIRPatient", p.MRN)
}

func (f *fakeClients) CreateMessage(_ context.Context, jwt string, m model.Message, _ []string) error {
	f.messages = append(f.messages, m)
	return f.record("CreateMessage", m.SenderType, jwt)
}

func (f *fakeClients) CreateReading(_ context.Context, jwt, patientID string, _ model.Reading) error {
	f.readings[patientID]++
	return f.record("CreateReading", patientID, jwt)
}

func (f *fakeClients) CreateQuestionType(context.Context, string, map[string]any) error {
	return f.record("CreateQuestionType")
}

func (f *fakeClients) CreateQuestionOptionType(context.Context, string, map[string]any) error {
	return f.record("CreateQuestionOptionType")
}

func (f *fakeClients) CreateQuestion(context.Context, string, map[string]any) error {
	return f.record("CreateQuestion")
}

func (f *fakeClients) CreatePatientInstallation(_ context.Context, jwt, patientID string, _ map[string]any) error {
	f.installs = append(f.installs, "patient:"+patientID)
	return f.record("CreatePatientInstallation", patientID, jwt)
}

func (f *fakeClients) CreateClinicianInstallation(_ context.Context, jwt, clinicianID string, _ map[string]any) error {
	f.installs = append(f.installs, "clinician:"+clinicianID)
	return f.record("CreateClinicianInstallation", clinicianID, jwt)
}

type fakeTokens struct {
	systemIDs []string
}

func (f *fakeTokens) SystemJWT(systemID string) (string, error) {
	f.systemIDs = append(f.systemIDs, systemID)
	return "system-jwt", nil
}

func (f *fakeTokens) ClinicianJWT(email, uuid string) (string, error) {
	if email == "" && uuid == "" {
		return "", fmt.Errorf("no clinician")
	}
	return "clinician-jwt:" + email, nil
}

func (f *fakeTokens) PatientJWT(_ context.Context, patientID string) (string, error) {
	return "patient-jwt:" + patientID, nil
}

func hasAnyProduct(l model.Location, products []string) bool {
	for _, p := range products {
		if l.HasProduct(p) {
			return true
		}
	}
	return false
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
