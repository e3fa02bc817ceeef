package reset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/client"
	"github.com/dhos/janitor/internal/fixtures"
	"github.com/dhos/janitor/internal/generator"
	"github.com/dhos/janitor/internal/model"
)

const (
	stanLeeEmail = "stan.lee@mail.com"
	stanLeeUUID  = "static_clinician_uuid_G"

	staticPatients = 10
	staticDevices  = 9
)

var (
	gdmPosters  = []string{"GDM Superclinician"}
	dbmPosters  = []string{"DBM Clinician", "DBM Superclinician"}
	sendPosters = []string{"SEND Clinician", "SEND Superclinician"}
	gdmSenders  = []string{"GDM Clinician", "GDM Superclinician"}
)

// run holds the state of one reset.
type run struct {
	*Service
	logger    zerolog.Logger
	rnd       *generator.Rand
	req       Request
	trustomer model.TrustomerConfig
	systemJWT string
	now       time.Time

	clinicians map[string][]model.Clinician
}

func (r *run) populate(ctx context.Context, target string) error {
	switch target {
	case client.LocationsAPI:
		return r.locations(ctx)
	case client.UsersAPI:
		return r.users(ctx)
	case client.ServicesAPI:
		return r.services(ctx)
	case client.ActivationAuthAPI:
		return r.activationAuth(ctx)
	case client.AuditAPI:
		r.logger.Info().Str("target", target).Msg("no populate to perform")
		return nil
	case client.EncountersAPI:
		return r.encounters(ctx)
	case client.FuegoAPI:
		return r.fuego(ctx)
	case client.MessagesAPI:
		return r.messages(ctx)
	case client.QuestionsAPI:
		return r.questions(ctx)
	case client.TelemetryAPI:
		return r.telemetry(ctx)
	case client.BGReadingsAPI:
		return r.readings(ctx)
	case client.ObservationsAPI:
		return r.observations(ctx)
	default:
		return fmt.Errorf("no populate to perform for target %s", target)
	}
}

// ---------------------------------------------------------------------------
// locations, users
// ---------------------------------------------------------------------------

func (r *run) locations(ctx context.Context) error {
	locations := r.seed.Locations
	if lc := r.req.Locations; lc != nil {
		locations = r.seed.LocationsFor(model.ProductGDM, model.ProductDBM)
		h, err := generator.NewLocationGenerator(r.rnd).Hierarchy(lc.Hospitals, lc.Wards)
		if err != nil {
			return err
		}
		locations = append(locations, h.All()...)
		r.logger.Info().
			Int("hospitals", len(h.Hospitals)).
			Int("wards", len(h.Wards)).
			Int("bays", len(h.Bays)).
			Int("beds", len(h.Beds)).
			Msg("generated locations")
	}

	for _, l := range locations {
		if err := r.clients.CreateLocation(ctx, r.systemJWT, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) users(ctx context.Context) error {
	for _, c := range r.seed.Clinicians {
		post, err := fixtures.ClinicianForPost(c, r.now)
		if err != nil {
			return err
		}
		r.logger.Debug().Str("clinician_id", c.UUID).Str("email", c.EmailAddress).Msg("posting clinician")
		if err := r.clients.CreateClinician(ctx, r.systemJWT, post); err != nil {
			return err
		}
		if err := r.clients.UpdateClinician(ctx, r.systemJWT, c.EmailAddress,
			map[string]string{"password": fixtures.ClinicianPassword}); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// services (patients)
// ---------------------------------------------------------------------------

func (r *run) services(ctx context.Context) error {
	gdm, err := r.openAndClosedPatients(ctx, model.ProductGDM, r.req.Products.GDM)
	if err != nil {
		return err
	}
	dbm, err := r.openAndClosedPatients(ctx, model.ProductDBM, r.req.Products.DBM)
	if err != nil {
		return err
	}
	send := make([]model.Patient, 0, r.req.Products.SEND)
	for i := 0; i < r.req.Products.SEND; i++ {
		p, err := r.patient(ctx, generator.PatientOptions{Product: model.ProductSEND})
		if err != nil {
			return err
		}
		send = append(send, p)
	}

	for _, batch := range []struct {
		product  string
		patients []model.Patient
		posters  []string
	}{
		{model.ProductGDM, gdm, gdmPosters},
		{model.ProductDBM, dbm, dbmPosters},
		{model.ProductSEND, send, sendPosters},
	} {
		if len(batch.patients) == 0 {
			continue
		}
		jwt, err := r.seededClinicianJWT(batch.posters...)
		if err != nil {
			return fmt.Errorf("%s patients: %w", batch.product, err)
		}
		r.logger.Debug().Str("product", batch.product).Int("patients", len(batch.patients)).Msg("posting patients")
		for _, p := range batch.patients {
			if _, err := r.clients.CreatePatient(ctx, jwt, batch.product, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// openAndClosedPatients generates n patients of which one in six is closed.
// The first ten open patients get static ids and hospital numbers "000000"
// to "999999".
func (r *run) openAndClosedPatients(ctx context.Context, product string, n int) ([]model.Patient, error) {
	prefix := ""
	if product != model.ProductGDM {
		prefix = strings.ToLower(product) + "_"
	}
	closed := n / 6
	open := n - closed

	out := make([]model.Patient, 0, n)
	for i := 0; i < n; i++ {
		opts := generator.PatientOptions{Product: product, Closed: i >= open}
		if i < open && i < staticPatients {
			opts.UUID = fmt.Sprintf("static_%spatient_uuid_%d", prefix, i)
			opts.HospitalNumber = strings.Repeat(strconv.Itoa(i), 6)
		}
		p, err := r.patient(ctx, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *run) patient(ctx context.Context, opts generator.PatientOptions) (model.Patient, error) {
	clinicians, err := r.productClinicians(ctx, opts.Product)
	if err != nil {
		return model.Patient{}, err
	}
	opts.Clinicians = clinicians
	if opts.Product != model.ProductSEND {
		tags := r.trustomer.GDMConfig.MedicationTags
		if len(tags) == 0 {
			return model.Patient{}, errors.New("trustomer config has no gdm medication tags")
		}
		meds, err := r.clients.Medications(ctx, tags[0])
		if err != nil {
			return model.Patient{}, err
		}
		opts.Medications = meds
	}
	return generator.NewPatientGenerator(r.rnd).Generate(opts)
}

func (r *run) productClinicians(ctx context.Context, product string) ([]model.Clinician, error) {
	if cs, ok := r.clinicians[product]; ok {
		return cs, nil
	}
	cs, err := r.clients.Clinicians(ctx, r.systemJWT, product)
	if err != nil {
		return nil, err
	}
	if r.clinicians == nil {
		r.clinicians = make(map[string][]model.Clinician)
	}
	r.clinicians[product] = cs
	return cs, nil
}

// seededClinicianJWT returns a token for a random active seeded clinician in
// one of groups.
func (r *run) seededClinicianJWT(groups ...string) (string, error) {
	c, err := generator.PickClinician(r.rnd, r.seed.Clinicians, groups...)
	if err != nil {
		return "", err
	}
	r.logger.Debug().Str("clinician_id", c.UUID).Msg("acting as clinician")
	return r.tokens.ClinicianJWT(c.EmailAddress, c.UUID)
}

func (r *run) stanLeeJWT() (string, error) {
	return r.tokens.ClinicianJWT(stanLeeEmail, stanLeeUUID)
}

// ---------------------------------------------------------------------------
// activation-auth
// ---------------------------------------------------------------------------

func (r *run) activationAuth(ctx context.Context) error {
	for i := 1; i < staticPatients; i++ {
		id := fmt.Sprintf("static_patient_uuid_%d", i)
		if _, err := r.clients.CreatePatientActivation(ctx, r.systemJWT, id); err != nil {
			return err
		}
	}

	wards, err := r.clients.SearchLocations(ctx, r.systemJWT, []string{model.ProductSEND}, model.LocationWard)
	if err != nil {
		return err
	}
	wardIDs := sortedIDs(wards)
	if len(wardIDs) == 0 {
		return errors.New("no SEND wards to register devices at")
	}

	for i := 1; i <= staticDevices; i++ {
		d := model.Device{UUID: fmt.Sprintf("static_device_uuid_D%d", i), LocationID: generator.Choice(r.rnd, wardIDs)}
		d.Description = "static device " + d.UUID
		if err := r.clients.CreateDevice(ctx, r.systemJWT, d); err != nil {
			return err
		}
		if _, err := r.clients.CreateDeviceActivation(ctx, r.systemJWT, d.UUID); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// encounters, observations
// ---------------------------------------------------------------------------

func (r *run) sendLocations(ctx context.Context, locationType string) (model.LocationIndex, error) {
	return r.clients.SearchLocations(ctx, r.systemJWT, []string{model.ProductSEND}, locationType)
}

func (r *run) encounters(ctx context.Context) error {
	patients, err := r.clients.SearchPatients(ctx, r.systemJWT, model.ProductSEND, true)
	if err != nil {
		return err
	}
	wards, err := r.sendLocations(ctx, model.LocationWard)
	if err != nil {
		return err
	}
	bays, err := r.sendLocations(ctx, model.LocationBay)
	if err != nil {
		return err
	}
	beds, err := r.sendLocations(ctx, model.LocationBed)
	if err != nil {
		return err
	}
	gen := generator.NewEncounterGenerator(r.rnd, wards, bays, beds)
	clinicianJWT, err := r.stanLeeJWT()
	if err != nil {
		return err
	}

	for i := range patients {
		n := r.rnd.Between(0, 5)
		for j := 0; j < n; j++ {
			enc, err := gen.Generate(&patients[i], j < n-1)
			if err != nil {
				return fmt.Errorf("patient %s encounter: %w", patients[i].UUID, err)
			}
			created, err := r.clients.CreateEncounter(ctx, clinicianJWT, enc)
			if err != nil {
				return err
			}
			if r.rnd.Float64() > 0.7 {
				if err := r.spo2History(ctx, created, clinicianJWT); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *run) spo2History(ctx context.Context, enc model.Encounter, clinicianJWT string) error {
	admitted, err := model.ParseTime(enc.AdmittedAt)
	if err != nil {
		return fmt.Errorf("encounter %s admitted_at: %w", enc.ID(), err)
	}
	end := r.now
	if enc.DischargedAt != nil {
		if end, err = model.ParseTime(*enc.DischargedAt); err != nil {
			return fmt.Errorf("encounter %s discharged_at: %w", enc.ID(), err)
		}
	}
	for _, change := range spo2Schedule(admitted, end) {
		h, err := r.clients.UpdateSpO2Scale(ctx, clinicianJWT, enc.ID(), change.Scale)
		if err != nil {
			return err
		}
		if err := r.clients.UpdateScoreSystemHistory(ctx, r.systemJWT, h.UUID, change.At); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) observations(ctx context.Context) error {
	wards, err := r.sendLocations(ctx, model.LocationWard)
	if err != nil {
		return err
	}
	clinicianJWT, err := r.stanLeeJWT()
	if err != nil {
		return err
	}
	gen := generator.NewObservationsGenerator(r.rnd)

	for _, id := range sortedIDs(wards) {
		encounters, err := r.clients.SearchEncounters(ctx, r.systemJWT, id)
		if err != nil {
			return err
		}
		r.logger.Debug().Str("location", wards[id].DisplayName).Int("encounters", len(encounters)).Msg("posting observations")
		for _, enc := range encounters {
			sets, err := gen.History(enc, r.now)
			if err != nil {
				return err
			}
			for k, set := range sets {
				if err := r.clients.CreateObservationSet(ctx, clinicianJWT, set, k < len(sets)-1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// fuego
// ---------------------------------------------------------------------------

func (r *run) fuego(ctx context.Context) error {
	patients, err := r.clients.SearchPatients(ctx, r.systemJWT, model.ProductGDM, true)
	if err != nil {
		return err
	}
	r.logger.Debug().Int("patients", len(patients)).Msg("populating EPR with GDM patients")

	resourceIDs := make(map[string]string, len(patients))
	for _, p := range patients {
		posted, err := r.clients.CreateFHIRPatient(ctx, r.systemJWT, generator.FHIRPatientFrom(p))
		if err != nil {
			return err
		}
		resourceIDs[posted.MRN] = posted.FHIRResourceID
	}

	for _, p := range patients {
		id, ok := resourceIDs[p.HospitalNumber]
		if !ok {
			continue
		}
		if err := r.clients.UpdatePatient(ctx, r.systemJWT, p.UUID, map[string]string{"fhir_resource_id": id}); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// messages, telemetry, readings
// ---------------------------------------------------------------------------

func (r *run) gdmClinicians(ctx context.Context, locationID string) ([]model.Clinician, error) {
	all, err := r.clients.CliniciansAtLocation(ctx, r.systemJWT, locationID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if c.HasProduct(model.ProductGDM) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *run) messages(ctx context.Context) error {
	locations, err := r.clients.SearchLocations(ctx, r.systemJWT, []string{model.ProductGDM})
	if err != nil {
		return err
	}
	gen := generator.NewMessageGenerator(r.rnd)

	for _, locationID := range sortedIDs(locations) {
		patients, err := r.clients.PatientsAtLocation(ctx, r.systemJWT, locationID, model.ProductGDM)
		if err != nil {
			return err
		}
		for i := range patients {
			p := &patients[i]
			clinicians, err := r.gdmClinicians(ctx, locationID)
			if err != nil {
				return err
			}
			if len(p.DHProducts) == 0 {
				return fmt.Errorf("patient %s has no products", p.UUID)
			}
			opened, err := time.Parse(model.DateLayout, p.DHProducts[0].OpenedDate)
			if err != nil {
				return fmt.Errorf("patient %s opened_date: %w", p.UUID, err)
			}
			days := int(r.now.Sub(opened).Hours() / 24)
			msgs, err := gen.Generate(p, r.rnd.Between(0, max(0, days/7)))
			if err != nil {
				return err
			}

			var sender *model.Clinician
			for _, m := range msgs {
				var (
					jwt         string
					locationIDs []string
				)
				switch m.SenderType {
				case model.PartySystem:
					jwt, err = r.tokens.SystemJWT("")
				case model.PartyLocation:
					if sender == nil {
						c, err := generator.PickClinician(r.rnd, clinicians, gdmSenders...)
						if err != nil {
							return fmt.Errorf("location %s: %w", locationID, err)
						}
						sender = &c
					}
					jwt, err = r.tokens.ClinicianJWT(sender.EmailAddress, sender.UUID)
					locationIDs = sender.Locations
				case model.PartyPatient:
					jwt, err = r.tokens.PatientJWT(ctx, p.UUID)
				default:
					return fmt.Errorf("unexpected message sender type %q", m.SenderType)
				}
				if err != nil {
					return err
				}
				if err := r.clients.CreateMessage(ctx, jwt, m, locationIDs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *run) questions(ctx context.Context) error {
	q := r.seed.Questions
	for _, doc := range q.QuestionTypes {
		if err := r.clients.CreateQuestionType(ctx, r.systemJWT, doc); err != nil {
			return err
		}
	}
	for _, doc := range q.QuestionOptionTypes {
		if err := r.clients.CreateQuestionOptionType(ctx, r.systemJWT, doc); err != nil {
			return err
		}
	}
	for _, doc := range q.Questions {
		if err := r.clients.CreateQuestion(ctx, r.systemJWT, doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) telemetry(ctx context.Context) error {
	locations, err := r.clients.SearchLocations(ctx, r.systemJWT, []string{model.ProductGDM})
	if err != nil {
		return err
	}
	patients := map[string]model.Patient{}
	clinicians := map[string]model.Clinician{}
	for _, locationID := range sortedIDs(locations) {
		ps, err := r.clients.PatientsAtLocation(ctx, r.systemJWT, locationID, model.ProductGDM)
		if err != nil {
			return err
		}
		for _, p := range ps {
			patients[p.UUID] = p
		}
		cs, err := r.gdmClinicians(ctx, locationID)
		if err != nil {
			return err
		}
		for _, c := range cs {
			clinicians[c.UUID] = c
		}
	}

	installs := r.seed.Telemetry
	if len(installs.Mobile) > 0 {
		if len(patients) == 0 {
			return errors.New("no GDM patients to attach mobile installations to")
		}
		ids := sortedIDs(patients)
		for _, doc := range installs.Mobile {
			id := generator.Choice(r.rnd, ids)
			jwt, err := r.tokens.PatientJWT(ctx, id)
			if err != nil {
				return err
			}
			if err := r.clients.CreatePatientInstallation(ctx, jwt, id, doc); err != nil {
				return err
			}
		}
	}
	if len(installs.Desktop) > 0 {
		if len(clinicians) == 0 {
			return errors.New("no GDM clinicians to attach desktop installations to")
		}
		ids := sortedIDs(clinicians)
		for _, doc := range installs.Desktop {
			c := clinicians[generator.Choice(r.rnd, ids)]
			jwt, err := r.tokens.ClinicianJWT(c.EmailAddress, c.UUID)
			if err != nil {
				return err
			}
			if err := r.clients.CreateClinicianInstallation(ctx, jwt, c.UUID, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) readings(ctx context.Context) error {
	products := []string{model.ProductGDM, model.ProductDBM}
	locations, err := r.clients.SearchLocations(ctx, r.systemJWT, products)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	var patients []model.Patient
	for _, product := range products {
		for _, locationID := range sortedIDs(locations) {
			ps, err := r.clients.PatientsAtLocation(ctx, r.systemJWT, locationID, product)
			if err != nil {
				return err
			}
			for _, p := range ps {
				if !seen[p.UUID] {
					seen[p.UUID] = true
					patients = append(patients, p)
				}
			}
		}
	}

	for i := range patients {
		p := &patients[i]
		readings, err := generator.NewReadingsGenerator(r.rnd, r.readingsProfile, r.logger).Generate(p)
		if err != nil {
			return fmt.Errorf("patient %s readings: %w", p.UUID, err)
		}
		r.logger.Debug().Str("patient_id", p.UUID).Int("readings", len(readings)).Msg("posting readings")
		if len(readings) == 0 {
			continue
		}
		jwt, err := r.tokens.PatientJWT(ctx, p.UUID)
		if err != nil {
			return err
		}
		for _, reading := range readings {
			if err := r.clients.CreateReading(ctx, jwt, p.UUID, reading); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
