package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhos/janitor/internal/model"
)

const (
	placeholderPhone   = "07123456789"
	daysToPresentation = 20
	daysToDiagnosis    = 40
	daysToDelivery     = 280
)

// PatientOptions describes the patient to generate.
type PatientOptions struct {
	Product string
	Closed  bool
	// UUID and HospitalNumber are generated when empty.
	UUID           string
	HospitalNumber string
	// Clinicians are the candidate owners. One with locations is picked at
	// random; static placeholders are used when none qualify.
	Clinicians []model.Clinician
	// Medications is the catalogue doses are prescribed from. Required for
	// GDM and DBM patients.
	Medications []model.Medication
}

// PatientGenerator builds services API patients.
type PatientGenerator struct {
	rnd *Rand
	now func() time.Time
}

func NewPatientGenerator(rnd *Rand) *PatientGenerator {
	return &PatientGenerator{rnd: rnd, now: time.Now}
}

// pregnancyDates are the reference dates derived from a conception date.
type pregnancyDates struct {
	conception, presented, diagnosed, delivery time.Time
}

func datesFromConception(c time.Time) pregnancyDates {
	return pregnancyDates{
		conception: c,
		presented:  c.AddDate(0, 0, daysToPresentation),
		diagnosed:  c.AddDate(0, 0, daysToDiagnosis),
		delivery:   c.AddDate(0, 0, daysToDelivery),
	}
}

// Generate builds a patient for opts.Product.
func (g *PatientGenerator) Generate(opts PatientOptions) (model.Patient, error) {
	clinicianID, locationID := g.owner(opts.Clinicians)

	p := model.Patient{
		UUID:                        opts.UUID,
		LastName:                    g.rnd.LastName(),
		PhoneNumber:                 placeholderPhone,
		DOB:                         Choice(g.rnd, DatesOfBirth),
		HospitalNumber:              opts.HospitalNumber,
		Ethnicity:                   Choice(g.rnd, ethnicityCodes),
		HighestEducationLevel:       Choice(g.rnd, educationLevelCodes),
		AccessibilityConsiderations: []string{},
		PersonalAddresses:           []model.Address{},
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.HospitalNumber == "" {
		p.HospitalNumber = g.rnd.MRN()
	}
	nhs, err := g.rnd.NHSNumber()
	if err != nil {
		return model.Patient{}, err
	}
	p.NHSNumber = nhs

	var (
		start time.Time
		sex   string
	)
	switch opts.Product {
	case model.ProductGDM, model.ProductDBM:
		if len(opts.Medications) == 0 {
			return model.Patient{}, fmt.Errorf("no medications available for %s patient", opts.Product)
		}
		dates := datesFromConception(g.conceptionDate())
		start = dates.conception.AddDate(0, 0, 7*g.rnd.Between(6, 20))
		pregnant := opts.Product == model.ProductGDM
		if pregnant {
			sex = "female"
		} else {
			sex = Choice(g.rnd, []string{"female", "male"})
		}
		p.Record = g.diabetesRecord(clinicianID, dates, opts.Medications, pregnant, opts.Closed)
		addr := g.rnd.Address()
		addr.LivedFrom = model.FormatDate(start.AddDate(0, 0, -7*g.rnd.Between(200, 300)))
		p.PersonalAddresses = []model.Address{addr}

		if pregnant {
			if g.rnd.Float64() < 0.5 && opts.HospitalNumber == "" {
				p.NHSNumber = ""
			}
			p.DHProducts = []model.Product{g.diabetesProduct(model.ProductGDM, dates, clinicianID, opts.Closed)}
			if g.rnd.Float64() < 0.1 {
				p.DHProducts = append(p.DHProducts, g.diabetesProduct(model.ProductDBM, dates, clinicianID, g.rnd.IntN(2) == 0))
			}
		} else {
			if g.rnd.Float64() < 0.5 {
				p.NHSNumber = ""
			}
			p.DHProducts = []model.Product{g.diabetesProduct(model.ProductDBM, dates, clinicianID, opts.Closed)}
			locationID = otherOrganisationUUID
			if strings.HasPrefix(p.UUID, "static_") {
				locationID = staticOrganisationUUID
			}
		}
	case model.ProductSEND:
		start = g.sendStartDate()
		sex = Choice(g.rnd, []string{"female", "male"})
		p.Record = model.Record{
			Notes:     []model.Note{},
			Diagnoses: []model.Diagnosis{},
			Audit:     audit(start, clinicianID),
		}
		p.DHProducts = []model.Product{commonProduct(model.ProductSEND, start, clinicianID)}
	default:
		return model.Patient{}, fmt.Errorf("patient generation for product type %s not yet implemented", opts.Product)
	}

	p.FirstName = g.rnd.FirstName(sex)
	p.EmailAddress = p.FirstName + "@email.com"
	if sex == "female" {
		p.Sex = SexFemale
	} else {
		p.Sex = SexMale
	}
	p.Audit = audit(start, clinicianID)
	p.Locations = []string{locationID}
	return p, nil
}

// FHIRPatientFrom reduces a services patient to the EPR representation.
func FHIRPatientFrom(p model.Patient) model.FHIRPatient {
	return model.FHIRPatient{
		MRN:         p.HospitalNumber,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DOB,
	}
}

func (g *PatientGenerator) owner(clinicians []model.Clinician) (clinicianID, locationID string) {
	candidates := make([]model.Clinician, 0, len(clinicians))
	for _, c := range clinicians {
		if c.UUID != "" && len(c.Locations) > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return staticClinicianUUID, staticLocationUUID
	}
	c := Choice(g.rnd, candidates)
	return c.UUID, Choice(g.rnd, c.Locations)
}

// conceptionDate falls between 20 and 40 weeks ago.
func (g *PatientGenerator) conceptionDate() time.Time {
	start := g.now().UTC().AddDate(0, 0, -20*7)
	return start.Add(-time.Duration(g.rnd.Float64() * float64(20*7*24*time.Hour)))
}

// sendStartDate falls between 1 and 11 weeks ago.
func (g *PatientGenerator) sendStartDate() time.Time {
	start := g.now().UTC().AddDate(0, 0, -7)
	return start.Add(-time.Duration(g.rnd.Float64() * float64(10*7*24*time.Hour)))
}

func audit(t time.Time, by string) model.Audit {
	ts := model.FormatTime(t)
	return model.Audit{Created: ts, CreatedBy: by, Modified: ts, ModifiedBy: by}
}

func commonProduct(name string, start time.Time, clinicianID string) model.Product {
	return model.Product{
		ProductName:                name,
		OpenedDate:                 model.FormatDate(start),
		AccessibilityDiscussed:     true,
		AccessibilityDiscussedWith: clinicianID,
		AccessibilityDiscussedDate: model.FormatDate(start),
		Audit:                      audit(start, clinicianID),
	}
}

// diabetesProduct opens on the diagnosis date and, when closed, closes on
// the estimated delivery date.
func (g *PatientGenerator) diabetesProduct(name string, d pregnancyDates, clinicianID string, closed bool) model.Product {
	p := commonProduct(name, d.diagnosed, clinicianID)
	if closed {
		p.ClosedDate = model.FormatDate(d.delivery)
		p.ClosedReason = closedReason
		p.Modified = model.FormatTime(d.delivery)
	}
	return p
}

func (g *PatientGenerator) diabetesRecord(clinicianID string, d pregnancyDates, meds []model.Medication, pregnant, closed bool) model.Record {
	r := model.Record{
		Notes:     g.notes(d.conception, clinicianID),
		Diagnoses: []model.Diagnosis{g.diabetesDiagnosis(clinicianID, d, meds, pregnant)},
		Visits:    []model.Visit{visit(d.conception, staticVisitClinician, staticVisitLocation)},
		Audit:     audit(d.diagnosed, clinicianID),
	}
	if pregnant {
		r.Pregnancies = []model.Pregnancy{g.pregnancy(clinicianID, d, closed)}
		gravidity := g.rnd.Between(1, 20)
		r.History = &model.History{Gravidity: gravidity, Parity: min(gravidity, g.rnd.Between(0, 3))}
	}
	return r
}

func (g *PatientGenerator) diabetesDiagnosis(clinicianID string, d pregnancyDates, meds []model.Medication, pregnant bool) model.Diagnosis {
	med := Choice(g.rnd, meds)
	tool := append([]string(nil), Choice(g.rnd, diagnosisToolOptions)...)
	toolOther := Choice(g.rnd, []*string{nil, nil, strPtr("Predictive algorithm")})
	if toolOther != nil && !contains(tool, DiagnosisToolOther) {
		tool = append(tool, DiagnosisToolOther)
	}
	diagnosed := model.FormatDate(d.diagnosed)
	delivery := model.FormatDate(d.delivery)

	var (
		code     string
		entities []model.ObservableEntity
	)
	if pregnant {
		code = Choice(g.rnd, diabetesTypesPregnant)
		first := model.ObservableEntity{SCTCode: ObservableHbA1c, DateObserved: diagnosed, ValueAsString: "2", Metadata: map[string]string{"tag": "first"}}
		last := model.ObservableEntity{SCTCode: ObservableHbA1c, DateObserved: delivery, ValueAsString: "5", Metadata: map[string]string{"tag": "last"}}
		entities = Choice(g.rnd, [][]model.ObservableEntity{nil, {first}, {first, last}, {last}})
	} else {
		code = Choice(g.rnd, diabetesTypesNotPregnant)
		glucose := model.ObservableEntity{SCTCode: ObservableGlucose, DateObserved: diagnosed, ValueAsString: "A value"}
		entities = Choice(g.rnd, [][]model.ObservableEntity{nil, {glucose}})
	}

	dx := model.Diagnosis{
		SCTCode:            code,
		Diagnosed:          diagnosed,
		Episode:            1,
		Presented:          diagnosed,
		DiagnosisTool:      tool,
		DiagnosisToolOther: toolOther,
		RiskFactors:        []string{RiskFactorBMI},
		ObservableEntities: entities,
		ManagementPlan: &model.ManagementPlan{
			StartDate: diagnosed,
			EndDate:   delivery,
			SCTCode:   ManagementInsulin,
			Doses: []model.Dose{{
				MedicationID:   med.SCTCode,
				DoseAmount:     Choice(g.rnd, []float64{0.5, 1.0, 1.5, 2.0}),
				RoutineSCTCode: Choice(g.rnd, routineSCTCodes),
			}},
			Actions: []model.Action{{ActionSCTCode: "12345"}},
		},
		ReadingsPlan: &model.ReadingsPlan{
			StartDate:                 diagnosed,
			EndDate:                   delivery,
			SCTCode:                   "54321",
			DaysPerWeekToTakeReadings: 7,
			ReadingsPerDay:            Choice(g.rnd, []int{2, 4, 7}),
		},
		Audit: audit(d.diagnosed, clinicianID),
	}
	if code == DiabetesOther {
		dx.DiagnosisOther = strPtr("post pancreatectomy")
	}
	return dx
}

func (g *PatientGenerator) pregnancy(clinicianID string, d pregnancyDates, delivered bool) model.Pregnancy {
	weightAtDiagnosis := g.rnd.Between(50_000, 100_000)
	weightAtBooking := int(float64(weightAtDiagnosis) * 1.1)
	p := model.Pregnancy{
		EstimatedDeliveryDate:       model.FormatDate(d.delivery),
		PlannedDeliveryPlace:        plannedDeliveryPlace,
		LengthOfPostnatalStayInDays: g.rnd.Between(1, 5),
		ColostrumHarvesting:         true,
		ExpectedNumberOfBabies:      g.rnd.Between(1, 2),
		Deliveries:                  []model.Delivery{},
		HeightAtBookingInMM:         g.rnd.Between(1400, 2000),
		WeightAtDiagnosisInG:        weightAtDiagnosis,
		WeightAtBookingInG:          weightAtBooking,
		WeightAt36WeeksInG:          int(float64(weightAtBooking) * 1.1),
		PregnancyComplications:      []string{Choice(g.rnd, pregnancyComplicationCodes)},
		Audit:                       audit(d.diagnosed, clinicianID),
	}
	if delivered {
		for i := 0; i < p.ExpectedNumberOfBabies; i++ {
			p.Deliveries = append(p.Deliveries, g.delivery(clinicianID, d))
		}
	}
	return p
}

func (g *PatientGenerator) delivery(clinicianID string, d pregnancyDates) model.Delivery {
	complication := Choice(g.rnd, neonatalComplications)
	other := ""
	if complication == neonatalOther {
		other = "Minor problems"
	}
	apgar1 := g.rnd.Between(1, 10)
	return model.Delivery{
		BirthOutcome:                  Choice(g.rnd, birthOutcomeCodes),
		OutcomeForBaby:                Choice(g.rnd, outcomeForBabyCodes),
		NeonatalComplications:         complication,
		NeonatalComplicationsOther:    other,
		AdmittedToSpecialBabyCareUnit: g.rnd.IntN(2) == 0,
		BirthWeightInGrams:            g.rnd.Between(1000, 4000),
		LengthOfPostnatalStayForBaby:  g.rnd.Between(0, 4),
		Apgar1Minute:                  apgar1,
		Apgar5Minute:                  min(10, apgar1+2),
		FeedingMethod:                 Choice(g.rnd, feedingMethodCodes),
		Patient: model.DeliveryBaby{
			FirstName: g.rnd.FirstName(""),
			LastName:  g.rnd.LastName(),
			DOB:       model.FormatDate(d.delivery),
		},
		Audit: audit(d.delivery, clinicianID),
	}
}

// notes generates up to one note per week since conception.
func (g *PatientGenerator) notes(conception time.Time, clinicianID string) []model.Note {
	now := g.now().UTC()
	days := int(model.StartOfDay(now).Sub(model.StartOfDay(conception)).Hours() / 24)
	n := g.rnd.Between(0, max(0, days/7))
	notes := make([]model.Note, 0, n)
	for i := 0; i < n; i++ {
		at := now.AddDate(0, 0, -g.rnd.Between(0, days)).Add(-time.Duration(g.rnd.Between(0, 12*60)) * time.Minute)
		ts := model.FormatTime(at)
		notes = append(notes, model.Note{
			Content:       Choice(g.rnd, noteContents),
			ClinicianUUID: clinicianID,
			Created:       ts,
			Modified:      ts,
		})
	}
	return notes
}

func visit(at time.Time, clinicianID, locationID string) model.Visit {
	return model.Visit{
		VisitDate:     model.FormatTime(at),
		Summary:       "Talked about diabetes",
		Location:      locationID,
		ClinicianUUID: clinicianID,
		Diagnoses:     []string{},
		Audit:         audit(at, clinicianID),
	}
}
