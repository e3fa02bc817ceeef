package model

// Product names understood by the services API.
const (
	ProductGDM  = "GDM"
	ProductDBM  = "DBM"
	ProductSEND = "SEND"
)

// Patient is the services API patient resource. Only the fields the janitor
// generates or reads are modelled.
type Patient struct {
	UUID                        string    `json:"uuid,omitempty"`
	FirstName                   string    `json:"first_name"`
	LastName                    string    `json:"last_name"`
	PhoneNumber                 string    `json:"phone_number,omitempty"`
	DOB                         string    `json:"dob,omitempty"`
	NHSNumber                   string    `json:"nhs_number"`
	HospitalNumber              string    `json:"hospital_number"`
	EmailAddress                string    `json:"email_address,omitempty"`
	AllowedToText               bool      `json:"allowed_to_text"`
	DHProducts                  []Product `json:"dh_products"`
	PersonalAddresses           []Address `json:"personal_addresses"`
	Ethnicity                   string    `json:"ethnicity,omitempty"`
	Sex                         string    `json:"sex,omitempty"`
	HighestEducationLevel       string    `json:"highest_education_level,omitempty"`
	AccessibilityConsiderations []string  `json:"accessibility_considerations"`
	OtherNotes                  string    `json:"other_notes"`
	Record                      Record    `json:"record"`
	Locations                   []string  `json:"locations"`
	FHIRResourceID              string    `json:"fhir_resource_id,omitempty"`
	Audit
}

// Audit carries the created/modified bookkeeping shared by most resources.
type Audit struct {
	Created    string `json:"created,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
	Modified   string `json:"modified,omitempty"`
	ModifiedBy string `json:"modified_by,omitempty"`
}

// Product is a patient's enrolment in one product line.
type Product struct {
	UUID                       string `json:"uuid,omitempty"`
	ProductName                string `json:"product_name"`
	OpenedDate                 string `json:"opened_date"`
	ClosedDate                 string `json:"closed_date,omitempty"`
	ClosedReason               string `json:"closed_reason,omitempty"`
	AccessibilityDiscussed     bool   `json:"accessibility_discussed,omitempty"`
	AccessibilityDiscussedWith string `json:"accessibility_discussed_with,omitempty"`
	AccessibilityDiscussedDate string `json:"accessibility_discussed_date,omitempty"`
	Audit
}

// Address is a personal address with the date the patient moved in.
type Address struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	AddressLine3 string `json:"address_line_3"`
	AddressLine4 string `json:"address_line_4"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	Postcode     string `json:"postcode"`
	LivedFrom    string `json:"lived_from,omitempty"`
}

// Record is the clinical record attached to a patient.
type Record struct {
	UUID        string      `json:"uuid,omitempty"`
	Notes       []Note      `json:"notes"`
	History     *History    `json:"history,omitempty"`
	Pregnancies []Pregnancy `json:"pregnancies,omitempty"`
	Diagnoses   []Diagnosis `json:"diagnoses"`
	Visits      []Visit     `json:"visits,omitempty"`
	Audit
}

type History struct {
	Gravidity int `json:"gravidity"`
	Parity    int `json:"parity"`
}

type Note struct {
	Content       string `json:"content"`
	ClinicianUUID string `json:"clinician_uuid"`
	Created       string `json:"created"`
	Modified      string `json:"modified"`
}

// Visit is either a full record visit (generated with the patient) or the
// reduced form pushed by the populate job.
type Visit struct {
	VisitDate     string   `json:"visit_date"`
	Summary       string   `json:"summary,omitempty"`
	Location      string   `json:"location"`
	ClinicianUUID string   `json:"clinician_uuid,omitempty"`
	Clinician     string   `json:"clinician,omitempty"`
	Diagnoses     []string `json:"diagnoses,omitempty"`
	Audit
}

type Pregnancy struct {
	EstimatedDeliveryDate        string     `json:"estimated_delivery_date"`
	PlannedDeliveryPlace         string     `json:"planned_delivery_place"`
	LengthOfPostnatalStayInDays  int        `json:"length_of_postnatal_stay_in_days"`
	ColostrumHarvesting          bool       `json:"colostrum_harvesting"`
	ExpectedNumberOfBabies       int        `json:"expected_number_of_babies"`
	Deliveries                   []Delivery `json:"deliveries"`
	HeightAtBookingInMM          int        `json:"height_at_booking_in_mm"`
	WeightAtDiagnosisInG         int        `json:"weight_at_diagnosis_in_g"`
	WeightAtBookingInG           int        `json:"weight_at_booking_in_g"`
	WeightAt36WeeksInG           int        `json:"weight_at_36_weeks_in_g"`
	PregnancyComplications       []string   `json:"pregnancy_complications"`
	Audit
}

type Delivery struct {
	BirthOutcome                  string       `json:"birth_outcome"`
	OutcomeForBaby                string       `json:"outcome_for_baby"`
	NeonatalComplications         string       `json:"neonatal_complications"`
	NeonatalComplicationsOther    string       `json:"neonatal_complications_other"`
	AdmittedToSpecialBabyCareUnit bool         `json:"admitted_to_special_baby_care_unit"`
	BirthWeightInGrams            int          `json:"birth_weight_in_grams"`
	LengthOfPostnatalStayForBaby  int          `json:"length_of_postnatal_stay_for_baby"`
	Apgar1Minute                  int          `json:"apgar_1_minute"`
	Apgar5Minute                  int          `json:"apgar_5_minute"`
	FeedingMethod                 string       `json:"feeding_method"`
	Patient                       DeliveryBaby `json:"patient"`
	Audit
}

type DeliveryBaby struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
}

// Diagnosis is a coded diagnosis, optionally carrying diabetes management and
// readings plans.
type Diagnosis struct {
	UUID               string             `json:"uuid,omitempty"`
	SCTCode            string             `json:"sct_code"`
	DiagnosisOther     *string            `json:"diagnosis_other,omitempty"`
	Diagnosed          string             `json:"diagnosed,omitempty"`
	Episode            int                `json:"episode,omitempty"`
	Presented          string             `json:"presented,omitempty"`
	DiagnosisTool      []string           `json:"diagnosis_tool,omitempty"`
	DiagnosisToolOther *string            `json:"diagnosis_tool_other,omitempty"`
	RiskFactors        []string           `json:"risk_factors,omitempty"`
	ObservableEntities []ObservableEntity `json:"observable_entities,omitempty"`
	ManagementPlan     *ManagementPlan    `json:"management_plan,omitempty"`
	ReadingsPlan       *ReadingsPlan      `json:"readings_plan,omitempty"`
	Audit
}

type ObservableEntity struct {
	SCTCode       string            `json:"sct_code"`
	DateObserved  string            `json:"date_observed"`
	ValueAsString string            `json:"value_as_string"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type ManagementPlan struct {
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	SCTCode   string   `json:"sct_code,omitempty"`
	Doses     []Dose   `json:"doses"`
	Actions   []Action `json:"actions,omitempty"`
}

// Dose is one prescribed medication dose tied to a meal routine.
type Dose struct {
	MedicationID   string  `json:"medication_id"`
	DoseAmount     float64 `json:"dose_amount"`
	RoutineSCTCode string  `json:"routine_sct_code"`
}

type Action struct {
	ActionSCTCode string `json:"action_sct_code"`
}

// ReadingsPlan describes how often a patient is expected to take readings.
type ReadingsPlan struct {
	StartDate                 string `json:"start_date,omitempty"`
	EndDate                   string `json:"end_date,omitempty"`
	SCTCode                   string `json:"sct_code,omitempty"`
	DaysPerWeekToTakeReadings int    `json:"days_per_week_to_take_readings"`
	ReadingsPerDay            int    `json:"readings_per_day"`
}

// FHIRPatient is the reduced patient accepted by the EPR integration API.
type FHIRPatient struct {
	MRN            string `json:"mrn"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	FHIRResourceID string `json:"fhir_resource_id,omitempty"`
}
