package generator

// SNOMED CT and internal codes used when building clinical records.
const (
	SexFemale = "248152002"
	SexMale   = "248153007"

	DiabetesGDM        = "11687002"
	DiabetesPreGDM     = "199223000"
	DiabetesType1      = "46635009"
	DiabetesType2      = "44054006"
	DiabetesMODY       = "609561005"
	DiabetesOther      = "8801005"
	ManagementInsulin  = "67866001"
	RiskFactorBMI      = "60621009"
	ObservableHbA1c    = "113076002"
	ObservableGlucose  = "33747003"
	DiagnosisToolOther = "D0000018"

	RoutineBreakfast = "1751000175104"
	RoutineLunch     = "1761000175102"
	RoutineDinner    = "1771000175105"
	RoutineBedtime   = "1781000175108"

	neonatalOther = "D0000023"
)

// DiabetesCodes lists every diabetes type a patient can be diagnosed with.
var DiabetesCodes = []string{
	DiabetesGDM, DiabetesPreGDM, DiabetesType1, DiabetesType2, DiabetesMODY, DiabetesOther,
}

// Weighted so that gestational diabetes dominates pregnant cohorts and type 2
// dominates the rest.
var (
	diabetesTypesPregnant = []string{
		DiabetesGDM, DiabetesGDM, DiabetesGDM,
		DiabetesPreGDM, DiabetesPreGDM,
		DiabetesType1, DiabetesType2, DiabetesMODY, DiabetesOther,
	}
	diabetesTypesNotPregnant = []string{
		DiabetesType2, DiabetesType2, DiabetesType2, DiabetesType2,
		DiabetesType1, DiabetesOther,
	}
)

var routineSCTCodes = []string{RoutineBreakfast, RoutineLunch, RoutineDinner, RoutineBedtime}

var diagnosisToolOptions = [][]string{
	{"D0000013"},
	{"D0000014"},
	{"D0000015"},
	{"D0000014", "D0000015"},
}

var (
	ethnicityCodes = []string{
		"494131000000105", "494141000000101", "494151000000103", "494161000000102",
		"494171000000109", "494181000000106", "494191000000108", "494201000000105",
		"494211000000107", "494221000000101", "494231000000104", "494241000000108",
	}
	educationLevelCodes = []string{
		"224297000", "224298005", "224299002", "224300005", "473461003",
	}
	pregnancyComplicationCodes = []string{
		"48194001", "398254007", "237205003", "199245005", "46894009",
	}
	birthOutcomeCodes      = []string{"169826009", "237364002", "3311000175104"}
	outcomeForBabyCodes    = []string{"169827000", "169828005", "276508000"}
	neonatalComplications  = []string{"52767006", "387712008", "46775006", neonatalOther}
	feedingMethodCodes     = []string{"226789007", "169745008", "169743001"}
	plannedDeliveryPlace   = "99b1668c-26f1-4aec-88ca-597d3a20d977"
	closedReason           = "Closed for a very good reason"
	staticClinicianUUID    = "static_clinician_uuid_A"
	staticLocationUUID     = "static_location_uuid_L1"
	staticVisitClinician   = "static_clinician_uuid_D"
	staticVisitLocation    = "static_location_uuid_L2"
	staticOrganisationUUID = "static_organisation_uuid_O1"
	otherOrganisationUUID  = "static_organisation_uuid_O2"
)

// IsDiabetesCode reports whether code is one of DiabetesCodes.
func IsDiabetesCode(code string) bool {
	for _, c := range DiabetesCodes {
		if c == code {
			return true
		}
	}
	return false
}
