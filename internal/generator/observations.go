package generator

import (
	"math"
	"time"

	"github.com/dhos/janitor/internal/model"
)

// Trajectory is how unwell a patient is for the length of an encounter.
type Trajectory int

const (
	VeryIll Trajectory = iota
	MediumIll
	ABitIll
	Fine
)

func (t Trajectory) String() string {
	switch t {
	case VeryIll:
		return "very_ill"
	case MediumIll:
		return "medium_ill"
	case ABitIll:
		return "a_bit_ill"
	default:
		return "fine"
	}
}

// Observation types.
const (
	ObsTemperature       = "temperature"
	ObsBloodPressure     = "systolic_and_diastolic_blood_pressure"
	ObsSystolic          = "systolic_blood_pressure"
	ObsDiastolic         = "diastolic_blood_pressure"
	ObsHeartRate         = "heart_rate"
	ObsRespiratoryRate   = "respiratory_rate"
	ObsSpO2              = "spo2"
	ObsConsciousness     = "consciousness_acvpu"
	ObsNurseConcern      = "nurse_concern"
	ObsMaskType          = "mask_type"
	ObsO2TherapyStatus   = "o2_therapy_status"
	ScoreSystemNEWS2     = "news2"
	refusalThreshold     = 0.95
	roomAir              = "Room Air"
	highFlow             = "High Flow"
	temperatureUnit      = "celcius"
	bloodPressureUnit    = "mmHg"
	heartRateUnit        = "bpm"
	respiratoryRateUnit  = "per min"
	percentUnit          = "%"
	litresPerMinuteUnit  = "lpm"
	maxMeasuredDelayMins = 3
)

// ObservationTypes is the full set requested of a NEWS2 observation set.
var ObservationTypes = []string{
	ObsTemperature, ObsBloodPressure, ObsHeartRate, ObsRespiratoryRate,
	ObsSpO2, ObsConsciousness, ObsNurseConcern, ObsMaskType,
}

var unrefusable = map[string]bool{
	ObsO2TherapyStatus: true,
	ObsConsciousness:   true,
	ObsNurseConcern:    true,
	ObsSystolic:        true,
	ObsDiastolic:       true,
}

type intRange struct{ lo, hi int }

// Ranges indexed by Trajectory.
var (
	temperatureRanges = [...][2]float64{{34, 40}, {35, 39}, {36, 38.5}, {36.5, 37.5}}
	systolicRanges    = [...]intRange{{80, 240}, {90, 200}, {100, 150}, {110, 140}}
	heartRateRanges   = [...]intRange{{35, 180}, {40, 130}, {50, 110}, {51, 90}}
	respiratoryRanges = [...]intRange{{5, 60}, {7, 30}, {9, 24}, {12, 20}}
	spo2Ranges        = [...]intRange{{80, 100}, {92, 100}, {94, 100}, {96, 100}}

	nurseConcernOmitThreshold = [...]float64{0.4, 0.6, 0.9, 0.95}
	roomAirThreshold          = [...]float64{0.2, 0.5, 0.85, 0.95}
	spo2ScaleThreshold        = [...]float64{0.2, 0.5, 0.9, 0.95}

	consciousnessLevels = [...][]string{
		{"Confusion", "Voice", "Pain", "Unresponsive"},
		{"Alert", "Confusion", "Voice"},
		{"Alert", "Confusion"},
		{"Alert"},
	}
)

var patientPositions = []string{"sitting", "standing", "lying"}

var nurseConcerns = []string{
	"Airway Compromise",
	"Bleeding/Melaena",
	"Pallor or Cyanosis",
	"New Facial/Limb Weakness",
	"Diarrhoea/Vomiting",
	"Abnormal Electrolyte/BG",
	"Unresolved Pain",
	"Self Harm",
	"Infection?",
	"Shock (HR > BP)",
	"Non-specific Concern",
}

var (
	masks                 = []string{"Venturi", "Humidified", "Nasal Cann.", "Simple", "Resv Mask", "CPAP", "NIV", highFlow}
	venturiPercentages    = []int{24, 28, 35, 40, 60}
	humidifiedPercentages = []int{28, 35, 40, 60, 80, 98}
)

// ObservationsGenerator produces NEWS2 observation sets.
type ObservationsGenerator struct {
	rnd *Rand
}

func NewObservationsGenerator(rnd *Rand) *ObservationsGenerator {
	return &ObservationsGenerator{rnd: rnd}
}

// RandomTrajectory is fine three times in four and very ill one time in twenty.
func (g *ObservationsGenerator) RandomTrajectory() Trajectory {
	v := g.rnd.Float64()
	switch {
	case v > 0.95:
		return VeryIll
	case v > 0.90:
		return MediumIll
	case v > 0.75:
		return ABitIll
	default:
		return Fine
	}
}

// SpO2Scale picks scale 2 with a likelihood that grows with illness.
func (g *ObservationsGenerator) SpO2Scale(t Trajectory) int {
	if g.rnd.Float64() > spo2ScaleThreshold[t] {
		return 2
	}
	return 1
}

// Generate builds one observation set recorded at recordTime. The set may be
// missing observations, and some observations may be refused.
func (g *ObservationsGenerator) Generate(encounterID string, spo2Scale int, recordTime time.Time, t Trajectory) model.ObservationSet {
	var observations []model.Observation
	for _, obsType := range g.subset() {
		measured := model.FormatTime(recordTime.Add(time.Duration(g.rnd.Between(0, maxMeasuredDelayMins)) * time.Minute))
		for _, obs := range g.observe(obsType, t) {
			obs.MeasuredTime = measured
			if !unrefusable[obs.ObservationType] && g.rnd.Float64() > refusalThreshold {
				obs.Refuse()
			}
			observations = append(observations, obs)
		}
	}
	return model.ObservationSet{
		RecordTime:   model.FormatTime(recordTime),
		EncounterID:  encounterID,
		ScoreSystem:  ScoreSystemNEWS2,
		Observations: observations,
		SpO2Scale:    spo2Scale,
	}
}

func (g *ObservationsGenerator) subset() []string {
	n := len(ObservationTypes)
	v := g.rnd.Float64()
	switch {
	case v > 0.2:
	case v > 0.05:
		n -= g.rnd.Between(0, 3)
	default:
		n -= g.rnd.Between(3, len(ObservationTypes)-1)
	}
	shuffled := append([]string(nil), ObservationTypes...)
	g.rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

func (g *ObservationsGenerator) observe(obsType string, t Trajectory) []model.Observation {
	switch obsType {
	case ObsTemperature:
		r := temperatureRanges[t]
		return []model.Observation{numeric(ObsTemperature, round1(g.rnd.Uniform(r[0], r[1])), temperatureUnit)}
	case ObsBloodPressure:
		return g.bloodPressure(t)
	case ObsHeartRate:
		return []model.Observation{g.integer(ObsHeartRate, heartRateRanges[t], heartRateUnit)}
	case ObsRespiratoryRate:
		return []model.Observation{g.integer(ObsRespiratoryRate, respiratoryRanges[t], respiratoryRateUnit)}
	case ObsSpO2:
		return []model.Observation{g.integer(ObsSpO2, spo2Ranges[t], percentUnit)}
	case ObsConsciousness:
		return []model.Observation{{
			ObservationType:   ObsConsciousness,
			ObservationString: strPtr(Choice(g.rnd, consciousnessLevels[t])),
		}}
	case ObsNurseConcern:
		if g.rnd.Float64() < nurseConcernOmitThreshold[t] {
			return nil
		}
		return []model.Observation{{
			ObservationType:   ObsNurseConcern,
			ObservationString: strPtr(Choice(g.rnd, nurseConcerns)),
		}}
	case ObsMaskType:
		return []model.Observation{g.mask(t)}
	}
	return nil
}

func (g *ObservationsGenerator) integer(obsType string, r intRange, unit string) model.Observation {
	return numeric(obsType, float64(g.rnd.Between(r.lo, r.hi)), unit)
}

// bloodPressure returns a systolic and diastolic pair sharing one patient
// position. The pair is refused together or not at all.
func (g *ObservationsGenerator) bloodPressure(t Trajectory) []model.Observation {
	r := systolicRanges[t]
	systolic := g.rnd.Between(r.lo, r.hi)
	diastolic := systolic - g.rnd.Between(40, 60)
	position := Choice(g.rnd, patientPositions)

	pair := []model.Observation{
		numeric(ObsSystolic, float64(systolic), bloodPressureUnit),
		numeric(ObsDiastolic, float64(diastolic), bloodPressureUnit),
	}
	for i := range pair {
		pair[i].ObservationMetadata = &model.ObservationMetadata{PatientPosition: position}
	}
	if g.rnd.Float64() > refusalThreshold {
		for i := range pair {
			pair[i].Refuse()
		}
	}
	return pair
}

func (g *ObservationsGenerator) mask(t Trajectory) model.Observation {
	if g.rnd.Float64() < roomAirThreshold[t] {
		obs := numeric(ObsO2TherapyStatus, 0, litresPerMinuteUnit)
		obs.ObservationMetadata = &model.ObservationMetadata{Mask: roomAir}
		return obs
	}

	mask := Choice(g.rnd, masks)
	meta := &model.ObservationMetadata{Mask: mask}
	var obs model.Observation
	if mask == highFlow {
		obs = numeric(ObsO2TherapyStatus, float64(g.rnd.Between(1, 100)), percentUnit)
	} else {
		obs = numeric(ObsO2TherapyStatus, math.Trunc(round1(g.rnd.Uniform(0.5, 15))), litresPerMinuteUnit)
	}
	switch mask {
	case "Venturi":
		meta.MaskPercent = intPtr(Choice(g.rnd, venturiPercentages))
	case "Humidified":
		meta.MaskPercent = intPtr(Choice(g.rnd, humidifiedPercentages))
	}
	obs.ObservationMetadata = meta
	return obs
}

func numeric(obsType string, value float64, unit string) model.Observation {
	return model.Observation{
		ObservationType:  obsType,
		ObservationValue: floatPtr(value),
		ObservationUnit:  unit,
	}
}
