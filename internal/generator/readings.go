package generator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/model"
)

// MinReadingValue is the lowest blood glucose value a reading may carry.
// Lower samples are redrawn.
const MinReadingValue = 1.0

const (
	readingUnits      = "mmol/L"
	maxHistoryDays    = 40
	postMealTagParity = 1
)

// GlucoseProfile shapes the readings of one patient.
type GlucoseProfile struct {
	Name string
	Mean float64
	// StdDev is the standard deviation of the reading distribution.
	StdDev float64
	// PostMealBonus is added to readings with an odd prandial tag.
	PostMealBonus float64
	// MissProbability is the chance of skipping a reading or a dose.
	MissProbability float64
	// ExtraProbability is the chance of a repeat reading for the same tag.
	ExtraProbability float64
}

var Profiles = []GlucoseProfile{
	{Name: "HIGH", Mean: 5, StdDev: 3, PostMealBonus: 3, MissProbability: 0.7, ExtraProbability: 0.2},
	{Name: "AVERAGE", Mean: 5, StdDev: 2, PostMealBonus: 2, MissProbability: 0.3, ExtraProbability: 0.1},
	{Name: "LOW", Mean: 5, StdDev: 1, PostMealBonus: 1, MissProbability: 0.1, ExtraProbability: 0.1},
	{Name: "RANDOM", Mean: 5, StdDev: 2, PostMealBonus: 1, MissProbability: 0.5, ExtraProbability: 0.4},
}

// ProfileByName looks a profile up case-insensitively.
func ProfileByName(name string) (GlucoseProfile, bool) {
	for _, p := range Profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return GlucoseProfile{}, false
}

type prandialSlot struct {
	hour, minute int
	spreadHours  float64
}

// Indexed by prandial tag; tag 0 is never generated.
var prandialSlots = [...]prandialSlot{
	{},
	{7, 0, 1},
	{9, 0, 1},
	{12, 30, 1},
	{14, 30, 1},
	{19, 30, 1},
	{21, 30, 1},
	{12, 0, 12},
}

var prandialTagUUIDs = [...]string{
	"PRANDIAL-TAG-NONE",
	"PRANDIAL-TAG-BEFORE-BREAKFAST",
	"PRANDIAL-TAG-AFTER-BREAKFAST",
	"PRANDIAL-TAG-BEFORE-LUNCH",
	"PRANDIAL-TAG-AFTER-LUNCH",
	"PRANDIAL-TAG-BEFORE-DINNER",
	"PRANDIAL-TAG-AFTER-DINNER",
	"PRANDIAL-TAG-OTHER",
}

// Meal routines in the reverse of the order they are consumed, each mapped to
// the "before meal" tag.
var mealRoutines = []struct {
	sctCode string
	tag     int
}{
	{RoutineBreakfast, 1},
	{RoutineLunch, 3},
	{RoutineDinner, 5},
}

var readingComments = []string{
	"I ate earlier than usual today",
	"Had some cake, sorry!",
	"I don't feel very well at the moment",
	"Not sure if I should take more insulin",
	"I didn't eat very much",
	"I feel much better today!",
	"Eaten nothing yet today",
	"Is this better?",
}

// PrandialTagUUID returns the uuid of a prandial tag value.
func PrandialTagUUID(tag int) string {
	if tag < 0 || tag >= len(prandialTagUUIDs) {
		return prandialTagUUIDs[0]
	}
	return prandialTagUUIDs[tag]
}

// DiabetesDiagnosis returns the patient's first diabetes diagnosis.
func DiabetesDiagnosis(p *model.Patient) (*model.Diagnosis, bool) {
	for i := range p.Record.Diagnoses {
		if IsDiabetesCode(p.Record.Diagnoses[i].SCTCode) {
			return &p.Record.Diagnoses[i], true
		}
	}
	return nil, false
}

// ReadingsGenerator produces a patient's blood glucose history.
type ReadingsGenerator struct {
	rnd     *Rand
	profile GlucoseProfile
	now     func() time.Time
}

// NewReadingsGenerator picks the named profile, or a random one when the name
// is empty or unknown.
func NewReadingsGenerator(rnd *Rand, profile string, logger zerolog.Logger) *ReadingsGenerator {
	p, ok := ProfileByName(profile)
	if !ok {
		p = Choice(rnd, Profiles)
	}
	logger.Debug().Str("profile", p.Name).Msg("readings profile selected")
	return &ReadingsGenerator{rnd: rnd, profile: p, now: time.Now}
}

// Profile returns the profile in use.
func (g *ReadingsGenerator) Profile() GlucoseProfile {
	return g.profile
}

// Generate builds up to forty days of readings for p, ending yesterday,
// sorted by creation time.
func (g *ReadingsGenerator) Generate(p *model.Patient) ([]model.Reading, error) {
	if p == nil {
		return nil, ErrMissingPatient
	}
	diagnosis, ok := DiabetesDiagnosis(p)
	if !ok {
		return nil, ErrNoDiagnosis
	}
	var doses []model.Dose
	if diagnosis.ManagementPlan != nil {
		doses = diagnosis.ManagementPlan.Doses
	}
	readingsPerDay := 0
	if diagnosis.ReadingsPlan != nil {
		readingsPerDay = diagnosis.ReadingsPlan.ReadingsPerDay
	}
	created, err := model.ParseTime(p.Created)
	if err != nil {
		return nil, fmt.Errorf("patient %s created: %w", p.UUID, err)
	}

	now := g.now().UTC()
	daysSince := int(now.Sub(created).Hours() / 24)
	workingDays := g.rnd.Between(0, max(0, min(daysSince, maxHistoryDays)))
	today := model.StartOfDay(now)

	var readings []model.Reading
	for diff := 1; diff < workingDays; diff++ {
		readings = append(readings, g.day(today.AddDate(0, 0, -diff), readingsPerDay, doses)...)
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Created < readings[j].Created
	})
	return readings, nil
}

func (g *ReadingsGenerator) day(day time.Time, target int, doses []model.Dose) []model.Reading {
	meals := append(mealRoutines[:0:0], mealRoutines...)
	tags := []int{1, 2, 3, 4, 5, 6, 7}
	var out []model.Reading

	for len(out) < target {
		var (
			tag  int
			meds []model.Dose
		)
		if len(meals) > 0 {
			meal := meals[len(meals)-1]
			meals = meals[:len(meals)-1]
			meds = dosesForRoutine(doses, meal.sctCode)
			if len(meds) == 0 {
				continue
			}
			tag = meal.tag
		} else {
			if len(tags) == 0 {
				break
			}
			tag = Choice(g.rnd, tags)
		}
		tags = removeTag(tags, tag)

		if g.rnd.Float64() < g.profile.MissProbability {
			target--
			continue
		}
		out = append(out, g.CreateReading(day, tag, meds))
		for g.rnd.Float64() < g.profile.ExtraProbability {
			out = append(out, g.CreateReading(day, tag, nil))
		}
	}
	return out
}

// CreateReading builds one reading on day for tag. Each dose in meds is
// reported unless the patient misses it.
func (g *ReadingsGenerator) CreateReading(day time.Time, tag int, meds []model.Dose) model.Reading {
	value := g.Value(tag)
	ts := model.FormatTime(g.Timestamp(day, tag))

	doses := []model.ReadingDose{}
	for _, med := range meds {
		if g.rnd.Float64() < g.profile.MissProbability {
			continue
		}
		d := model.ReadingDose{Amount: round1(g.rnd.Uniform(0, 99)), MedicationID: med.MedicationID}
		doses = append([]model.ReadingDose{d}, doses...)
	}

	return model.Reading{
		MeasuredTimestamp: ts,
		BloodGlucoseValue: value,
		PrandialTag:       model.PrandialTag{Value: tag, UUID: PrandialTagUUID(tag)},
		Units:             readingUnits,
		Comment:           Choice(g.rnd, readingComments),
		Created:           ts,
		Doses:             doses,
	}
}

// Value samples a blood glucose value for tag, rounded to one decimal place
// and never below MinReadingValue.
func (g *ReadingsGenerator) Value(tag int) float64 {
	bonus := 0.0
	if tag%2 == postMealTagParity {
		bonus = g.profile.PostMealBonus
	}
	for {
		v := round1(g.rnd.Normal(g.profile.Mean, g.profile.StdDev) + bonus)
		if v >= MinReadingValue {
			return v
		}
	}
}

// Timestamp places a reading for tag on day, normally distributed around the
// tag's reference time.
func (g *ReadingsGenerator) Timestamp(day time.Time, tag int) time.Time {
	slot := prandialSlots[tag]
	ref := model.StartOfDay(day).Add(time.Duration(slot.hour)*time.Hour + time.Duration(slot.minute)*time.Minute)
	jitter := g.rnd.Normal(0, slot.spreadHours*3600)
	return ref.Add(time.Duration(jitter * float64(time.Second)))
}

func dosesForRoutine(doses []model.Dose, routine string) []model.Dose {
	var out []model.Dose
	for _, d := range doses {
		if d.RoutineSCTCode == routine {
			out = append(out, d)
		}
	}
	return out
}

func removeTag(tags []int, tag int) []int {
	for i, t := range tags {
		if t == tag {
			return append(tags[:i], tags[i+1:]...)
		}
	}
	return tags
}
