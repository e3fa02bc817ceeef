package generator

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhos/janitor/internal/model"
)

var fixedNow = time.Date(2021, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestReadings(t *testing.T, profile string) *ReadingsGenerator {
	t.Helper()
	g := NewReadingsGenerator(NewRand(42), profile, zerolog.Nop())
	g.now = func() time.Time { return fixedNow }
	return g
}

func diabeticPatient(created time.Time, readingsPerDay int, doses ...model.Dose) *model.Patient {
	return &model.Patient{
		UUID:  "patient-1",
		Audit: model.Audit{Created: model.FormatTime(created)},
		Record: model.Record{Diagnoses: []model.Diagnosis{{
			SCTCode:        DiabetesGDM,
			ManagementPlan: &model.ManagementPlan{Doses: doses},
			ReadingsPlan:   &model.ReadingsPlan{DaysPerWeekToTakeReadings: 7, ReadingsPerDay: readingsPerDay},
		}}},
	}
}

func TestReadingsGenerator_UnknownProfileFallsBackToRandomChoice(t *testing.T) {
	g := NewReadingsGenerator(NewRand(1), "NOT-A-PROFILE", zerolog.Nop())
	_, ok := ProfileByName(g.Profile().Name)
	assert.True(t, ok)

	g = NewReadingsGenerator(NewRand(1), "low", zerolog.Nop())
	assert.Equal(t, "LOW", g.Profile().Name)
}

func TestReadingsGenerator_ValueNeverBelowFloor(t *testing.T) {
	g := newTestReadings(t, "HIGH")
	for i := 0; i < 5000; i++ {
		tag := 1 + i%7
		v := g.Value(tag)
		require.GreaterOrEqual(t, v, MinReadingValue)
		assert.Equal(t, round1(v), v, "value should be rounded to one decimal place")
	}
}

func TestReadingsGenerator_TimestampCentredOnPrandialSlot(t *testing.T) {
	g := newTestReadings(t, "AVERAGE")
	day := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	ref := day.Add(7 * time.Hour)

	const n = 4000
	var total time.Duration
	for i := 0; i < n; i++ {
		total += g.Timestamp(day, 1).Sub(ref)
	}
	mean := total / n
	assert.Less(t, mean.Abs(), 10*time.Minute, "mean offset from 07:00 was %s", mean)
}

func TestReadingsGenerator_MissingPatient(t *testing.T) {
	g := newTestReadings(t, "LOW")
	_, err := g.Generate(nil)
	assert.ErrorIs(t, err, ErrMissingPatient)
}

func TestReadingsGenerator_MissingDiagnosis(t *testing.T) {
	g := newTestReadings(t, "LOW")
	p := diabeticPatient(fixedNow.AddDate(0, 0, -30), 4)
	p.Record.Diagnoses[0].SCTCode = "38341003"

	_, err := g.Generate(p)
	assert.ErrorIs(t, err, ErrNoDiagnosis)
}

func TestReadingsGenerator_GenerateSortedAndBounded(t *testing.T) {
	breakfast := model.Dose{MedicationID: "med-breakfast", DoseAmount: 1, RoutineSCTCode: RoutineBreakfast}
	dinner := model.Dose{MedicationID: "med-dinner", DoseAmount: 2, RoutineSCTCode: RoutineDinner}

	for seed := uint64(0); seed < 20; seed++ {
		g := NewReadingsGenerator(NewRand(seed), "", zerolog.Nop())
		g.now = func() time.Time { return fixedNow }
		readings, err := g.Generate(diabeticPatient(fixedNow.AddDate(0, 0, -200), 7, breakfast, dinner))
		require.NoError(t, err)

		earliest := model.StartOfDay(fixedNow).AddDate(0, 0, -maxHistoryDays)
		for i, r := range readings {
			if i > 0 {
				assert.LessOrEqual(t, readings[i-1].Created, r.Created)
			}
			assert.GreaterOrEqual(t, r.BloodGlucoseValue, MinReadingValue)
			assert.Equal(t, readingUnits, r.Units)
			assert.Equal(t, PrandialTagUUID(r.PrandialTag.Value), r.PrandialTag.UUID)
			assert.True(t, r.PrandialTag.Value >= 1 && r.PrandialTag.Value <= 7)

			ts, err := model.ParseTime(r.MeasuredTimestamp)
			require.NoError(t, err)
			// Tag 7 readings spread twelve hours either side of midday.
			assert.True(t, ts.After(earliest.AddDate(0, 0, -4)), "reading %s outside the history window", r.MeasuredTimestamp)
			assert.True(t, ts.Before(fixedNow.AddDate(0, 0, 4)), "reading %s outside the history window", r.MeasuredTimestamp)

			for _, d := range r.Doses {
				switch r.PrandialTag.Value {
				case 1:
					assert.Equal(t, "med-breakfast", d.MedicationID)
				case 5:
					assert.Equal(t, "med-dinner", d.MedicationID)
				default:
					t.Errorf("dose recorded against non-meal tag %d", r.PrandialTag.Value)
				}
				assert.True(t, d.Amount >= 0 && d.Amount <= 99)
			}
		}
	}
}

func TestReadingsGenerator_NewPatientHasNoHistory(t *testing.T) {
	g := newTestReadings(t, "LOW")
	readings, err := g.Generate(diabeticPatient(fixedNow, 4))
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestReadingsGenerator_DayStopsWhenTagsExhausted(t *testing.T) {
	g := newTestReadings(t, "LOW")
	g.profile.MissProbability = 0
	g.profile.ExtraProbability = 0

	day := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	readings := g.day(day, 50, nil)
	assert.Len(t, readings, 7)

	seen := map[int]bool{}
	for _, r := range readings {
		assert.False(t, seen[r.PrandialTag.Value], "tag %d used twice", r.PrandialTag.Value)
		seen[r.PrandialTag.Value] = true
	}
}

func TestReadingsGenerator_MealsConsumeBeforeMealTags(t *testing.T) {
	g := newTestReadings(t, "LOW")
	g.profile.MissProbability = 0
	g.profile.ExtraProbability = 0
	doses := []model.Dose{
		{MedicationID: "b", RoutineSCTCode: RoutineBreakfast},
		{MedicationID: "l", RoutineSCTCode: RoutineLunch},
		{MedicationID: "d", RoutineSCTCode: RoutineDinner},
	}

	readings := g.day(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), 3, doses)
	require.Len(t, readings, 3)
	// Dinner is consumed first, breakfast last.
	assert.Equal(t, []int{5, 3, 1}, []int{
		readings[0].PrandialTag.Value, readings[1].PrandialTag.Value, readings[2].PrandialTag.Value,
	})
	for _, r := range readings {
		assert.Len(t, r.Doses, 1)
	}
}
