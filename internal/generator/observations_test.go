package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhos/janitor/internal/model"
)

func valueOf(t *testing.T, o model.Observation) float64 {
	t.Helper()
	require.NotNil(t, o.ObservationValue, "%s has no value", o.ObservationType)
	return *o.ObservationValue
}

func TestObservationsGenerator_FineStaysInNormalRanges(t *testing.T) {
	g := NewObservationsGenerator(NewRand(7))
	recorded := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2000; i++ {
		set := g.Generate("enc-1", 1, recorded, Fine)
		for _, o := range set.Observations {
			if o.PatientRefused {
				continue
			}
			switch o.ObservationType {
			case ObsSpO2:
				v := valueOf(t, o)
				assert.True(t, v >= 96 && v <= 100, "spo2 %v", v)
			case ObsHeartRate:
				v := valueOf(t, o)
				assert.True(t, v >= 51 && v <= 90, "heart rate %v", v)
			case ObsTemperature:
				v := valueOf(t, o)
				assert.True(t, v >= 36.5 && v <= 37.5, "temperature %v", v)
			case ObsRespiratoryRate:
				v := valueOf(t, o)
				assert.True(t, v >= 12 && v <= 20, "respiratory rate %v", v)
			case ObsSystolic:
				v := valueOf(t, o)
				assert.True(t, v >= 110 && v <= 140, "systolic %v", v)
			case ObsConsciousness:
				assert.Equal(t, "Alert", *o.ObservationString)
			}
		}
	}
}

func TestObservationsGenerator_VeryIllWidensRanges(t *testing.T) {
	g := NewObservationsGenerator(NewRand(8))
	recorded := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	lowest := 100.0
	for i := 0; i < 3000; i++ {
		for _, o := range g.Generate("enc-1", 2, recorded, VeryIll).Observations {
			if o.ObservationType == ObsSpO2 && !o.PatientRefused {
				v := valueOf(t, o)
				assert.True(t, v >= 80 && v <= 100, "spo2 %v", v)
				lowest = min(lowest, v)
			}
		}
	}
	assert.Less(t, lowest, 96.0, "very ill patients should produce low saturations")
}

func TestObservationsGenerator_SetShape(t *testing.T) {
	g := NewObservationsGenerator(NewRand(9))
	recorded := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2000; i++ {
		set := g.Generate("enc-9", 2, recorded, Trajectory(i%4))
		assert.Equal(t, "enc-9", set.EncounterID)
		assert.Equal(t, ScoreSystemNEWS2, set.ScoreSystem)
		assert.Equal(t, 2, set.SpO2Scale)
		assert.Equal(t, model.FormatTime(recorded), set.RecordTime)

		var systolic, diastolic *model.Observation
		for j := range set.Observations {
			o := set.Observations[j]
			measured, err := model.ParseTime(o.MeasuredTime)
			require.NoError(t, err)
			offset := measured.Sub(recorded)
			assert.True(t, offset >= 0 && offset <= 3*time.Minute, "measured offset %s", offset)

			if o.PatientRefused {
				assert.Nil(t, o.ObservationValue)
				assert.Nil(t, o.ObservationString)
				assert.Nil(t, o.ObservationMetadata)
			}
			switch o.ObservationType {
			case ObsO2TherapyStatus, ObsConsciousness, ObsNurseConcern:
				assert.False(t, o.PatientRefused, "%s must not be refused", o.ObservationType)
			case ObsSystolic:
				systolic = &set.Observations[j]
			case ObsDiastolic:
				diastolic = &set.Observations[j]
			}
		}

		require.Equal(t, systolic == nil, diastolic == nil, "blood pressure must come as a pair")
		if systolic != nil {
			assert.Equal(t, systolic.PatientRefused, diastolic.PatientRefused)
			if !systolic.PatientRefused {
				assert.Equal(t, systolic.ObservationMetadata.PatientPosition, diastolic.ObservationMetadata.PatientPosition)
				gap := valueOf(t, *systolic) - valueOf(t, *diastolic)
				assert.True(t, gap >= 40 && gap <= 60, "pulse pressure %v", gap)
			}
		}
	}
}

func TestObservationsGenerator_MaskMetadata(t *testing.T) {
	g := NewObservationsGenerator(NewRand(10))
	sawRoomAir, sawMask := false, false

	for i := 0; i < 2000; i++ {
		o := g.mask(VeryIll)
		require.Equal(t, ObsO2TherapyStatus, o.ObservationType)
		require.NotNil(t, o.ObservationMetadata)
		v := valueOf(t, o)

		switch o.ObservationMetadata.Mask {
		case roomAir:
			sawRoomAir = true
			assert.Equal(t, 0.0, v)
			assert.Equal(t, litresPerMinuteUnit, o.ObservationUnit)
		case highFlow:
			sawMask = true
			assert.Equal(t, percentUnit, o.ObservationUnit)
			assert.True(t, v >= 1 && v <= 100)
		case "Venturi":
			sawMask = true
			require.NotNil(t, o.ObservationMetadata.MaskPercent)
			assert.Contains(t, venturiPercentages, *o.ObservationMetadata.MaskPercent)
		case "Humidified":
			sawMask = true
			require.NotNil(t, o.ObservationMetadata.MaskPercent)
			assert.Contains(t, humidifiedPercentages, *o.ObservationMetadata.MaskPercent)
		default:
			sawMask = true
			assert.Nil(t, o.ObservationMetadata.MaskPercent)
			assert.True(t, v >= 0 && v <= 15, "flow %v", v)
		}
	}
	assert.True(t, sawRoomAir)
	assert.True(t, sawMask)
}

func TestObservationsGenerator_RandomTrajectoryMostlyFine(t *testing.T) {
	g := NewObservationsGenerator(NewRand(11))
	counts := map[Trajectory]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[g.RandomTrajectory()]++
	}
	assert.InDelta(t, 0.75, float64(counts[Fine])/n, 0.02)
	assert.InDelta(t, 0.05, float64(counts[VeryIll])/n, 0.01)
}

func TestObservationsGenerator_HistoryInsideEncounter(t *testing.T) {
	g := NewObservationsGenerator(NewRand(12))
	discharged := "2021-05-20T00:00:00.000Z"
	enc := model.Encounter{
		UUID:         "enc-7",
		AdmittedAt:   "2021-05-01T00:00:00.000Z",
		DischargedAt: &discharged,
		SpO2Scale:    2,
	}
	admitted, _ := model.ParseTime(enc.AdmittedAt)
	end, _ := model.ParseTime(discharged)

	for i := 0; i < 50; i++ {
		sets, err := g.History(enc, fixedNow)
		require.NoError(t, err)
		var prev time.Time
		for _, s := range sets {
			rec, err := model.ParseTime(s.RecordTime)
			require.NoError(t, err)
			assert.True(t, rec.After(admitted) && rec.Before(end), "set at %s outside encounter", s.RecordTime)
			assert.True(t, prev.IsZero() || rec.After(prev), "sets out of order")
			assert.NotEmpty(t, s.Observations)
			assert.Equal(t, "enc-7", s.EncounterID)
			assert.Equal(t, 2, s.SpO2Scale)
			prev = rec
		}
	}
}

func TestObservationsGenerator_HistoryRejectsBadAdmission(t *testing.T) {
	g := NewObservationsGenerator(NewRand(13))
	_, err := g.History(model.Encounter{UUID: "enc-1", AdmittedAt: "soon"}, fixedNow)
	assert.Error(t, err)
}
