package generator

import (
	"fmt"
	"time"

	"github.com/dhos/janitor/internal/model"
)

// setBoundary keeps generated sets strictly inside the encounter.
const setBoundary = 500 * time.Microsecond

// weightedSetCounts biases the number of sets per encounter towards fewer
// than ten.
var weightedSetCounts = func() []int {
	out := make([]int, 0, 49+90)
	for i := 1; i < 50; i++ {
		out = append(out, i)
	}
	for i := 1; i <= 9; i++ {
		for j := 0; j < 10; j++ {
			out = append(out, i)
		}
	}
	return out
}()

// Minutes between sets, indexed by Trajectory.
var setGapMinutes = [...]intRange{
	{15, 90},
	{90, 3 * 60},
	{3 * 60, 8 * 60},
	{8 * 60, 24 * 60},
}

// History walks backwards from the end of the encounter (its discharge, or
// now while still admitted) and builds observation sets at gaps set by a
// random trajectory, stopping at admission or at a random set count. Roughly
// one slot in ten is missed and empty sets are dropped. Sets are returned
// oldest first, all recorded strictly inside the encounter.
func (g *ObservationsGenerator) History(enc model.Encounter, now time.Time) ([]model.ObservationSet, error) {
	admitted, err := model.ParseTime(enc.AdmittedAt)
	if err != nil {
		return nil, fmt.Errorf("encounter %s admitted_at: %w", enc.ID(), err)
	}
	admitted = admitted.Add(setBoundary)

	current := now.UTC()
	if enc.DischargedAt != nil {
		discharged, err := model.ParseTime(*enc.DischargedAt)
		if err != nil {
			return nil, fmt.Errorf("encounter %s discharged_at: %w", enc.ID(), err)
		}
		current = discharged.Add(-setBoundary)
	}

	scale := enc.SpO2Scale
	if scale == 0 {
		scale = 1
	}
	trajectory := g.RandomTrajectory()
	limit := Choice(g.rnd, weightedSetCounts)
	gap := setGapMinutes[trajectory]

	var sets []model.ObservationSet
	for current.After(admitted) && len(sets) < limit {
		current = current.Add(-time.Duration(g.rnd.Between(gap.lo, gap.hi)) * time.Minute)
		if !current.After(admitted) {
			break
		}
		if g.rnd.Float64() > 0.9 {
			continue
		}
		set := g.Generate(enc.ID(), scale, current, trajectory)
		if len(set.Observations) == 0 {
			continue
		}
		sets = append(sets, set)
	}
	for i, j := 0, len(sets)-1; i < j; i, j = i+1, j-1 {
		sets[i], sets[j] = sets[j], sets[i]
	}
	return sets, nil
}
