package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/dhos/janitor/internal/model"
)

const (
	encounterTypeInpatient = "INPATIENT"
	midnightSuffix         = "T00:00:00.000Z"
)

// EncounterGenerator admits patients to SEND locations. Leaf locations only
// are offered: a ward that has bays or beds, or a bay that has beds, is never
// allocated. A bed holds at most one encounter per generator.
type EncounterGenerator struct {
	rnd       *Rand
	available map[string]model.Location
	order     []string
	now       func() time.Time
}

// NewEncounterGenerator builds the pool of allocatable locations from the
// SEND wards, bays and beds.
func NewEncounterGenerator(rnd *Rand, wards, bays, beds model.LocationIndex) *EncounterGenerator {
	w := copyIndex(wards)
	b := copyIndex(bays)
	for _, bay := range bays {
		delete(w, bay.ParentUUID())
	}
	for _, bed := range beds {
		delete(w, bed.ParentUUID())
		delete(b, bed.ParentUUID())
	}

	available := make(map[string]model.Location, len(w)+len(b)+len(beds))
	for _, idx := range []model.LocationIndex{w, b, beds} {
		for id, loc := range idx {
			available[id] = loc
		}
	}
	order := make([]string, 0, len(available))
	for id := range available {
		order = append(order, id)
	}
	sort.Strings(order)

	return &EncounterGenerator{rnd: rnd, available: available, order: order, now: time.Now}
}

// Available reports how many locations can still be allocated.
func (g *EncounterGenerator) Available() int {
	return len(g.order)
}

// RandomLocation picks an allocatable location. A bed is removed from the
// pool once picked.
func (g *EncounterGenerator) RandomLocation() (model.Location, error) {
	if len(g.order) == 0 {
		return model.Location{}, ErrNoLocations
	}
	i := g.rnd.IntN(len(g.order))
	loc := g.available[g.order[i]]
	if loc.LocationType == model.LocationBed {
		delete(g.available, loc.UUID)
		g.order = append(g.order[:i], g.order[i+1:]...)
	}
	return loc, nil
}

// RandomDate returns base plus five to ten days, or today if that is later
// than today. base is a calendar date.
func (g *EncounterGenerator) RandomDate(base string) (string, error) {
	d, err := time.Parse(model.DateLayout, base)
	if err != nil {
		return "", fmt.Errorf("encounter base date %q: %w", base, err)
	}
	d = d.AddDate(0, 0, g.rnd.Between(5, 10))
	if today := model.StartOfDay(g.now()); !d.Before(today) {
		d = today
	}
	return d.Format(model.DateLayout), nil
}

// Generate builds an inpatient encounter for p, admitted shortly after its
// first product opened and optionally discharged a few days later.
func (g *EncounterGenerator) Generate(p *model.Patient, discharged bool) (model.Encounter, error) {
	if p == nil {
		return model.Encounter{}, ErrMissingPatient
	}
	if len(p.DHProducts) == 0 {
		return model.Encounter{}, fmt.Errorf("patient %s has no products", p.UUID)
	}
	product := p.DHProducts[0]

	admitted, err := g.RandomDate(product.OpenedDate)
	if err != nil {
		return model.Encounter{}, err
	}
	loc, err := g.RandomLocation()
	if err != nil {
		return model.Encounter{}, err
	}

	enc := model.Encounter{
		EPREncounterID:    fmt.Sprintf("2018L%08d", 1+g.rnd.IntN(100_000_000-1)),
		EncounterType:     encounterTypeInpatient,
		AdmittedAt:        admitted + midnightSuffix,
		LocationUUID:      loc.UUID,
		PatientRecordUUID: p.Record.UUID,
		PatientUUID:       p.UUID,
		DHProductUUID:     product.UUID,
		SpO2Scale:         1,
		ScoreSystem:       ScoreSystemNEWS2,
	}
	if discharged {
		d, err := g.RandomDate(admitted)
		if err != nil {
			return model.Encounter{}, err
		}
		enc.DischargedAt = strPtr(d + midnightSuffix)
	}
	return enc, nil
}

func copyIndex(idx model.LocationIndex) model.LocationIndex {
	out := make(model.LocationIndex, len(idx))
	for k, v := range idx {
		out[k] = v
	}
	return out
}
