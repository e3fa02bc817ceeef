package generator

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/dhos/janitor/internal/model"
)

const sendOpenedDate = "2017-10-19"

// bedsPerParent and baysPerWard are the fixed fan-outs of a generated site.
const (
	baysPerWard   = 3
	bedsPerParent = 3
)

// allowedParents lists the location types each type may hang from. A bed may
// sit in a bay or directly in a ward.
var allowedParents = map[string][]string{
	model.LocationWard: {model.LocationHospital},
	model.LocationBay:  {model.LocationWard},
	model.LocationBed:  {model.LocationBay, model.LocationWard},
}

// LocationGenerator builds SEND location hierarchies.
type LocationGenerator struct {
	rnd *Rand
}

func NewLocationGenerator(rnd *Rand) *LocationGenerator {
	return &LocationGenerator{rnd: rnd}
}

// Make builds a single location. Every type but a hospital needs a parent of
// an allowed type. An empty suffix derives the name from the parent.
func (g *LocationGenerator) Make(locationType string, parent *model.Location, suffix string) (model.Location, error) {
	loc := model.Location{
		UUID:         uuid.NewString(),
		LocationType: locationType,
		ODSCode:      g.rnd.ODSCode(),
		DHProducts:   []model.LocationProduct{{ProductName: model.ProductSEND, OpenedDate: sendOpenedDate}},
		Active:       true,
	}

	if locationType == model.LocationHospital {
		loc.DisplayName = g.rnd.County() + " Hospital"
		if parent != nil {
			loc.Parent = &model.LocationRef{UUID: parent.UUID}
		}
		return loc, nil
	}

	allowed, ok := allowedParents[locationType]
	if !ok {
		return model.Location{}, fmt.Errorf("unknown location type: %s", locationType)
	}
	if parent == nil {
		return model.Location{}, fmt.Errorf("cannot create a location of type %s without parent", locationType)
	}
	if !contains(allowed, parent.LocationType) {
		return model.Location{}, fmt.Errorf("location of type %s cannot have a parent of type %s", locationType, parent.LocationType)
	}

	noun := map[string]string{model.LocationWard: "Ward", model.LocationBay: "Bay", model.LocationBed: "Bed"}[locationType]
	if suffix != "" {
		loc.DisplayName = noun + " " + suffix
	} else {
		loc.DisplayName = fmt.Sprintf("%s %s %s", parent.DisplayName, g.rnd.County(), noun)
	}
	loc.Parent = &model.LocationRef{UUID: parent.UUID}
	return loc, nil
}

// Hierarchy is a generated site in creation order per level.
type Hierarchy struct {
	Hospitals []model.Location
	Wards     []model.Location
	Bays      []model.Location
	Beds      []model.Location
}

// All returns every location parents first, ready to post in order.
func (h Hierarchy) All() []model.Location {
	out := make([]model.Location, 0, len(h.Hospitals)+len(h.Wards)+len(h.Bays)+len(h.Beds))
	out = append(out, h.Hospitals...)
	out = append(out, h.Wards...)
	out = append(out, h.Bays...)
	return append(out, h.Beds...)
}

// Hierarchy generates hospitals and wards spread randomly across them. Half
// of the wards receive three bays. Each ward without bays, and each bay, then
// has an even chance of three beds.
func (g *LocationGenerator) Hierarchy(hospitals, wards int) (Hierarchy, error) {
	var h Hierarchy
	if wards > 0 && hospitals <= 0 {
		return h, fmt.Errorf("cannot create %d wards without a hospital", wards)
	}
	for i := 0; i < hospitals; i++ {
		loc, err := g.Make(model.LocationHospital, nil, "")
		if err != nil {
			return h, err
		}
		h.Hospitals = append(h.Hospitals, loc)
	}
	for i := 0; i < wards; i++ {
		parent := Choice(g.rnd, h.Hospitals)
		loc, err := g.Make(model.LocationWard, &parent, strconv.Itoa(i+1))
		if err != nil {
			return h, err
		}
		h.Wards = append(h.Wards, loc)
	}

	var bedParents []model.Location
	for i := range h.Wards {
		if g.rnd.IntN(2) == 0 {
			bedParents = append(bedParents, h.Wards[i])
			continue
		}
		for j := 0; j < baysPerWard; j++ {
			bay, err := g.Make(model.LocationBay, &h.Wards[i], strconv.Itoa(j+1))
			if err != nil {
				return h, err
			}
			h.Bays = append(h.Bays, bay)
		}
	}
	bedParents = append(bedParents, h.Bays...)

	for i := range bedParents {
		if g.rnd.IntN(2) == 0 {
			continue
		}
		for j := 0; j < bedsPerParent; j++ {
			bed, err := g.Make(model.LocationBed, &bedParents[i], strconv.Itoa(j+1))
			if err != nil {
				return h, err
			}
			h.Beds = append(h.Beds, bed)
		}
	}
	return h, nil
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
