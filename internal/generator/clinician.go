package generator

import (
	"errors"

	"github.com/dhos/janitor/internal/model"
)

// ErrNoClinician is returned when no clinician qualifies for a pick.
var ErrNoClinician = errors.New("no active clinician in the requested groups")

// PickClinician chooses a random clinician who belongs to one of groups and
// has no contract expiry date.
func PickClinician(rnd *Rand, clinicians []model.Clinician, groups ...string) (model.Clinician, error) {
	var eligible []model.Clinician
	for _, c := range clinicians {
		if c.ContractExpiryEODDate == nil && c.InAnyGroup(groups...) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return model.Clinician{}, ErrNoClinician
	}
	return Choice(rnd, eligible), nil
}
