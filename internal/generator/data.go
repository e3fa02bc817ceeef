package generator

import (
	"fmt"
	"strings"

	"github.com/dhos/janitor/internal/model"
)

var houseNames = []string{
	"The Amazons", "School House", "Ivy Cottage", "The White House", "Number Ten", "The Barn",
}

var roadNames = []string{
	"High Street", "Second Avenue", "Little Timber Road", "Iron Peach Pike",
	"Cinder Blossom Street", "Orange Pond Farms", "Mill Byway", "Stony Bridge Park",
	"Still Nest Street", "Bleak Trout Street",
}

type area struct {
	locality, region, postcodePrefix string
}

var areas = []area{
	{"Oxford", "Oxfordshire", "OX"},
	{"Cambridge", "Cambridgeshire", "CB"},
	{"Canterbury", "Kent", "CT"},
	{"Nottingham", "Nottinghamshire", "NG"},
	{"Reading", "Berkshire", "RG"},
	{"Manchester", "Greater Manchester", "M"},
	{"Putney", "Wandsworth", "SW"},
	{"Chelsea", "Kensington and Chelsea", "SW"},
}

var counties = []string{
	"Oxfordshire", "Berkshire", "Kent", "Surrey", "Devon", "Cornwall", "Norfolk",
	"Suffolk", "Cumbria", "Lancashire", "Yorkshire", "Dorset", "Somerset", "Essex",
}

// DatesOfBirth is the pool patient dates of birth are drawn from.
var DatesOfBirth = []string{
	"1999-10-01", "1985-07-01", "1992-04-23", "1990-07-17",
	"1998-01-02", "2000-04-23", "1987-12-12", "1981-12-23",
}

var noteContents = []string{
	"The patient looked well today",
	"Patient is doing brilliantly",
	"Patient expressed concerns about blood glucose levels",
	"Reminded patients to add comments to blood glucose readings",
	"Asked patients to tag their readings",
	"Need to ask patient about their meal schedule",
	"Note to check on patient's medication",
	"Patient has been struggling lately",
	"Discussed diet with patient",
	"Had good discussion with patient about managing blood glucose levels",
}

var femaleFirstNames = []string{
	"Amelia", "Olivia", "Isla", "Emily", "Poppy", "Ava", "Isabella", "Jessica",
	"Lily", "Sophie", "Grace", "Sophia", "Mia", "Evie", "Ruby", "Ella", "Scarlett",
	"Chloe", "Freya", "Charlotte", "Sienna", "Daisy", "Phoebe", "Millie", "Eva",
}

var maleFirstNames = []string{
	"Oliver", "Jack", "Harry", "Jacob", "Charlie", "Thomas", "George", "Oscar",
	"James", "William", "Noah", "Alfie", "Joshua", "Muhammad", "Henry", "Leo",
	"Archie", "Ethan", "Joseph", "Freddie", "Samuel", "Alexander", "Logan", "Daniel",
}

// FirstName returns a given name matching sex ("female" or "male"). Any other
// value draws from the combined pool.
func (r *Rand) FirstName(sex string) string {
	switch sex {
	case "female":
		return Choice(r, femaleFirstNames)
	case "male":
		return Choice(r, maleFirstNames)
	default:
		return r.fake.FirstName()
	}
}

// LastName returns a family name.
func (r *Rand) LastName() string {
	return r.fake.LastName()
}

// County returns an English county name.
func (r *Rand) County() string {
	return Choice(r, counties)
}

// ODSCode returns a random organisation code such as "ABC12".
func (r *Rand) ODSCode() string {
	return strings.ToUpper(strings.ReplaceAll(r.fake.Lexify("???")+r.fake.Numerify("##"), " ", ""))
}

// MRN returns a hospital number of 6 to 11 digits.
func (r *Rand) MRN() string {
	return r.fake.Numerify(strings.Repeat("#", r.Between(6, 11)))
}

// Address returns a random UK personal address.
func (r *Rand) Address() model.Address {
	road := Choice(r, roadNames)
	var line1 string
	if r.Between(1, 10) < 4 {
		line1 = fmt.Sprintf("%s %s", Choice(r, houseNames), road)
	} else {
		line1 = fmt.Sprintf("%d %s", r.Between(1, 200), road)
	}
	a := Choice(r, areas)
	return model.Address{
		AddressLine1: line1,
		Locality:     a.locality,
		Region:       a.region,
		Postcode:     r.Postcode(a.postcodePrefix),
	}
}

// Postcode formats a postcode from an outward prefix, for example "OX3 4AB".
func (r *Rand) Postcode(prefix string) string {
	const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return fmt.Sprintf("%s%d %d%c%c", prefix, r.Between(1, 9), r.Between(1, 9),
		upper[r.IntN(len(upper))], upper[r.IntN(len(upper))])
}
