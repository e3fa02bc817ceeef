// Package fixtures embeds the static seed data posted during a reset: the
// clinician accounts, the fixed location tree, role permissions, questions
// and telemetry installations.
package fixtures

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dhos/janitor/internal/model"
)

//go:embed data/*.yaml
var files embed.FS

// ClinicianPassword is set on every seeded clinician.
const ClinicianPassword = "Pass@word1!"

// Role is a named permission set.
type Role struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// Questions holds the questions API seed documents. Documents are posted
// as-is, so they stay untyped.
type Questions struct {
	QuestionTypes       []map[string]any `yaml:"question_type"`
	QuestionOptionTypes []map[string]any `yaml:"question_option_type"`
	Questions           []map[string]any `yaml:"question"`
}

// Telemetry holds app installation records.
type Telemetry struct {
	Mobile  []map[string]any `yaml:"mobile"`
	Desktop []map[string]any `yaml:"desktop"`
}

// Set is the full seed data.
type Set struct {
	Clinicians []model.Clinician
	Locations  []model.Location
	Roles      []Role
	Questions  Questions
	Telemetry  Telemetry
}

// Load decodes every embedded file.
func Load() (*Set, error) {
	var (
		s         Set
		clinician struct {
			Clinician []model.Clinician `yaml:"clinician"`
		}
		location struct {
			Location []model.Location `yaml:"location"`
		}
		roles struct {
			Roles []Role `yaml:"roles"`
		}
	)
	for name, out := range map[string]any{
		"clinicians.yaml": &clinician,
		"locations.yaml":  &location,
		"roles.yaml":      &roles,
		"questions.yaml":  &s.Questions,
		"telemetry.yaml":  &s.Telemetry,
	} {
		if err := decode(name, out); err != nil {
			return nil, err
		}
	}
	s.Clinicians = clinician.Clinician
	s.Locations = location.Location
	s.Roles = roles.Roles
	return &s, nil
}

// MustLoad is Load for package-level initialisation.
func MustLoad() *Set {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

func decode(name string, out any) error {
	raw, err := files.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Permissions returns the permissions of the named role.
func (s *Set) Permissions(role string) ([]string, error) {
	for _, r := range s.Roles {
		if r.Name == role {
			return r.Permissions, nil
		}
	}
	return nil, fmt.Errorf("no permissions found for role %q", role)
}

// GroupPermissions returns the sorted union of permissions across groups.
func (s *Set) GroupPermissions(groups []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, g := range groups {
		perms, err := s.Permissions(g)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Clinician finds a seeded clinician by email or uuid. Either may be empty
// but not both.
func (s *Set) Clinician(email, uuid string) (model.Clinician, error) {
	if email == "" && uuid == "" {
		return model.Clinician{}, fmt.Errorf("either clinician email or uuid is required")
	}
	for _, c := range s.Clinicians {
		if (email != "" && c.EmailAddress == email) || (uuid != "" && c.UUID == uuid) {
			return c, nil
		}
	}
	return model.Clinician{}, fmt.Errorf("no clinician found with email %q or uuid %q", email, uuid)
}

// ClinicianForPost returns the clinician ready to create, with relative
// contract expiry dates resolved against now.
func ClinicianForPost(c model.Clinician, now time.Time) (model.Clinician, error) {
	if c.ContractExpiryEODDate == nil {
		return c, nil
	}
	resolved, err := ExpandDate(*c.ContractExpiryEODDate, now)
	if err != nil {
		return c, fmt.Errorf("clinician %s: %w", c.UUID, err)
	}
	c.ContractExpiryEODDate = &resolved
	return c, nil
}

var todayPattern = regexp.MustCompile(`^\{today(?::([+-]?\d+))?\}$`)

// ExpandDate turns "{today}" or "{today:+N}" into a YYYY-MM-DD date N days
// from now. Any other value is returned unchanged.
func ExpandDate(v string, now time.Time) (string, error) {
	m := todayPattern.FindStringSubmatch(v)
	if m == nil {
		return v, nil
	}
	days := 0
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("invalid date offset %q: %w", v, err)
		}
		days = n
	}
	return now.UTC().AddDate(0, 0, days).Format(model.DateLayout), nil
}

// Active reports whether a clinician has no contract expiry set.
func Active(c model.Clinician) bool {
	return c.ContractExpiryEODDate == nil
}

// LocationsFor returns the seeded locations enabled for any of products.
func (s *Set) LocationsFor(products ...string) []model.Location {
	var out []model.Location
	for _, l := range s.Locations {
		for _, p := range products {
			if l.HasProduct(p) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
