// Package generator produces synthetic clinical data: patients, locations,
// encounters, messages, blood glucose readings and NEWS2 observation sets.
//
// Every generator draws from an injected *Rand so that a run can be replayed
// from its seed. A Rand is not safe for concurrent use; build one per run.
package generator

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

var (
	// ErrMissingPatient is returned when a generator is handed no patient.
	ErrMissingPatient = errors.New("patient object missing")
	// ErrNoDiagnosis is returned when a patient has no diabetes diagnosis.
	ErrNoDiagnosis = errors.New("valid diagnosis missing")
	// ErrNoLocations is returned when no location is left to allocate.
	ErrNoLocations = errors.New("no available locations")
)

// Rand bundles the numeric source and the fake-data source of one run.
type Rand struct {
	*rand.Rand
	fake *gofakeit.Faker
}

// NewRand returns a Rand seeded deterministically from seed.
func NewRand(seed uint64) *Rand {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Rand{Rand: r, fake: gofakeit.New(r.Uint64())}
}

// NewTimeSeededRand returns a Rand seeded from the wall clock.
func NewTimeSeededRand() *Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

// Between returns a uniform integer in [lo, hi], both ends inclusive.
func (r *Rand) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Normal samples a normal distribution.
func (r *Rand) Normal(mean, sigma float64) float64 {
	return mean + sigma*r.NormFloat64()
}

// Fake exposes the fake-data source.
func (r *Rand) Fake() *gofakeit.Faker {
	return r.fake
}

// Choice picks one element of items uniformly. items must not be empty.
func Choice[T any](r *Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
