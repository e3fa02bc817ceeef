package generator

import (
	"errors"
	"testing"

	"github.com/dhos/janitor/internal/model"
)

func TestPickClinician(t *testing.T) {
	expiry := "2020-01-01"
	clinicians := []model.Clinician{
		{UUID: "a", Groups: []string{"GDM Clinician"}},
		{UUID: "b", Groups: []string{"GDM Superclinician"}},
		{UUID: "c", Groups: []string{"GDM Superclinician"}, ContractExpiryEODDate: &expiry},
		{UUID: "d", Groups: []string{"SEND Clinician"}},
	}
	rnd := NewRand(7)
	for i := 0; i < 50; i++ {
		c, err := PickClinician(rnd, clinicians, "GDM Superclinician")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.UUID != "b" {
			t.Fatalf("picked ineligible clinician %s", c.UUID)
		}
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c, _ := PickClinician(rnd, clinicians, "GDM Clinician", "GDM Superclinician")
		seen[c.UUID] = true
	}
	if !seen["a"] || !seen["b"] || seen["c"] || seen["d"] {
		t.Errorf("unexpected pick distribution %v", seen)
	}

	if _, err := PickClinician(rnd, clinicians, "DBM Clinician"); !errors.Is(err, ErrNoClinician) {
		t.Errorf("expected ErrNoClinician, got %v", err)
	}
}
