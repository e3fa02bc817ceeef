package model

import (
	"bytes"
	"encoding/json"
)

// SNOMED location type codes.
const (
	LocationHospital = "22232009"
	LocationWard     = "225746001"
	LocationBay      = "225730009"
	LocationBed      = "229772003"
)

// Location is a node in the hospital > ward > bay > bed hierarchy.
type Location struct {
	UUID         string            `json:"uuid" yaml:"uuid"`
	LocationType string            `json:"location_type" yaml:"location_type"`
	ODSCode      string            `json:"ods_code,omitempty" yaml:"ods_code"`
	DisplayName  string            `json:"display_name" yaml:"display_name"`
	DHProducts   []LocationProduct `json:"dh_products" yaml:"dh_products"`
	Active       bool              `json:"active" yaml:"active"`
	Parent       *LocationRef      `json:"parent" yaml:"parent"`
}

type LocationProduct struct {
	ProductName string `json:"product_name" yaml:"product_name"`
	OpenedDate  string `json:"opened_date" yaml:"opened_date"`
}

// HasProduct reports whether the location is enabled for the named product.
func (l Location) HasProduct(name string) bool {
	for _, p := range l.DHProducts {
		if p.ProductName == name {
			return true
		}
	}
	return false
}

// ParentUUID returns the parent's uuid or "" for a root location.
func (l Location) ParentUUID() string {
	if l.Parent == nil {
		return ""
	}
	return l.Parent.UUID
}

// LocationRef points at a parent location. The locations API accepts a bare
// uuid on create and returns an object on search; both decode here.
type LocationRef struct {
	UUID string
}

func (r LocationRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.UUID)
}

func (r *LocationRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			UUID string `json:"uuid"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		r.UUID = obj.UUID
		return nil
	}
	return json.Unmarshal(b, &r.UUID)
}

func (r *LocationRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshal(&r.UUID)
}

// LocationIndex maps location uuid to location, as returned by location search.
type LocationIndex map[string]Location
