package model

import "strings"

// Clinician is the users API clinician resource.
type Clinician struct {
	UUID                  string             `json:"uuid" yaml:"uuid"`
	FirstName             string             `json:"first_name" yaml:"first_name"`
	LastName              string             `json:"last_name" yaml:"last_name"`
	PhoneNumber           string             `json:"phone_number,omitempty" yaml:"phone_number"`
	JobTitle              string             `json:"job_title,omitempty" yaml:"job_title"`
	NHSSmartcardNumber    string             `json:"nhs_smartcard_number,omitempty" yaml:"nhs_smartcard_number"`
	SendEntryIdentifier   string             `json:"send_entry_identifier,omitempty" yaml:"send_entry_identifier"`
	EmailAddress          string             `json:"email_address" yaml:"email_address"`
	LoginActive           bool               `json:"login_active" yaml:"login_active"`
	CanEditEWS            bool               `json:"can_edit_ews" yaml:"can_edit_ews"`
	ContractExpiryEODDate *string            `json:"contract_expiry_eod_date,omitempty" yaml:"contract_expiry_eod_date"`
	Groups                []string           `json:"groups" yaml:"groups"`
	Products              []ClinicianProduct `json:"products" yaml:"products"`
	Locations             []string           `json:"locations" yaml:"locations"`
}

type ClinicianProduct struct {
	ProductName string `json:"product_name" yaml:"product_name"`
	OpeningDate string `json:"opening_date" yaml:"opening_date"`
}

// InAnyGroup reports whether the clinician belongs to one of groups.
func (c Clinician) InAnyGroup(groups ...string) bool {
	for _, have := range c.Groups {
		for _, want := range groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasProduct reports whether the clinician works on the named product,
// compared case-insensitively.
func (c Clinician) HasProduct(name string) bool {
	for _, p := range c.Products {
		if strings.EqualFold(p.ProductName, name) {
			return true
		}
	}
	return false
}
