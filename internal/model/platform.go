package model

// TrustomerConfig is the subset of the customer configuration document the
// janitor depends on.
type TrustomerConfig struct {
	GDMConfig GDMConfig `json:"gdm_config"`
}

type GDMConfig struct {
	UseEPRIntegration bool     `json:"use_epr_integration"`
	MedicationTags    []string `json:"medication_tags"`
}

// Medication is a medication catalogue entry.
type Medication struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	SCTCode string `json:"sct_code"`
	Unit    string `json:"unit"`
}

// Activation is a patient or device activation issued by activation-auth.
type Activation struct {
	ActivationCode string `json:"activation_code"`
	OTP            string `json:"otp,omitempty"`
}

// Device is a SEND ward tablet registered with activation-auth.
type Device struct {
	UUID        string `json:"uuid"`
	LocationID  string `json:"location_id"`
	Description string `json:"description"`
}
