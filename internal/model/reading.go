package model

// Reading is a blood glucose reading posted to the GDM BFF.
type Reading struct {
	MeasuredTimestamp string        `json:"measured_timestamp"`
	BloodGlucoseValue float64       `json:"blood_glucose_value"`
	PrandialTag       PrandialTag   `json:"prandial_tag"`
	Units             string        `json:"units"`
	Comment           string        `json:"comment"`
	Created           string        `json:"created"`
	Doses             []ReadingDose `json:"doses"`
}

type PrandialTag struct {
	Value int    `json:"value"`
	UUID  string `json:"uuid"`
}

// ReadingDose is a dose the patient reported alongside a reading.
type ReadingDose struct {
	Amount       float64 `json:"amount"`
	MedicationID string  `json:"medication_id"`
}
