package model

// ObservationSet is one NEWS2 observation set posted to the SEND BFF.
type ObservationSet struct {
	RecordTime   string        `json:"record_time"`
	EncounterID  string        `json:"encounter_id"`
	ScoreSystem  string        `json:"score_system"`
	Observations []Observation `json:"observations"`
	SpO2Scale    int           `json:"spo2_scale"`
}

// Observation carries a numeric value, a string value or a refusal. A refused
// observation has no value, string or metadata.
type Observation struct {
	ObservationType     string               `json:"observation_type"`
	ObservationValue    *float64             `json:"observation_value,omitempty"`
	ObservationString   *string              `json:"observation_string,omitempty"`
	ObservationUnit     string               `json:"observation_unit,omitempty"`
	ObservationMetadata *ObservationMetadata `json:"observation_metadata,omitempty"`
	PatientRefused      bool                 `json:"patient_refused,omitempty"`
	MeasuredTime        string               `json:"measured_time"`
}

type ObservationMetadata struct {
	PatientPosition string `json:"patient_position,omitempty"`
	Mask            string `json:"mask,omitempty"`
	MaskPercent     *int   `json:"mask_percent,omitempty"`
}

// Refuse marks the observation as refused and strips its payload.
func (o *Observation) Refuse() {
	o.PatientRefused = true
	o.ObservationValue = nil
	o.ObservationString = nil
	o.ObservationMetadata = nil
}
