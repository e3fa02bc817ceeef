package model

// Encounter is an inpatient admission as stored by the encounters API. The
// SEND BFF search reports the encounter id as encounter_uuid.
type Encounter struct {
	UUID              string  `json:"uuid,omitempty"`
	EncounterUUID     string  `json:"encounter_uuid,omitempty"`
	EPREncounterID    string  `json:"epr_encounter_id"`
	EncounterType     string  `json:"encounter_type"`
	AdmittedAt        string  `json:"admitted_at"`
	DischargedAt      *string `json:"discharged_at,omitempty"`
	LocationUUID      string  `json:"location_uuid"`
	PatientRecordUUID string  `json:"patient_record_uuid"`
	PatientUUID       string  `json:"patient_uuid"`
	DHProductUUID     string  `json:"dh_product_uuid"`
	SpO2Scale         int     `json:"spo2_scale"`
	ScoreSystem       string  `json:"score_system"`
}

// ID returns whichever encounter identifier the source populated.
func (e Encounter) ID() string {
	if e.EncounterUUID != "" {
		return e.EncounterUUID
	}
	return e.UUID
}

// ScoreSystemHistory is one entry of an encounter's score system changes.
type ScoreSystemHistory struct {
	UUID        string `json:"uuid"`
	SpO2Scale   int    `json:"spo2_scale,omitempty"`
	ChangedTime string `json:"changed_time,omitempty"`
}

// EncounterSearch is the SEND BFF encounter search envelope.
type EncounterSearch struct {
	Results []Encounter `json:"results"`
}
