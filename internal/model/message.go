package model

// Message sender and receiver kinds.
const (
	PartySystem   = "system"
	PartyLocation = "location"
	PartyPatient  = "patient"
)

// Message is a patient/clinic message posted to the messages API.
type Message struct {
	Sender       string      `json:"sender"`
	SenderType   string      `json:"sender_type"`
	Receiver     string      `json:"receiver"`
	ReceiverType string      `json:"receiver_type"`
	Created      string      `json:"created"`
	CreatedBy    string      `json:"created_by_"`
	ModifiedBy   string      `json:"modified_by_"`
	Modified     string      `json:"modified"`
	MessageType  MessageType `json:"message_type"`
	Content      string      `json:"content"`
}

type MessageType struct {
	Value int `json:"value"`
}
