package generator

import (
	"errors"
	"time"

	"github.com/dhos/janitor/internal/model"
)

// Message type values.
const (
	MessageGeneral  = 0
	MessageDosage   = 1
	MessageDietary  = 2
	MessageCallback = 5
)

var messageValues = []int{MessageGeneral, MessageDosage, MessageDietary, MessageCallback}

// MessageContent holds canned message bodies per message type.
var MessageContent = map[int][]string{
	MessageGeneral: {
		"Your readings look good this week, keep it up.",
		"Please remember to tag your readings with the meal they relate to.",
		"We have not seen any readings from you for a few days. Is everything OK?",
		"Your next clinic appointment has been booked, see you soon.",
	},
	MessageDosage: {
		"Please increase your evening insulin by 2 units.",
		"Please reduce your morning insulin by 2 units.",
		"Please start taking your metformin with breakfast.",
		"Please keep your current dose the same for now.",
	},
	MessageDietary: {
		"Try swapping white bread for wholemeal at breakfast.",
		"Your post-dinner readings are high. Could you try a smaller portion of carbohydrates?",
		"Please have a small snack before bed.",
	},
	MessageCallback: {
		"Please can somebody call me back?",
		"I have a question about my medication, could you call me?",
		"I am not feeling well, please call me.",
	},
}

var errNoPatientLocation = errors.New("patient has no location")

// MessageGenerator produces messages between a patient and their clinic.
type MessageGenerator struct {
	rnd *Rand
	now func() time.Time
}

func NewMessageGenerator(rnd *Rand) *MessageGenerator {
	return &MessageGenerator{rnd: rnd, now: time.Now}
}

// Generate builds up to n messages for p. Types 0 to 2 are sent by the
// patient's first location and type 5 by the patient. Generation stops early
// when the patient's first product opens in the future.
func (g *MessageGenerator) Generate(p *model.Patient, n int) ([]model.Message, error) {
	if p == nil {
		return nil, ErrMissingPatient
	}
	if len(p.DHProducts) == 0 {
		return nil, errors.New("patient has no products")
	}
	if len(p.Locations) == 0 {
		return nil, errNoPatientLocation
	}
	opened, err := time.Parse(model.DateLayout, p.DHProducts[0].OpenedDate)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		value := Choice(g.rnd, messageValues)
		sent, ok := g.date(opened)
		if !ok {
			return messages, nil
		}
		m := model.Message{
			Created:     model.FormatTime(sent),
			Modified:    model.FormatTime(sent),
			MessageType: model.MessageType{Value: value},
			Content:     Choice(g.rnd, MessageContent[value]),
		}
		if value <= MessageDietary {
			m.Sender, m.SenderType = p.Locations[0], model.PartyLocation
			m.Receiver, m.ReceiverType = p.UUID, model.PartyPatient
		} else {
			m.Sender, m.SenderType = p.UUID, model.PartyPatient
			m.Receiver, m.ReceiverType = p.Locations[0], model.PartyLocation
		}
		m.CreatedBy, m.ModifiedBy = m.Sender, m.Sender
		messages = append(messages, m)
	}
	return messages, nil
}

// date picks a send time between opened and now, or reports false when the
// product has not opened yet.
func (g *MessageGenerator) date(opened time.Time) (time.Time, bool) {
	now := g.now().UTC()
	if now.Before(opened) {
		return time.Time{}, false
	}
	if model.StartOfDay(now).Equal(opened) {
		return opened, true
	}
	days := int(now.Sub(opened).Hours() / 24)
	sent := now.AddDate(0, 0, -g.rnd.Between(0, days)).Add(-time.Duration(g.rnd.Between(0, 240)) * time.Minute)
	if sent.Before(opened) {
		return opened, true
	}
	return sent, true
}
