package amqp

import (
	"encoding/json"
	"time"

	"addebiti/internal/core"
)

// PaymentChangeMessage announces a write that may have changed resolved
// payments. Consumers only use it to drop cached data, so it carries keys,
// never values.
type PaymentChangeMessage struct {
	Kind       string    `json:"kind"`
	ServiceID  string    `json:"service_id,omitempty"`
	Dates      []string  `json:"dates,omitempty"`
	YearMonths []string  `json:"year_months,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewPaymentChangeMessage(change core.PaymentChange) *PaymentChangeMessage {
	return &PaymentChangeMessage{
		Kind:       string(change.Kind),
		ServiceID:  change.ServiceID,
		Dates:      change.Dates,
		YearMonths: change.Months,
		Timestamp:  time.Now(),
	}
}

// Change converts the message back into the domain value.
func (m *PaymentChangeMessage) Change() core.PaymentChange {
	return core.PaymentChange{
		Kind:      core.ChangeKind(m.Kind),
		ServiceID: m.ServiceID,
		Dates:     m.Dates,
		Months:    m.YearMonths,
	}
}

func (m *PaymentChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentChangeMessageFromJSON(data []byte) (*PaymentChangeMessage, error) {
	var msg PaymentChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
