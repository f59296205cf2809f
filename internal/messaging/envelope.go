// internal/messaging/envelope.go
package messaging

import (
	"encoding/json"

	"chainlend-ledger/internal/service"
	"chainlend-ledger/internal/util"
)

// EventType tags the payload of a chain event.
type EventType string

const (
	EventFunding      EventType = "funding"
	EventRepayment    EventType = "repayment"
	EventVerification EventType = "verification"
)

// Envelope is the wire format of a chain event: {"type": ..., "payload": {...}}.
type Envelope struct {
	Type    EventType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Event is a decoded chain event. Exactly one of the pointers is set, matching Type.
type Event struct {
	Type         EventType
	ID           string
	Funding      *service.FundingInput
	Repayment    *service.RepaymentInput
	Verification *service.VerificationInput
}

// DecodeEvent parses an envelope and its typed payload. Malformed data and unknown types
// are validation errors.
func DecodeEvent(data []byte) (*Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, util.Invalid("malformed event envelope: %v", err)
	}
	if len(env.Payload) == 0 {
		return nil, util.Invalid("event %q has no payload", env.Type)
	}

	ev := &Event{Type: env.Type, ID: env.ID}
	var target any
	switch env.Type {
	case EventFunding:
		ev.Funding = &service.FundingInput{}
		target = ev.Funding
	case EventRepayment:
		ev.Repayment = &service.RepaymentInput{}
		target = ev.Repayment
	case EventVerification:
		ev.Verification = &service.VerificationInput{}
		target = ev.Verification
	default:
		return nil, util.Invalid("unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return nil, util.Invalid("malformed %s payload: %v", env.Type, err)
	}
	return ev, nil
}

// EncodeEvent builds the envelope for a typed payload.
func EncodeEvent(t EventType, id string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, ID: id, Payload: raw})
}

// ScoreUpdate is published after every reconciled repayment.
type ScoreUpdate struct {
	service.RepaymentResult
	EventID string `json:"eventId,omitempty"`
}
