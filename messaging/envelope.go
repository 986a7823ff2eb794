package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const Version = 1

// Message types published for part events.
const (
	TypePartCreated        = "part.created"
	TypePartUpdated        = "part.updated"
	TypePartDeleted        = "part.deleted"
	TypePartStageConfirmed = "part.stage_confirmed"
	TypePartStageCancelled = "part.stage_cancelled"
)

// Envelope wraps every published message.
type Envelope struct {
	Version   int             `json:"v"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Station   string          `json:"station"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"p"`
}

// NewEnvelope creates an outbound envelope with a fresh id.
func NewEnvelope(msgType, station string, payload any) (*Envelope, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:   Version,
		Type:      msgType,
		ID:        uuid.New().String(),
		Station:   station,
		Timestamp: time.Now().UTC(),
		Payload:   p,
	}, nil
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
