package amqp

import (
	"time"

	"bommel/internal/core"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TreeChangeMessage announces a committed tree mutation. Consumers reload
// the tree themselves; the message only says what changed.
type TreeChangeMessage struct {
	EventID        string          `json:"event_id"`
	Kind           core.ChangeKind `json:"kind"`
	OrganizationID int64           `json:"organization_id"`
	BommelID       int64           `json:"bommel_id"`
	ParentID       int64           `json:"parent_id"`
	Timestamp      time.Time       `json:"timestamp"`
}

func NewTreeChangeMessage(change core.TreeChange) *TreeChangeMessage {
	return &TreeChangeMessage{
		EventID:        uuid.NewString(),
		Kind:           change.Kind,
		OrganizationID: change.OrganizationID,
		BommelID:       change.BommelID,
		ParentID:       change.ParentID,
		Timestamp:      time.Now(),
	}
}

func (m *TreeChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TreeChangeMessageFromJSON(data []byte) (*TreeChangeMessage, error) {
	var msg TreeChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Change strips the envelope.
func (m *TreeChangeMessage) Change() core.TreeChange {
	return core.TreeChange{
		Kind:           m.Kind,
		OrganizationID: m.OrganizationID,
		BommelID:       m.BommelID,
		ParentID:       m.ParentID,
	}
}
