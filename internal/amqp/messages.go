package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ActivityMessage announces one audited write. It carries the summary only;
// consumers that need the full record fetch it from the data store.
type ActivityMessage struct {
	ActorID   string           `json:"actor_id"`
	Action    core.AuditAction `json:"action"`
	Entity    core.EntityType  `json:"entity"`
	EntityID  string           `json:"entity_id"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewActivityMessage(e core.AuditEntry) *ActivityMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ActivityMessage{
		ActorID:   e.ActorID,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Message:   e.Message,
		Timestamp: ts.UTC(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes and checks the fields every consumer relies on.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ActorID == "" || msg.Entity == "" {
		return nil, fmt.Errorf("activity message: missing actor or entity")
	}
	return &msg, nil
}
