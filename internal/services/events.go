package services

import (
	"encoding/json"
	"time"

	"usermanagement/internal/models"

	"github.com/google/uuid"
)

// UserEventsExchange is the exchange user lifecycle events are published to.
const UserEventsExchange = "users"

// Routing keys of user lifecycle events.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// EventPublisher delivers a message to a broker exchange.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// UserEvent is the payload of a user lifecycle event. It never carries the
// password hash.
type UserEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint64    `json:"userId"`
	Username   string    `json:"username"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewUserEvent builds an event of the given type about user.
func NewUserEvent(eventType string, user *models.User, actor string) UserEvent {
	return UserEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

func (e UserEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
