package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the topic exchange.
const (
	RKReservationCreated   = "reservation.created"
	RKReservationCancelled = "reservation.cancelled"
	RKRoomStatusChanged    = "room.status_changed"

	BindAll = "#"
)

// Event is a change notice. It carries enough to log and to decide whether a
// client cares; clients always refetch rather than patch from it.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	RoomID        int       `json:"room_id"`
	ReservationID int64     `json:"reservation_id,omitempty"`
	UserID        int       `json:"user_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Start         int64     `json:"start,omitempty"` // unix seconds
	End           int64     `json:"end,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func New(typ string, roomID int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
	}
}

func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Publish sends ev under its own type as routing key.
func Publish(ctx context.Context, p Publisher, ev Event) error {
	if p == nil {
		return nil
	}
	return p.PublishJSON(ctx, ev.Type, ev)
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }
