package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event statuses. Cancelled is terminal.
const (
	EventDraft     = "draft"
	EventPublished = "published"
	EventCancelled = "cancelled"
)

// Attendee is one registration on an event, in registration order.
type Attendee struct {
	UserID       string    `bson:"user_id" json:"user_id"`
	RegisteredAt time.Time `bson:"registered_at" json:"registered_at"`
}

// Event is a scheduled happening at a campus location.
//
// len(Attendees) never exceeds Capacity; every write to attendees goes
// through the conditional updates in the events store.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	LocationID  primitive.ObjectID `bson:"location_id" json:"location_id"`
	Capacity    int                `bson:"capacity" json:"capacity"`
	Attendees   []Attendee         `bson:"attendees" json:"attendees"`
	Status      string             `bson:"status" json:"status"` // draft | published | cancelled
	StartTime   time.Time          `bson:"start_time" json:"start_time"`
	EndTime     time.Time          `bson:"end_time" json:"end_time"`
	CreatedBy   string             `bson:"created_by" json:"created_by"` // uid, set once
	Version     int64              `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasAttendee reports whether uid is registered.
func (e Event) HasAttendee(uid string) bool {
	for _, a := range e.Attendees {
		if a.UserID == uid {
			return true
		}
	}
	return false
}

// Remaining returns the number of open places.
func (e Event) Remaining() int {
	return e.Capacity - len(e.Attendees)
}
