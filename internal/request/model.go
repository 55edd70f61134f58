package request

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which collection a request belongs to.
type Kind string

const (
	KindGarbage    Kind = "garbage"
	KindRecyclable Kind = "recyclable"
)

// ParseKind validates a kind taken from user input.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindGarbage, KindRecyclable:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

// table returns the backing table. Only known kinds reach SQL.
func (k Kind) table() string {
	switch k {
	case KindGarbage:
		return "garbage_requests"
	case KindRecyclable:
		return "recyclable_requests"
	default:
		return ""
	}
}

// Status is the lifecycle state of a request. It only moves forward.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IntakeRequest is a reported pile of garbage or recyclable items.
type IntakeRequest struct {
	ID            uuid.UUID  `json:"id"`
	Kind          Kind       `json:"kind"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	OwnerUsername string     `json:"owner_username,omitempty"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// FormatLocation renders coordinates as the "lat, lon" display string.
func FormatLocation(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}
