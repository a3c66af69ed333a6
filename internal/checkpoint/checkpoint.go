package checkpoint

import (
	"fmt"
	"time"

	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
)

// Status is the lifecycle state of a checkpoint.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProtecting Status = "protecting"
	StatusAvailable  Status = "available"
	StatusError      Status = "error"
	StatusDeleting   Status = "deleting"
)

// Terminal reports whether a protect run has finished for this status.
func (s Status) Terminal() bool {
	return s == StatusAvailable || s == StatusError
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusProtecting, StatusAvailable, StatusError, StatusDeleting:
		return true
	}
	return false
}

// transitions lists the statuses each status may move to.
var transitions = map[Status][]Status{
	StatusCreated:    {StatusProtecting, StatusDeleting},
	StatusProtecting: {StatusAvailable, StatusError},
	StatusAvailable:  {StatusDeleting},
	StatusError:      {StatusDeleting},
	StatusDeleting:   {StatusDeleting},
}

// CanTransition reports whether a checkpoint may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Plan identifies the protection plan a checkpoint was taken for.
type Plan struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Checkpoint is a point-in-time record of a protect run.
type Checkpoint struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	Status     Status            `json:"status"`
	Plan       Plan              `json:"plan"`
	ExtraInfo  map[string]string `json:"extra_info,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// ResourceGraph is stored as a separate object and is nil until the
	// protect flow has been built.
	ResourceGraph *resourcegraph.Graph `json:"-"`
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("checkpoint %s (%s)", c.ID, c.Status)
}
