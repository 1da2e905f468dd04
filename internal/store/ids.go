package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator issues identifiers for new furniture, designs and templates.
type IDGenerator interface {
	FurnitureID() string
	DesignID() string
}

// DefaultIDs uses random UUIDs for furniture and time-ordered ULIDs for designs.
type DefaultIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewDefaultIDs creates the production generator.
func NewDefaultIDs() *DefaultIDs {
	return &DefaultIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *DefaultIDs) FurnitureID() string {
	return uuid.NewString()
}

// DesignID is monotonic so designs saved in the same millisecond still sort by creation.
func (g *DefaultIDs) DesignID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
