// Package melody holds the alarm melodies and the player boundary.
package melody

import (
	"errors"
	"time"
)

// Note is one step of a melody. Frequency zero is a rest.
type Note struct {
	Frequency int
	Duration  time.Duration
}

// DefaultID addresses the built-in melody.
const DefaultID = 0

// Registry is a numbered store of melodies. Slot 0 holds the built-in
// march and is always present.
type Registry struct {
	melodies [][]Note
}

// NewRegistry creates a Registry seeded with the built-in melody.
func NewRegistry() *Registry {
	return &Registry{melodies: [][]Note{defaultMelody}}
}

// Register stores a copy of notes and returns the id it was stored under.
func (r *Registry) Register(notes []Note) (int, error) {
	if len(notes) == 0 {
		return 0, errors.New("melody: empty melody")
	}
	cp := make([]Note, len(notes))
	copy(cp, notes)
	r.melodies = append(r.melodies, cp)
	return len(r.melodies) - 1, nil
}

// ByID returns the melody stored under id.
func (r *Registry) ByID(id int) ([]Note, bool) {
	if id < 0 || id >= len(r.melodies) {
		return nil, false
	}
	return r.melodies[id], true
}

// Len returns the number of stored melodies.
func (r *Registry) Len() int {
	return len(r.melodies)
}
