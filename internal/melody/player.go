package melody

import (
	"time"

	"go.uber.org/zap"
)

// Player sounds a melody on whatever audio hardware the board has.
type Player interface {
	Play(notes []Note) error
}

// FakePlayer records played melodies for tests.
type FakePlayer struct {
	Played  [][]Note
	PlayErr error
}

// Play records the melody, or returns the injected error.
func (f *FakePlayer) Play(notes []Note) error {
	if f.PlayErr != nil {
		return f.PlayErr
	}
	f.Played = append(f.Played, notes)
	return nil
}

// LogPlayer logs the melody instead of sounding it.
type LogPlayer struct {
	log *zap.SugaredLogger
}

// NewLogPlayer creates a LogPlayer writing to log.
func NewLogPlayer(log *zap.SugaredLogger) *LogPlayer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogPlayer{log: log}
}

// Play logs the melody's size and length.
func (p *LogPlayer) Play(notes []Note) error {
	var total time.Duration
	for _, n := range notes {
		total += n.Duration
	}
	p.log.Infow("playing melody", "notes", len(notes), "length", total)
	return nil
}
