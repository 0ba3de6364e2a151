// Package gesture turns a stream of drag samples into a swipe direction and,
// on release, into a review action.
package gesture

import (
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/joescharf/swipe/internal/models"
)

// Phase is where a sample sits in the drag lifecycle.
type Phase string

const (
	PhaseDragging Phase = "dragging"
	PhaseReleased Phase = "released"
)

// Direction is the live hint shown while a card is being dragged.
type Direction string

const (
	DirectionNone  Direction = "none"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
)

// Sample is a normalized drag measurement relative to where the drag began.
// Positive DY is downward.
type Sample struct {
	DX        float64
	DY        float64
	VelocityX float64
	VelocityY float64
	ElapsedMS int64
	Phase     Phase
}

// Config holds classifier thresholds in logical pixels.
type Config struct {
	DirectionEpsilon float64
	CommitThreshold  float64
}

// DefaultConfig returns thresholds from viper, falling back to built-in defaults.
func DefaultConfig() Config {
	eps := viper.GetFloat64("gesture.direction_epsilon")
	if eps <= 0 {
		eps = 50
	}
	threshold := viper.GetFloat64("gesture.commit_threshold")
	if threshold <= 0 {
		threshold = 120
	}
	return Config{DirectionEpsilon: eps, CommitThreshold: threshold}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	if c.DirectionEpsilon <= 0 {
		return fmt.Errorf("direction epsilon must be positive (got %v)", c.DirectionEpsilon)
	}
	if c.CommitThreshold < c.DirectionEpsilon {
		return fmt.Errorf("commit threshold %v must not be below direction epsilon %v", c.CommitThreshold, c.DirectionEpsilon)
	}
	return nil
}

// Classifier maps samples to hints and release samples to actions.
// It has no side effects beyond remembering the last hint.
type Classifier struct {
	cfg  Config
	hint Direction
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg, hint: DirectionNone}
}

// Config returns the classifier thresholds.
func (c *Classifier) Config() Config { return c.cfg }

// Hint returns the most recent live direction.
func (c *Classifier) Hint() Direction { return c.hint }

// Sample updates and returns the live direction hint for a drag-move sample.
func (c *Classifier) Sample(s Sample) Direction {
	c.hint = c.direction(s)
	return c.hint
}

// Release classifies the final sample of a drag. Only this sample decides the
// commit axis; hints seen mid-gesture are ignored. It returns false when the
// card should snap back.
func (c *Classifier) Release(s Sample) (models.Action, bool) {
	c.hint = DirectionNone

	if horizontal(s) {
		switch {
		case s.DX >= c.cfg.CommitThreshold:
			return models.ActionApprove, true
		case s.DX <= -c.cfg.CommitThreshold:
			return models.ActionDecline, true
		}
		return "", false
	}

	// Vertical dominates. There is no downward action.
	if s.DY <= -c.cfg.CommitThreshold {
		return models.ActionEdit, true
	}
	return "", false
}

func (c *Classifier) direction(s Sample) Direction {
	eps := c.cfg.DirectionEpsilon
	if horizontal(s) {
		switch {
		case s.DX > eps:
			return DirectionRight
		case s.DX < -eps:
			return DirectionLeft
		}
		return DirectionNone
	}
	if s.DY < -eps {
		return DirectionUp
	}
	return DirectionNone
}

// horizontal reports whether the horizontal axis dominates. An exact tie goes
// to the horizontal axis.
func horizontal(s Sample) bool {
	return math.Abs(s.DX) >= math.Abs(s.DY)
}
