// Package motion animates the top review card: it follows the pointer during a
// drag, springs back on cancel, and flies off-screen on commit.
package motion

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/spf13/viper"

	"github.com/joescharf/swipe/internal/models"
)

// ErrBusy is returned when the card is already flying off-screen.
var ErrBusy = errors.New("motion: card is committing")

// State is the animation state of the top card.
type State string

const (
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateReturning  State = "returning"
	StateCommitting State = "committing"
)

// Transform is the card offset in logical pixels and its tilt in degrees.
type Transform struct {
	X        float64
	Y        float64
	Rotation float64
}

// Viewport is the visible area the card must clear on commit.
type Viewport struct {
	Width  float64
	Height float64
}

// Sink receives every transform the controller produces.
type Sink interface {
	Apply(Transform)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Transform)

// Apply calls f(t).
func (f SinkFunc) Apply(t Transform) { f(t) }

// Config holds the tunable animation constants.
type Config struct {
	RotationFactor   float64 // degrees per logical pixel of horizontal drag
	MaxRotation      float64 // clamp for drag tilt, degrees
	AngularFrequency float64 // snap-back spring speed
	DampingRatio     float64 // snap-back spring damping
	FlyOutFactor     float64 // commit target as a multiple of viewport size
	SettleTime       time.Duration
	FPS              int
}

// DefaultConfig returns animation constants from viper with built-in fallbacks.
func DefaultConfig() Config {
	cfg := Config{
		RotationFactor:   viper.GetFloat64("motion.rotation_factor"),
		MaxRotation:      viper.GetFloat64("motion.max_rotation"),
		AngularFrequency: viper.GetFloat64("motion.angular_frequency"),
		DampingRatio:     viper.GetFloat64("motion.damping_ratio"),
		FlyOutFactor:     viper.GetFloat64("motion.fly_out_factor"),
		SettleTime:       time.Duration(viper.GetInt("motion.settle_ms")) * time.Millisecond,
		FPS:              viper.GetInt("motion.fps"),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.RotationFactor == 0 {
		c.RotationFactor = 0.08
	}
	if c.MaxRotation <= 0 {
		c.MaxRotation = 30
	}
	if c.AngularFrequency <= 0 {
		c.AngularFrequency = 7
	}
	if c.DampingRatio <= 0 {
		c.DampingRatio = 0.7
	}
	if c.FlyOutFactor < 1.5 {
		c.FlyOutFactor = 1.5
	}
	if c.SettleTime <= 0 {
		c.SettleTime = 300 * time.Millisecond
	}
	if c.FPS <= 0 {
		c.FPS = 60
	}
	return c
}

// rest is the distance and speed below which the card is considered still.
const rest = 0.5

// Controller owns the transform of the single interactive card.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	viewport Viewport
	sink     Sink

	state   State
	pos     Transform
	vel     Transform
	target  Transform
	elapsed time.Duration
	onDone  func()

	frame    time.Duration
	snapBack harmonica.Spring
	flyOut   harmonica.Spring
}

// NewController creates a controller for a viewport. The sink may be nil.
func NewController(cfg Config, vp Viewport, sink Sink) *Controller {
	cfg = cfg.withDefaults()
	dt := harmonica.FPS(cfg.FPS)
	return &Controller{
		cfg:      cfg,
		viewport: vp,
		sink:     sink,
		state:    StateIdle,
		frame:    time.Duration(dt * float64(time.Second)),
		snapBack: harmonica.NewSpring(dt, cfg.AngularFrequency, cfg.DampingRatio),
		// Critically damped and quick: the card leaves without wobbling.
		flyOut: harmonica.NewSpring(dt, cfg.AngularFrequency*2, 1),
	}
}

// State returns the current animation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transform returns the current card transform.
func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// SetViewport updates the area the card must clear on commit.
func (c *Controller) SetViewport(vp Viewport) {
	c.mu.Lock()
	c.viewport = vp
	c.mu.Unlock()
}

// BeginDrag grabs the card. A card that is springing back can be grabbed again.
func (c *Controller) BeginDrag() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCommitting {
		return ErrBusy
	}
	c.state = StateDragging
	c.vel = Transform{}
	return nil
}

// UpdateDrag moves the card 1:1 with the pointer and tilts it with horizontal
// displacement. Calls outside a drag are ignored.
func (c *Controller) UpdateDrag(dx, dy float64) {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return
	}
	c.pos = Transform{X: dx, Y: dy, Rotation: c.tilt(dx)}
	t := c.pos
	c.mu.Unlock()
	c.emit(t)
}

// CancelDrag releases the card without a decision; it springs back to origin.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging {
		return
	}
	c.state = StateReturning
}

// Commit flies the card off-screen in the direction implied by action.
// onDone runs once, after at least the configured settle time of frames.
func (c *Controller) Commit(action models.Action, onDone func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCommitting {
		return ErrBusy
	}

	w := c.viewport.Width * c.cfg.FlyOutFactor
	h := c.viewport.Height * c.cfg.FlyOutFactor
	switch action {
	case models.ActionApprove:
		c.target = Transform{X: w, Y: c.pos.Y, Rotation: c.cfg.MaxRotation}
	case models.ActionDecline:
		c.target = Transform{X: -w, Y: c.pos.Y, Rotation: -c.cfg.MaxRotation}
	case models.ActionEdit, models.ActionEditSave:
		c.target = Transform{X: c.pos.X, Y: -h}
	default:
		return fmt.Errorf("motion: no fly-out direction for action %q", action)
	}

	c.state = StateCommitting
	c.elapsed = 0
	c.onDone = onDone
	return nil
}

// Frame advances the animation by one frame. It never blocks.
func (c *Controller) Frame() {
	c.mu.Lock()

	var done func()
	switch c.state {
	case StateReturning:
		c.step(c.snapBack, Transform{})
		if c.atRest() {
			c.pos, c.vel = Transform{}, Transform{}
			c.state = StateIdle
		}
	case StateCommitting:
		c.step(c.flyOut, c.target)
		c.elapsed += c.frame
		if c.elapsed >= c.cfg.SettleTime {
			done = c.onDone
			c.onDone = nil
			// The departed card is gone; the next card starts at origin.
			c.state = StateIdle
			c.pos, c.vel = Transform{}, Transform{}
		}
	default:
		c.mu.Unlock()
		return
	}

	t := c.pos
	c.mu.Unlock()

	c.emit(t)
	if done != nil {
		done()
	}
}

// Reset returns the controller to idle at origin, dropping any pending callback.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = StateIdle
	c.pos, c.vel = Transform{}, Transform{}
	c.onDone = nil
	c.mu.Unlock()
	c.emit(Transform{})
}

func (c *Controller) step(s harmonica.Spring, to Transform) {
	c.pos.X, c.vel.X = s.Update(c.pos.X, c.vel.X, to.X)
	c.pos.Y, c.vel.Y = s.Update(c.pos.Y, c.vel.Y, to.Y)
	c.pos.Rotation, c.vel.Rotation = s.Update(c.pos.Rotation, c.vel.Rotation, to.Rotation)
}

func (c *Controller) atRest() bool {
	return math.Abs(c.pos.X) < rest && math.Abs(c.pos.Y) < rest && math.Abs(c.pos.Rotation) < rest &&
		math.Abs(c.vel.X) < rest && math.Abs(c.vel.Y) < rest && math.Abs(c.vel.Rotation) < rest
}

func (c *Controller) tilt(dx float64) float64 {
	r := dx * c.cfg.RotationFactor
	return math.Max(-c.cfg.MaxRotation, math.Min(c.cfg.MaxRotation, r))
}

func (c *Controller) emit(t Transform) {
	if c.sink != nil {
		c.sink.Apply(t)
	}
}
