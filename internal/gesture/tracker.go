package gesture

import "time"

// Tracker normalizes absolute pointer positions from any input backend into
// Samples relative to the drag origin.
type Tracker struct {
	// Scale converts backend units (e.g. terminal cells) into logical pixels.
	// Zero means 1.
	Scale float64

	active  bool
	originX float64
	originY float64
	lastX   float64
	lastY   float64
	start   time.Time
	last    time.Time
}

// Active reports whether a drag is in progress.
func (t *Tracker) Active() bool { return t.active }

// Begin starts a drag at the given pointer position.
func (t *Tracker) Begin(x, y float64, at time.Time) {
	t.active = true
	t.originX, t.originY = x, y
	t.lastX, t.lastY = x, y
	t.start, t.last = at, at
}

// Move records a pointer move and returns the dragging sample.
func (t *Tracker) Move(x, y float64, at time.Time) Sample {
	return t.sample(x, y, at, PhaseDragging)
}

// End finishes the drag and returns the released sample.
func (t *Tracker) End(x, y float64, at time.Time) Sample {
	s := t.sample(x, y, at, PhaseReleased)
	t.active = false
	return s
}

func (t *Tracker) sample(x, y float64, at time.Time, phase Phase) Sample {
	scale := t.Scale
	if scale == 0 {
		scale = 1
	}

	var vx, vy float64
	if dt := at.Sub(t.last).Seconds(); dt > 0 {
		vx = (x - t.lastX) * scale / dt
		vy = (y - t.lastY) * scale / dt
	}
	t.lastX, t.lastY = x, y
	t.last = at

	return Sample{
		DX:        (x - t.originX) * scale,
		DY:        (y - t.originY) * scale,
		VelocityX: vx,
		VelocityY: vy,
		ElapsedMS: at.Sub(t.start).Milliseconds(),
		Phase:     phase,
	}
}
