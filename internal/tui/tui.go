// Package tui is the terminal review surface: one card at a time, swiped with
// the mouse or decided from the keyboard.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/motion"
	"github.com/joescharf/swipe/internal/review"
)

// A terminal cell is roughly this many logical pixels, so gesture thresholds
// keep their meaning under a mouse.
const (
	cellWidth  = 8
	cellHeight = 16
)

// noticesShown is how many recent notices the footer keeps on screen.
const noticesShown = 3

// Config configures the review surface.
type Config struct {
	ClientName string
	Motion     motion.Config
	Gesture    gesture.Config
}

type tickMsg time.Time

type noticeMsg review.Notice

// Model is the bubbletea model for a review session. It is the coordinator's
// card and edit surface for as long as it runs.
type Model struct {
	ctx      context.Context
	coord    *review.Coordinator
	gestures *review.Gestures
	card     *motion.Controller
	tracker  gesture.Tracker
	cfg      Config

	width, height int
	hint          gesture.Direction
	leaving       *models.Post // post whose card is flying out
	ticking       bool
	status        string
	notices       []review.Notice

	editing  *models.Post
	onSave   func(string)
	onCancel func()
	editor   textarea.Model
	progress progress.Model
	styles   styles
}

// New builds the model and installs it on coord as the card and edit surface.
func New(ctx context.Context, coord *review.Coordinator, cfg Config) *Model {
	ta := textarea.New()
	ta.Placeholder = "Rewrite the post..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 3000
	ta.SetWidth(60)
	ta.SetHeight(10)

	m := &Model{
		ctx:      ctx,
		coord:    coord,
		gestures: review.NewGestures(coord, cfg.Gesture),
		card:     motion.NewController(cfg.Motion, motion.Viewport{}, nil),
		cfg:      cfg,
		hint:     gesture.DirectionNone,
		editor:   ta,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		styles:   defaultStyles(),
	}
	coord.SetCard(m.card)
	coord.SetEditSurface(m)
	return m
}

// Run starts the program and blocks until the reviewer quits or ctx ends.
// Background failures reported by the coordinator are shown as they arrive.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	m.coord.OnNotice(func(n review.Notice) { p.Send(noticeMsg(n)) })
	defer m.coord.OnNotice(nil)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Open implements review.EditSurface.
func (m *Model) Open(item *models.Post, onSave func(string), onCancel func()) {
	m.editing = item
	m.onSave = onSave
	m.onCancel = onCancel
	m.editor.SetValue(item.Content)
	m.editor.Focus()
}

func (m *Model) closeEditor() {
	m.editing = nil
	m.onSave, m.onCancel = nil, nil
	m.editor.Blur()
	m.editor.Reset()
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.card.SetViewport(motion.Viewport{
			Width:  float64(msg.Width * cellWidth),
			Height: float64(msg.Height * cellHeight),
		})
		m.progress.Width = max(msg.Width-20, 10)
		m.editor.SetWidth(min(max(msg.Width-8, 20), 100))
		return m, nil

	case tickMsg:
		m.ticking = false
		m.card.Frame()
		if m.card.State() == motion.StateIdle {
			m.leaving = nil
			return m, nil
		}
		return m, m.tick()

	case noticeMsg:
		m.notices = append(m.notices, review.Notice(msg))
		if len(m.notices) > noticesShown {
			m.notices = m.notices[len(m.notices)-noticesShown:]
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing != nil {
			return m.updateEditor(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.editing != nil {
			return m, nil
		}
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		content := m.editor.Value()
		if content == "" {
			m.status = "edited post is empty"
			return m, nil
		}
		save := m.onSave
		item := m.editing
		m.closeEditor()
		m.leaving = item
		if save != nil {
			save(content)
		}
		m.status = "edit saved"
		return m, m.tick()
	case "esc":
		cancel := m.onCancel
		m.closeEditor()
		if cancel != nil {
			cancel()
		}
		m.status = "edit cancelled"
		return m, m.tick()
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "right", "a", "l":
		return m, m.decide(models.ActionApprove)
	case "left", "d", "h":
		return m, m.decide(models.ActionDecline)
	case "up", "e", "k":
		return m, m.decide(models.ActionEdit)
	case "u":
		if entry, ok := m.coord.Undo(m.ctx); ok {
			m.leaving = nil
			m.status = "undid " + string(entry.Decision.Action) + " on " + postLabel(entry.Decision.Item)
		} else {
			m.status = "nothing to undo"
		}
		return m, nil
	case "r":
		failed := m.coord.Snapshot().Failed
		if len(failed) == 0 {
			m.status = "nothing to retry"
			return m, nil
		}
		if err := m.coord.Retry(m.ctx, failed[0]); err != nil {
			m.status = err.Error()
		} else {
			m.status = "retrying " + failed[0]
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) decide(action models.Action) tea.Cmd {
	cur := m.coord.Current()
	if cur == nil {
		return nil
	}
	if err := m.coord.Decide(m.ctx, cur, action); err != nil {
		m.status = err.Error()
		return nil
	}
	if action != models.ActionEdit {
		m.leaving = cur
		m.status = string(action) + "d " + postLabel(cur)
	}
	return m.tick()
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	x := float64(msg.X * cellWidth)
	y := float64(msg.Y * cellHeight)
	now := time.Now()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.coord.IsExhausted() {
			return m, nil
		}
		if err := m.gestures.Begin(); err != nil {
			// Still flying out; the press is dropped.
			return m, nil
		}
		m.tracker.Begin(x, y, now)
		m.hint = gesture.DirectionNone

	case tea.MouseActionMotion:
		if !m.tracker.Active() {
			return m, nil
		}
		m.hint = m.gestures.Move(m.tracker.Move(x, y, now))

	case tea.MouseActionRelease:
		if !m.tracker.Active() {
			return m, nil
		}
		cur := m.coord.Current()
		action, applied, err := m.gestures.Release(m.ctx, m.tracker.End(x, y, now))
		m.hint = gesture.DirectionNone
		switch {
		case err != nil:
			m.status = err.Error()
		case applied && action != models.ActionEdit:
			m.leaving = cur
			m.status = string(action) + "d " + postLabel(cur)
		}
		return m, m.tick()
	}
	return m, nil
}

// tick schedules the next animation frame unless one is already pending.
func (m *Model) tick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tea.Tick(time.Second/time.Duration(m.frameRate()), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) frameRate() int {
	if m.cfg.Motion.FPS > 0 {
		return m.cfg.Motion.FPS
	}
	return 60
}

func postLabel(p *models.Post) string {
	if p == nil {
		return ""
	}
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}
