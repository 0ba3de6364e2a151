// Package review coordinates a client's review session: it owns the queue of
// pending posts, applies decisions optimistically, writes status changes to
// the store in the background and supports undo.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/swipe/internal/events"
	"github.com/joescharf/swipe/internal/haptics"
	"github.com/joescharf/swipe/internal/history"
	"github.com/joescharf/swipe/internal/idgen"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/motion"
	"github.com/joescharf/swipe/internal/queue"
)

//go:generate mockgen -destination=mocks/mock_status_store.go -package=mocks . StatusStore

// StatusStore is the remote store the coordinator reads pending posts from and
// writes status transitions to. UpdateStatus must be idempotent.
type StatusStore interface {
	UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error
	FetchPending(ctx context.Context, clientID string) ([]*models.Post, error)
}

// Card is the animated card on top of the queue. *motion.Controller satisfies it.
type Card interface {
	BeginDrag() error
	UpdateDrag(dx, dy float64)
	CancelDrag()
	Commit(action models.Action, onDone func()) error
	Reset()
}

// EditSurface lets the reviewer rewrite a post. Exactly one of onSave or
// onCancel is expected to be called.
type EditSurface interface {
	Open(item *models.Post, onSave func(content string), onCancel func())
}

// Config holds coordinator settings.
type Config struct {
	NoticeLimit  int
	Haptics      bool
	BuzzDuration time.Duration
}

// DefaultConfig returns the review config, reading from viper when available.
func DefaultConfig() Config {
	limit := viper.GetInt("review.notice_limit")
	if limit <= 0 {
		limit = 50
	}

	haptic := true
	if viper.IsSet("review.haptics") {
		haptic = viper.GetBool("review.haptics")
	}

	buzz := time.Duration(viper.GetInt("review.buzz_ms")) * time.Millisecond
	if buzz <= 0 {
		buzz = 15 * time.Millisecond
	}

	return Config{
		NoticeLimit:  limit,
		Haptics:      haptic,
		BuzzDuration: buzz,
	}
}

// Notice is a user-facing report of a background failure.
type Notice struct {
	Time    time.Time
	Level   string
	Kind    string
	PostID  string
	Message string
}

// Notice levels.
const (
	NoticeError   = "error"
	NoticeWarning = "warning"
)

// Tally counts decisions by outcome.
type Tally struct {
	Approved int
	Declined int
	Edited   int
}

// Total returns the number of counted decisions.
func (t Tally) Total() int { return t.Approved + t.Declined + t.Edited }

// ComputeTally derives counts from history entries. Undone decisions are not
// in history, so they are never counted.
func ComputeTally(entries []models.HistoryEntry) Tally {
	var t Tally
	for _, e := range entries {
		switch e.Decision.Action {
		case models.ActionApprove:
			t.Approved++
		case models.ActionDecline:
			t.Declined++
		case models.ActionEditSave:
			t.Edited++
		}
	}
	return t
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	SessionID string
	ClientID  string
	Current   *models.Post
	Next      *models.Post
	Cursor    int
	Total     int
	Remaining int
	Exhausted bool
	CanUndo   bool
	Tally     Tally
	InFlight  []string
	Failed    []string
	States    map[string]models.ItemState
}

// attempt is a forward write that can be retried.
type attempt struct {
	item   *models.Post
	action models.Action
	target models.PostStatus
	meta   models.StatusMeta
}

// Coordinator drives a review session.
type Coordinator struct {
	store  StatusStore
	cfg    Config
	card   Card
	editor EditSurface
	buzzer haptics.Buzzer
	pub    events.Publisher
	log    *slog.Logger

	mu         sync.Mutex
	queue      *queue.Queue
	history    *history.Stack
	clientID   string
	sessionID  string
	generation uint64
	states     map[string]models.ItemState
	inFlight   map[string]bool
	failed     map[string]attempt
	lanes      map[string]chan struct{}
	notices    []Notice
	onNotice   func(Notice)

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCard sets the card animated on commit and snap-back.
func WithCard(card Card) Option {
	return func(c *Coordinator) { c.card = card }
}

// WithEditSurface sets the surface opened by the edit action.
func WithEditSurface(e EditSurface) Option {
	return func(c *Coordinator) { c.editor = e }
}

// WithBuzzer sets the haptics device.
func WithBuzzer(b haptics.Buzzer) Option {
	return func(c *Coordinator) { c.buzzer = b }
}

// WithPublisher sets where decision events are published.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// New creates a coordinator with an empty queue. Call Load to start a session.
func New(store StatusStore, cfg Config, opts ...Option) *Coordinator {
	if cfg.NoticeLimit <= 0 {
		cfg.NoticeLimit = 50
	}
	c := &Coordinator{
		store:    store,
		cfg:      cfg,
		buzzer:   haptics.Noop{},
		pub:      &events.NoopPublisher{},
		log:      slog.Default(),
		queue:    queue.New(nil),
		history:  history.New(),
		states:   make(map[string]models.ItemState),
		inFlight: make(map[string]bool),
		failed:   make(map[string]attempt),
		lanes:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCard replaces the card after construction, for surfaces that build the
// card once they know their viewport.
func (c *Coordinator) SetCard(card Card) {
	c.mu.Lock()
	c.card = card
	c.mu.Unlock()
}

// SetEditSurface replaces the edit surface.
func (c *Coordinator) SetEditSurface(e EditSurface) {
	c.mu.Lock()
	c.editor = e
	c.mu.Unlock()
}

// OnNotice registers fn to be called for every new notice. fn runs on the
// goroutine that observed the failure and must not block.
func (c *Coordinator) OnNotice(fn func(Notice)) {
	c.mu.Lock()
	c.onNotice = fn
	c.mu.Unlock()
}

// Load starts a new session for clientID. The queue is replaced with the
// client's pending posts and all session state is discarded. Writes still in
// flight from a previous session complete but no longer affect state.
func (c *Coordinator) Load(ctx context.Context, clientID string) error {
	posts, err := c.store.FetchPending(ctx, clientID)
	if err != nil {
		return fmt.Errorf("fetch pending posts: %w", err)
	}

	sessionID, err := idgen.Session()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.generation++
	c.queue.Replace(posts)
	c.history.Clear()
	c.clientID = clientID
	c.sessionID = sessionID
	c.states = make(map[string]models.ItemState, len(posts))
	for _, p := range posts {
		c.states[p.ID] = models.ItemStatePending
	}
	c.inFlight = make(map[string]bool)
	c.failed = make(map[string]attempt)
	card := c.card
	c.mu.Unlock()

	if card != nil {
		card.Reset()
	}

	c.log.Info("review session loaded", "session", sessionID, "client", clientID, "posts", len(posts))
	c.publish(ctx, events.TopicSessionLoaded, events.SessionLoaded{
		SessionID: sessionID,
		ClientID:  clientID,
		Items:     len(posts),
	})
	return nil
}

// Decide applies action to item, which must be the current post.
// Approve and decline advance the queue immediately and write the new status
// in the background. Edit opens the edit surface; the queue only advances once
// the edit is saved.
func (c *Coordinator) Decide(ctx context.Context, item *models.Post, action models.Action) error {
	switch action {
	case models.ActionApprove, models.ActionDecline:
		return c.apply(ctx, item, action, "")
	case models.ActionEdit:
		return c.beginEdit(ctx, item)
	case models.ActionEditSave:
		return errors.New("edit_save needs content, use SaveEdit")
	}
	return fmt.Errorf("unknown action: %q", action)
}

// SaveEdit commits an edited version of item as client_edited.
func (c *Coordinator) SaveEdit(ctx context.Context, item *models.Post, content string) error {
	if content == "" {
		return errors.New("edited content is empty")
	}
	return c.apply(ctx, item, models.ActionEditSave, content)
}

// CancelEdit returns an item that was opened for editing to pending.
func (c *Coordinator) CancelEdit(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[itemID] == models.ItemStateEditing && !c.inFlight[itemID] {
		c.states[itemID] = models.ItemStatePending
	}
}

func (c *Coordinator) beginEdit(ctx context.Context, item *models.Post) error {
	c.mu.Lock()
	cur, err := c.guardLocked(item)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.states[cur.ID] = models.ItemStateEditing
	card, editor := c.card, c.editor
	c.mu.Unlock()

	if card != nil {
		card.CancelDrag()
	}
	if editor == nil {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	editor.Open(cur,
		func(content string) {
			if err := c.SaveEdit(detached, cur, content); err != nil {
				c.log.Debug("edit save rejected", "post", cur.ID, "error", err)
			}
		},
		func() { c.CancelEdit(cur.ID) },
	)
	return nil
}

// guardLocked applies the stale and in-flight guards and returns the queue's
// own copy of the current post.
func (c *Coordinator) guardLocked(item *models.Post) (*models.Post, error) {
	cur := c.queue.Current()
	if item == nil || cur == nil || cur.ID != item.ID {
		serr := &StaleItemError{}
		if item != nil {
			serr.ItemID = item.ID
		}
		if cur != nil {
			serr.CurrentID = cur.ID
		}
		c.log.Debug("decision ignored", "error", serr)
		return nil, serr
	}
	if c.inFlight[cur.ID] {
		derr := &DuplicateInFlightError{ItemID: cur.ID}
		c.log.Debug("decision ignored", "error", derr)
		return nil, derr
	}
	return cur, nil
}

func (c *Coordinator) apply(ctx context.Context, item *models.Post, action models.Action, content string) error {
	target, ok := action.TargetStatus()
	if !ok {
		return fmt.Errorf("action %q has no target status", action)
	}

	c.mu.Lock()
	cur, err := c.guardLocked(item)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	before := c.queue.Cursor()
	c.queue.Advance()
	c.history.Push(models.HistoryEntry{
		Decision: models.Decision{
			Item:        cur,
			Action:      action,
			Content:     content,
			CommittedAt: time.Now().UTC(),
		},
		CursorBefore: before,
	})

	a := attempt{
		item:   cur,
		action: action,
		target: target,
		meta:   models.StatusMeta{Content: content},
	}
	c.startForwardLocked(ctx, a)
	card := c.card
	c.mu.Unlock()

	c.animate(card, action)
	c.buzz()
	return nil
}

// Retry re-issues the failed write for itemID without moving the queue.
func (c *Coordinator) Retry(ctx context.Context, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.failed[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNothingToRetry, itemID)
	}
	if c.inFlight[itemID] {
		return &DuplicateInFlightError{ItemID: itemID}
	}
	c.startForwardLocked(ctx, a)
	return nil
}

func (c *Coordinator) startForwardLocked(ctx context.Context, a attempt) {
	id := a.item.ID
	c.states[id] = a.action.InFlightState()
	c.inFlight[id] = true
	delete(c.failed, id)

	gen, sessionID := c.generation, c.sessionID
	detached := context.WithoutCancel(ctx)
	c.enqueueLocked(id, func() {
		err := c.store.UpdateStatus(detached, id, a.target, a.meta)
		c.finishForward(detached, gen, sessionID, a, err)
	})
}

func (c *Coordinator) finishForward(ctx context.Context, gen uint64, sessionID string, a attempt, err error) {
	id := a.item.ID

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug("write from previous session finished", "post", id, "error", err)
		return
	}
	delete(c.inFlight, id)
	// An undo while the write was in flight moved the item back to pending.
	undone := c.states[id] != a.action.InFlightState()

	if err == nil {
		if !undone {
			c.states[id] = models.ItemStateCommitted
		}
		c.mu.Unlock()
		c.log.Debug("decision committed", "post", id, "status", a.target)
		c.publish(ctx, events.TopicDecisionCommitted, events.DecisionCommitted{
			SessionID: sessionID,
			PostID:    id,
			Action:    a.action,
			Status:    a.target,
		})
		return
	}

	if undone {
		c.mu.Unlock()
		c.log.Debug("write for undone decision failed", "post", id, "error", err)
		return
	}

	c.states[id] = models.ItemStateFailed
	c.failed[id] = a
	ferr := &MutationFailedError{Item: a.item, AttemptedStatus: a.target, Err: err}
	n, hook := c.noticeLocked(NoticeError, id, ferr)
	c.mu.Unlock()

	c.log.Warn("decision failed", "post", id, "status", a.target, "error", err)
	if hook != nil {
		hook(n)
	}
	c.publish(ctx, events.TopicDecisionFailed, events.DecisionFailed{
		SessionID: sessionID,
		PostID:    id,
		Action:    a.action,
		Status:    a.target,
		Error:     err.Error(),
	})
}

// Undo reverts the most recent decision: the cursor moves back to the decided
// post and its prior status is written in the background. It reports false
// when there is nothing to undo.
func (c *Coordinator) Undo(ctx context.Context) (models.HistoryEntry, bool) {
	c.mu.Lock()
	entry, ok := c.history.PopLast()
	if !ok {
		c.mu.Unlock()
		return entry, false
	}

	c.queue.SetCursor(entry.CursorBefore)
	item := entry.Decision.Item
	c.states[item.ID] = models.ItemStatePending
	delete(c.failed, item.ID)

	meta := models.StatusMeta{Note: "undo"}
	if entry.Decision.Action == models.ActionEditSave {
		meta.Content = item.Content
	}

	gen, sessionID := c.generation, c.sessionID
	detached := context.WithoutCancel(ctx)
	c.enqueueLocked(item.ID, func() {
		err := c.store.UpdateStatus(detached, item.ID, item.Status, meta)
		c.finishCompensation(detached, gen, sessionID, entry, err)
	})
	card := c.card
	c.mu.Unlock()

	if card != nil {
		card.Reset()
	}
	return entry, true
}

func (c *Coordinator) finishCompensation(ctx context.Context, gen uint64, sessionID string, entry models.HistoryEntry, err error) {
	item := entry.Decision.Item
	ev := events.DecisionUndone{
		SessionID: sessionID,
		PostID:    item.ID,
		Action:    entry.Decision.Action,
		Restored:  item.Status,
	}

	if err == nil {
		c.publish(ctx, events.TopicDecisionUndone, ev)
		return
	}

	ev.Error = err.Error()
	uerr := &UndoCompensationFailedError{Item: item, Err: err}
	c.log.Warn("undo not synced", "post", item.ID, "status", item.Status, "error", err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	n, hook := c.noticeLocked(NoticeWarning, item.ID, uerr)
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	c.publish(ctx, events.TopicUndoFailed, ev)
}

// enqueueLocked runs fn after every earlier write for the same post has
// finished. Writes for different posts run concurrently.
func (c *Coordinator) enqueueLocked(postID string, fn func()) {
	prev := c.lanes[postID]
	done := make(chan struct{})
	c.lanes[postID] = done

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if prev != nil {
			<-prev
		}
		fn()
		close(done)

		c.mu.Lock()
		if c.lanes[postID] == done {
			delete(c.lanes, postID)
		}
		c.mu.Unlock()
	}()
}

func (c *Coordinator) noticeLocked(level, postID string, err error) (Notice, func(Notice)) {
	n := Notice{
		Time:    time.Now().UTC(),
		Level:   level,
		Kind:    ErrorKind(err),
		PostID:  postID,
		Message: err.Error(),
	}
	c.notices = append(c.notices, n)
	if over := len(c.notices) - c.cfg.NoticeLimit; over > 0 {
		c.notices = append([]Notice(nil), c.notices[over:]...)
	}
	return n, c.onNotice
}

func (c *Coordinator) animate(card Card, action models.Action) {
	if card == nil {
		return
	}
	err := card.Commit(action, nil)
	if errors.Is(err, motion.ErrBusy) {
		// The previous card is still flying out; cut it short.
		card.Reset()
		err = card.Commit(action, nil)
	}
	if err != nil {
		c.log.Debug("card commit", "action", action, "error", err)
	}
}

func (c *Coordinator) buzz() {
	if !c.cfg.Haptics || c.buzzer == nil {
		return
	}
	if err := c.buzzer.Buzz(c.cfg.BuzzDuration); err != nil {
		c.log.Debug("haptics", "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, topic string, event any) {
	if err := c.pub.Publish(ctx, topic, event); err != nil {
		c.log.Debug("publish event", "topic", topic, "error", err)
	}
}

// Wait blocks until every queued status write has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Current returns the post on top of the queue, or nil when exhausted.
func (c *Coordinator) Current() *models.Post {
	return c.queue.Current()
}

// PeekNext returns the post after the current one, or nil.
func (c *Coordinator) PeekNext() *models.Post {
	return c.queue.PeekNext()
}

// Remaining returns how many posts are left to review, including the current one.
func (c *Coordinator) Remaining() int {
	return c.queue.Remaining()
}

// IsExhausted reports whether every post has been decided.
func (c *Coordinator) IsExhausted() bool {
	return c.queue.IsExhausted()
}

// State returns the session state of a post. Unknown posts are pending.
func (c *Coordinator) State(postID string) models.ItemState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[postID]; ok {
		return s
	}
	return models.ItemStatePending
}

// History returns the undoable decisions, oldest first.
func (c *Coordinator) History() []models.HistoryEntry {
	return c.history.Entries()
}

// Tally returns counts derived from the current history.
func (c *Coordinator) Tally() Tally {
	return ComputeTally(c.history.Entries())
}

// Notices returns the retained notices, oldest first.
func (c *Coordinator) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...)
}

// Snapshot returns a consistent view of the session.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		SessionID: c.sessionID,
		ClientID:  c.clientID,
		Current:   c.queue.Current(),
		Next:      c.queue.PeekNext(),
		Cursor:    c.queue.Cursor(),
		Total:     c.queue.Len(),
		Remaining: c.queue.Remaining(),
		Exhausted: c.queue.IsExhausted(),
		CanUndo:   !c.history.IsEmpty(),
		Tally:     ComputeTally(c.history.Entries()),
		InFlight:  []string{},
		Failed:    []string{},
		States:    make(map[string]models.ItemState, len(c.states)),
	}
	for _, p := range c.queue.Items() {
		if c.inFlight[p.ID] {
			s.InFlight = append(s.InFlight, p.ID)
		}
		if c.states[p.ID] == models.ItemStateFailed {
			s.Failed = append(s.Failed, p.ID)
		}
	}
	for id, st := range c.states {
		s.States[id] = st
	}
	return s
}
