package review

import (
	"context"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/models"
)

// Gestures binds a drag source to the coordinator: samples move the card and
// a release either commits a decision on the current post or snaps the card
// back. A release that does not cross the commit threshold never reaches the
// store.
type Gestures struct {
	coord      *Coordinator
	classifier *gesture.Classifier
}

// NewGestures returns a binding that classifies with cfg.
func NewGestures(coord *Coordinator, cfg gesture.Config) *Gestures {
	return &Gestures{coord: coord, classifier: gesture.NewClassifier(cfg)}
}

func (g *Gestures) card() Card {
	g.coord.mu.Lock()
	defer g.coord.mu.Unlock()
	return g.coord.card
}

// Begin grabs the card. It fails with motion.ErrBusy while the previous card
// is still flying out.
func (g *Gestures) Begin() error {
	if card := g.card(); card != nil {
		return card.BeginDrag()
	}
	return nil
}

// Move follows the pointer and returns the live direction hint.
func (g *Gestures) Move(s gesture.Sample) gesture.Direction {
	if card := g.card(); card != nil {
		card.UpdateDrag(s.DX, s.DY)
	}
	return g.classifier.Sample(s)
}

// Release classifies the final sample. It reports the action and whether a
// decision was applied. Guard rejections from the coordinator are returned
// with the card snapped back.
func (g *Gestures) Release(ctx context.Context, s gesture.Sample) (models.Action, bool, error) {
	card := g.card()
	if card != nil {
		card.UpdateDrag(s.DX, s.DY)
	}

	action, ok := g.classifier.Release(s)
	item := g.coord.Current()
	if !ok || item == nil {
		if card != nil {
			card.CancelDrag()
		}
		return "", false, nil
	}

	if err := g.coord.Decide(ctx, item, action); err != nil {
		if card != nil {
			card.CancelDrag()
		}
		return action, false, err
	}
	return action, true, nil
}
