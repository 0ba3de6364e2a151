package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/models"
	"github.com/joescharf/swipe/internal/motion"
	"github.com/joescharf/swipe/internal/review"
)

type styles struct {
	header  lipgloss.Style
	card    lipgloss.Style
	title   lipgloss.Style
	approve lipgloss.Style
	decline lipgloss.Style
	edit    lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	done    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2),
		title:   lipgloss.NewStyle().Bold(true),
		approve: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		decline: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		edit:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		done:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Padding(1, 2),
	}
}

func (m *Model) View() string {
	snap := m.coord.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(snap))
	b.WriteString("\n\n")

	switch {
	case m.editing != nil:
		b.WriteString(m.styles.edit.Render("Editing: " + postLabel(m.editing)))
		b.WriteString("\n\n")
		b.WriteString(m.editor.View())
		b.WriteString("\n\n")
		b.WriteString(m.styles.muted.Render("ctrl+s save · esc cancel"))
	case m.leaving != nil && m.card.State() == motion.StateCommitting:
		b.WriteString(m.renderCard(m.leaving, m.card.Transform()))
	case snap.Exhausted:
		b.WriteString(m.renderDone(snap))
	default:
		b.WriteString(m.renderCard(snap.Current, m.card.Transform()))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader(snap review.Snapshot) string {
	name := m.cfg.ClientName
	if name == "" {
		name = snap.ClientID
	}
	pct := 0.0
	if snap.Total > 0 {
		pct = float64(snap.Cursor) / float64(snap.Total)
	}
	line := fmt.Sprintf("%s  %d/%d", m.styles.header.Render(name), snap.Cursor, snap.Total)
	tally := fmt.Sprintf("%s %d  %s %d  %s %d",
		m.styles.approve.Render("✓"), snap.Tally.Approved,
		m.styles.decline.Render("✗"), snap.Tally.Declined,
		m.styles.edit.Render("✎"), snap.Tally.Edited)
	return line + "  " + tally + "\n" + m.progress.ViewAs(pct)
}

// renderCard draws p shifted by the card transform. The terminal cannot
// rotate text, so tilt is shown as a lean marker instead.
func (m *Model) renderCard(p *models.Post, t motion.Transform) string {
	if p == nil {
		return ""
	}
	width := 60
	if m.width > 0 {
		width = min(max(m.width-10, 24), 72)
	}

	body := m.styles.title.Render(postLabel(p)) + "\n\n" + p.Content
	card := m.styles.card.Width(width).Render(body)

	if label := m.hintLabel(); label != "" {
		card = label + "\n" + card
	}

	dx := int(math.Round(t.X / cellWidth))
	dy := int(math.Round(t.Y / cellHeight))
	indent := max(dx+4, 0)
	out := lipgloss.NewStyle().MarginLeft(indent).Render(card)
	if dy > 0 {
		out = strings.Repeat("\n", dy) + out
	}
	if lean := leanMarker(t.Rotation); lean != "" {
		out += "\n" + strings.Repeat(" ", indent) + m.styles.muted.Render(lean)
	}
	return out
}

func (m *Model) hintLabel() string {
	switch m.hint {
	case gesture.DirectionRight:
		return m.styles.approve.Render("APPROVE →")
	case gesture.DirectionLeft:
		return m.styles.decline.Render("← DECLINE")
	case gesture.DirectionUp:
		return m.styles.edit.Render("↑ EDIT")
	}
	return ""
}

func leanMarker(rotation float64) string {
	switch {
	case rotation > 5:
		return strings.Repeat("/", min(int(rotation/5), 6))
	case rotation < -5:
		return strings.Repeat("\\", min(int(-rotation/5), 6))
	}
	return ""
}

func (m *Model) renderDone(snap review.Snapshot) string {
	msg := fmt.Sprintf("All caught up. %d approved, %d declined, %d edited.",
		snap.Tally.Approved, snap.Tally.Declined, snap.Tally.Edited)
	if len(snap.Failed) > 0 {
		msg += fmt.Sprintf("\n%d failed to save; press r to retry.", len(snap.Failed))
	}
	return m.styles.done.Render(msg)
}

func (m *Model) renderFooter() string {
	var lines []string
	for _, n := range m.notices {
		style := m.styles.error
		if n.Level == review.NoticeWarning {
			style = m.styles.warning
		}
		lines = append(lines, style.Render("! "+n.Message))
	}
	if m.status != "" {
		lines = append(lines, m.styles.muted.Render(m.status))
	}
	lines = append(lines, m.styles.muted.Render("→/a approve · ←/d decline · ↑/e edit · u undo · r retry · q quit"))
	return strings.Join(lines, "\n")
}
