package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMatchHints(t *testing.T) {
	t.Parallel()

	if got := MatchHints("", 3); len(got) != 3 || got[0] != paletteHints[0] {
		t.Fatalf("empty input should list leading hints, got %v", got)
	}
	got := MatchHints("timer:disc", 5)
	if len(got) != 1 || got[0] != "timer:discard" {
		t.Fatalf("unexpected matches: %v", got)
	}
	if got := MatchHints("zzz", 5); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestPaletteTabCompletesAndSubmits(t *testing.T) {
	t.Parallel()

	p := NewPalette()
	p.Open()
	for _, r := range "task:ad" {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := p.input.Value(); got != "task:add " {
		t.Fatalf("tab completion: got %q", got)
	}
	for _, r := range "write report" {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.Visible() {
		t.Fatal("palette should close on enter")
	}
	msg, ok := cmd().(PaletteSubmitMsg)
	if !ok || msg.Input != "task:add write report" {
		t.Fatalf("unexpected submit: %#v", msg)
	}
}
