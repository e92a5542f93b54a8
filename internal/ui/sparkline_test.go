package ui

import "testing"

func TestHistory_RenderPadsUntilFilled(t *testing.T) {
	h := NewHistory(5)
	h.Add(50)
	out := []rune(h.Render())
	if len(out) != 5 {
		t.Fatalf("expected 5 runes, got %d", len(out))
	}
	if out[0] != ' ' || out[1] != ' ' || out[2] != ' ' || out[3] != ' ' {
		t.Errorf("expected leading padding before the single sample, got %q", string(out))
	}
}

func TestHistory_ClampsOutOfRangeSamples(t *testing.T) {
	h := NewHistory(1)
	h.Add(-10)
	low := h.Render()
	h.Add(500)
	high := h.Render()
	if low != string(sparklineChars[0]) {
		t.Errorf("expected clamped-low sample to render as the empty glyph, got %q", low)
	}
	if high != string(sparklineChars[len(sparklineChars)-1]) {
		t.Errorf("expected clamped-high sample to render as the full glyph, got %q", high)
	}
}

func TestHistory_WrapsAroundRingBuffer(t *testing.T) {
	h := NewHistory(3)
	h.Add(0)
	h.Add(50)
	h.Add(100)
	h.Add(100) // overwrites the oldest (0)

	out := []rune(h.Render())
	if len(out) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(out))
	}
	if out[2] != sparklineChars[len(sparklineChars)-1] {
		t.Errorf("expected most recent sample (100) to render as the full glyph, got %q", string(out[2]))
	}
}

func TestNewHistory_DefaultsOnNonPositiveWidth(t *testing.T) {
	h := NewHistory(0)
	if h.width != 40 {
		t.Errorf("expected default width 40, got %d", h.width)
	}
}
