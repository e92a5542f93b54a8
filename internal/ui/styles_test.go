package ui

import (
	"strings"
	"testing"
)

func TestGetStyles_SelectsPlainWhenNoColor(t *testing.T) {
	s := GetStyles(true)
	if got := s.Healthy.Render("test"); got != "test" {
		t.Errorf("expected no-color rendering to pass text through unchanged, got %q", got)
	}
}

func TestGetStyles_SelectsColoredByDefault(t *testing.T) {
	// Exact ANSI codes depend on the terminal color profile; just confirm
	// the text survives rendering.
	s := GetStyles(false)
	if got := s.Healthy.Render("test"); !strings.Contains(got, "test") {
		t.Errorf("expected rendered text to contain %q, got %q", "test", got)
	}
}
