package ui

import "strings"

// sparklineChars are the Unicode block characters used to render a
// history strip, from empty to full.
var sparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// History is a fixed-width ring buffer of percentage samples (0-100),
// rendered as a block-character sparkline. Unlike a throughput sparkline
// that rescales to its own running max, History renders against the
// fixed 0-100 scale its samples already live on (embedding coverage
// percent, tombstone fraction as a percent, and the like), so a
// consistently full or consistently empty bar is still meaningful.
type History struct {
	samples []float64
	width   int
	head    int
	count   int
}

// NewHistory creates a History holding up to width samples.
func NewHistory(width int) *History {
	if width <= 0 {
		width = 40
	}
	return &History{samples: make([]float64, width), width: width}
}

// Add records one percentage sample, clamped to [0, 100].
func (h *History) Add(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	h.samples[h.head] = percent
	h.head = (h.head + 1) % h.width
	h.count++
}

// Render returns the block-character strip, oldest sample first, padded
// with spaces on the left until the buffer has filled once.
func (h *History) Render() string {
	var sb strings.Builder
	sb.Grow(h.width * 3)

	numSamples := min(h.count, h.width)
	start := 0
	if h.count >= h.width {
		start = h.head
	}

	pad := h.width - numSamples
	for i := 0; i < h.width; i++ {
		if i < pad {
			sb.WriteRune(' ')
			continue
		}
		idx := (start + i - pad) % h.width
		charIdx := int(h.samples[idx] / 100 * float64(len(sparklineChars)-1))
		if charIdx < 0 {
			charIdx = 0
		}
		if charIdx >= len(sparklineChars) {
			charIdx = len(sparklineChars) - 1
		}
		sb.WriteRune(sparklineChars[charIdx])
	}
	return sb.String()
}
