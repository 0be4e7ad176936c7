package render

import (
	"strings"

	"golang.org/x/image/font"
)

// Wrap splits text greedily into lines no wider than maxWidth. Words are
// never split, so a single word wider than maxWidth gets a line of its own.
func Wrap(m Measurer, text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	lines := make([]string, 0, 1)
	if len(words) == 0 {
		return lines
	}

	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if width, _ := m.Measure(candidate, face); width <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}
