package chunk

import "sort"

// looksGenerated reports whether content's line-length distribution marks
// it as generated/minified: the 95th percentile line length exceeds
// generatedP95LineLen. Grounded on the reference size-threshold approach
// in code_chunker.go, generalized to a p95-based skip rule.
func looksGenerated(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	lens := make([]int, len(lines))
	for i, l := range lines {
		lens[i] = len(l)
	}
	sort.Ints(lens)
	idx := (95 * (len(lens) - 1)) / 100
	return lens[idx] > generatedP95LineLen
}

// skipElement reports whether a structural element should be dropped
// rather than turned into a chunk: empty content, or fewer than
// minLinesWithoutDoc lines with no doc comment to justify the chunk.
func skipElement(lineCount int, content, docComment string) bool {
	if len(content) == 0 {
		return true
	}
	if lineCount < minLinesWithoutDoc && docComment == "" {
		return true
	}
	return false
}
