package workout

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 2

// lineDiff renders a line-oriented diff turning want into got. Deleted lines
// are prefixed with "-", inserted lines with "+"; long unchanged runs are
// collapsed to "...".
func lineDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(want, got)
	diffs := dmp.DiffMainRunes(src, dst, false)

	var sb strings.Builder

	for idx, diff := range diffs {
		// Every rune of the text indexes one line.
		text := make([]string, 0, len(diff.Text))
		for _, lineIdx := range diff.Text {
			text = append(text, strings.TrimSuffix(lines[lineIdx], "\n"))
		}

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&sb, "- ", text)
		case diffmatchpatch.DiffInsert:
			writeLines(&sb, "+ ", text)
		case diffmatchpatch.DiffEqual:
			writeLines(&sb, "  ", collapse(text, idx > 0, idx < len(diffs)-1))
		}
	}

	return sb.String()
}

// collapse keeps diffContext lines next to the neighbouring changes.
func collapse(text []string, hasBefore, hasAfter bool) []string {
	head, tail := 0, 0
	if hasBefore {
		head = diffContext
	}

	if hasAfter {
		tail = diffContext
	}

	if len(text) <= head+tail {
		return text
	}

	out := make([]string, 0, head+tail+1)
	out = append(out, text[:head]...)
	out = append(out, "...")

	return append(out, text[len(text)-tail:]...)
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}
