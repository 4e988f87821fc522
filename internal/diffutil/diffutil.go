// Package diffutil compares generated build files and renders readable
// diffs when regeneration drifts from what is on disk.
package diffutil

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lineRef matches embedded "file:line:" metadata such as
// "src/main.c:42:". The line number varies with unrelated edits, so it
// is not meaningful for drift comparison.
var lineRef = regexp.MustCompile(`(\S+):\d+:`)

// StripLineNumbers drops the line-number component from embedded
// "file:line:" references, keeping the file part.
func StripLineNumbers(s string) string {
	return lineRef.ReplaceAllString(s, "$1:")
}

// Normalizer rewrites content before comparison.
type Normalizer func(string) string

// Equal reports whether two build files match after applying the given
// normalizers to both sides.
func Equal(a, b string, normalizers ...Normalizer) bool {
	for _, n := range normalizers {
		a = n(a)
		b = n(b)
	}
	return a == b
}

// Unified renders a compact line-oriented diff from a to b, with
// "-"/"+" prefixes and unchanged lines passed through.
func Unified(a, b string) string {
	dmp := diffmatchpatch.New()
	aChars, bChars, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(aChars, bChars, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
