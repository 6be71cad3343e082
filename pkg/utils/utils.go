// Package utils holds small string/table helpers shared across the
// evaluator, builtins, and process engine. Adapted from the teacher's
// pkg/utils/utils.go, trimmed to the generic pieces (the rest of that file
// backed gocui/color TUI chrome, which is out of scope here per spec.md's
// REPL-UI non-goal).
package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// SplitLines takes a multiline string and splits it on newlines, stripping
// \r's, dropping a single trailing empty line.
func SplitLines(multilineString string) []string {
	multilineString = strings.Replace(multilineString, "\r", "", -1)
	if multilineString == "" || multilineString == "\n" {
		return make([]string, 0)
	}
	lines := strings.Split(multilineString, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	return lines
}

// WithPadding right-pads str with spaces to the given display width.
func WithPadding(str string, padding int) string {
	uncolored := Decolorise(str)
	if padding < len(uncolored) {
		return str
	}
	return str + strings.Repeat(" ", padding-len(uncolored))
}

// NormalizeLinefeeds removes Windows and Mac style line feeds.
func NormalizeLinefeeds(str string) string {
	str = strings.Replace(str, "\r\n", "\n", -1)
	str = strings.Replace(str, "\r", "", -1)
	return str
}

// ResolvePlaceholderString populates a `{{key}}`-style template.
func ResolvePlaceholderString(str string, arguments map[string]string) string {
	for key, value := range arguments {
		str = strings.Replace(str, "{{"+key+"}}", value, -1)
	}
	return str
}

// Max returns the maximum of two integers.
func Max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

var ansiRe = regexp.MustCompile(`\x1B\[([0-9]{1,2}(;[0-9]{1,2})?)?[mK]`)

// Decolorise strips ANSI color escapes from a string, so padding widths
// are measured on the visible text.
func Decolorise(str string) string {
	return ansiRe.ReplaceAllString(str, "")
}

// RenderTable renders aligned rows of strings as a plain fixed-width table.
func RenderTable(rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if !displayArraysAligned(rows) {
		return "", fmt.Errorf("each row must have the same number of columns")
	}

	columnPadWidths := getPadWidths(rows)
	paddedDisplayRows := getPaddedDisplayStrings(rows, columnPadWidths)

	return strings.Join(paddedDisplayRows, "\n"), nil
}

func getPadWidths(rows [][]string) []int {
	if len(rows[0]) <= 1 {
		return []int{}
	}
	columnPadWidths := make([]int, len(rows[0])-1)
	for i := range columnPadWidths {
		for _, cells := range rows {
			uncolored := Decolorise(cells[i])
			if len(uncolored) > columnPadWidths[i] {
				columnPadWidths[i] = len(uncolored)
			}
		}
	}
	return columnPadWidths
}

func getPaddedDisplayStrings(rows [][]string, columnPadWidths []int) []string {
	paddedDisplayRows := make([]string, len(rows))
	for i, cells := range rows {
		for j, columnPadWidth := range columnPadWidths {
			paddedDisplayRows[i] += WithPadding(cells[j], columnPadWidth) + " "
		}
		paddedDisplayRows[i] += cells[len(columnPadWidths)]
	}
	return paddedDisplayRows
}

func displayArraysAligned(stringArrays [][]string) bool {
	for _, s := range stringArrays {
		if len(s) != len(stringArrays[0]) {
			return false
		}
	}
	return true
}

// SafeTruncate truncates str to at most limit bytes (main.go uses it to
// shorten the VCS revision in the version string).
func SafeTruncate(str string, limit int) string {
	if len(str) > limit {
		return str[0:limit]
	}
	return str
}

type multiErr []error

func (m multiErr) Error() string {
	var b strings.Builder
	b.WriteString("encountered multiple errors:")
	for _, err := range m {
		b.WriteString("\n\t... " + err.Error())
	}
	return b.String()
}

// JoinErrors combines zero or more errors into one, or nil if none.
func JoinErrors(errs []error) error {
	filtered := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return multiErr(filtered)
}
