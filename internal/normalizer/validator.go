package normalizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"prensa/internal/logger"
	"prensa/pkg/textutil"
)

// maxReportedIssues bounds the sample of offending cells logged during the
// pre-flight check.
const maxReportedIssues = 20

// CellIssue describes one row cell that would not survive the write payload.
type CellIssue struct {
	Row    int
	Col    int
	Reason string
	Sample string
}

// Validator runs batch-level checks on normalized rows before they are
// handed to the persistence adapter. Problems are reported, never fatal.
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a validator logging through the given logger.
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{logger: log}
}

// KeyCoverage reports how many rows of a batch carry an empty natural key.
// A batch without keys cannot be deduplicated by key; this is logged, not
// treated as fatal.
func (v *Validator) KeyCoverage(keys []string) int {
	missing := 0

	for _, key := range keys {
		if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "|") {
			missing++
		}
	}

	if missing > 0 && v.logger != nil {
		v.logger.Warn("rows without a usable natural key; key dedupe will skip them",
			"missing", missing, "total", len(keys))
	}

	return missing
}

// Preflight checks rows for cells that would corrupt the write payload:
// invalid UTF-8 and stringified null markers left over from upstream
// serialization. Offending samples are logged (bounded) and the cleaned
// rows returned; the write is still attempted.
func (v *Validator) Preflight(rows [][]string) [][]string {
	var issues []CellIssue

	cleaned := make([][]string, len(rows))

	for r, row := range rows {
		out := make([]string, len(row))

		for c, cell := range row {
			fixed, reason := cleanCell(cell)
			out[c] = fixed

			if reason != "" && len(issues) < maxReportedIssues {
				issues = append(issues, CellIssue{
					Row:    r,
					Col:    c,
					Reason: reason,
					Sample: textutil.Truncate(cell, 60),
				})
			}
		}

		cleaned[r] = out
	}

	if len(issues) > 0 && v.logger != nil {
		v.logger.Warn("pre-flight found non-writable cells; writing cleaned values",
			"issues", len(issues))

		for _, issue := range issues {
			v.logger.Warn(fmt.Sprintf("cell [%d,%d] %s: %s",
				issue.Row, issue.Col, issue.Reason, issue.Sample))
		}
	}

	return cleaned
}

func cleanCell(cell string) (string, string) {
	lower := strings.ToLower(strings.TrimSpace(cell))
	if lower == "nan" || lower == "nat" || lower == "none" || lower == "null" || lower == "<nil>" {
		return "", "null marker"
	}

	if !utf8.ValidString(cell) {
		return strings.ToValidUTF8(cell, "�"), "invalid UTF-8"
	}

	return cell, ""
}
