package services

import (
	"fmt"
	"strings"

	"wiki-engine/models"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

const diffContextLines = 3

// diffVersions compares the raw bodies of two versions line by line.
func diffVersions(from, to *models.ArticleVersion) (*models.ArticleDiff, error) {
	fromRaw := normalizeNewlines(from.Body.Raw)
	toRaw := normalizeNewlines(to.Body.Raw)

	result := &models.ArticleDiff{
		ArticleID: from.ArticleID,
		From:      from.Number,
		To:        to.Number,
		Rows:      diffRows(strings.Split(fromRaw, "\n"), strings.Split(toRaw, "\n")),
		Hunks:     []models.DiffHunk{},
	}

	hunkText, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       difflib.SplitLines(fromRaw),
		B:       difflib.SplitLines(toRaw),
		Context: diffContextLines,
	})
	if err != nil {
		return nil, err
	}
	if hunkText == "" {
		return result, nil
	}
	result.Unified = fmt.Sprintf("--- r%d\n+++ r%d\n%s", from.Number, to.Number, hunkText)

	hunks, err := diff.ParseHunks([]byte(hunkText))
	if err != nil {
		return nil, err
	}
	for _, h := range hunks {
		result.Hunks = append(result.Hunks, models.DiffHunk{
			FromStart: int(h.OrigStartLine),
			FromLines: int(h.OrigLines),
			ToStart:   int(h.NewStartLine),
			ToLines:   int(h.NewLines),
			Body:      string(h.Body),
		})
		st := h.Stat()
		result.Stat.Added += int(st.Added)
		result.Stat.Changed += int(st.Changed)
		result.Stat.Deleted += int(st.Deleted)
	}
	return result, nil
}

// diffRows aligns a and b into side-by-side rows.
func diffRows(a, b []string) []models.DiffRow {
	rows := []models.DiffRow{}
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, models.DiffRow{
					Op:       models.DiffEqual,
					FromLine: op.I1 + k + 1,
					FromText: a[op.I1+k],
					ToLine:   op.J1 + k + 1,
					ToText:   b[op.J1+k],
				})
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				rows = append(rows, models.DiffRow{Op: models.DiffDelete, FromLine: i + 1, FromText: a[i]})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				rows = append(rows, models.DiffRow{Op: models.DiffInsert, ToLine: j + 1, ToText: b[j]})
			}
		case 'r':
			n := max(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				row := models.DiffRow{Op: models.DiffReplace}
				if i := op.I1 + k; i < op.I2 {
					row.FromLine, row.FromText = i+1, a[i]
				}
				if j := op.J1 + k; j < op.J2 {
					row.ToLine, row.ToText = j+1, b[j]
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
