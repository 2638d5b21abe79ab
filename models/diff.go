package models

type DiffOp string

const (
	DiffEqual   DiffOp = "equal"
	DiffReplace DiffOp = "replace"
	DiffInsert  DiffOp = "insert"
	DiffDelete  DiffOp = "delete"
)

// DiffRow is one aligned line pair of a side-by-side diff. Line numbers are
// 1-based; a zero line number means the side has no line in this row.
type DiffRow struct {
	Op       DiffOp `json:"op"`
	FromLine int    `json:"from_line,omitempty"`
	FromText string `json:"from_text"`
	ToLine   int    `json:"to_line,omitempty"`
	ToText   string `json:"to_text"`
}

type DiffHunk struct {
	FromStart int    `json:"from_start"`
	FromLines int    `json:"from_lines"`
	ToStart   int    `json:"to_start"`
	ToLines   int    `json:"to_lines"`
	Body      string `json:"body"`
}

type DiffStat struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Deleted int `json:"deleted"`
}

type ArticleDiff struct {
	ArticleID uint       `json:"article_id"`
	From      int        `json:"from"`
	To        int        `json:"to"`
	Rows      []DiffRow  `json:"rows"`
	Unified   string     `json:"unified"`
	Hunks     []DiffHunk `json:"hunks"`
	Stat      DiffStat   `json:"stat"`
}
