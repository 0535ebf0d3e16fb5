package unit

// PromptUnit is one extracted unit of text ready for prompting.
type PromptUnit struct {
	ID   string         `json:"id"`             // Caller-meaningful label, not necessarily unique
	Body string         `json:"body"`           // Trimmed, non-empty text
	Meta map[string]any `json:"meta,omitempty"` // Source position details (sheet, row, ...)
}

// Table is a flat projection of an array of JSON objects.
type Table struct {
	Columns []string            `json:"columns"` // Sorted union of all observed keys
	Rows    []map[string]string `json:"rows"`    // One entry per column in every row
}
