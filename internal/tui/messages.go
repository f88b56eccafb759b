package tui

// RowUpdateMsg sets fields of one row, keyed by column header.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// WorkDoneMsg ends the program after the last update.
type WorkDoneMsg struct{}

// ErrorMsg ends the program with an error.
type ErrorMsg struct {
	Err error
}
