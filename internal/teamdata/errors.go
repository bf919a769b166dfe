package teamdata

import "fmt"

// FormatError reports a malformed team document. Path is the dotted
// location of the offending value, empty for document-level problems.
type FormatError struct {
	Path string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "invalid team document: " + e.Msg
	}
	return fmt.Sprintf("invalid team document at %s: %s", e.Path, e.Msg)
}

func formatErr(path, format string, args ...any) *FormatError {
	return &FormatError{Path: path, Msg: fmt.Sprintf(format, args...)}
}
