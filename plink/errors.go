package plink

import "fmt"

// MalformedRowError is fatal for a run. Once one row is short the column
// offsets of the rest of the file cannot be trusted.
type MalformedRowError struct {
	File   string
	Line   int
	Fields int
	Want   int
	Msg    string
}

func (e *MalformedRowError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("malformed row at %s line %d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("malformed row at %s line %d: found %d fields, need at least %d", e.File, e.Line, e.Fields, e.Want)
}

type EmptyInputError struct {
	File string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no sample rows found in %s", e.File)
}
