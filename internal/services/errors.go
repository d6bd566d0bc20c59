package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyData is returned when a latest period is requested for a filtered
// table with no records.
var ErrEmptyData = errors.New("filtered table has no records")

// ParseError reports tabular data that could not be read: broken delimited
// structure, an unreadable workbook or a non-numeric amount.
type ParseError struct {
	Line   int
	Column string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ", column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError lists the required columns absent from the header.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// DateFormatError reports an order date that matched none of the layouts.
type DateFormatError struct {
	Line  int
	Value string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("line %d: cannot parse order date %q", e.Line, e.Value)
}
