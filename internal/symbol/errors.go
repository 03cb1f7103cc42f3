package symbol

import (
	"errors"
	"fmt"
)

// ErrMalformedData matches every *MalformedDataError via errors.Is.
var ErrMalformedData = errors.New("malformed symbol data")

// MalformedDataError reports a payload record that could not become an Entry.
type MalformedDataError struct {
	Source string // payload name, empty when unknown
	Index  int    // record position within the payload
	Key    string
	Reason string
}

func (e *MalformedDataError) Error() string {
	var where string
	if e.Source != "" {
		where = e.Source + ": "
	}
	if e.Key != "" {
		return fmt.Sprintf("symbol: %srecord %d (%q): %s", where, e.Index, e.Key, e.Reason)
	}
	return fmt.Sprintf("symbol: %srecord %d: %s", where, e.Index, e.Reason)
}

func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}
