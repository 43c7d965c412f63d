package log

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero-valued fields match everything.
type Filter struct {
	// ConnectionID matches the connection or subscriber ID exactly.
	ConnectionID string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// IsZero reports whether the filter matches every event.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether event satisfies every set criterion.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events from a log without loading it into memory.
//
// A file whose writer stopped in the middle of a record (a crash or a full
// disk) reads up to the last complete event; Truncated then reports true.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter

	read      int
	matched   int
	truncated bool
}

// NewReader opens path and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and reads the events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return newReader(f, f, filter), nil
}

// NewStreamReader reads events from r. Close is a no-op unless r
// implements io.Closer.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	c, _ := r.(io.Closer)
	return newReader(r, c, filter)
}

func newReader(r io.Reader, c io.Closer, filter Filter) *Reader {
	return &Reader{closer: c, decoder: NewDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.truncated = true
			return Event{}, io.EOF
		default:
			return Event{}, fmt.Errorf("event %d: %w", r.read+1, err)
		}

		r.read++
		if r.filter.Match(event) {
			r.matched++
			return event, nil
		}
	}
}

// Events iterates over the remaining matching events. A read error is
// yielded once with a zero Event and ends the iteration; io.EOF is not
// yielded.
func (r *Reader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Counts returns how many events were decoded and how many of them matched
// the filter.
func (r *Reader) Counts() (read, matched int) {
	return r.read, r.matched
}

// Truncated reports whether the log ended inside a record.
func (r *Reader) Truncated() bool {
	return r.truncated
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
