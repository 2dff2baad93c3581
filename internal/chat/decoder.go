package chat

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decoder reads a stream of JSON events, one per line or simply concatenated.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (Event, error) {
	var ev Event
	if err := d.dec.Decode(&ev); err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
