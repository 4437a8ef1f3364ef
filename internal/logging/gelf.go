package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// GraylogFacility tags every message sent to Graylog.
const GraylogFacility = "annotator"

// NewGraylogWriter dials a GELF UDP endpoint. The returned writer can be
// passed to Setup as an extra sink; each log line becomes one GELF message.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create graylog writer: %w", err)
	}
	w.Facility = GraylogFacility
	return w, nil
}
