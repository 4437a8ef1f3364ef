package annotation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sceneannotate/annotator/internal/annotation"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

const (
	phaseSerialize   = "serialize"
	phaseDeserialize = "deserialize"
)

// Reasons a node or record is skipped
const (
	ReasonNoShape     = "no_shape"
	ReasonUnknownKind = "unknown_kind"
	ReasonNoGeometry  = "no_geometry"
	ReasonBadBuffer   = "bad_buffer"
	ReasonNoMaterial  = "no_material"
	ReasonNoGrid      = "no_grid"
	ReasonInvalid     = "invalid"
	ReasonUndecodable = "undecodable"
)

type counters struct {
	serialized metric.Int64Counter
	restored   metric.Int64Counter
	skipped    metric.Int64Counter
}

// newCounters uses the global OTel meter (no-op if not configured)
func newCounters() (*counters, error) {
	m := meter()
	c := &counters{}

	var err error
	c.serialized, err = m.Int64Counter(
		"annotator.annotations.serialized",
		metric.WithDescription("Annotation records produced from a scene"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating serialized counter: %w", err)
	}

	c.restored, err = m.Int64Counter(
		"annotator.annotations.restored",
		metric.WithDescription("Annotation nodes rebuilt from records"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restored counter: %w", err)
	}

	c.skipped, err = m.Int64Counter(
		"annotator.annotations.skipped",
		metric.WithDescription("Annotations skipped during save or load"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	return c, nil
}

func (c *counters) skip(phase, reason string) {
	c.skipped.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("reason", reason),
	))
}
