package possession

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-possess/internal/possession"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	requests    metric.Int64Counter
	refused     metric.Int64Counter
	transitions metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := meter()

	requests, err := m.Int64Counter(
		"possession.requests",
		metric.WithDescription("Possession requests sent to the authority"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}

	refused, err := m.Int64Counter(
		"possession.requests.refused",
		metric.WithDescription("Requests refused locally before sending"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refused counter: %w", err)
	}

	transitions, err := m.Int64Counter(
		"possession.transitions",
		metric.WithDescription("Decisions taken by the authoritative peer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return &instruments{requests: requests, refused: refused, transitions: transitions}, nil
}

func (i *instruments) request(ctx context.Context, kind string) {
	i.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (i *instruments) refuse(ctx context.Context, kind string, err error) {
	i.refused.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", err.Error()),
	))
}

func (i *instruments) transition(ctx context.Context, kind TransitionKind) {
	i.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}
