package messaging

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-possess/internal/messaging"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := meter()

	delivered, err := m.Int64Counter(
		"messaging.envelopes.delivered",
		metric.WithDescription("Envelopes queued on a peer inbox"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivered counter: %w", err)
	}

	dropped, err := m.Int64Counter(
		"messaging.envelopes.dropped",
		metric.WithDescription("Envelopes dropped because a peer inbox was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return &instruments{delivered: delivered, dropped: dropped}, nil
}

func (i *instruments) record(ok bool, env Envelope) {
	attrs := metric.WithAttributes(attribute.String("handler", string(env.Handler)))
	if ok {
		i.delivered.Add(context.Background(), 1, attrs)
	} else {
		i.dropped.Add(context.Background(), 1, attrs)
	}
}
