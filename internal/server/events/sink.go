package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/logging"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Batch is the set of events produced by one committed operation.
type Batch struct {
	OccurredAt models.Timestamp
	Events     []Event
}

// Sink receives batches after the state change they describe is committed.
type Sink interface {
	Publish(ctx context.Context, batch Batch) error
}

// Envelope is the serialized form of an event.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Redact shortens session tokens so that persisted or logged events cannot be
// replayed as credentials.
func Redact(ev Event) Event {
	switch e := ev.(type) {
	case SessionCreated:
		e.Token = common.ShortToken(e.Token)
		return e
	case SessionRevoked:
		e.Token = common.ShortToken(e.Token)
		return e
	default:
		return ev
	}
}

// Encode redacts and serializes ev.
func Encode(ev Event) (Envelope, error) {
	b, err := json.Marshal(Redact(ev))
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: ev.Kind(), Payload: b}, nil
}

// Multi fans a batch out to every sink. All sinks are called; their errors
// are joined.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, batch Batch) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every batch.
type Discard struct{}

func (Discard) Publish(context.Context, Batch) error { return nil }

// LogSink writes each event as an Info line.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "events")}
}

func (s *LogSink) Publish(ctx context.Context, batch Batch) error {
	for _, ev := range batch.Events {
		env, err := Encode(ev)
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "registry event", "kind", env.Kind, "at", uint64(batch.OccurredAt), "payload", string(env.Payload))
	}
	return nil
}
