// Palisade - RBAC and ARBAC Identity Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palisade

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/palisade/internal/logging"
)

// Topic carries every decision event on the bus.
const Topic = "audit.decisions"

// Bus is the in-process audit event bus. Publishing is fire-and-forget
// with a buffered channel, so emitting never blocks a decision; a
// supervised Drainer persists events to the Store.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates the bus with a buffered in-process channel.
func NewBus(buffer int64) *Bus {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: buffer},
			newWatermillLogger(),
		),
	}
}

// Emit publishes one event, stamping ID and timestamp when unset and
// attaching the request correlation ID from the context.
func (b *Bus) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}

	payload, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	return b.pubSub.Publish(Topic, msg)
}

// Accept emits an accept decision.
func (b *Bus) Accept(ctx context.Context, name, actor, target string) {
	b.emitLogged(ctx, Event{Name: name, Outcome: OutcomeAccept, Actor: actor, Target: target})
}

// Reject emits a reject decision carrying the cause.
func (b *Bus) Reject(ctx context.Context, name, actor, target string, cause error) {
	event := Event{Name: name, Outcome: OutcomeReject, Actor: actor, Target: target}
	if cause != nil {
		event.Reason = cause.Error()
	}
	b.emitLogged(ctx, event)
}

func (b *Bus) emitLogged(ctx context.Context, event Event) {
	if err := b.Emit(ctx, event); err != nil {
		logging.CtxError(ctx).Err(err).Str("operation", event.Name).Msg("Failed to emit audit event")
	}
}

// Subscribe returns the message stream for the audit topic.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, Topic)
}

// Close shuts the bus down; pending messages are dropped.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Drainer consumes the bus and persists events. It runs as a supervised
// service; crashes are restarted by the supervisor tree.
type Drainer struct {
	bus   *Bus
	store Store
}

// NewDrainer wires a drainer to the bus and store.
func NewDrainer(bus *Bus, store Store) *Drainer {
	return &Drainer{bus: bus, store: store}
}

// Run consumes until the context is canceled. Implements the supervised
// service loop; persistence failures are logged and the message dropped
// rather than redelivered, since an audit record cannot be retried into
// correctness once its decision has passed.
func (d *Drainer) Run(ctx context.Context) error {
	messages, err := d.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe audit topic: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.persist(ctx, msg)
		}
	}
}

func (d *Drainer) persist(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Malformed audit event dropped")
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.store.Save(saveCtx, &event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to persist audit event")
	}
}

// watermillLogger bridges watermill's logging to zerolog.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logging.Trace().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}
