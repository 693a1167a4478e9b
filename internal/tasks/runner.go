package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/codyssea/codyssea-go-api/internal/observability"
)

// ackWait bounds how long a delivery may stay unacknowledged before
// the server redelivers it; it must exceed the slowest handler, which
// is a judge or oracle network call.
const ackWait = 2 * time.Minute

// Message is the wire envelope for one task delivery. Key identifies
// the entity the task operates on (submission id, student:course
// pair) so that at-least-once re-delivery stays idempotent. Attempt
// reflects the server-side delivery count at dispatch time.
type Message struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Key        string          `json:"key"`
	Attempt    int             `json:"attempt"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one task delivery. Returning nil completes the
// task; ErrRetry or a RetryableError re-delivers it after backoff;
// any other error dead-letters it immediately.
type Handler func(ctx context.Context, msg Message) error

// Enqueuer is the producer side of the task runtime.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind, key string, payload interface{}) error
}

// publisher is the slice of the JetStream API the runner publishes
// through.
type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Runner is a JetStream-backed at-least-once task runtime. Tasks are
// persisted in a work-queue stream and consumed with explicit acks: a
// process crash between delivery and completion leaves the message
// unacknowledged and the server redelivers it. Retries are bounded by
// RetryPolicy; backoff is scheduled server-side via delayed negative
// acks, so a backing-off task never stalls other deliveries.
type Runner struct {
	js        jetstream.JetStream
	pub       publisher
	prefix    string
	stream    string
	policy    RetryPolicy
	logger    zerolog.Logger
	mu        sync.Mutex
	handlers  map[string]Handler
	consumers []jetstream.ConsumeContext
}

// NewRunner constructs a task runner publishing under the given
// subject prefix.
func NewRunner(nc *nats.Conn, prefix string, policy RetryPolicy, logger zerolog.Logger) (*Runner, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("open jetstream: %w", err)
	}

	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	return &Runner{
		js:       js,
		pub:      js,
		prefix:   prefix,
		stream:   streamName(prefix),
		policy:   policy,
		logger:   logger.With().Str("component", "task_runner").Logger(),
		handlers: make(map[string]Handler),
	}, nil
}

// Handle registers the handler for a task kind. Must be called before
// Start.
func (r *Runner) Handle(kind string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Enqueue publishes a new task of the given kind.
func (r *Runner) Enqueue(ctx context.Context, kind, key string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}

	msg := Message{
		ID:         uuid.NewString(),
		Kind:       kind,
		Key:        key,
		Attempt:    1,
		Payload:    encoded,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode task message: %w", err)
	}

	if _, err := r.pub.Publish(ctx, r.subject(kind), data); err != nil {
		return fmt.Errorf("publish task %s: %w", kind, err)
	}
	return nil
}

// Start provisions the work-queue stream and one durable consumer per
// registered kind. Deliveries are processed until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, err := r.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      r.stream,
		Subjects:  []string{r.prefix + ".>"},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", r.stream, err)
	}

	for kind, handler := range r.handlers {
		consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Durable:       durableName(kind),
			FilterSubject: r.subject(kind),
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    r.policy.MaxAttempts,
			AckWait:       ackWait,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", kind, err)
		}

		cc, err := consumer.Consume(func(delivery jetstream.Msg) {
			r.dispatch(ctx, kind, handler, delivery)
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", kind, err)
		}
		r.consumers = append(r.consumers, cc)
	}

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Stop drains the active consumers.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cc := range r.consumers {
		cc.Drain()
	}
	r.consumers = nil
}

func (r *Runner) dispatch(ctx context.Context, kind string, handler Handler, delivery jetstream.Msg) {
	var msg Message
	if err := json.Unmarshal(delivery.Data(), &msg); err != nil {
		r.logger.Error().Err(err).Str("kind", kind).Msg("undecodable task message dropped")
		_ = delivery.Term()
		return
	}

	attempt := msg.Attempt
	if meta, err := delivery.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}
	msg.Attempt = attempt

	logger := r.logger.With().
		Str("kind", msg.Kind).
		Str("task_id", msg.ID).
		Str("key", msg.Key).
		Int("attempt", attempt).
		Logger()

	err := handler(ctx, msg)
	if err == nil {
		if ackErr := delivery.Ack(); ackErr != nil {
			logger.Warn().Err(ackErr).Msg("failed to ack completed task")
		}
		return
	}

	if !IsRetryable(err) {
		logger.Error().Err(err).Msg("task failed permanently, dead-lettering")
		r.deadLetter(ctx, msg)
		_ = delivery.Term()
		return
	}

	if attempt >= r.policy.MaxAttempts {
		logger.Warn().Err(err).Msg("task retry budget exhausted, dead-lettering")
		r.deadLetter(ctx, msg)
		_ = delivery.Term()
		return
	}

	delay := r.policy.Backoff(attempt)
	observability.TaskRetries().WithLabelValues(msg.Kind).Inc()
	logger.Info().Dur("delay", delay).Msg("scheduling re-delivery")

	if nakErr := delivery.NakWithDelay(delay); nakErr != nil {
		logger.Error().Err(nakErr).Msg("failed to schedule re-delivery")
	}
}

// deadLetter parks the message on the dead-letter subject inside the
// same stream, where it stays until an operator consumes it.
func (r *Runner) deadLetter(ctx context.Context, msg Message) {
	observability.TaskDeadLetters().WithLabelValues(msg.Kind).Inc()
	encoded, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if _, err := r.pub.Publish(ctx, r.prefix+".dlq", encoded); err != nil {
		r.logger.Error().Err(err).Str("task_id", msg.ID).Msg("failed to publish dead letter")
	}
}

func (r *Runner) subject(kind string) string {
	return r.prefix + "." + kind
}

func streamName(prefix string) string {
	return strings.ToUpper(strings.ReplaceAll(prefix, ".", "_"))
}

func durableName(kind string) string {
	return strings.ReplaceAll(kind, ".", "_")
}
