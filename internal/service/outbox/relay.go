// Package outbox доставляет события изменений во внешний publisher в фоне:
// мутации репозитория не ждут брокер, а временные ошибки повторяются с backoff.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
)

const (
	defaultQueueSize      = 256
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

// ErrQueueFull — очередь переполнена, событие отброшено.
var ErrQueueFull = errors.New("outbox queue is full")

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kelnar_outbox_publish_attempts_total",
		Help: "Change event publish attempts grouped by result.",
	}, []string{"result"})
	pendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kelnar_outbox_pending_events",
		Help: "Change events waiting in the outbox queue.",
	})
)

// Options задаёт параметры Relay.
type Options struct {
	Logger         *log.Entry
	QueueSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Relay.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

func WithQueueSize(size int) Option {
	return func(opts *Options) { opts.QueueSize = size }
}

func WithMaxAttempts(attempts int) Option {
	return func(opts *Options) { opts.MaxAttempts = attempts }
}

// WithRetryBaseDelay задаёт базовую задержку экспоненциального backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *Options) { opts.RetryBaseDelay = delay }
}

// Relay — буферизованная очередь событий перед медленным publisher.
type Relay struct {
	target         domain.ChangePublisher
	queue          chan domain.ChangeEvent
	logger         *log.Entry
	maxAttempts    int
	retryBaseDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ domain.ChangePublisher = (*Relay)(nil)

// NewRelay создаёт relay поверх target. Доставка начинается после Start или Run.
func NewRelay(target domain.ChangePublisher, options ...Option) *Relay {
	opts := Options{
		QueueSize:      defaultQueueSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "outbox-relay")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Relay{
		target:         target,
		queue:          make(chan domain.ChangeEvent, opts.QueueSize),
		logger:         opts.Logger,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Publish ставит событие в очередь и не блокируется.
func (r *Relay) Publish(event domain.ChangeEvent) error {
	select {
	case r.queue <- event:
		pendingEvents.Set(float64(len(r.queue)))
		return nil
	default:
		publishAttempts.WithLabelValues("dropped").Inc()
		return fmt.Errorf("%s %s: %w", event.Kind, event.EntityID, ErrQueueFull)
	}
}

// Pending возвращает число событий в очереди.
func (r *Relay) Pending() int {
	return len(r.queue)
}

// Run доставляет события до отмены ctx, затем однократно пытается
// отправить то, что осталось в очереди.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case event := <-r.queue:
			pendingEvents.Set(float64(len(r.queue)))
			if err := r.publishWithRetry(ctx, event); err != nil {
				r.logger.WithError(err).WithFields(log.Fields{
					"kind":      event.Kind,
					"entity_id": event.EntityID,
				}).Error("событие не доставлено")
				publishAttempts.WithLabelValues("failed").Inc()
			}
		}
	}
}

// Start запускает Run в отдельной горутине. Повторный вызов ничего не делает.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		r.Run(ctx)
	}()
}

// Close останавливает доставку и ждёт, пока очередь будет сброшена.
func (r *Relay) Close() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (r *Relay) flush() {
	for {
		select {
		case event := <-r.queue:
			if err := r.target.Publish(event); err != nil {
				r.logger.WithError(err).WithField("kind", event.Kind).Warn("событие потеряно при остановке")
				publishAttempts.WithLabelValues("failed").Inc()
				continue
			}
			publishAttempts.WithLabelValues("sent").Inc()
		default:
			pendingEvents.Set(0)
			return
		}
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, event domain.ChangeEvent) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.target.Publish(event)
		if err == nil {
			publishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		publishAttempts.WithLabelValues("retry_error").Inc()

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryBackoff(attempt)):
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *Relay) retryBackoff(attempt int) time.Duration {
	if r.retryBaseDelay <= 0 {
		return 0
	}
	const maxDelay = 5 * time.Second
	delay := r.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
