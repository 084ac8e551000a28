package notify

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/metrics"
)

const (
	// DefaultTimeout bounds one send.
	DefaultTimeout = 5 * time.Second
	// DefaultQueueSize is the per-destination queue length.
	DefaultQueueSize = 32
)

// Route binds a destination to its minimum send interval.
type Route struct {
	Destination Destination
	MinInterval time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-send timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithQueueSize sets the per-destination queue length.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithMetrics records send results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher fans messages out to destinations through per-destination workers.
type Dispatcher struct {
	timeout   time.Duration
	queueSize int
	metrics   *metrics.Metrics

	// ctx outlives the caller's context so queued messages can still drain on shutdown.
	ctx    context.Context //nolint:containedctx // Workers run detached from any single request.
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	workers []*worker
	wg      sync.WaitGroup
}

// worker keeps critical messages apart from telemetry samples so a sample
// waiting for its interval never holds up an alarm.
type worker struct {
	destination Destination
	limiter     *RateLimiter
	critical    chan alarm.Message
	samples     chan alarm.Message
}

func (w *worker) queueFor(msg alarm.Message) chan alarm.Message {
	if msg.Critical() {
		return w.critical
	}

	return w.samples
}

// NewDispatcher starts one worker per route. ctx supplies the logger only;
// workers stop when Close is called.
func NewDispatcher(ctx context.Context, routes []Route, opts ...Option) *Dispatcher {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(logger.WithName(ctx, "notify")))

	d := &Dispatcher{
		timeout:   DefaultTimeout,
		queueSize: DefaultQueueSize,
		ctx:       workerCtx,
		cancel:    cancel,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.workers = make([]*worker, 0, len(routes))

	for _, route := range routes {
		if route.Destination == nil {
			continue
		}

		w := &worker{
			destination: route.Destination,
			limiter:     NewRateLimiter(route.MinInterval),
			critical:    make(chan alarm.Message, d.queueSize),
			samples:     make(chan alarm.Message, d.queueSize),
		}

		d.workers = append(d.workers, w)

		d.wg.Add(1)

		go d.run(w)
	}

	return d
}

// Destinations returns the names of the configured destinations.
func (d *Dispatcher) Destinations() []string {
	names := make([]string, 0, len(d.workers))
	for _, w := range d.workers {
		names = append(names, w.destination.Name())
	}

	return names
}

// Notify enqueues msg for every destination that accepts its kind.
// It never blocks: when a queue is full the message is dropped for that destination.
func (d *Dispatcher) Notify(msg alarm.Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.DebugKV(d.ctx, "Dispatcher closed, message discarded", "kind", msg.Kind)
		return
	}

	for _, w := range d.workers {
		if !w.destination.Accepts(msg.Kind) {
			continue
		}

		select {
		case w.queueFor(msg) <- msg:
		default:
			logger.WarnKV(d.ctx, "Notification queue full, message dropped",
				"destination", w.destination.Name(), "kind", msg.Kind)
			d.metrics.Notification(w.destination.Name(), msg.Kind.String(), metrics.ResultDropped)
		}
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
// When ctx ends first, in-flight sends are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true

		for _, w := range d.workers {
			close(w.critical)
			close(w.samples)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done

		return ctx.Err()
	}
}

// run delivers critical messages as soon as they arrive. A telemetry sample
// that has to wait for the rate limit is parked until it is due; meanwhile
// critical messages keep flowing and further samples stay queued.
func (d *Dispatcher) run(w *worker) {
	defer d.wg.Done()

	var (
		critical = w.critical
		samples  = w.samples
		pending  *alarm.Message
	)

	for critical != nil || samples != nil || pending != nil {
		select {
		case msg, ok := <-critical:
			if !ok {
				critical = nil
			} else {
				d.deliver(w, msg)
			}

			continue
		default:
		}

		var (
			incoming = samples
			due      <-chan time.Time
			done     <-chan struct{}
		)

		if pending != nil {
			delay := w.limiter.Delay(time.Now())
			if delay <= 0 {
				d.deliver(w, *pending)
				pending = nil

				continue
			}

			incoming = nil
			due = time.After(delay)
			done = d.ctx.Done()
		}

		select {
		case msg, ok := <-critical:
			if !ok {
				critical = nil
				continue
			}

			d.deliver(w, msg)
		case msg, ok := <-incoming:
			if !ok {
				samples = nil
				continue
			}

			pending = &msg
		case <-due:
			d.deliver(w, *pending)
			pending = nil
		case <-done:
			d.abandon(w, *pending, d.ctx.Err())
			pending = nil
		}
	}
}

func (d *Dispatcher) abandon(w *worker, msg alarm.Message, err error) {
	name := w.destination.Name()
	ctx := logger.WithKV(d.ctx, "destination", name, "kind", msg.Kind)

	logger.WarnKV(ctx, "Notification abandoned while rate limited", "error", err)
	d.metrics.Notification(name, msg.Kind.String(), metrics.ResultFailed)
}

func (d *Dispatcher) deliver(w *worker, msg alarm.Message) {
	name := w.destination.Name()
	ctx := logger.WithKV(d.ctx, "destination", name, "kind", msg.Kind)

	if err := w.limiter.Wait(ctx, msg.Critical()); err != nil {
		d.abandon(w, msg, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ack, err := w.destination.Send(sendCtx, msg)

	w.limiter.Record(time.Now())

	if err != nil {
		logger.WarnKV(ctx, "Notification failed", "error", err)
		d.metrics.Notification(name, msg.Kind.String(), metrics.ResultFailed)

		return
	}

	detail := ""
	if ack != nil {
		detail = ack.Detail
	}

	logger.DebugKV(ctx, "Notification sent", "ack", detail)
	d.metrics.Notification(name, msg.Kind.String(), metrics.ResultSent)
}
