// AngelaMos | 2026
// dispatcher.go

package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher delivers notifications in the background. Deliveries never
// inherit the request context and their errors are only logged.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	inFlight atomic.Int64
	sent     atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// Stats counts deliveries since startup.
type Stats struct {
	InFlight int64
	Sent     uint64
	Failed   uint64
	Dropped  uint64
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		InFlight: d.inFlight.Load(),
		Sent:     d.sent.Load(),
		Failed:   d.failed.Load(),
		Dropped:  d.dropped.Load(),
	}
}

func NewDispatcher(sender Sender, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, logger: logger}
}

func (d *Dispatcher) OrderPlaced(evt OrderPlaced) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.dropped.Add(1)
		d.logger.Warn("notification dropped after shutdown",
			"order_id", evt.OrderID,
		)
		return
	}
	d.wg.Add(1)
	d.inFlight.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		defer func() {
			if rec := recover(); rec != nil {
				d.failed.Add(1)
				d.logger.Error("notification panicked",
					"order_id", evt.OrderID,
					"panic", rec,
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, evt); err != nil {
			d.failed.Add(1)
			d.logger.Error("order notification failed",
				"order_id", evt.OrderID,
				"error", err,
			)
			return
		}
		d.sent.Add(1)
		d.logger.Debug("order notification sent", "order_id", evt.OrderID)
	}()
}

// Close stops accepting work and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
