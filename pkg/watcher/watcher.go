// Package watcher polls the agent wallet balance and fans session events
// out to subscribers (the TUI and the mirror server).
package watcher

import (
	"context"
	"sync"
	"time"

	"agentterm/pkg/models"

	"github.com/shopspring/decimal"
)

// DefaultInterval is the balance polling period.
const DefaultInterval = 3 * time.Second

// BalanceSource defines the interface for reading a chain balance.
type BalanceSource interface {
	FetchBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Status is a point-in-time view of the watcher.
type Status struct {
	Address   string                  `json:"address"`
	Balance   *decimal.Decimal        `json:"balance,omitempty"`
	UpdatedAt time.Time               `json:"updated_at,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Session   *models.SessionSnapshot `json:"session,omitempty"`
}

// Watcher manages background balance polling and the event hub.
type Watcher struct {
	interval time.Duration

	address   string
	balance   *decimal.Decimal
	updatedAt time.Time
	lastErr   string
	session   *models.SessionSnapshot

	subscribers []Subscriber
	mu          sync.RWMutex
	refresh     chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	dataSource  BalanceSource
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(source BalanceSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		interval:   interval,
		refresh:    make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		dataSource: source,
	}
}

// SetDataSource allows overriding the data source (useful for testing).
func (w *Watcher) SetDataSource(ds BalanceSource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataSource = ds
}

// Watch switches polling to address and requests an immediate read.
func (w *Watcher) Watch(address string) {
	w.mu.Lock()
	if w.address != address {
		w.address = address
		w.balance = nil
		w.lastErr = ""
	}
	w.mu.Unlock()
	w.Refresh()
}

// Refresh requests a balance read outside the regular schedule.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Publish broadcasts an event produced outside the watcher, such as a new
// conversation line. Session snapshots are kept for Status.
func (w *Watcher) Publish(event Event) {
	if snap, ok := event.Data.(models.SessionSnapshot); ok {
		w.mu.Lock()
		w.session = &snap
		w.mu.Unlock()
	}
	w.notify(event)
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			// slow subscriber, drop
		}
	}
}

// Start begins the polling loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.pollingLoop(ctx)
}

// Stop stops the polling loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.fetchBalance(ctx)
		case <-w.refresh:
			w.fetchBalance(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) fetchBalance(ctx context.Context) {
	w.mu.RLock()
	address, source := w.address, w.dataSource
	w.mu.RUnlock()
	if address == "" || source == nil {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, w.interval*3)
	balance, err := source.FetchBalance(fetchCtx, address)
	cancel()

	w.mu.Lock()
	if w.address != address {
		// watched address changed while fetching
		w.mu.Unlock()
		return
	}
	if err != nil {
		w.lastErr = err.Error()
	} else {
		w.balance = &balance
		w.updatedAt = time.Now()
		w.lastErr = ""
	}
	at := w.updatedAt
	w.mu.Unlock()

	if err != nil {
		w.notify(Event{Type: EventBalanceFailed, Data: BalanceFailure{Address: address, Error: err.Error()}})
		return
	}
	w.notify(Event{Type: EventBalanceUpdated, Data: BalanceUpdate{Address: address, Balance: balance, At: at}})
}

// Status returns the current watcher state.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{
		Address:   w.address,
		UpdatedAt: w.updatedAt,
		Error:     w.lastErr,
		Session:   w.session,
	}
	if w.balance != nil {
		b := *w.balance
		st.Balance = &b
	}
	return st
}
