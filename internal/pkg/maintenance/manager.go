package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/voxaria/voxpremium/internal/pkg/billing"
	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
)

const (
	defaultInterval     = 5 * time.Minute
	sessionCleanupLimit = 1000
	runTimeout          = 30 * time.Second
)

// Manager runs the recurring ledger hygiene tasks: expired session cleanup
// and processed-event purging. It must be stopped before the database pool is
// closed so no cleanup transaction is cut off mid-flight.
type Manager struct {
	sessions *sessionstore.Store
	billing  *billing.Service
	interval time.Duration

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewManager(sessions *sessionstore.Store, billingSvc *billing.Service) *Manager {
	return &Manager{
		sessions: sessions,
		billing:  billingSvc,
		interval: defaultInterval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background cleanup loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.ticker = time.NewTicker(m.interval)
	// Fresh channel per start cycle so the manager can be restarted after Stop.
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.worker()

	log.Info("[Maintenance] cleanup worker started")
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ticker.C:
			m.RunOnce()
		case <-m.stopCh:
			return
		}
	}
}

// RunOnce executes one cleanup pass. Each task gets its own bounded context
// so a slow database cannot wedge the worker.
func (m *Manager) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	deleted, err := m.sessions.Cleanup(ctx, sessionCleanupLimit)
	if err != nil {
		log.Errorf("[Maintenance] session cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Infof("[Maintenance] deleted %d expired sessions", deleted)
	}

	purged, err := m.billing.PurgeProcessedEvents(ctx, billing.ProcessedEventRetention)
	if err != nil {
		log.Errorf("[Maintenance] processed event purge failed: %v", err)
	} else if purged > 0 {
		log.Infof("[Maintenance] purged %d old processed events", purged)
	}
}

// Stop cancels the loop and waits up to timeout for an in-flight pass to
// finish. Returns false if the wait timed out.
func (m *Manager) Stop(timeout time.Duration) bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return true
	}
	m.running = false
	m.ticker.Stop()
	close(m.stopCh)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("[Maintenance] cleanup worker stopped")
		return true
	case <-time.After(timeout):
		log.Warn("[Maintenance] cleanup worker did not stop within timeout")
		return false
	}
}

// IsRunning reports whether the worker loop is active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
