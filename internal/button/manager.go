package button

import (
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager is the process-wide Button Manager: a single worker goroutine
// that polls every registered Engine every DebounceReadDelay and fires
// each engine's long-press/auto-repeat timer, the Go equivalent of
// GpioButtonManager's pollfd-based worker thread in
// gpio_button_manager.cpp. It is created lazily on the first Register
// call and torn down when the last engine is Unregistered, exactly like
// the original's static _instance.
type Manager struct {
	mu       sync.Mutex
	buttons  map[*Engine]struct{}
	tick     *time.Ticker
	delayCh  chan *Engine
	doneCh   chan struct{}
	stopOnce sync.Once
}

var (
	globalMu      sync.Mutex
	globalManager *Manager
	refCount      int
)

// Register adds e to the shared manager, starting the worker goroutine
// if this is the first registration. Mirrors GpioButtonManager::add.
func Register(e *Engine) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		globalManager = newManager()
		globalManager.start()
	}
	globalManager.add(e)
	refCount++
}

// Unregister removes e from the shared manager, stopping the worker
// goroutine once the last engine has been removed. Mirrors
// GpioButtonManager::remove.
func Unregister(e *Engine) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		return
	}
	globalManager.remove(e)
	refCount--
	if refCount <= 0 {
		globalManager.stop()
		globalManager = nil
		refCount = 0
	}
}

func newManager() *Manager {
	return &Manager{
		buttons: make(map[*Engine]struct{}),
		tick:    time.NewTicker(DebounceReadDelay),
		delayCh: make(chan *Engine, 64),
		doneCh:  make(chan struct{}),
	}
}

func (m *Manager) add(e *Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons[e] = struct{}{}
}

func (m *Manager) remove(e *Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buttons, e)
	if e.delayTimer != nil {
		e.delayTimer.Stop()
		e.delayTimer = nil
	}
}

func (m *Manager) snapshot() []*Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Engine, 0, len(m.buttons))
	for e := range m.buttons {
		out = append(out, e)
	}
	return out
}

func (m *Manager) start() {
	// The original worker thread masks SIGCHLD/SIGTSTP/SIGTTOU/SIGTTIN/
	// SIGHUP/SIGINT/SIGQUIT/SIGTERM before entering its poll loop so job
	// control and the process-wide signal handler don't interrupt it.
	// Go does not deliver signals to individual goroutines; this ignores
	// the job-control signals SIGTTIN/SIGTTOU/SIGTSTP for the whole
	// process, and the termination signals are left to the supervisor's
	// signal.NotifyContext.
	signal.Ignore(syscall.SIGTTIN, syscall.SIGTTOU, syscall.SIGTSTP)
	go m.run()
}

func (m *Manager) stop() {
	m.stopOnce.Do(func() {
		close(m.doneCh)
		m.tick.Stop()
	})
}

func (m *Manager) scheduleDelay(e *Engine, d time.Duration) {
	if e.delayTimer != nil {
		e.delayTimer.Stop()
	}
	e.delayTimer = time.AfterFunc(d, func() {
		select {
		case m.delayCh <- e:
		case <-m.doneCh:
		}
	})
}

func (m *Manager) cancelDelay(e *Engine) {
	if e.delayTimer != nil {
		e.delayTimer.Stop()
		e.delayTimer = nil
	}
}

// run is GpioButtonManager::_run: one goroutine servicing the shared
// tick, every engine's repeat timer, and shutdown.
func (m *Manager) run() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.tick.C:
			for _, e := range m.snapshot() {
				e.tick(m.scheduleDelay, m.cancelDelay)
			}
		case e := <-m.delayCh:
			m.mu.Lock()
			_, stillRegistered := m.buttons[e]
			m.mu.Unlock()
			if stillRegistered {
				e.onDelay(m.scheduleDelay, m.cancelDelay)
			}
		}
	}
}
