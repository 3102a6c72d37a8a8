package exchange

import (
	"context"
	"log/slog"
	"sync"

	"github.com/0xtitan6/quantis/internal/errs"
)

// Registry holds at most one connector plus its configuration. It is the
// sole owner of the connector: on Shutdown it disconnects and releases it,
// the way the teacher's engine.Stop() tears down its single exchange.Client.
type Registry struct {
	mu     sync.RWMutex
	impl   Exchange
	config Config
	logger *slog.Logger
}

// NewRegistry creates an empty registry. logger may be nil, in which case
// slog.Default() is used, matching the teacher's logger-threading style.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger.With("component", "registry")}
}

// SetExchange installs impl, replacing any previously held connector. A
// replace logs a warning rather than erroring.
func (r *Registry) SetExchange(impl Exchange, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.impl != nil {
		r.logger.Warn("replacing previously registered exchange", "previous", r.impl.Name(), "next", impl.Name())
	}
	r.impl = impl
	r.config = config
}

// GetExchange returns a handle to the held connector, or
// ErrNoExchangeRegistered if none has been set.
func (r *Registry) GetExchange() (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.impl == nil {
		return Handle{}, errs.ErrNoExchangeRegistered
	}
	return newHandle(r.impl), nil
}

// ConnectAll connects the held connector, or returns
// ErrNoExchangeRegistered if none has been set.
func (r *Registry) ConnectAll(ctx context.Context) error {
	h, err := r.GetExchange()
	if err != nil {
		return err
	}
	return h.Connect(ctx)
}

// DisconnectAll disconnects the held connector, if any.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.RLock()
	impl := r.impl
	r.mu.RUnlock()
	if impl == nil {
		return nil
	}
	return impl.Disconnect(ctx)
}

// IsConnected reports the held connector's connection state, or false if
// none is registered.
func (r *Registry) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.impl != nil && r.impl.IsConnected()
}

// Shutdown disconnects and releases the held connector. Safe to call
// multiple times.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	impl := r.impl
	r.impl = nil
	r.mu.Unlock()

	if impl == nil {
		return nil
	}
	return impl.Disconnect(ctx)
}
