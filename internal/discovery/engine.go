package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/lantern/internal/control"
	"github.com/muurk/lantern/internal/logging"
)

// LocateTimeout bounds the targeted discovery used by Locate.
const LocateTimeout = 3 * time.Second

// AdapterFactory builds a device adapter for a discovered record. It returns
// (nil, nil) when the record cannot be turned into a working device.
type AdapterFactory func(ctx context.Context, d DiscoveredDevice) (control.Device, error)

// Engine runs every registered probe concurrently and turns the results
// into device adapters.
type Engine struct {
	timeout   time.Duration
	probes    []Probe
	factories map[string]AdapterFactory
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithProbes replaces the default probe list. Order matters: when two probes
// report the same IP the earlier probe wins.
func WithProbes(probes ...Probe) Option {
	return func(e *Engine) { e.probes = probes }
}

// WithFactory registers the adapter factory for a protocol tag.
func WithFactory(protocol string, f AdapterFactory) Option {
	return func(e *Engine) { e.factories[protocol] = f }
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. A non-positive timeout selects DefaultTimeout.
func NewEngine(timeout time.Duration, opts ...Option) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e := &Engine{
		timeout:   timeout,
		probes:    DefaultProbes(),
		factories: make(map[string]AdapterFactory),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.GetLogger()
	}
	return e
}

// Timeout returns the discovery window.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// DiscoverAll runs every probe in parallel and merges the results. A probe
// that fails is logged and contributes nothing. Records are deduplicated by
// IP; the first one in probe registration order is kept.
func (e *Engine) DiscoverAll(ctx context.Context) []DiscoveredDevice {
	return e.discover(ctx, e.timeout)
}

func (e *Engine) discover(ctx context.Context, timeout time.Duration) []DiscoveredDevice {
	log := e.logger.With(zap.String("cycle_id", uuid.NewString()))
	log.Debug("Starting discovery", zap.Int("probes", len(e.probes)), zap.Duration("timeout", timeout))

	results := make([][]DiscoveredDevice, len(e.probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range e.probes {
		g.Go(func() error {
			found, err := p.Discover(gctx, timeout)
			if err != nil {
				log.Warn("Discovery probe failed", zap.String("probe", p.Name()), zap.Error(err))
				return nil
			}
			log.Debug("Discovery probe finished", zap.String("probe", p.Name()), zap.Int("found", len(found)))
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []DiscoveredDevice
	for _, found := range results {
		for _, d := range found {
			if seen[d.IP] {
				continue
			}
			seen[d.IP] = true
			merged = append(merged, d)
		}
	}
	log.Info("Discovery finished", zap.Int("devices", len(merged)))
	return merged
}

// Adapter builds the adapter for one record. Unknown protocols and factory
// failures yield nil.
func (e *Engine) Adapter(ctx context.Context, d DiscoveredDevice) control.Device {
	f, ok := e.factories[d.Protocol]
	if !ok {
		e.logger.Debug("No adapter for protocol", zap.String("protocol", d.Protocol), zap.String("ip", d.IP))
		return nil
	}
	dev, err := f(ctx, d)
	if err != nil {
		e.logger.Debug("Adapter creation failed", zap.String("ip", d.IP), zap.Error(err))
		return nil
	}
	return dev
}

// DiscoverAndCreateDevices discovers and returns one adapter per usable record.
func (e *Engine) DiscoverAndCreateDevices(ctx context.Context) []control.Device {
	var devices []control.Device
	for _, d := range e.DiscoverAll(ctx) {
		if dev := e.Adapter(ctx, d); dev != nil {
			devices = append(devices, dev)
		}
	}
	return devices
}

// Locate runs a short discovery and builds an adapter for ip only.
// It implements control.Locator.
func (e *Engine) Locate(ctx context.Context, ip string) (control.Device, error) {
	timeout := LocateTimeout
	if e.timeout < timeout {
		timeout = e.timeout
	}
	for _, d := range e.discover(ctx, timeout) {
		if d.IP != ip {
			continue
		}
		if dev := e.Adapter(ctx, d); dev != nil {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no controllable device at %s", ip)
}
