package shipper

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/tournevent/shiprates/pkg/shipper"

// Recorder receives per-carrier outcome metrics.
type Recorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
	RecordError(carrier, errorType string)
	RecordRates(carrier string, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, string, float64) {}
func (nopRecorder) RecordError(string, string)                    {}
func (nopRecorder) RecordRates(string, int)                       {}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock sets the time source used to stamp shipments.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager aggregates rates from the registered carriers.
type Manager struct {
	providers map[string]Provider
	adjusters []RateAdjuster
	mu        sync.RWMutex

	logger   *otelzap.Logger
	tracer   trace.Tracer
	recorder Recorder
	now      func() time.Time
}

// NewManager creates a new rate manager. A nil logger or tracer is replaced
// by a no-op implementation.
func NewManager(logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) *Manager {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	m := &Manager{
		providers: make(map[string]Provider),
		logger:    logger,
		tracer:    tracer,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddProvider registers a carrier. A provider with the same name replaces
// the earlier one.
func (m *Manager) AddProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name()] = p
}

// AddRateAdjuster appends an adjuster to the pipeline. Adjusters run in the
// order they were added.
func (m *Manager) AddRateAdjuster(a RateAdjuster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjusters = append(m.adjusters, a)
}

// Provider returns a carrier by name.
func (m *Manager) Provider(name string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// Providers returns all registered carriers ordered by name.
func (m *Manager) Providers() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Provider, 0, len(m.providers))
	for _, p := range m.providers {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b Provider) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return result
}

// Names returns the sorted names of all registered carriers.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of registered carriers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// Adjusters returns a copy of the adjuster pipeline.
func (m *Manager) Adjusters() []RateAdjuster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.adjusters)
}

// GetRates quotes the packages with every registered carrier in parallel.
// Carrier failures are recorded in Shipment.Errors and never fail the call;
// only invalid input is returned as an error.
func (m *Manager) GetRates(ctx context.Context, origin, destination Address, packages []Package) (*Shipment, error) {
	return m.getRates(ctx, m.Providers(), nil, origin, destination, packages)
}

// GetRatesFrom behaves like GetRates but only asks the named carriers. An
// unknown name is recorded as a shipment error. An empty list asks all.
func (m *Manager) GetRatesFrom(ctx context.Context, carriers []string, origin, destination Address, packages []Package) (*Shipment, error) {
	if len(carriers) == 0 {
		return m.GetRates(ctx, origin, destination, packages)
	}

	var (
		providers []Provider
		missing   []error
	)
	for _, name := range carriers {
		p, err := m.Provider(name)
		if err != nil {
			missing = append(missing, err)
			continue
		}
		providers = append(providers, p)
	}
	return m.getRates(ctx, providers, missing, origin, destination, packages)
}

func (m *Manager) getRates(ctx context.Context, providers []Provider, preErrs []error, origin, destination Address, packages []Package) (*Shipment, error) {
	if err := validateInput(origin, destination, packages); err != nil {
		return nil, err
	}

	shipment := NewShipment(origin, destination, packages, m.now())
	for _, err := range preErrs {
		shipment.AddError(err)
	}

	ctx, span := m.tracer.Start(ctx, "shipper.GetRates", trace.WithAttributes(
		attribute.Int("carrier_count", len(providers)),
		attribute.Int("package_count", len(packages)),
	))
	defer span.End()

	log := m.logger.Ctx(ctx)
	providers = m.supporting(ctx, providers, shipment)
	log.Info("Getting rates",
		zap.String("origin_postal", origin.PostalCode),
		zap.String("destination_postal", destination.PostalCode),
		zap.Int("package_count", len(packages)),
		zap.Int("total_weight", shipment.TotalWeight()),
		zap.String("insured_value", shipment.TotalInsuredValue().StringFixed(2)),
		zap.Int("carrier_count", len(providers)),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			rates, err := m.collect(gctx, p, shipment)
			if err != nil {
				shipment.AddError(err)
				return nil // Don't fail the group, continue with other carriers
			}
			shipment.AddRates(rates...)
			return nil
		})
	}
	_ = g.Wait()

	adjusters := m.Adjusters()
	for i, r := range shipment.Rates {
		shipment.Rates[i] = applyAdjusters(r, adjusters)
	}
	SortRates(shipment.Rates)

	span.SetAttributes(
		attribute.Int("rate_count", len(shipment.Rates)),
		attribute.Int("error_count", len(shipment.Errors)),
	)
	if len(shipment.Rates) == 0 {
		if len(shipment.Errors) > 0 {
			log.Warn("No carrier returned rates", zap.Int("error_count", len(shipment.Errors)))
		}
	} else {
		log.Debug("Best rate", zap.Stringer("rate", shipment.Rates[0]))
	}
	return shipment, nil
}

// supporting returns the providers that accept the shipment. A provider
// whose ShipmentValidator rejects it is skipped and recorded as an
// unsupported error on the shipment.
func (m *Manager) supporting(ctx context.Context, providers []Provider, shipment *Shipment) []Provider {
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		v, ok := p.(ShipmentValidator)
		if !ok {
			out = append(out, p)
			continue
		}
		if err := v.ValidateShipment(shipment); err != nil {
			name := p.Name()
			adapterErr := NewAdapterError(name, KindUnsupported, "shipment not supported").WithCause(err)
			shipment.AddError(adapterErr)
			m.recorder.RecordError(name, ErrorKindOf(adapterErr))
			m.logger.Ctx(ctx).Debug("Carrier skipped",
				zap.String("carrier", name),
				zap.Error(err),
			)
			continue
		}
		out = append(out, p)
	}
	return out
}

type collectResult struct {
	rates []Rate
	err   error
}

// collect runs one provider within its time budget. A provider that does
// not return in time is abandoned; its late result is discarded.
func (m *Manager) collect(ctx context.Context, p Provider, shipment *Shipment) ([]Rate, error) {
	name := p.Name()
	ctx, span := m.tracer.Start(ctx, "shipper.Provider.GetRates", trace.WithAttributes(
		attribute.String("carrier", name),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, ResolveTimeout(p.Timeout()))
	defer cancel()

	start := time.Now()
	done := make(chan collectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- collectResult{err: NewAdapterError(name, KindTransport, "adapter panicked").WithCause(fmt.Errorf("%v", r))}
			}
		}()
		rates, err := p.GetRates(ctx, shipment)
		done <- collectResult{rates: rates, err: err}
	}()

	var res collectResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = NewTransportError(name, ctx.Err())
	}
	duration := time.Since(start).Seconds()
	log := m.logger.Ctx(ctx)

	if res.err != nil {
		err := asAdapterError(name, res.err)
		m.recorder.RecordRequest("get_rates", name, "error", duration)
		m.recorder.RecordError(name, ErrorKindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("Carrier rate request failed",
			zap.String("carrier", name),
			zap.String("kind", string(err.Kind)),
			zap.Error(err),
		)
		return nil, err
	}

	m.recorder.RecordRequest("get_rates", name, "ok", duration)
	m.recorder.RecordRates(name, len(res.rates))
	span.SetAttributes(attribute.Int("rate_count", len(res.rates)))
	log.Debug("Carrier returned rates",
		zap.String("carrier", name),
		zap.Int("rate_count", len(res.rates)),
		zap.Float64("duration_seconds", duration),
	)
	return res.rates, nil
}

func asAdapterError(carrier string, err error) *AdapterError {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae
	}
	return NewTransportError(carrier, err)
}

func validateInput(origin, destination Address, packages []Package) error {
	if len(packages) == 0 {
		return ErrNoPackages
	}
	if err := origin.Validate(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if err := destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	for i, p := range packages {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("package %d: %w", i+1, err)
		}
	}
	return nil
}

// SortRates orders rates for presentation: rates with a delivery estimate
// come before those without, then by ascending total charges, delivery time,
// carrier and service.
func SortRates(rates []Rate) {
	slices.SortStableFunc(rates, compareRates)
}

func compareRates(a, b Rate) int {
	if ae, be := a.HasDeliveryEstimate(), b.HasDeliveryEstimate(); ae != be {
		if ae {
			return -1
		}
		return 1
	}
	if c := a.TotalCharges.Cmp(b.TotalCharges); c != 0 {
		return c
	}
	if c := a.EstimatedDelivery.Compare(b.EstimatedDelivery); c != 0 {
		return c
	}
	if c := strings.Compare(a.Carrier, b.Carrier); c != 0 {
		return c
	}
	if c := strings.Compare(a.ServiceName, b.ServiceName); c != 0 {
		return c
	}
	return strings.Compare(string(a.ServiceCode), string(b.ServiceCode))
}
