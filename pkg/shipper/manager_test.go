package shipper_test

//go:generate mockgen -source=adjuster.go -destination=mocks/adjuster_mock.go -package=mocks
//go:generate mockgen -source=shipper.go -destination=mocks/provider_mock.go -package=mocks -exclude_interfaces=ShipmentValidator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shiprates/pkg/shipper"
	"github.com/tournevent/shiprates/pkg/shipper/fedex"
	"github.com/tournevent/shiprates/pkg/shipper/mock"
	"github.com/tournevent/shiprates/pkg/shipper/mocks"
	"github.com/tournevent/shiprates/pkg/shipper/ups"
	"github.com/tournevent/shiprates/pkg/shipper/usps"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var requestedAt = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(opts ...shipper.Option) *shipper.Manager {
	logger := otelzap.New(zap.NewNop())
	opts = append([]shipper.Option{shipper.WithClock(func() time.Time { return requestedAt })}, opts...)
	return shipper.NewManager(logger, nil, opts...)
}

func testOrigin() shipper.Address {
	return shipper.NewAddress("Albany", "NY", "12203", "US")
}

func testDestination() shipper.Address {
	return shipper.NewAddress("Miami", "FL", "33101", "US")
}

func testPackages() []shipper.Package {
	return []shipper.Package{
		shipper.NewPackage(12, 12, 12, 35, decimal.NewFromInt(150)),
		shipper.NewPackage(4, 4, 6, 15, decimal.NewFromInt(250)),
	}
}

func rate(carrier, code, total string, delivery time.Time) shipper.Rate {
	return shipper.Rate{
		Carrier:           carrier,
		ServiceCode:       shipper.ServiceCode(code),
		ServiceName:       code,
		TotalCharges:      decimal.RequireFromString(total),
		Currency:          "USD",
		EstimatedDelivery: delivery,
		Guaranteed:        !delivery.Equal(shipper.MaxDeliveryDate),
	}
}

type recordedRequest struct {
	carrier string
	status  string
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	errors   map[string]string
	rates    map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{errors: map[string]string{}, rates: map[string]int{}}
}

func (r *fakeRecorder) RecordRequest(_, carrier, status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{carrier: carrier, status: status})
}

func (r *fakeRecorder) RecordError(carrier, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[carrier] = errorType
}

func (r *fakeRecorder) RecordRates(carrier string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[carrier] = count
}

func TestManager_Registry(t *testing.T) {
	m := newTestManager()
	m.AddProvider(mock.New("usps"))
	m.AddProvider(mock.New("fedex"))
	m.AddProvider(mock.New("ups"))

	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []string{"fedex", "ups", "usps"}, m.Names())

	providers := m.Providers()
	require.Len(t, providers, 3)
	assert.Equal(t, "fedex", providers[0].Name())

	p, err := m.Provider("ups")
	require.NoError(t, err)
	assert.Equal(t, "ups", p.Name())

	_, err = m.Provider("dhl")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestManager_AddProviderReplaces(t *testing.T) {
	m := newTestManager()
	first := mock.New("ups")
	second := mock.New("ups")
	m.AddProvider(first)
	m.AddProvider(second)

	assert.Equal(t, 1, m.Count())

	_, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Calls())
	assert.Equal(t, 1, second.Calls())
}

func TestManager_GetRates(t *testing.T) {
	m := newTestManager()
	m.AddProvider(mock.New("ups"))
	m.AddProvider(mock.New("fedex"))

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Empty(t, shipment.Errors)
	require.Len(t, shipment.Rates, 4)
	assert.Equal(t, requestedAt, shipment.RequestedAt)

	// Cheapest first, carriers break ties
	assert.Equal(t, "fedex", shipment.Rates[0].Carrier)
	assert.Equal(t, "15.82", shipment.Rates[0].TotalCharges.StringFixed(2))
	assert.Equal(t, "ups", shipment.Rates[1].Carrier)
	assert.Equal(t, "29.95", shipment.Rates[3].TotalCharges.StringFixed(2))
}

func TestManager_GetRatesPreservesPackages(t *testing.T) {
	m := newTestManager()
	p := mock.New("ups")
	var seen []shipper.Package
	p.OnGetRates = func(_ context.Context, s *shipper.Shipment) ([]shipper.Rate, error) {
		seen = s.Packages
		return nil, nil
	}
	m.AddProvider(p)

	packages := testPackages()
	packages[1].Weight = 14.3

	_, err := m.GetRates(context.Background(), testOrigin(), testDestination(), packages)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, 14.3, seen[1].Weight)
	assert.Equal(t, 15, seen[1].RoundedWeight())
}

func TestManager_GuaranteedBeforeCheaperWithoutEstimate(t *testing.T) {
	delivery := time.Date(2024, time.March, 4, 23, 59, 0, 0, time.UTC)

	m := newTestManager()
	guaranteed := mock.New("ups")
	guaranteed.Rates = []shipper.Rate{rate("", "02", "42.50", delivery)}
	economy := mock.New("usps")
	economy.Rates = []shipper.Rate{rate("", "USPS_GROUND_ADVANTAGE", "10.00", shipper.MaxDeliveryDate)}
	m.AddProvider(guaranteed)
	m.AddProvider(economy)

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	require.Len(t, shipment.Rates, 2)
	assert.Equal(t, "42.50", shipment.Rates[0].TotalCharges.StringFixed(2))
	assert.True(t, shipment.Rates[0].HasDeliveryEstimate())
	assert.Equal(t, "10.00", shipment.Rates[1].TotalCharges.StringFixed(2))
	assert.Equal(t, shipper.MaxDeliveryDate, shipment.Rates[1].EstimatedDelivery)
}

func TestManager_AdjustersRunInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)

	first := mocks.NewMockRateAdjuster(ctrl)
	second := mocks.NewMockRateAdjuster(ctrl)
	gomock.InOrder(
		first.EXPECT().AdjustRate(gomock.Any()).DoAndReturn(func(r shipper.Rate) shipper.Rate {
			assert.Equal(t, "100.00", r.TotalCharges.StringFixed(2))
			r.TotalCharges = r.TotalCharges.Mul(decimal.RequireFromString("0.9"))
			r.ServiceName = "changed by adjuster"
			return r
		}),
		second.EXPECT().AdjustRate(gomock.Any()).DoAndReturn(func(r shipper.Rate) shipper.Rate {
			assert.Equal(t, "90.00", r.TotalCharges.StringFixed(2))
			assert.Equal(t, "02", r.ServiceName)
			r.TotalCharges = r.TotalCharges.Mul(decimal.RequireFromString("0.8"))
			r.Carrier = "other"
			return r
		}),
	)

	delivery := time.Date(2024, time.March, 3, 10, 30, 0, 0, time.UTC)
	p := mock.New("ups")
	p.Rates = []shipper.Rate{rate("", "02", "100.00", delivery)}

	m := newTestManager()
	m.AddProvider(p)
	m.AddRateAdjuster(first)
	m.AddRateAdjuster(second)
	assert.Len(t, m.Adjusters(), 2)

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	require.Len(t, shipment.Rates, 1)
	got := shipment.Rates[0]
	assert.Equal(t, "72.00", got.TotalCharges.StringFixed(2))
	assert.Equal(t, "ups", got.Carrier)
	assert.Equal(t, "02", got.ServiceName)
	assert.Equal(t, delivery, got.EstimatedDelivery)
}

func TestManager_AdjusterResultClampedAtZero(t *testing.T) {
	p := mock.New("ups")
	p.Rates = []shipper.Rate{rate("", "03", "5.00", shipper.MaxDeliveryDate)}

	m := newTestManager()
	m.AddProvider(p)
	m.AddRateAdjuster(&shipper.FlatFeeAdjuster{Amount: decimal.NewFromInt(-10)})

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	require.Len(t, shipment.Rates, 1)
	assert.True(t, shipment.Rates[0].TotalCharges.IsZero())
}

func TestManager_FailureIsolation(t *testing.T) {
	recorder := newFakeRecorder()
	m := newTestManager(shipper.WithRecorder(recorder))

	failing := mock.New("fedex")
	failing.Err = shipper.NewParseError("fedex", errors.New("unexpected element"))
	m.AddProvider(failing)
	m.AddProvider(mock.New("ups"))

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	require.Len(t, shipment.Rates, 2)
	for _, r := range shipment.Rates {
		assert.Equal(t, "ups", r.Carrier)
	}
	require.Len(t, shipment.Errors, 1)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrParse)

	assert.Equal(t, "parse", recorder.errors["fedex"])
	assert.Equal(t, 2, recorder.rates["ups"])
	assert.Len(t, recorder.requests, 2)
}

func TestManager_PlainErrorBecomesTransportError(t *testing.T) {
	m := newTestManager()
	p := mock.New("usps")
	p.Err = errors.New("connection refused")
	m.AddProvider(p)

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	require.Len(t, shipment.Errors, 1)
	var adapterErr *shipper.AdapterError
	require.ErrorAs(t, shipment.Errors[0], &adapterErr)
	assert.Equal(t, "usps", adapterErr.Carrier)
	assert.Equal(t, shipper.KindTransport, adapterErr.Kind)
}

func TestManager_AllCarriersFail(t *testing.T) {
	m := newTestManager()
	for _, name := range []string{"ups", "fedex", "usps"} {
		p := mock.New(name)
		p.Err = shipper.NewTransportError(name, errors.New("service unavailable"))
		m.AddProvider(p)
	}

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Empty(t, shipment.Rates)
	assert.Len(t, shipment.Errors, 3)
}

func TestManager_NoProviders(t *testing.T) {
	m := newTestManager()

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)
	assert.Empty(t, shipment.Rates)
	assert.Empty(t, shipment.Errors)
}

func TestManager_ProviderTimeout(t *testing.T) {
	m := newTestManager()
	slow := mock.New("fedex").WithTimeout(50 * time.Millisecond)
	slow.Latency = 5 * time.Second
	m.AddProvider(slow)
	m.AddProvider(mock.New("ups"))

	start := time.Now()
	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, shipment.Rates, 2)
	require.Len(t, shipment.Errors, 1)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrTimeout)
}

func TestManager_HungProviderIsAbandoned(t *testing.T) {
	m := newTestManager()
	hung := mock.New("fedex").WithTimeout(50 * time.Millisecond)
	hung.Latency = time.Second
	hung.IgnoreContext = true
	m.AddProvider(hung)
	m.AddProvider(mock.New("ups"))

	start := time.Now()
	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, shipment.Rates, 2)
	require.Len(t, shipment.Errors, 1)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrTimeout)
}

func TestManager_ProvidersRunInParallel(t *testing.T) {
	m := newTestManager()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		p := mock.New(name)
		p.Latency = 200 * time.Millisecond
		m.AddProvider(p)
	}

	start := time.Now()
	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 800*time.Millisecond)
	assert.Len(t, shipment.Rates, 10)
}

func TestManager_PanicIsRecovered(t *testing.T) {
	m := newTestManager()
	p := mock.New("fedex")
	p.OnGetRates = func(context.Context, *shipper.Shipment) ([]shipper.Rate, error) {
		panic("nil map")
	}
	m.AddProvider(p)
	m.AddProvider(mock.New("ups"))

	shipment, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Len(t, shipment.Rates, 2)
	require.Len(t, shipment.Errors, 1)
	assert.Contains(t, shipment.Errors[0].Error(), "panicked")
	assert.Contains(t, shipment.Errors[0].Error(), "nil map")
}

func TestManager_InvalidInputSkipsCarriers(t *testing.T) {
	ctrl := gomock.NewController(t)
	strict := mocks.NewMockProvider(ctrl)
	strict.EXPECT().Name().Return("strict").AnyTimes()
	strict.EXPECT().GetRates(gomock.Any(), gomock.Any()).Times(0)

	stub := mock.New("ups")
	m := newTestManager()
	m.AddProvider(strict)
	m.AddProvider(stub)

	tests := []struct {
		name        string
		origin      shipper.Address
		destination shipper.Address
		packages    []shipper.Package
		target      error
	}{
		{"no packages", testOrigin(), testDestination(), nil, shipper.ErrNoPackages},
		{"bad origin", shipper.NewAddress("Albany", "NY", "", "US"), testDestination(), testPackages(), shipper.ErrInvalidAddress},
		{"bad destination", testOrigin(), shipper.NewAddress("", "", "", "QQ"), testPackages(), shipper.ErrInvalidAddress},
		{"bad package", testOrigin(), testDestination(), []shipper.Package{shipper.NewPackage(1, 1, 1, 0, decimal.Zero)}, shipper.ErrInvalidPackage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipment, err := m.GetRates(context.Background(), tt.origin, tt.destination, tt.packages)
			assert.Nil(t, shipment)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, shipper.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, stub.Calls())
}

type validatingProvider struct {
	*mock.Client
}

func (validatingProvider) ValidateShipment(s *shipper.Shipment) error {
	if s.Origin.PostalCode == "" {
		return shipper.ErrInvalidAddress
	}
	return nil
}

func TestManager_ShipmentValidator(t *testing.T) {
	strict := validatingProvider{mock.New("ups")}
	other := mock.New("usps")
	recorder := newFakeRecorder()

	m := newTestManager(shipper.WithRecorder(recorder))
	m.AddProvider(strict)
	m.AddProvider(other)

	origin := shipper.NewAddress("London", "", "", "GB")
	shipment, err := m.GetRates(context.Background(), origin, testDestination(), testPackages())
	require.NoError(t, err)

	// The rejecting carrier is skipped, the other still quotes
	assert.Equal(t, 0, strict.Calls())
	assert.Equal(t, 1, other.Calls())
	require.Len(t, shipment.Rates, 2)
	for _, r := range shipment.Rates {
		assert.Equal(t, "usps", r.Carrier)
	}

	require.Len(t, shipment.Errors, 1)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrUnsupported)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrInvalidAddress)
	assert.False(t, shipper.IsRetryable(shipment.Errors[0]))
	var adapterErr *shipper.AdapterError
	require.ErrorAs(t, shipment.Errors[0], &adapterErr)
	assert.Equal(t, "ups", adapterErr.Carrier)
	assert.Equal(t, "unsupported", recorder.errors["ups"])

	shipment, err = m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)
	assert.Len(t, shipment.Rates, 4)
	assert.Empty(t, shipment.Errors)
}

func TestManager_ShipmentValidatorRejectsAll(t *testing.T) {
	strict := validatingProvider{mock.New("ups")}

	m := newTestManager()
	m.AddProvider(strict)

	shipment, err := m.GetRates(context.Background(), shipper.NewAddress("London", "", "", "GB"), testDestination(), testPackages())
	require.NoError(t, err)
	assert.Empty(t, shipment.Rates)
	require.Len(t, shipment.Errors, 1)
	assert.Equal(t, "unsupported", shipper.ErrorKindOf(shipment.Errors[0]))
	assert.Equal(t, 0, strict.Calls())
}

func TestManager_ForeignOriginSkipsDomesticCarrier(t *testing.T) {
	tests := []struct {
		name   string
		origin shipper.Address
	}{
		{"canada", shipper.NewAddress("Toronto", "ON", "M5V2T6", "CA")},
		{"hong kong without postal code", shipper.NewAddress("Hong Kong", "", "", "HK")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager()
			m.AddProvider(ups.New(ups.Config{UseMock: true}, nil, nil))
			m.AddProvider(fedex.New(fedex.Config{UseMock: true}, nil, nil))
			m.AddProvider(usps.New(usps.Config{UseMock: true}, nil, nil))

			shipment, err := m.GetRates(context.Background(), tt.origin, testDestination(), testPackages())
			require.NoError(t, err)

			byCarrier := map[string]int{}
			for _, r := range shipment.Rates {
				byCarrier[r.Carrier]++
			}
			assert.Equal(t, map[string]int{"ups": 4, "fedex": 4}, byCarrier)

			require.Len(t, shipment.Errors, 1)
			assert.ErrorIs(t, shipment.Errors[0], shipper.ErrUnsupported)
			var adapterErr *shipper.AdapterError
			require.ErrorAs(t, shipment.Errors[0], &adapterErr)
			assert.Equal(t, "usps", adapterErr.Carrier)
		})
	}
}

func TestManager_GetRatesFrom(t *testing.T) {
	ups := mock.New("ups")
	fedex := mock.New("fedex")

	m := newTestManager()
	m.AddProvider(ups)
	m.AddProvider(fedex)

	shipment, err := m.GetRatesFrom(context.Background(), []string{"ups", "dhl"}, testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	assert.Len(t, shipment.Rates, 2)
	require.Len(t, shipment.Errors, 1)
	assert.ErrorIs(t, shipment.Errors[0], shipper.ErrCarrierNotFound)
	assert.Equal(t, 1, ups.Calls())
	assert.Equal(t, 0, fedex.Calls())

	_, err = m.GetRatesFrom(context.Background(), nil, testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)
	assert.Equal(t, 2, ups.Calls())
	assert.Equal(t, 1, fedex.Calls())
}

func TestManager_TracesCarrierFailures(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := shipper.NewManager(otelzap.New(zap.NewNop()), tp.Tracer("test"))
	failing := mock.New("fedex")
	failing.Err = errors.New("boom")
	m.AddProvider(failing)
	m.AddProvider(mock.New("ups"))

	_, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	statuses := map[string]codes.Code{}
	var roots int
	for _, span := range sr.Ended() {
		switch span.Name() {
		case "shipper.GetRates":
			roots++
		case "shipper.Provider.GetRates":
			for _, attr := range span.Attributes() {
				if attr.Key == "carrier" {
					statuses[attr.Value.AsString()] = span.Status().Code
				}
			}
		}
	}
	assert.Equal(t, 1, roots)
	assert.Equal(t, codes.Error, statuses["fedex"])
	assert.NotEqual(t, codes.Error, statuses["ups"])
}

func TestManager_LogsShipmentSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := shipper.NewManager(otelzap.New(zap.New(core)), nil, shipper.WithClock(func() time.Time { return requestedAt }))
	m.AddProvider(mock.New("ups"))

	_, err := m.GetRates(context.Background(), testOrigin(), testDestination(), testPackages())
	require.NoError(t, err)

	started := logs.FilterMessage("Getting rates").All()
	require.Len(t, started, 1)
	fields := started[0].ContextMap()
	assert.EqualValues(t, 50, fields["total_weight"])
	assert.Equal(t, "400.00", fields["insured_value"])

	best := logs.FilterMessage("Best rate").All()
	require.Len(t, best, 1)
	assert.Contains(t, best[0].ContextMap()["rate"], "ups ups Standard 15.82 USD")
}

func TestSortRates(t *testing.T) {
	day1 := time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC)
	day3 := time.Date(2024, time.March, 4, 23, 59, 0, 0, time.UTC)

	rates := []shipper.Rate{
		rate("usps", "MEDIA_MAIL", "4.00", shipper.MaxDeliveryDate),
		rate("ups", "01", "55.00", day1),
		rate("fedex", "FEDEX_GROUND", "12.00", day3),
		rate("ups", "03", "12.00", day3),
		rate("usps", "PRIORITY_MAIL", "12.00", day1),
		rate("fedex", "FEDEX_2_DAY", "2.00", shipper.MaxDeliveryDate),
	}
	shipper.SortRates(rates)

	var got []string
	for _, r := range rates {
		got = append(got, r.Carrier+"/"+string(r.ServiceCode))
	}
	assert.Equal(t, []string{
		"usps/PRIORITY_MAIL",
		"fedex/FEDEX_GROUND",
		"ups/03",
		"ups/01",
		"fedex/FEDEX_2_DAY",
		"usps/MEDIA_MAIL",
	}, got)

	// Every rate with an estimate precedes every sentinel-dated rate
	seenSentinel := false
	for _, r := range rates {
		if !r.HasDeliveryEstimate() {
			seenSentinel = true
		} else {
			assert.False(t, seenSentinel, "rate %s sorted after a sentinel rate", r)
		}
	}
}
