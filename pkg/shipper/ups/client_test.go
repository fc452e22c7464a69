package ups_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shiprates/pkg/shipper"
	"github.com/tournevent/shiprates/pkg/shipper/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var requestedAt = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestClient(cfg ups.Config, mockClient *ups.MockAPIClient) *ups.Client {
	logger := otelzap.New(zap.NewNop())
	return ups.NewWithAPIClient(cfg, mockClient, logger, nil)
}

func newTestShipment(packages ...shipper.Package) *shipper.Shipment {
	if len(packages) == 0 {
		packages = []shipper.Package{
			shipper.NewPackage(12, 12, 12, 35, decimal.NewFromInt(150)),
			shipper.NewPackage(4, 4, 6, 15, decimal.NewFromInt(250)),
		}
	}
	return shipper.NewShipment(
		shipper.NewAddress("Albany", "NY", "12203", "US"),
		shipper.NewAddress("Miami", "FL", "33101", "US"),
		packages,
		requestedAt,
	)
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(ups.Config{}, ups.NewMockAPIClient())
	assert.Equal(t, "ups", client.Name())
	assert.Equal(t, shipper.DefaultTimeout, client.Timeout())

	client = newTestClient(ups.Config{Timeout: 3 * time.Second}, ups.NewMockAPIClient())
	assert.Equal(t, 3*time.Second, client.Timeout())
}

func TestClient_GetRates_Success(t *testing.T) {
	client := newTestClient(ups.Config{}, ups.NewMockAPIClient())

	rates, err := client.GetRates(context.Background(), newTestShipment())
	require.NoError(t, err)
	require.Len(t, rates, 4) // Mock returns 4 rates

	byCode := map[shipper.ServiceCode]shipper.Rate{}
	for _, r := range rates {
		assert.Equal(t, "ups", r.Carrier)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, "USD", r.Currency)
		byCode[r.ServiceCode] = r
	}

	ground := byCode["03"]
	assert.Equal(t, "UPS Ground", ground.ServiceName)
	assert.False(t, ground.Guaranteed)
	assert.Equal(t, shipper.MaxDeliveryDate, ground.EstimatedDelivery)

	secondDay := byCode["02"]
	assert.True(t, secondDay.Guaranteed)
	assert.Equal(t, "42.50", secondDay.TotalCharges.StringFixed(2))
	assert.Equal(t, time.Date(2024, time.March, 3, 23, 59, 0, 0, time.UTC), secondDay.EstimatedDelivery)

	nextDay := byCode["01"]
	assert.Equal(t, time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC), nextDay.EstimatedDelivery)
}

func TestClient_GetRates_BuildsRequest(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	var captured *ups.RatesRequest
	mockAPI.OnGetRates = func(ctx context.Context, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		captured = req
		return &ups.RatesResponse{}, nil
	}

	client := newTestClient(ups.Config{ShipperNumber: "A1B2C3"}, mockAPI)
	shipment := newTestShipment(shipper.NewPackage(11.1, 4, 6, 14.3, decimal.NewFromInt(150)))

	rates, err := client.GetRates(context.Background(), shipment)
	require.NoError(t, err)
	assert.Empty(t, rates)

	require.NotNil(t, captured)
	assert.Equal(t, ups.OptionShop, captured.RequestOption)
	assert.Empty(t, captured.ServiceCode)
	assert.Equal(t, "A1B2C3", captured.ShipperNumber)
	assert.Equal(t, "12203", captured.Shipper.PostalCode)
	assert.Equal(t, "US", captured.ShipTo.CountryCode)

	require.Len(t, captured.Packages, 1)
	pkg := captured.Packages[0]
	assert.Equal(t, 15, pkg.Weight)
	assert.Equal(t, 12, pkg.Length)
	assert.Equal(t, "LBS", pkg.WeightUnit)
	assert.Equal(t, "IN", pkg.DimensionUnit)
	assert.Equal(t, "150.00", pkg.InsuredValue)

	// Precise measurements are untouched
	assert.Equal(t, 14.3, shipment.Packages[0].Weight)
}

func TestClient_GetRates_SingleService(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(ups.Config{Service: "02"}, mockAPI)

	rates, err := client.GetRates(context.Background(), newTestShipment())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, shipper.ServiceCode("02"), rates[0].ServiceCode)

	client = newTestClient(ups.Config{Service: "ups next day air"}, mockAPI)
	rates, err = client.GetRates(context.Background(), newTestShipment())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, shipper.ServiceCode("01"), rates[0].ServiceCode)
}

func TestClient_GetRates_ServiceFilter(t *testing.T) {
	client := newTestClient(ups.Config{Services: ups.Ground | ups.NextDayAir}, ups.NewMockAPIClient())

	rates, err := client.GetRates(context.Background(), newTestShipment())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	for _, r := range rates {
		assert.Contains(t, []shipper.ServiceCode{"01", "03"}, r.ServiceCode)
	}
}

func TestClient_GetRates_SkipsUnusableLines(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return &ups.RatesResponse{
			RatedShipments: []ups.RatedShipment{
				{ServiceCode: "96", TotalCharges: "120.00", CurrencyCode: "USD"},
				{ServiceCode: "03", TotalCharges: "", CurrencyCode: "USD"},
				{ServiceCode: "12", TotalCharges: "-3.00", CurrencyCode: "USD"},
				{ServiceCode: "13", TotalCharges: "61.25", GuaranteedDaysToDelivery: "1"},
			},
		}, nil
	}

	client := newTestClient(ups.Config{}, mockAPI)
	rates, err := client.GetRates(context.Background(), newTestShipment())

	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, shipper.ServiceCode("13"), rates[0].ServiceCode)
	assert.Equal(t, "USD", rates[0].Currency)
}

func TestClient_GetRates_APIError(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	client := newTestClient(ups.Config{}, mockAPI)
	_, err := client.GetRates(context.Background(), newTestShipment())

	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrTransport)

	var apiErr *ups.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "MOCK_ERROR", apiErr.Code)
}

func TestClient_GetRates_ContextCancelled(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.SimulateLatency = time.Second

	client := newTestClient(ups.Config{}, mockAPI)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetRates(ctx, newTestShipment())
	assert.ErrorIs(t, err, shipper.ErrTimeout)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_ValidateShipment(t *testing.T) {
	client := newTestClient(ups.Config{}, ups.NewMockAPIClient())

	assert.NoError(t, client.ValidateShipment(newTestShipment()))

	// Countries rated without postal codes are accepted
	shipment := shipper.NewShipment(
		shipper.NewAddress("London", "", "", "GB"),
		shipper.NewAddress("Miami", "FL", "33101", "US"),
		nil,
		requestedAt,
	)
	assert.NoError(t, client.ValidateShipment(shipment))

	shipment = shipper.NewShipment(
		shipper.Address{City: "Toronto", CountryCode: "CA"},
		shipper.NewAddress("Miami", "FL", "33101", "US"),
		nil,
		requestedAt,
	)
	err := client.ValidateShipment(shipment)
	assert.ErrorIs(t, err, shipper.ErrInvalidAddress)
	assert.ErrorIs(t, err, shipper.ErrInvalidInput)
}

func TestClient_WithManager(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	m := shipper.NewManager(logger, nil, shipper.WithClock(func() time.Time { return requestedAt }))
	m.AddProvider(ups.New(ups.Config{UseMock: true}, logger, nil))

	shipment, err := m.GetRates(context.Background(),
		shipper.NewAddress("Albany", "NY", "12203", "US"),
		shipper.NewAddress("Miami", "FL", "33101", "US"),
		[]shipper.Package{shipper.NewPackage(12, 12, 12, 35, decimal.NewFromInt(150))},
	)
	require.NoError(t, err)
	require.Len(t, shipment.Rates, 4)

	// Guaranteed services first, the non-guaranteed ground rate last
	assert.Equal(t, shipper.ServiceCode("12"), shipment.Rates[0].ServiceCode)
	assert.Equal(t, shipper.ServiceCode("03"), shipment.Rates[3].ServiceCode)
}
