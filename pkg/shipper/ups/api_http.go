package ups

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tournevent/shiprates/pkg/shipper"
)

// DefaultBaseURL is the UPS production endpoint.
const DefaultBaseURL = "https://onlinetools.ups.com"

const ratePath = "/ups.app/xml/Rate"

// HTTPAPIClient is the production implementation of APIClient using HTTP/XML.
type HTTPAPIClient struct {
	baseURL       string
	accessLicense string
	userID        string
	password      string
	httpClient    *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL       string
	AccessLicense string
	UserID        string
	Password      string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: shipper.ResolveTimeout(cfg.Timeout),
		}
	}

	return &HTTPAPIClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessLicense: cfg.AccessLicense,
		userID:        cfg.UserID,
		password:      cfg.Password,
		httpClient:    httpClient,
	}
}

// ============================================================================
// XML Request/Response structures for the UPS Rating API
// ============================================================================

// accessRequest carries the credentials and precedes every request document.
type accessRequest struct {
	XMLName             xml.Name `xml:"AccessRequest"`
	Lang                string   `xml:"xml:lang,attr"`
	AccessLicenseNumber string   `xml:"AccessLicenseNumber"`
	UserID              string   `xml:"UserId"`
	Password            string   `xml:"Password"`
}

type ratingServiceSelectionRequest struct {
	XMLName    xml.Name    `xml:"RatingServiceSelectionRequest"`
	Lang       string      `xml:"xml:lang,attr"`
	Request    xmlRequest  `xml:"Request"`
	PickupType xmlCode     `xml:"PickupType"`
	Shipment   xmlShipment `xml:"Shipment"`
}

type xmlRequest struct {
	TransactionReference xmlTransactionReference `xml:"TransactionReference"`
	RequestAction        string                  `xml:"RequestAction"`
	RequestOption        string                  `xml:"RequestOption"`
}

type xmlTransactionReference struct {
	CustomerContext string `xml:"CustomerContext"`
	XpciVersion     string `xml:"XpciVersion"`
}

type xmlCode struct {
	Code        string `xml:"Code"`
	Description string `xml:"Description,omitempty"`
}

type xmlShipment struct {
	Shipper  xmlParty     `xml:"Shipper"`
	ShipTo   xmlParty     `xml:"ShipTo"`
	ShipFrom xmlParty     `xml:"ShipFrom"`
	Service  *xmlCode     `xml:"Service,omitempty"`
	Package  []xmlPackage `xml:"Package"`
}

type xmlParty struct {
	ShipperNumber string     `xml:"ShipperNumber,omitempty"`
	Address       xmlAddress `xml:"Address"`
}

type xmlAddress struct {
	AddressLine1                string    `xml:"AddressLine1,omitempty"`
	City                        string    `xml:"City,omitempty"`
	StateProvinceCode           string    `xml:"StateProvinceCode,omitempty"`
	PostalCode                  string    `xml:"PostalCode,omitempty"`
	CountryCode                 string    `xml:"CountryCode"`
	ResidentialAddressIndicator *struct{} `xml:"ResidentialAddressIndicator,omitempty"`
}

type xmlPackage struct {
	PackagingType         xmlCode                   `xml:"PackagingType"`
	Dimensions            *xmlDimensions            `xml:"Dimensions,omitempty"`
	PackageWeight         xmlWeight                 `xml:"PackageWeight"`
	PackageServiceOptions *xmlPackageServiceOptions `xml:"PackageServiceOptions,omitempty"`
}

type xmlDimensions struct {
	UnitOfMeasurement xmlCode `xml:"UnitOfMeasurement"`
	Length            int     `xml:"Length"`
	Width             int     `xml:"Width"`
	Height            int     `xml:"Height"`
}

type xmlWeight struct {
	UnitOfMeasurement xmlCode `xml:"UnitOfMeasurement"`
	Weight            int     `xml:"Weight"`
}

type xmlPackageServiceOptions struct {
	InsuredValue xmlMoney `xml:"InsuredValue"`
}

type xmlMoney struct {
	CurrencyCode  string `xml:"CurrencyCode"`
	MonetaryValue string `xml:"MonetaryValue"`
}

// ratingServiceSelectionResponse is the XML response structure for rates
type ratingServiceSelectionResponse struct {
	XMLName       xml.Name           `xml:"RatingServiceSelectionResponse"`
	Response      xmlResponse        `xml:"Response"`
	RatedShipment []xmlRatedShipment `xml:"RatedShipment"`
}

type xmlResponse struct {
	ResponseStatusCode        string     `xml:"ResponseStatusCode"`
	ResponseStatusDescription string     `xml:"ResponseStatusDescription"`
	Error                     []xmlError `xml:"Error"`
}

type xmlError struct {
	ErrorSeverity    string `xml:"ErrorSeverity"`
	ErrorCode        string `xml:"ErrorCode"`
	ErrorDescription string `xml:"ErrorDescription"`
}

type xmlRatedShipment struct {
	Service                  xmlCode  `xml:"Service"`
	TotalCharges             xmlMoney `xml:"TotalCharges"`
	GuaranteedDaysToDelivery string   `xml:"GuaranteedDaysToDelivery"`
	ScheduledDeliveryTime    string   `xml:"ScheduledDeliveryTime"`
}

// ============================================================================
// API Implementation
// ============================================================================

// GetRates fetches shipping rates from the UPS Rating API.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	body, err := c.buildRatesRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doRequest(ctx, ratePath, body)
	if err != nil {
		return nil, shipper.NewTransportError(carrierName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var rated ratingServiceSelectionResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rated); err != nil {
		return nil, shipper.NewParseError(carrierName, err)
	}

	// UPS reports request failures in a 200 response
	if rated.Response.ResponseStatusCode != "1" {
		apiErr := &APIError{Code: "UNKNOWN", Description: rated.Response.ResponseStatusDescription}
		if len(rated.Response.Error) > 0 {
			e := rated.Response.Error[0]
			apiErr = &APIError{Code: e.ErrorCode, Severity: e.ErrorSeverity, Description: e.ErrorDescription}
		}
		return nil, shipper.NewAdapterError(carrierName, shipper.KindTransport, "rate request rejected").WithCause(apiErr)
	}

	return convertRatesResponse(&rated), nil
}

func (c *HTTPAPIClient) buildRatesRequest(req *RatesRequest) ([]byte, error) {
	access := accessRequest{
		Lang:                "en-US",
		AccessLicenseNumber: c.accessLicense,
		UserID:              c.userID,
		Password:            c.password,
	}

	rating := ratingServiceSelectionRequest{
		Lang: "en-US",
		Request: xmlRequest{
			TransactionReference: xmlTransactionReference{
				CustomerContext: req.CustomerContext,
				XpciVersion:     "1.0001",
			},
			RequestAction: "Rate",
			RequestOption: req.RequestOption,
		},
		PickupType: xmlCode{Code: req.PickupType},
		Shipment: xmlShipment{
			Shipper:  xmlParty{ShipperNumber: req.ShipperNumber, Address: locationToXML(req.Shipper)},
			ShipTo:   xmlParty{Address: locationToXML(req.ShipTo)},
			ShipFrom: xmlParty{Address: locationToXML(req.Shipper)},
		},
	}
	if req.ServiceCode != "" {
		rating.Shipment.Service = &xmlCode{Code: req.ServiceCode}
	}

	for _, p := range req.Packages {
		pkg := xmlPackage{
			PackagingType: xmlCode{Code: p.PackagingType},
			PackageWeight: xmlWeight{
				UnitOfMeasurement: xmlCode{Code: p.WeightUnit},
				Weight:            p.Weight,
			},
		}
		if p.Length > 0 && p.Width > 0 && p.Height > 0 {
			pkg.Dimensions = &xmlDimensions{
				UnitOfMeasurement: xmlCode{Code: p.DimensionUnit},
				Length:            p.Length,
				Width:             p.Width,
				Height:            p.Height,
			}
		}
		if p.InsuredValue != "" {
			pkg.PackageServiceOptions = &xmlPackageServiceOptions{
				InsuredValue: xmlMoney{CurrencyCode: p.Currency, MonetaryValue: p.InsuredValue},
			}
		}
		rating.Shipment.Package = append(rating.Shipment.Package, pkg)
	}

	// The Rating API expects the access document and the request document
	// concatenated in one body.
	var buf bytes.Buffer
	for _, doc := range []any{access, rating} {
		buf.WriteString(xml.Header)
		out, err := xml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}

func locationToXML(l Location) xmlAddress {
	addr := xmlAddress{
		AddressLine1:      l.AddressLine,
		City:              l.City,
		StateProvinceCode: l.State,
		PostalCode:        normalizePostalCode(l.PostalCode),
		CountryCode:       l.CountryCode,
	}
	if l.Residential {
		addr.ResidentialAddressIndicator = &struct{}{}
	}
	return addr
}

func convertRatesResponse(rated *ratingServiceSelectionResponse) *RatesResponse {
	shipments := make([]RatedShipment, len(rated.RatedShipment))
	for i, r := range rated.RatedShipment {
		shipments[i] = RatedShipment{
			ServiceCode:              strings.TrimSpace(r.Service.Code),
			TotalCharges:             r.TotalCharges.MonetaryValue,
			CurrencyCode:             r.TotalCharges.CurrencyCode,
			GuaranteedDaysToDelivery: strings.TrimSpace(r.GuaranteedDaysToDelivery),
			ScheduledDeliveryTime:    strings.TrimSpace(r.ScheduledDeliveryTime),
		}
	}
	return &RatesResponse{RatedShipments: shipments}
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *HTTPAPIClient) doRequest(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	return c.httpClient.Do(req)
}

func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: strings.TrimSpace(string(body)),
	}

	// Try to parse as XML error
	var rated ratingServiceSelectionResponse
	if err := xml.Unmarshal(body, &rated); err == nil && len(rated.Response.Error) > 0 {
		e := rated.Response.Error[0]
		apiErr = &APIError{Code: e.ErrorCode, Severity: e.ErrorSeverity, Description: e.ErrorDescription}
	}

	return shipper.NewAdapterError(carrierName, shipper.KindTransport, "unexpected status").
		WithStatusCode(resp.StatusCode).
		WithCause(apiErr)
}

// normalizePostalCode removes spaces from postal codes
func normalizePostalCode(pc string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(pc)), " ", "")
}

var _ APIClient = (*HTTPAPIClient)(nil)
