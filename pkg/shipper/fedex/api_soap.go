package fedex

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tournevent/shiprates/pkg/shipper"
)

// DefaultBaseURL is the FedEx production web services host.
const DefaultBaseURL = "https://ws.fedex.com:443"

const (
	ratePath   = "/web-services/rate"
	rateAction = "http://fedex.com/ws/rate/v31/getRates"
)

// SOAPAPIClient is the production implementation of APIClient using SOAP.
type SOAPAPIClient struct {
	baseURL       string
	key           string
	password      string
	accountNumber string
	meterNumber   string
	httpClient    *http.Client
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	BaseURL       string
	Key           string
	Password      string
	AccountNumber string
	MeterNumber   string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
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

	return &SOAPAPIClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		key:           cfg.Key,
		password:      cfg.Password,
		accountNumber: cfg.AccountNumber,
		meterNumber:   cfg.MeterNumber,
		httpClient:    httpClient,
	}
}

// GetRates fetches shipping rates from the FedEx RateService.
func (c *SOAPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	soapBody, err := c.buildRatesRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.baseURL+ratePath, rateAction, soapBody)
	if err != nil {
		return nil, shipper.NewTransportError(carrierName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseRatesResponse(resp.Body)
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

func (c *SOAPAPIClient) doSOAPRequest(ctx context.Context, endpoint, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	return c.httpClient.Do(req)
}

// ============================================================================
// SOAP Request Builders
// ============================================================================

var templateFuncs = template.FuncMap{
	"xml": escapeXML,
}

var envelopeTemplate = template.Must(template.New("envelope").Funcs(templateFuncs).Parse(`<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:v31="http://fedex.com/ws/rate/v31">
  <soapenv:Header/>
  <soapenv:Body>
    <v31:RateRequest>
      <v31:WebAuthenticationDetail>
        <v31:UserCredential>
          <v31:Key>{{xml .Key}}</v31:Key>
          <v31:Password>{{xml .Password}}</v31:Password>
        </v31:UserCredential>
      </v31:WebAuthenticationDetail>
      <v31:ClientDetail>
        <v31:AccountNumber>{{xml .AccountNumber}}</v31:AccountNumber>
        <v31:MeterNumber>{{xml .MeterNumber}}</v31:MeterNumber>
      </v31:ClientDetail>
      <v31:TransactionDetail>
        <v31:CustomerTransactionId>{{xml .Request.CustomerTransactionID}}</v31:CustomerTransactionId>
      </v31:TransactionDetail>
      <v31:Version>
        <v31:ServiceId>crs</v31:ServiceId>
        <v31:Major>31</v31:Major>
        <v31:Intermediate>0</v31:Intermediate>
        <v31:Minor>0</v31:Minor>
      </v31:Version>
      <v31:ReturnTransitAndCommit>true</v31:ReturnTransitAndCommit>
      <v31:RequestedShipment>
        <v31:DropoffType>{{xml .Request.DropoffType}}</v31:DropoffType>
        {{- if .Request.ServiceType}}
        <v31:ServiceType>{{xml .Request.ServiceType}}</v31:ServiceType>
        {{- end}}
        <v31:PackagingType>{{xml .Request.PackagingType}}</v31:PackagingType>
        <v31:Shipper>
          {{template "address" .Request.Shipper}}
        </v31:Shipper>
        <v31:Recipient>
          {{template "address" .Request.Recipient}}
        </v31:Recipient>
        <v31:RateRequestTypes>NONE</v31:RateRequestTypes>
        <v31:PackageCount>{{len .Request.Packages}}</v31:PackageCount>
        {{- range .Request.Packages}}
        <v31:RequestedPackageLineItems>
          <v31:SequenceNumber>{{.SequenceNumber}}</v31:SequenceNumber>
          <v31:GroupPackageCount>1</v31:GroupPackageCount>
          {{- if .InsuredAmount}}
          <v31:InsuredValue>
            <v31:Currency>{{xml .Currency}}</v31:Currency>
            <v31:Amount>{{xml .InsuredAmount}}</v31:Amount>
          </v31:InsuredValue>
          {{- end}}
          <v31:Weight>
            <v31:Units>{{xml .WeightUnits}}</v31:Units>
            <v31:Value>{{.Weight}}</v31:Value>
          </v31:Weight>
          {{- if .HasDimensions}}
          <v31:Dimensions>
            <v31:Length>{{.Length}}</v31:Length>
            <v31:Width>{{.Width}}</v31:Width>
            <v31:Height>{{.Height}}</v31:Height>
            <v31:Units>{{xml .DimensionUnits}}</v31:Units>
          </v31:Dimensions>
          {{- end}}
        </v31:RequestedPackageLineItems>
        {{- end}}
      </v31:RequestedShipment>
    </v31:RateRequest>
  </soapenv:Body>
</soapenv:Envelope>
{{- define "address"}}<v31:Address>
            {{- range .StreetLines}}
            <v31:StreetLines>{{xml .}}</v31:StreetLines>
            {{- end}}
            {{- if .City}}
            <v31:City>{{xml .City}}</v31:City>
            {{- end}}
            {{- if .StateOrProvinceCode}}
            <v31:StateOrProvinceCode>{{xml .StateOrProvinceCode}}</v31:StateOrProvinceCode>
            {{- end}}
            <v31:PostalCode>{{xml .PostalCode}}</v31:PostalCode>
            <v31:CountryCode>{{xml .CountryCode}}</v31:CountryCode>
            <v31:Residential>{{.Residential}}</v31:Residential>
          </v31:Address>{{end}}`))

func (c *SOAPAPIClient) buildRatesRequest(req *RatesRequest) ([]byte, error) {
	data := struct {
		Key           string
		Password      string
		AccountNumber string
		MeterNumber   string
		Request       *RatesRequest
	}{
		Key:           c.key,
		Password:      c.password,
		AccountNumber: c.accountNumber,
		MeterNumber:   c.meterNumber,
		Request:       req,
	}

	var buf bytes.Buffer
	if err := envelopeTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) string {
	var buf strings.Builder
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// ============================================================================
// SOAP Response Parsers - XML Types
// ============================================================================

// soapEnvelope represents a SOAP envelope response
type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault     *soapFault `xml:"Fault,omitempty"`
	RateReply *rateReply `xml:"RateReply,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type rateReply struct {
	HighestSeverity  string            `xml:"HighestSeverity"`
	Notifications    []notification    `xml:"Notifications"`
	RateReplyDetails []rateReplyDetail `xml:"RateReplyDetails"`
}

type notification struct {
	Severity string `xml:"Severity"`
	Source   string `xml:"Source"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

type rateReplyDetail struct {
	ServiceType          string                `xml:"ServiceType"`
	DeliveryTimestamp    string                `xml:"DeliveryTimestamp"`
	TransitTime          string                `xml:"TransitTime"`
	RatedShipmentDetails []ratedShipmentDetail `xml:"RatedShipmentDetails"`
}

type ratedShipmentDetail struct {
	ShipmentRateDetail shipmentRateDetail `xml:"ShipmentRateDetail"`
}

type shipmentRateDetail struct {
	RateType       string `xml:"RateType"`
	TotalNetCharge money  `xml:"TotalNetCharge"`
}

type money struct {
	Currency string `xml:"Currency"`
	Amount   string `xml:"Amount"`
}

// ============================================================================
// SOAP Response Parsing Functions
// ============================================================================

func (c *SOAPAPIClient) parseSOAPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{
		Severity: "ERROR",
		Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:  strings.TrimSpace(string(body)),
	}

	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err == nil && env.Body.Fault != nil {
		apiErr.Code = env.Body.Fault.Code
		apiErr.Message = env.Body.Fault.String
	}

	return shipper.NewAdapterError(carrierName, shipper.KindTransport, "unexpected status").
		WithStatusCode(resp.StatusCode).
		WithCause(apiErr)
}

func (c *SOAPAPIClient) parseRatesResponse(body io.Reader) (*RatesResponse, error) {
	var env soapEnvelope
	if err := xml.NewDecoder(body).Decode(&env); err != nil {
		return nil, shipper.NewParseError(carrierName, err)
	}

	if env.Body.Fault != nil {
		return nil, shipper.NewAdapterError(carrierName, shipper.KindTransport, "soap fault").WithCause(&APIError{
			Severity: "FAILURE",
			Code:     env.Body.Fault.Code,
			Message:  env.Body.Fault.String,
		})
	}

	if env.Body.RateReply == nil {
		return nil, shipper.NewParseError(carrierName, fmt.Errorf("no RateReply in response"))
	}

	reply := env.Body.RateReply

	// Check for API errors in response
	switch reply.HighestSeverity {
	case "ERROR", "FAILURE":
		apiErr := &APIError{Severity: reply.HighestSeverity}
		for _, n := range reply.Notifications {
			if n.Severity == reply.HighestSeverity {
				apiErr.Code = n.Code
				apiErr.Message = n.Message
				break
			}
		}
		return nil, shipper.NewAdapterError(carrierName, shipper.KindTransport, "rate request rejected").WithCause(apiErr)
	}

	details := make([]RateReplyDetail, 0, len(reply.RateReplyDetails))
	for _, d := range reply.RateReplyDetails {
		charge := selectCharge(d.RatedShipmentDetails)
		details = append(details, RateReplyDetail{
			ServiceType:       strings.TrimSpace(d.ServiceType),
			TotalNetCharge:    charge.Amount,
			Currency:          charge.Currency,
			TransitTime:       strings.TrimSpace(d.TransitTime),
			DeliveryTimestamp: strings.TrimSpace(d.DeliveryTimestamp),
		})
	}

	return &RatesResponse{
		HighestSeverity: reply.HighestSeverity,
		Details:         details,
	}, nil
}

// selectCharge prefers the account rate over list rates.
func selectCharge(details []ratedShipmentDetail) money {
	for _, d := range details {
		if strings.HasPrefix(d.ShipmentRateDetail.RateType, "PAYOR_ACCOUNT") {
			return d.ShipmentRateDetail.TotalNetCharge
		}
	}
	if len(details) > 0 {
		return details[0].ShipmentRateDetail.TotalNetCharge
	}
	return money{}
}

var _ APIClient = (*SOAPAPIClient)(nil)
