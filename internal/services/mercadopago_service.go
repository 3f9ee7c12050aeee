package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MercadoPagoConfig struct {
	// Пример: https://api.mercadopago.com
	BaseURL     string
	AccessToken string

	// Куда вернуть пользователя после оплата por link (фронт)
	SuccessBackURL string
	FailureBackURL string

	// Куда шлётся вебхук (бэк)
	NotificationURL string

	Client *http.Client
	Logger *slog.Logger
}

// MercadoPagoService is a minimal Mercado Pago API client covering payment
// intent creation (PIX, boleto, checkout link) and payment lookup. Calls are
// bounded by the client timeout; a timeout means "status unknown", the
// webhook retry will surface the truth later.
type MercadoPagoService struct {
	baseURL     *url.URL
	accessToken string

	successBackURL  string
	failureBackURL  string
	notificationURL string

	httpClient *http.Client
	logger     *slog.Logger
}

// GatewayError carries a non-2xx gateway reply.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

func NewMercadoPagoService(cfg MercadoPagoConfig) (*MercadoPagoService, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("mercadopago: access_token/base_url are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	s := &MercadoPagoService{
		baseURL:         u,
		accessToken:     cfg.AccessToken,
		successBackURL:  cfg.SuccessBackURL,
		failureBackURL:  cfg.FailureBackURL,
		notificationURL: cfg.NotificationURL,
		httpClient:      client,
		logger:          logger,
	}
	logger.Info("MercadoPago initialized",
		"baseURL", u.Redacted(),
		"notificationURL_set", s.notificationURL != "",
	)
	return s, nil
}

// Payment methods understood by CreatePayment. Anything else is settled in
// store (cash, card on delivery) and needs no gateway artifact.
const (
	MethodPIX    = "pix"
	MethodBoleto = "boleto"
	MethodLink   = "link"
)

// GatewayRequired reports whether the payment method needs a gateway-side
// artifact (QR code, barcode or redirect link).
func GatewayRequired(method string) bool {
	switch strings.ToLower(method) {
	case MethodPIX, MethodBoleto, MethodLink:
		return true
	}
	return false
}

type CreatePaymentRequest struct {
	InvoiceID   int
	Amount      float64
	Method      string
	Description string
	PayerEmail  string
}

type CreatePaymentResponse struct {
	PaymentID   string
	Status      string
	QRCode      string
	Barcode     string
	RedirectURL string
}

// Payment is the authoritative payment state re-queried from the gateway.
type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	TransactionAmount float64
	ExternalReference string
}

// WebhookPayload is the async notification shape Mercado Pago delivers:
// {"type":"payment","data":{"id":"..."}}. No ordering or de-duplication is
// guaranteed.
type WebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ParseWebhook decodes the webhook body. The id may arrive as a number or a
// string depending on the notification version.
func ParseWebhook(body io.Reader) (WebhookPayload, error) {
	var raw struct {
		Type string `json:"type"`
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode webhook: %w", err)
	}
	var p WebhookPayload
	p.Type = raw.Type
	p.Data.ID = raw.Data.ID.String()
	return p, nil
}

// CreatePayment creates the payment artifact for an invoice. external_reference
// carries our invoice id so the webhook can find the invoice even when the
// payment_id write on our side lost the race with the gateway.
func (s *MercadoPagoService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error) {
	method := strings.ToLower(req.Method)
	if method == MethodLink {
		return s.createCheckoutPreference(ctx, req)
	}

	methodID := "pix"
	if method == MethodBoleto {
		methodID = "bolbradesco"
	}
	payload := map[string]any{
		"transaction_amount": req.Amount,
		"description":        req.Description,
		"payment_method_id":  methodID,
		"external_reference": strconv.Itoa(req.InvoiceID),
		"notification_url":   s.notificationURL,
		"payer":              map[string]any{"email": req.PayerEmail},
	}

	var apiResp struct {
		ID                 json.Number `json:"id"`
		Status             string      `json:"status"`
		PointOfInteraction struct {
			TransactionData struct {
				QRCode string `json:"qr_code"`
			} `json:"transaction_data"`
		} `json:"point_of_interaction"`
		TransactionDetails struct {
			DigitableLine string `json:"digitable_line"`
		} `json:"transaction_details"`
	}
	if err := s.post(ctx, "/v1/payments", payload, &apiResp); err != nil {
		return CreatePaymentResponse{}, err
	}

	return CreatePaymentResponse{
		PaymentID: apiResp.ID.String(),
		Status:    apiResp.Status,
		QRCode:    apiResp.PointOfInteraction.TransactionData.QRCode,
		Barcode:   apiResp.TransactionDetails.DigitableLine,
	}, nil
}

func (s *MercadoPagoService) createCheckoutPreference(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error) {
	payload := map[string]any{
		"items": []map[string]any{{
			"title":      req.Description,
			"quantity":   1,
			"unit_price": req.Amount,
		}},
		"external_reference": strconv.Itoa(req.InvoiceID),
		"notification_url":   s.notificationURL,
		"back_urls": map[string]string{
			"success": s.successBackURL,
			"failure": s.failureBackURL,
		},
		"auto_return": "approved",
	}

	var apiResp struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := s.post(ctx, "/checkout/preferences", payload, &apiResp); err != nil {
		return CreatePaymentResponse{}, err
	}

	return CreatePaymentResponse{
		PaymentID:   apiResp.ID,
		Status:      "pending",
		RedirectURL: apiResp.InitPoint,
	}, nil
}

// GetPayment fetches the authoritative payment state by id. Webhook bodies
// are never trusted for status; this call is.
func (s *MercadoPagoService) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/payments/", paymentID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Payment{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Payment{}, fmt.Errorf("get payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Payment{}, &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var apiResp struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		StatusDetail      string      `json:"status_detail"`
		TransactionAmount float64     `json:"transaction_amount"`
		ExternalReference string      `json:"external_reference"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&apiResp); err != nil {
		return Payment{}, fmt.Errorf("decode payment: %w", err)
	}
	return Payment{
		ID:                apiResp.ID.String(),
		Status:            apiResp.Status,
		StatusDetail:      apiResp.StatusDetail,
		TransactionAmount: apiResp.TransactionAmount,
		ExternalReference: apiResp.ExternalReference,
	}, nil
}

func (s *MercadoPagoService) post(ctx context.Context, endpointPath string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, endpointPath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.accessToken)
	httpReq.Header.Set("X-Idempotency-Key", uuid.New().String())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		s.logger.Error("MercadoPago request failed", "path", endpointPath, "status", resp.StatusCode)
		return &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
