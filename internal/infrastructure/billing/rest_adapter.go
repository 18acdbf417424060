// Package billing adapts the remote billing backend to the entitlement
// provider port consumed by subscription sessions.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RESTProvider implements entitlement.Provider against the billing backend's
// REST API. One provider instance serves one bound user. Push updates arrive
// over a Redis channel when a push source is attached.
type RESTProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	push       PushSource

	mu     sync.Mutex
	userID string

	updates   chan entitlement.CustomerRecord
	closeOnce sync.Once
	pushStop  func()
}

// PushSource delivers out-of-band customer record updates for one user.
// Start returns a stop function; delivered records go to the sink.
type PushSource interface {
	Start(ctx context.Context, userID string, sink func(entitlement.CustomerRecord)) (stop func(), err error)
}

// NewRESTProvider creates a provider for one user-to-be. The push source is
// optional; without one Updates never delivers.
func NewRESTProvider(cfg config.BillingConfig, push PushSource, logger *zap.Logger) *RESTProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger:  logger,
		push:    push,
		updates: make(chan entitlement.CustomerRecord, 8),
	}
}

// Bind associates the provider with a user and fetches the initial record
func (p *RESTProvider) Bind(ctx context.Context, userID string) (entitlement.CustomerRecord, error) {
	if userID == "" {
		return entitlement.CustomerRecord{}, entitlement.ErrInvalidUser
	}

	record, err := p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/customers/%s/bind", userID), nil)
	if err != nil {
		return entitlement.CustomerRecord{}, err
	}

	p.mu.Lock()
	p.userID = userID
	p.mu.Unlock()

	p.startPush(userID)
	return record, nil
}

// FetchRecord returns a fresh customer record for the bound user
func (p *RESTProvider) FetchRecord(ctx context.Context) (entitlement.CustomerRecord, error) {
	userID, err := p.boundUser()
	if err != nil {
		return entitlement.CustomerRecord{}, err
	}
	return p.do(ctx, http.MethodGet, fmt.Sprintf("/v1/customers/%s", userID), nil)
}

// Purchase executes a purchase of the referenced package
func (p *RESTProvider) Purchase(ctx context.Context, ref entitlement.PackageRef) (entitlement.CustomerRecord, error) {
	userID, err := p.boundUser()
	if err != nil {
		return entitlement.CustomerRecord{}, err
	}
	body, err := json.Marshal(purchasePayload{PackageRef: string(ref)})
	if err != nil {
		return entitlement.CustomerRecord{}, fmt.Errorf("billing: failed to marshal purchase request: %w", err)
	}
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/customers/%s/purchases", userID), body)
}

// Restore re-links previous purchases
func (p *RESTProvider) Restore(ctx context.Context) (entitlement.CustomerRecord, error) {
	userID, err := p.boundUser()
	if err != nil {
		return entitlement.CustomerRecord{}, err
	}
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/v1/customers/%s/restore", userID), nil)
}

// Updates is the push channel emitting records on out-of-band changes
func (p *RESTProvider) Updates() <-chan entitlement.CustomerRecord {
	return p.updates
}

// Close releases the binding and the push stream
func (p *RESTProvider) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		stop := p.pushStop
		p.pushStop = nil
		p.mu.Unlock()
		if stop != nil {
			stop()
		}
		close(p.updates)
	})
	return nil
}

func (p *RESTProvider) boundUser() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userID == "" {
		return "", entitlement.ErrInvalidUser
	}
	return p.userID, nil
}

func (p *RESTProvider) startPush(userID string) {
	if p.push == nil {
		return
	}
	p.mu.Lock()
	already := p.pushStop != nil
	p.mu.Unlock()
	if already {
		return
	}

	stop, err := p.push.Start(context.Background(), userID, func(record entitlement.CustomerRecord) {
		// Drop rather than block: a full buffer means the session is
		// behind, and a newer record will follow.
		select {
		case p.updates <- record:
		default:
			p.logger.Warn("dropping push update, channel full",
				zap.String("user_id", userID))
		}
	})
	if err != nil {
		p.logger.Warn("failed to start push stream, relying on explicit refreshes",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	p.mu.Lock()
	p.pushStop = stop
	p.mu.Unlock()
}

// do issues one request and maps the response to a record or a provider error
func (p *RESTProvider) do(ctx context.Context, method, path string, body []byte) (entitlement.CustomerRecord, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return entitlement.CustomerRecord{}, fmt.Errorf("billing: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return entitlement.CustomerRecord{}, fmt.Errorf("billing: request failed: %w (%v)", entitlement.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return entitlement.CustomerRecord{}, fmt.Errorf("billing: failed to read response: %w", entitlement.ErrProviderUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return entitlement.CustomerRecord{}, p.mapError(resp.StatusCode, respBody)
	}

	var payload customerPayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return entitlement.CustomerRecord{}, fmt.Errorf("billing: malformed response: %w", entitlement.ErrProviderUnavailable)
	}
	return payload.toDomain(), nil
}

// mapError translates a non-200 response into one of the provider errors.
// The body's error code takes precedence over the HTTP status.
func (p *RESTProvider) mapError(status int, body []byte) error {
	var payload errorPayload
	_ = json.Unmarshal(body, &payload)

	switch payload.Code {
	case errCodeUserCancelled:
		return entitlement.ErrUserCancelled
	case errCodePurchaseFailed:
		return fmt.Errorf("billing: %s: %w", payload.Message, entitlement.ErrPurchaseFailed)
	case errCodeInvalidUser:
		return fmt.Errorf("billing: %s: %w", payload.Message, entitlement.ErrInvalidUser)
	}

	switch {
	case status == http.StatusNotFound, status == http.StatusBadRequest:
		return fmt.Errorf("billing: status %d: %w", status, entitlement.ErrInvalidUser)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("billing: status %d: %w", status, entitlement.ErrPurchaseFailed)
	default:
		return fmt.Errorf("billing: status %d: %w", status, entitlement.ErrProviderUnavailable)
	}
}

// Ensure RESTProvider implements entitlement.Provider
var _ entitlement.Provider = (*RESTProvider)(nil)
