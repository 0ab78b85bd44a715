package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

// Gateway is the outbound payment-provider contract: pure request/response,
// no local state.
type Gateway interface {
	Initialize(ctx context.Context, amount money.Kobo, email, reference string, metadata map[string]string) (*InitResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	Refund(ctx context.Context, providerReference string, amount money.Kobo) (*RefundResult, error)
}

type InitResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type VerifyResult struct {
	Reference string
	Status    string // provider-reported, "success" means paid
	Amount    money.Kobo
	Raw       json.RawMessage
}

func (v *VerifyResult) Successful() bool { return v.Status == "success" }

type RefundResult struct {
	Reference string // provider refund reference
	Raw       json.RawMessage
}

// Paystack talks to the Paystack REST API.
type Paystack struct {
	HTTP    *http.Client
	BaseURL string
	Secret  string
}

func NewPaystack(baseURL, secret string) *Paystack {
	return &Paystack{
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
		Secret:  secret,
	}
}

// envelope is Paystack's common response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) call(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("paystack %s: decode: %w", path, err)
	}
	if !env.Status {
		return nil, fmt.Errorf("paystack %s: %s", path, env.Message)
	}
	return &env, nil
}

func (p *Paystack) Initialize(ctx context.Context, amount money.Kobo, email, reference string, metadata map[string]string) (*InitResult, error) {
	env, err := p.call(ctx, http.MethodPost, "/transaction/initialize", map[string]any{
		"email":     email,
		"amount":    int64(amount),
		"reference": reference,
		"metadata":  metadata,
	})
	if err != nil {
		return nil, err
	}
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &InitResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	env, err := p.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &VerifyResult{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    money.Kobo(data.Amount),
		Raw:       env.Data,
	}, nil
}

func (p *Paystack) Refund(ctx context.Context, providerReference string, amount money.Kobo) (*RefundResult, error) {
	env, err := p.call(ctx, http.MethodPost, "/refund", map[string]any{
		"transaction": providerReference,
		"amount":      int64(amount),
	})
	if err != nil {
		return nil, err
	}
	var data struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &RefundResult{Reference: data.Reference, Raw: env.Data}, nil
}
