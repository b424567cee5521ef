package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lead-enrichment/internal/lead"
)

// AuthStyle selects how a vendor expects credentials.
type AuthStyle string

const (
	AuthBearer AuthStyle = "bearer"
	AuthBasic  AuthStyle = "basic"
	AuthAPIKey AuthStyle = "api_key"
)

// lookupRequest is the wire shape shared by every vendor lookup endpoint.
// Vendors match on contact fields; missing ones are omitted.
type lookupRequest struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
}

// HTTPVendor is a generic JSON-over-HTTP vendor client. The per-vendor part
// is the decode function, which maps the vendor's response body to the
// normalized Output for its source.
type HTTPVendor struct {
	name       string
	lookupURL  string
	healthURL  string
	authStyle  AuthStyle
	credential string
	client     *http.Client
	decode     func(body []byte) (*Output, error)
}

// HTTPVendorConfig carries the static wiring for one vendor endpoint.
type HTTPVendorConfig struct {
	Name       string
	LookupURL  string
	HealthURL  string
	AuthStyle  AuthStyle
	Credential string
	Client     *http.Client
}

// NewHTTPVendor builds a vendor client around a decode function.
func NewHTTPVendor(cfg HTTPVendorConfig, decode func(body []byte) (*Output, error)) *HTTPVendor {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPVendor{
		name:       cfg.Name,
		lookupURL:  cfg.LookupURL,
		healthURL:  cfg.HealthURL,
		authStyle:  cfg.AuthStyle,
		credential: cfg.Credential,
		client:     client,
		decode:     decode,
	}
}

func (v *HTTPVendor) Name() string { return v.name }

// Fetch posts the lead's contact fields to the vendor's lookup endpoint and
// decodes the response into the normalized output.
func (v *HTTPVendor) Fetch(ctx context.Context, l *lead.Lead) (*Output, error) {
	payload := lookupRequest{
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Email:     l.Email,
		Phone:     l.Phone,
		Location:  l.Location,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(ErrorInternal, v.name, "encode lookup request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.lookupURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorInternal, v.name, "build lookup request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	v.authenticate(req)

	resp, err := v.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewError(ErrorVendorOutage, v.name, "vendor unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewError(ErrorBadData, v.name, "read vendor response", err)
	}

	if resp.StatusCode != http.StatusOK {
		category := categoryForStatus(resp.StatusCode)
		pe := NewError(category, v.name, fmt.Sprintf("vendor returned %d", resp.StatusCode), nil)
		pe.StatusCode = resp.StatusCode
		return nil, pe
	}

	out, err := v.decode(raw)
	if err != nil {
		return nil, NewError(ErrorBadData, v.name, "decode vendor response", err)
	}
	return out, nil
}

// Ping hits the vendor's health endpoint.
func (v *HTTPVendor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.healthURL, nil)
	if err != nil {
		return NewError(ErrorInternal, v.name, "build health request", err)
	}
	v.authenticate(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return NewError(ErrorVendorOutage, v.name, "health probe failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		pe := NewError(categoryForStatus(resp.StatusCode), v.name,
			fmt.Sprintf("health probe returned %d", resp.StatusCode), nil)
		pe.StatusCode = resp.StatusCode
		return pe
	}
	return nil
}

func (v *HTTPVendor) authenticate(req *http.Request) {
	switch v.authStyle {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+v.credential)
	case AuthBasic:
		req.Header.Set("Authorization", "Basic "+v.credential)
	case AuthAPIKey:
		req.Header.Set("X-API-Key", v.credential)
	}
}
