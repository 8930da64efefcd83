package shopee

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/google/uuid"
)

const (
	pathEditManualAds = "/api/v2/ads/edit_manual_product_ads"
	pathEditAutoAds   = "/api/v2/ads/edit_auto_product_ads"
)

// APIError is an application-level rejection carried in the response body,
// as opposed to a transport failure.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopee api error %s: %s", e.Code, e.Message)
}

// Client signs and sends partner API calls. One instance is shared by all
// shops; per-shop state lives in the credentials passed to each call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	now        func() time.Time
}

// NewClient builds a client for the partner host. proxyURL may be empty; when
// set, requests egress through it so Shopee sees a stable whitelisted IP.
func NewClient(baseURL, proxyURL string, timeout time.Duration) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    baseURL,
		timeout:    timeout,
		now:        time.Now,
	}, nil
}

type budgetRequest struct {
	ReferenceID string `json:"reference_id"`
	CampaignID  int64  `json:"campaign_id"`
	EditAction  string `json:"edit_action"`
	Budget      int64  `json:"budget"`
}

type budgetResponse struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
}

// SetBudget issues one "change_budget" edit for the campaign. A nil return
// means the upstream acknowledged the change. Application-level rejections
// come back as *APIError; anything else is a transport failure.
func (c *Client) SetBudget(ctx context.Context, creds *domain.ShopCredentials, campaignID int64, kind domain.CampaignKind, budget int64) error {
	path := pathEditManualAds
	if kind == domain.CampaignAuto {
		path = pathEditAutoAds
	}

	ts := c.now().Unix()

	q := url.Values{}
	q.Set("partner_id", strconv.FormatInt(creds.PartnerID, 10))
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("access_token", creds.AccessToken)
	q.Set("shop_id", strconv.FormatInt(creds.ShopID, 10))
	q.Set("sign", Sign(creds, path, ts))

	body, err := json.Marshal(budgetRequest{
		ReferenceID: c.newReferenceID(),
		CampaignID:  campaignID,
		EditAction:  "change_budget",
		Budget:      budget,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var parsed budgetResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	// Shopee's "no error" sentinel is either an empty string or a literal "-".
	if parsed.Error != "" && parsed.Error != "-" {
		return &APIError{Code: parsed.Error, Message: parsed.Message}
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 request signature over the canonical
// partner_id | path | timestamp | access_token | shop_id string.
func Sign(creds *domain.ShopCredentials, path string, timestamp int64) string {
	base := fmt.Sprintf("%d%s%d%s%d", creds.PartnerID, path, timestamp, creds.AccessToken, creds.ShopID)
	mac := hmac.New(sha256.New, []byte(creds.PartnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// newReferenceID builds the per-attempt idempotency token: retried calls are
// distinguishable server-side while the caller's intent stays the same.
func (c *Client) newReferenceID() string {
	return fmt.Sprintf("%d-%s", c.now().UnixMilli(), uuid.NewString()[:8])
}
