package shopee

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
)

func testCredentials() *domain.ShopCredentials {
	return &domain.ShopCredentials{
		ShopID:      42,
		AccessToken: "test-token",
		PartnerID:   2005001,
		PartnerKey:  "test-partner-key",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "", 2*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestSetBudget_SignsAndSendsRequest(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	var gotBody budgetRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"error":"","request_id":"req-1","response":{}}`))
	})
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	creds := testCredentials()
	if err := client.SetBudget(context.Background(), creds, 100, domain.CampaignManual, 500000); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	if gotPath != pathEditManualAds {
		t.Fatalf("expected manual ads path, got %s", gotPath)
	}
	if gotQuery.Get("partner_id") != "2005001" || gotQuery.Get("shop_id") != "42" {
		t.Fatalf("wrong identity params: %v", gotQuery)
	}
	if gotQuery.Get("access_token") != "test-token" {
		t.Fatalf("missing access token: %v", gotQuery)
	}
	if gotQuery.Get("timestamp") != "1700000000" {
		t.Fatalf("wrong timestamp: %v", gotQuery)
	}
	if want := Sign(creds, pathEditManualAds, 1700000000); gotQuery.Get("sign") != want {
		t.Fatalf("wrong signature: got %s want %s", gotQuery.Get("sign"), want)
	}

	if gotBody.CampaignID != 100 || gotBody.Budget != 500000 {
		t.Fatalf("wrong body: %+v", gotBody)
	}
	if gotBody.EditAction != "change_budget" {
		t.Fatalf("wrong edit action: %s", gotBody.EditAction)
	}
	if gotBody.ReferenceID == "" {
		t.Fatal("expected a per-attempt reference id")
	}
}

func TestSetBudget_AutoCampaignPath(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"error":"","response":{}}`))
	})

	if err := client.SetBudget(context.Background(), testCredentials(), 100, domain.CampaignAuto, 1000); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if gotPath != pathEditAutoAds {
		t.Fatalf("expected auto ads path, got %s", gotPath)
	}
}

func TestSetBudget_DashSentinelIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"-","message":"-","response":{}}`))
	})

	if err := client.SetBudget(context.Background(), testCredentials(), 100, domain.CampaignManual, 1000); err != nil {
		t.Fatalf("dash sentinel must be success, got %v", err)
	}
}

func TestSetBudget_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"error_param","message":"budget too low"}`))
	})

	err := client.SetBudget(context.Background(), testCredentials(), 100, domain.CampaignManual, 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "error_param" || apiErr.Message != "budget too low" {
		t.Fatalf("wrong api error: %+v", apiErr)
	}
}

func TestSetBudget_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.SetBudget(context.Background(), testCredentials(), 100, domain.CampaignManual, 1000)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("timeout must not look like an application error, got %+v", apiErr)
	}
	if cls := ClassifyError(err); !cls.Retryable {
		t.Fatalf("timeouts must classify retryable, got %+v", cls)
	}
}

func TestNewClient_BadProxyURL(t *testing.T) {
	if _, err := NewClient("https://partner.test", "://bad", time.Second); err == nil {
		t.Fatal("expected error for malformed proxy url")
	}
}
