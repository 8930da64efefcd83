package shopee

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Classification is the scheduler's verdict on a single upstream failure.
// It is a pure function of the error code and message — no hidden state.
type Classification struct {
	Retryable      bool
	RateLimited    bool
	AuthError      bool
	WhitelistError bool
	BusinessError  bool
	Friendly       string
}

// FatalForShop reports whether further calls for the same shop in this run
// are certain to fail the same way.
func (c Classification) FatalForShop() bool {
	return c.AuthError || c.WhitelistError
}

var rateLimitCodes = map[string]bool{
	"error_request_limit":    true,
	"error_too_many_request": true,
	"error.speed_limit":      true,
}

var authCodes = map[string]bool{
	"error_auth":           true,
	"error_not_auth":       true,
	"error_permission":     true,
	"error_token":          true,
	"invalid_access_token": true,
}

var transientCodes = map[string]bool{
	"error_server":      true,
	"error_system_busy": true,
	"error_inner":       true,
	"error_network":     true,
}

// businessCodes are known campaign-level rejections. They abort only the
// offending schedule, never the shop's remaining schedules.
var businessCodes = map[string]string{
	"ads.budget.under_minimum":    "Daily budget is below the minimum Shopee allows for this campaign",
	"ads.budget.exceed_maximum":   "Daily budget is above the maximum Shopee allows for this campaign",
	"ads.campaign.not_found":      "Campaign no longer exists in Shopee Ads",
	"ads.campaign.invalid_status": "Campaign status does not allow budget edits (ended or deleted)",
	"error_param":                 "Shopee rejected the request parameters",
}

// Classify maps an upstream error code/message pair onto the scheduler's
// failure taxonomy. Rules are evaluated in order; the first match wins.
func Classify(code, message string) Classification {
	lower := strings.ToLower(message)

	// The whitelist rejection arrives under generic codes, so it is detected
	// from the message text before anything else.
	if strings.Contains(lower, "whitelist") || strings.Contains(lower, "not declared") {
		return Classification{
			WhitelistError: true,
			Friendly:       "Outbound IP is not whitelisted in the Shopee open platform console",
		}
	}

	if rateLimitCodes[code] {
		return Classification{
			Retryable:   true,
			RateLimited: true,
			Friendly:    "Shopee API rate limit reached, slowing down",
		}
	}

	if authCodes[code] {
		return Classification{
			AuthError: true,
			Friendly:  "Shop authorization is invalid or expired, reconnect the shop",
		}
	}

	if transientCodes[code] {
		return Classification{
			Retryable: true,
			Friendly:  "Shopee reported a temporary server problem",
		}
	}

	if friendly, ok := businessCodes[code]; ok {
		return Classification{BusinessError: true, Friendly: friendly}
	}

	return Classification{
		Friendly: fmt.Sprintf("Shopee error %s: %s", code, message),
	}
}

// ClassifyError handles both application-level *APIError values and transport
// failures from the HTTP client. A timed-out call is retryable the same way a
// transient upstream fault is.
func ClassifyError(err error) Classification {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return Classify(apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Retryable: true, Friendly: "Request to Shopee timed out"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Retryable: true, Friendly: "Request to Shopee timed out"}
	}

	return Classification{
		Retryable: true,
		Friendly:  fmt.Sprintf("Network error calling Shopee: %v", err),
	}
}
