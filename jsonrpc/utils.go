package jsonrpc

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/mezonai/remit/logx"
)

// JSON-RPC Method name constants
const (
	// Ledger operations
	MethodRemitHash             = "remit.hash"
	MethodRemitDeposit          = "remit.deposit"
	MethodRemitWithdraw         = "remit.withdraw"
	MethodRemitRefund           = "remit.refund"
	MethodRemitWithdrawBenefits = "remit.withdrawbenefits"
	MethodRemitPause            = "remit.pause"
	MethodRemitUnpause          = "remit.unpause"
	MethodRemitKill             = "remit.kill"
	MethodRemitStatus           = "remit.status"
	MethodRemitTransfer         = "remit.transfer"

	// Account methods
	MethodAccountBalance = "account.balance"

	// Event log
	MethodEventsHead  = "events.head"
	MethodEventsRange = "events.range"

	// Health methods
	MethodHealthCheck = "health.check"
)

const (
	PathRPC     = "/"
	PathEvents  = "/ws/events"
	PathMetrics = "/metrics"

	// MaxRangeSize caps how many events one events.range call returns
	MaxRangeSize = 1000
)

func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		logx.Debug("JSONRPC", "X-Forwarded-For:", xff)
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}

// CORSFromEnv reads environment variables and constructs a CORSConfig.
// Returns (cfg, true) if any CORS-related env var is set; otherwise (zero, false).
//
// Env vars:
// - CORS_ALLOWED_ORIGINS: comma-separated list
// - CORS_ALLOWED_METHODS: comma-separated list
// - CORS_ALLOWED_HEADERS: comma-separated list
// - CORS_MAX_AGE: integer seconds
func CORSFromEnv() (CORSConfig, bool) {
	cfg := CORSConfig{
		AllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AllowedMethods: splitAndTrim(os.Getenv("CORS_ALLOWED_METHODS")),
		AllowedHeaders: splitAndTrim(os.Getenv("CORS_ALLOWED_HEADERS")),
	}
	if v, err := strconv.Atoi(os.Getenv("CORS_MAX_AGE")); err == nil {
		cfg.MaxAge = v
	}
	provided := len(cfg.AllowedOrigins) > 0 || len(cfg.AllowedMethods) > 0 || len(cfg.AllowedHeaders) > 0 || cfg.MaxAge > 0
	if !provided {
		return CORSConfig{}, false
	}
	return cfg, true
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
