// Package security provides centralized security configuration, rate limiting,
// input validation and structured JSON logging for the grants API.
package security

import (
	"time"
)

// SecurityConfig holds all security-related configuration values.
type SecurityConfig struct {
	// Session token verification
	TokenIssuer    string        // Expected "iss" claim, empty to skip the check
	TokenLeeway    time.Duration // Clock skew tolerated on exp/nbf
	TokenCookie    string        // Cookie consulted when no Authorization header is sent
	RequestTimeout time.Duration // Upper bound for a single request's database work
	EnforceHTTPS   bool          // Send Strict-Transport-Security

	// Input validation
	MaxNameLength    int // Organization and project names
	MaxTitleLength   int // Document titles
	MaxFunderLength  int // Project funder
	MaxContentSize   int // Document body in bytes
	MaxSections      int // Default sections accepted on project creation
	MaxReorderLength int // Document ids accepted in one reorder
	MaxBodySize      int // Request body limit in bytes

	// Rate limiting (requests per time window, per user)
	RateLimitWrite         int           // Any mutating request
	RateLimitWriteRefill   time.Duration // Time to regain one write token
	RateLimitOrgCreate     int           // Organization creation
	RateLimitOrgRefill     time.Duration // Time to regain one org-create token
	RateLimitRetryAfterSec int           // Retry-After header on 429
}

// DefaultSecurityConfig returns security configuration with recommended defaults.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		TokenLeeway:    30 * time.Second,
		TokenCookie:    "access_token",
		RequestTimeout: 15 * time.Second,

		MaxNameLength:    200,
		MaxTitleLength:   200,
		MaxFunderLength:  200,
		MaxContentSize:   1024 * 1024, // 1MB
		MaxSections:      20,
		MaxReorderLength: 500,
		MaxBodySize:      2 * 1024 * 1024,

		// Autosave fires at most once a second per document, so the write
		// bucket leaves room for several open documents.
		RateLimitWrite:         120, // per minute
		RateLimitWriteRefill:   500 * time.Millisecond,
		RateLimitOrgCreate:     5, // per hour
		RateLimitOrgRefill:     12 * time.Minute,
		RateLimitRetryAfterSec: 60,
	}
}
