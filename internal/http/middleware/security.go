package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects the optional response headers of SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests. Leave it
	// off while the proxy forwards plain HTTP to the app.
	EnableHSTS bool
	HSTSMaxAge time.Duration // 180 days when zero

	// NoStore marks every response uncacheable. Per-user routes use the
	// NoStore middleware instead.
	NoStore bool

	// EnablePolicy sends Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

const defaultHSTSMaxAge = 180 * 24 * time.Hour

type headerPair struct{ name, value string }

var (
	baselineHeaders = []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}

	// Card entry happens on the Stripe-hosted page, never in an API
	// response, so the payment feature is denied along with the sensors.
	policyHeaders = []headerPair{
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
		{"X-Permitted-Cross-Domain-Policies", "none"},
	}

	noStoreHeaders = []headerPair{
		{"Cache-Control", "no-store"},
		{"Pragma", "no-cache"},
		{"Expires", "0"},
	}
)

// SecurityHeaders hardens every API response. The header set is fixed when
// the middleware is built; only HSTS depends on the request, and only
// when it arrived over HTTPS. A response that already carries X-Request-ID
// gets it added to Access-Control-Expose-Headers so browser clients can
// quote it in support requests.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := append([]headerPair(nil), baselineHeaders...)
	if opt.EnablePolicy {
		static = append(static, policyHeaders...)
	}
	if opt.NoStore {
		static = append(static, noStoreHeaders...)
	}

	var hsts string
	if opt.EnableHSTS {
		age := opt.HSTSMaxAge
		if age <= 0 {
			age = defaultHSTSMaxAge
		}
		hsts = "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		setHeaders(h, static)
		if hsts != "" && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// NoStore keeps balances, transaction history and checkout URLs out of
// shared caches. The authenticated API group installs it.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		setHeaders(c.Writer.Header(), noStoreHeaders)
		c.Next()
	}
}

func setHeaders(h http.Header, pairs []headerPair) {
	for _, p := range pairs {
		h.Set(p.name, p.value)
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers unless the
// list already names it.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, name)
		return
	}
	for _, tok := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), name) {
			return
		}
	}
	h.Set(key, cur+", "+name)
}

// isHTTPS reports whether the client connection used TLS, either here or
// at the first proxy in X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
