package middleware

import (
	"net"
	"net/http"
	"strings"
)

const (
	headerXContentTypeOptions   = "X-Content-Type-Options"
	headerXFrameOptions         = "X-Frame-Options"
	headerContentSecurityPolicy = "Content-Security-Policy"
	headerReferrerPolicy        = "Referrer-Policy"
	headerCacheControl          = "Cache-Control"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		w.Header().Set(headerCacheControl, "no-store")
		next.ServeHTTP(w, r)
	})
}

// LocalHosts are the Host values the bridge answers to by default.
var LocalHosts = []string{"localhost", "127.0.0.1", "::1"}

// HostCheck returns 403 when r.Host is not one of allowedHosts. Hosts are
// bare hostnames without scheme or port. An empty list allows every host.
func HostCheck(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedHosts) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			reqHost = strings.Trim(strings.TrimSpace(reqHost), "[]")
			for _, h := range allowedHosts {
				if strings.EqualFold(reqHost, strings.TrimSpace(h)) {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Forbidden"))
		})
	}
}

// Bridge returns the middleware chain of the localhost bridge:
// SecurityHeaders → HostCheck → GlobalRateLimit → DestructiveRateLimit.
func Bridge(allowedHosts []string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHosts),
		GlobalRateLimit,
		DestructiveRateLimit,
	}
}
