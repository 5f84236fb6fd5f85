package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/Fachryxyf/felisa-userside/pkg/errors"
	"github.com/Fachryxyf/felisa-userside/pkg/httputil"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
)

// namedProfiles are served next to the pprof index so operators can fetch
// them without relying on the index catch-all.
var namedProfiles = []string{"heap", "goroutine", "allocs", "block", "mutex", "threadcreate"}

// RegisterDebug mounts /debug/pprof behind an operator network allowlist.
// When no CIDR parses the routes are left unmounted and it returns false.
func RegisterDebug(r chi.Router, operatorCIDRs []string, l *slog.Logger) bool {
	prefixes := parsePrefixes(operatorCIDRs, l)
	if len(prefixes) == 0 {
		l.Info("debug endpoints disabled, no operator network configured")
		return false
	}

	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(operatorOnly(prefixes, l))
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/trace", pprof.Trace)
		r.HandleFunc("/symbol", pprof.Symbol)
		for _, name := range namedProfiles {
			r.Get("/"+name, pprof.Handler(name).ServeHTTP)
		}
	})
	return true
}

// parsePrefixes drops entries that do not parse, so an empty result means
// nothing is allowed.
func parsePrefixes(cidrs []string, l *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			l.Warn("invalid operator CIDR, skipping",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

func operatorOnly(prefixes []netip.Prefix, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, ok := remoteAddr(r.RemoteAddr)
			if ok && containsAddr(prefixes, addr) {
				next.ServeHTTP(w, r)
				return
			}

			logger.WithContext(r.Context(), base).WarnContext(r.Context(), "debug access denied",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteError(w, r, apperrors.Forbidden("debug endpoints are limited to operator networks"), base)
		})
	}
}

// remoteAddr parses RemoteAddr with or without a port. IPv4-mapped IPv6
// addresses are unmapped so 10.0.0.0/8 style prefixes still match.
func remoteAddr(hostport string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
