package core

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recipebox/internal/types"
)

const previewRateWindow = time.Hour

// PreviewRateLimit throttles the anonymous preview endpoints per client IP.
// Those endpoints are not metered by the usage ledger, so this is the only
// brake on them. Store errors fail open.
func (s *Server) PreviewRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.previewLimit()
		if s.PreviewLimiter == nil || limit <= 0 || !isPreviewPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		res, err := s.PreviewLimiter.IncrementAndCheck(r.Context(), "preview:"+ip, limit, previewRateWindow)
		if err != nil {
			s.Logger.Error("rate limit store error", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retry := max(int(time.Until(res.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.Logger.Warn("preview rate limit exceeded", slog.String("client_ip", ip))
			Error(w, r, types.NewAppError(types.ErrCodeRateLimitExceeded,
				"too many preview requests; sign in or retry later", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) previewLimit() int {
	if s.Config == nil {
		return 0
	}
	return s.Config.Server.PreviewRateLimit
}

func isPreviewPath(path string) bool {
	return strings.HasPrefix(path, "/v1/generate/preview/")
}

// clientIP prefers the first X-Forwarded-For hop and falls back to
// RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
