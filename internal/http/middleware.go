package httpx

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clonerp/internal/auth"
	"clonerp/internal/metrics"
)

const CookieName = "session_id"

// withSession resolves the session cookie, if any, into the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			if sess, err := s.Auth.Authenticate(c.Value); err == nil {
				r = r.WithContext(auth.WithSession(r.Context(), sess))
			} else {
				s.log.Debug().Err(err).Msg("session cookie rejected")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth is the member gate: anonymous requests go back to the landing page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := auth.SessionFrom(r.Context())
		if err := auth.RequireMember(sess); err != nil {
			redirectWith(w, r, "/", noticeErr, "Bu sayfaya erişmek için giriş yapmalısın!")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin is the admin gate: everyone else goes back to the main page.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := auth.SessionFrom(r.Context())
		if err := auth.RequireAdmin(sess); err != nil {
			s.log.Info().Str("path", r.URL.Path).Msg("admin gate rejected request")
			redirectWith(w, r, "/main", noticeErr, "Bu sayfaya erişim iznin yok!")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestLog appends every request to the persisted request log before
// anything else runs.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Logs.Record(r.Context(), clientIP(r), r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// rateLimited throttles credential endpoints per client IP.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rate limiting

type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*client
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ipLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: map[string]*client{},
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if len(l.clients) > 1024 {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > 10*time.Minute {
				delete(l.clients, k)
			}
		}
	}
	c, ok := l.clients[ip]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.lim.AllowN(now, 1)
}

// access log

type statusRW struct {
	http.ResponseWriter
	status int
}

func (w *statusRW) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withAccessLog logs METHOD PATH -> STATUS (duration) and feeds the HTTP metrics.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusRW{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		route := "unmatched"
		if _, pattern := s.Mux.Handler(r); pattern != "" {
			route = pattern
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("took", elapsed.Truncate(time.Millisecond)).
			Msg("request")
	})
}

// WithTimeout bounds the whole request to 5s.
func WithTimeout(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, 5*time.Second, "request timeout")
}
