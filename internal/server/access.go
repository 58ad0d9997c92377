package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// requireCredentials authenticates username/password from the query string
// or HTTP Basic auth. Repeated failures for one client+username are locked
// out for a while. On failure the response has been written.
func (s *Server) requireCredentials(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, password := requestCredentials(r)
	key := credentialAttemptKey(username, r)
	now := s.clock.Now()

	if s.lockout.Blocked(key, now) {
		s.metrics.observeRateLimited("credentials")
		s.writeErrorReq(w, r, http.StatusTooManyRequests, rateLimited(fmt.Errorf("too many failed attempts, try again later")))
		return "", false
	}
	if !s.auth.Authenticate(username, password) {
		s.lockout.Fail(key, now)
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("access denied"), ErrCodeForbidden))
		return "", false
	}
	s.lockout.Succeed(key)
	return username, true
}

// allowRequest applies the per-client sliding window. On rejection the
// response, including Retry-After, has been written.
func (s *Server) allowRequest(w http.ResponseWriter, r *http.Request) bool {
	client := requestClientIP(r)
	now := s.clock.Now()
	if s.limiter.Allow(client, now) {
		return true
	}
	wait := s.limiter.RetryAfter(client, now)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	s.metrics.observeRateLimited("requests")
	s.writeErrorReq(w, r, http.StatusTooManyRequests, rateLimited(fmt.Errorf("too many requests, slow down")))
	return false
}

func requestCredentials(r *http.Request) (string, string) {
	query := r.URL.Query()
	username := strings.TrimSpace(query.Get("username"))
	password := query.Get("password")
	if username == "" {
		if u, p, ok := r.BasicAuth(); ok {
			username, password = strings.TrimSpace(u), p
		}
	}
	return username, password
}

func credentialAttemptKey(username string, r *http.Request) string {
	ip := requestClientIP(r)
	if ip == "" {
		ip = "unknown"
	}
	return ip + "|" + username
}

// requestClientIP is the rate-limit identity. RemoteAddr has already been
// rewritten from proxy headers when the server trusts them.
func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
