// Package session carries the caller's identity explicitly through request
// handling.
package session

import (
	"context"
	"net/http"
	"strings"
)

// Session identifies who is uploading or editing. The zero value is an
// anonymous, non-admin caller.
type Session struct {
	UserEmail string
	Admin     bool
}

// Anonymous reports whether no user identity was supplied.
func (s Session) Anonymous() bool { return s.UserEmail == "" }

// Uploader is the label used when attributing uploads.
func (s Session) Uploader() string {
	if s.Anonymous() {
		return "anonymous"
	}
	return s.UserEmail
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Session{}
}

// HeaderUser is the request header carrying the caller's email.
const HeaderUser = "X-User-Email"

// Middleware builds a Session from HeaderUser. Emails listed in admins get
// the admin flag.
func Middleware(admins []string) func(http.Handler) http.Handler {
	set := map[string]struct{}{}
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			set[a] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUser)))
			_, admin := set[email]
			s := Session{UserEmail: email, Admin: email != "" && admin}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireAdmin rejects non-admin sessions with 403. With enforce false every
// caller passes, which is how a server without ADMIN_EMAILS runs.
func RequireAdmin(enforce bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enforce && !FromContext(r.Context()).Admin {
				http.Error(w, "admin session required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
