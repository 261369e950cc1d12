// Package requestcontext carries request-scoped values (caller subject,
// client metadata, request id and request time) through context.Context so
// services and audit publishing never import net/http.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	subjectKey key = iota
	clientKey
	requestIDKey
	requestTimeKey
)

// Client describes where a request came from.
type Client struct {
	IP        string
	UserAgent string
}

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// Subject is the verified bearer subject, or "" on anonymous requests.
func Subject(ctx context.Context) string {
	s, _ := value[string](ctx, subjectKey)
	return s
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// ClientIP returns the remote address recorded by the metadata middleware.
func ClientIP(ctx context.Context) string {
	c, _ := value[Client](ctx, clientKey)
	return c.IP
}

func UserAgent(ctx context.Context) string {
	c, _ := value[Client](ctx, clientKey)
	return c.UserAgent
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey, Client{IP: clientIP, UserAgent: userAgent})
}

func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the time the request arrived. Outside a request (CLI, tests without
// the middleware) it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
