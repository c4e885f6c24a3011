// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/observability"
)

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Principal, error)
}

// bearerPrefix is matched case-insensitively.
const bearerPrefix = "bearer "

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

// Authenticate resolves the bearer token of each request into a Principal
// stored in the request context. A missing or bad token leaves the request
// unauthenticated; RequireAuth and RequireRole enforce access afterwards.
// Requests to public paths are not inspected.
func Authenticate(a Authenticator, publicPaths []string, logger *slog.Logger) echo.MiddlewareFunc {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := public[c.Path()]; ok {
				return next(c)
			}
			token := bearerToken(c.Request())
			if token == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			principal, err := a.Authenticate(ctx, token)
			if err != nil {
				logger.DebugContext(ctx, "bearer token rejected", "error", err, "route", c.Path())
				return next(c)
			}
			c.SetRequest(c.Request().WithContext(auth.WithPrincipal(ctx, principal)))
			return next(c)
		}
	}
}

// RequireAuth rejects requests without a Principal with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := auth.PrincipalFromContext(c.Request().Context()); !ok {
				return unauthenticated()
			}
			return next(c)
		}
	}
}

// RequireRole rejects unauthenticated requests with 401 and principals
// holding none of roles with 403.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.PrincipalFromContext(c.Request().Context())
			if !ok {
				return unauthenticated()
			}
			if !p.HasRole(roles...) {
				return &APIError{
					Status:    http.StatusForbidden,
					Message:   "insufficient role",
					ErrorCode: CodeForbidden,
				}
			}
			return next(c)
		}
	}
}

func unauthenticated() *APIError {
	return &APIError{
		Status:    http.StatusUnauthorized,
		Message:   "authentication required",
		ErrorCode: CodeUnauthenticated,
	}
}

// requestLogger logs one line per request. Errors are rendered by the error
// handler before the line is written so the logged status is final.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}

// metricsMiddleware records request counts and latency by route template.
// It runs outside requestLogger so the response status is final.
func metricsMiddleware(m *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = statusOf(err)
			}

			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return toAPIError(err, sessionTokens).Status
}

// originMatcher compiles allowed origins, which may be glob patterns such as
// https://*.flatrent.dev.
func originMatcher(origins []string) (func(origin string) (bool, error), error) {
	exact := make(map[string]struct{})
	var patterns []glob.Glob
	for _, o := range origins {
		if !strings.ContainsAny(o, "*?[{") {
			exact[o] = struct{}{}
			continue
		}
		g, err := glob.Compile(o, '.', ':')
		if err != nil {
			return nil, oops.Code("CORS_ORIGIN_INVALID").With("origin", o).Wrap(err)
		}
		patterns = append(patterns, g)
	}

	return func(origin string) (bool, error) {
		if _, ok := exact[origin]; ok {
			return true, nil
		}
		for _, g := range patterns {
			if g.Match(origin) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func corsMiddleware(origins []string) (echo.MiddlewareFunc, error) {
	allow, err := originMatcher(origins)
	if err != nil {
		return nil, err
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: allow,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
		MaxAge:           3600,
	}), nil
}
