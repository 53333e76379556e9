package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const callerContextKey contextKey = "caller"

// CallerKind distinguishes the automated pipeline from human actors.
type CallerKind string

const (
	CallerPipeline   CallerKind = "pipeline"
	CallerWorker     CallerKind = "worker"
	CallerSupervisor CallerKind = "supervisor"
)

// Caller is the resolved identity of the invoking party. Allocation only
// accepts CallerPipeline; transitions carry the worker's agency for the
// ownership check. The kind is decided in exactly one place (this package),
// never by ad-hoc header inspection at call sites.
type Caller struct {
	Kind     CallerKind `json:"kind"`
	ID       types.ID   `json:"id,omitempty"`
	AgencyID types.ID   `json:"agency_id,omitempty"`
	Roles    []string   `json:"roles,omitempty"`
}

// IsPipeline reports whether the caller is the automated pipeline
func (c Caller) IsPipeline() bool {
	return c.Kind == CallerPipeline
}

// Pipeline returns the automated pipeline identity for internal invocations
func Pipeline() Caller {
	return Caller{Kind: CallerPipeline}
}

// Claims extends JWT claims with platform-specific data
type Claims struct {
	jwt.RegisteredClaims
	UserType string   `json:"user_type"` // pipeline, worker, supervisor
	AgencyID string   `json:"agency_id,omitempty"`
	Roles    []string `json:"roles"`
}

// Middleware resolves the caller identity from either the pipeline service
// token or a worker/supervisor JWT.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Internal pipeline calls present a shared service token.
			if token := r.Header.Get("X-Pipeline-Token"); token != "" {
				if cfg.PipelineToken == "" || token != cfg.PipelineToken {
					writeError(w, http.StatusUnauthorized, "invalid pipeline token")
					return
				}
				ctx := WithCaller(r.Context(), Pipeline())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			caller := Caller{
				Kind:     kindFromClaims(claims),
				ID:       types.ID(claims.Subject),
				AgencyID: types.ID(claims.AgencyID),
				Roles:    claims.Roles,
			}

			ctx := WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func kindFromClaims(claims *Claims) CallerKind {
	switch claims.UserType {
	case string(CallerPipeline):
		return CallerPipeline
	case string(CallerSupervisor):
		return CallerSupervisor
	default:
		return CallerWorker
	}
}

// WithCaller attaches a caller identity to the context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// GetCaller extracts the caller from request context. The zero Caller
// (unknown kind) is returned when no identity was resolved.
func GetCaller(ctx context.Context) Caller {
	caller, ok := ctx.Value(callerContextKey).(Caller)
	if !ok {
		return Caller{}
	}
	return caller
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
