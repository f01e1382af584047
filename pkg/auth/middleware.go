package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amissa/backend/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the authenticated actor.
func ActorFromContext(ctx context.Context) (*model.Actor, bool) {
	v, ok := ctx.Value(actorKey).(*model.Actor)
	return v, ok && v != nil
}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor *model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// RequireAuth validates the bearer token and puts its actor into the context.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				unauthorized(w, "unauthorized")
				return
			}

			actor, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				unauthorized(w, "invalid_token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// DevActor is the operator injected when AUTH_REQUIRED=false.
var DevActor = &model.Actor{ID: "dev-operator", Role: model.RoleOperator}

// DevAuth is development middleware that injects DevActor.
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), DevActor)))
	})
}
