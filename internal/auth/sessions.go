package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novadent/novadent/internal/shared"
)

// Sessions stores API tokens in Redis. Tokens are opaque; the Redis key is
// an HMAC of the token so a database dump alone cannot be replayed.
type Sessions struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewSessions constructs the session store.
func NewSessions(client *redis.Client, secret string, ttl time.Duration) *Sessions {
	return &Sessions{client: client, secret: []byte(secret), ttl: ttl}
}

type sessionPayload struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Role      string `json:"role"`
}

// Create issues a new token for the actor.
func (s *Sessions) Create(ctx context.Context, actor shared.Actor) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	payload, err := json.Marshal(sessionPayload{ActorID: actor.ID, ActorName: actor.Name, Role: actor.Role})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves the actor behind a token, refreshing its TTL.
func (s *Sessions) Lookup(ctx context.Context, token string) (shared.Actor, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return shared.Actor{}, shared.ErrSessionExpired
	}
	if err != nil {
		return shared.Actor{}, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return shared.Actor{}, err
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return shared.Actor{ID: payload.ActorID, Name: payload.ActorName, Role: payload.Role}, nil
}

// Destroy revokes a token.
func (s *Sessions) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

// Resolve implements app.SessionLoader: it reads the bearer token off the
// request and loads the actor, reporting false for anonymous requests.
func (s *Sessions) Resolve(r *http.Request) (shared.Actor, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return shared.Actor{}, false
	}
	actor, err := s.Lookup(r.Context(), token)
	if err != nil {
		return shared.Actor{}, false
	}
	return actor, true
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func (s *Sessions) key(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return "session:" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
