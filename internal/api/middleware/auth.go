package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/model"
)

type contextKey string

const APIKeyIdentityKey contextKey = "api_key_identity"

// APIKeyIDKey carries the key ID alone for the audit logger.
const APIKeyIDKey contextKey = "api_key_id"

// ErrUnknownKey is returned by authenticators for keys they do not recognise.
var ErrUnknownKey = errors.New("unknown api key")

// APIKeyIdentity is the authenticated caller.
type APIKeyIdentity struct {
	ID    string
	Name  string
	Admin bool
}

// Authenticator resolves a raw API key to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*APIKeyIdentity, error)
}

// APIKeyLookup is satisfied by *core.APIKeyService.
type APIKeyLookup interface {
	Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error)
}

type storedKeys struct {
	store APIKeyLookup
}

// StoredKeys authenticates against the api_keys table.
func StoredKeys(store APIKeyLookup) Authenticator {
	return storedKeys{store: store}
}

func (s storedKeys) Authenticate(ctx context.Context, rawKey string) (*APIKeyIdentity, error) {
	k, err := s.store.Authenticate(ctx, rawKey)
	if errors.Is(err, core.ErrUnknownAPIKey) {
		return nil, ErrUnknownKey
	}
	if err != nil {
		return nil, err
	}
	return &APIKeyIdentity{ID: k.ID, Name: k.Name, Admin: k.IsAdmin}, nil
}

type staticKeys struct {
	hashes [][sha256.Size]byte
}

// StaticKeys authenticates against a fixed list of admin keys.
func StaticKeys(keys []string) Authenticator {
	s := staticKeys{}
	for _, k := range keys {
		if k != "" {
			s.hashes = append(s.hashes, sha256.Sum256([]byte(k)))
		}
	}
	return s
}

func (s staticKeys) Authenticate(_ context.Context, rawKey string) (*APIKeyIdentity, error) {
	h := sha256.Sum256([]byte(rawKey))
	for i, want := range s.hashes {
		if subtle.ConstantTimeCompare(h[:], want[:]) == 1 {
			return &APIKeyIdentity{ID: fmt.Sprintf("static-%d", i), Name: "admin", Admin: true}, nil
		}
	}
	return nil, ErrUnknownKey
}

// extractAPIKey reads "Authorization: Bearer <key>", falling back to X-API-Key.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// Auth rejects unauthenticated requests with 401 UNAUTH before any handler runs.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated)
				return
			}

			identity, err := authn.Authenticate(r.Context(), key)
			if err != nil || identity == nil {
				if err != nil && !errors.Is(err, ErrUnknownKey) {
					zerolog.Ctx(r.Context()).Warn().Err(err).Msg("api key lookup failed")
				}
				response.WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated)
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyIdentityKey, identity)
			ctx = context.WithValue(ctx, APIKeyIDKey, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
