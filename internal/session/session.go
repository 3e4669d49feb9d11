package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/patitas/patitas-backend/internal/db/entities"
	"github.com/patitas/patitas-backend/internal/db/interfaces"
	"github.com/patitas/patitas-backend/internal/store"
)

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
	ErrBanned       = errors.New("account suspended")
)

// Identity is the resolved caller of one request.
type Identity struct {
	UserID string
	Role   string
	Banned bool
}

func (i Identity) IsModerator() bool {
	return i.Role == entities.RoleModerator || i.Role == entities.RoleAdmin
}

// Manager verifies bearer tokens issued by the auth provider and
// resolves the caller's platform profile. Profiles are cached briefly so
// the profiles table is not read on every request.
type Manager struct {
	secret   []byte
	profiles interfaces.Repository
	cache    *store.Cache
	logger   *zap.SugaredLogger
}

func NewManager(secret string, profiles interfaces.Repository, cache *store.Cache, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		secret:   []byte(secret),
		profiles: profiles,
		cache:    cache,
		logger:   logger,
	}
}

// VerifyToken validates the HS256 signature and expiry and returns the
// subject claim, which is the user id.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// Resolve turns a verified user id into an Identity, creating the
// profile row on first sight. A missing profile is not an error; the
// auth provider owns account creation and the platform row follows.
func (m *Manager) Resolve(ctx context.Context, userID string) (Identity, error) {
	var profile entities.Profile
	if m.cache != nil {
		if err := m.cache.GetProfile(ctx, userID, &profile); err == nil {
			return identityFromProfile(profile), nil
		}
	}

	record, err := m.profiles.GetByID(ctx, interfaces.StringID(userID))
	if errors.Is(err, interfaces.ErrNotFound) {
		record, err = m.profiles.Create(ctx, map[string]interface{}{
			"id":           userID,
			"display_name": "",
		})
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolve profile: %w", err)
	}

	profile = entities.ProfileFromRecord(record)
	if m.cache != nil {
		if err := m.cache.SetProfile(ctx, userID, profile); err != nil && m.logger != nil {
			m.logger.Warnw("Profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return identityFromProfile(profile), nil
}

// Authenticate combines header parsing, token verification, and profile
// resolution.
func (m *Manager) Authenticate(ctx context.Context, authorizationHeader string) (Identity, error) {
	token, err := ExtractBearer(authorizationHeader)
	if err != nil {
		return Identity{}, err
	}
	userID, err := m.VerifyToken(token)
	if err != nil {
		return Identity{}, err
	}
	return m.Resolve(ctx, userID)
}

// Invalidate drops the cached profile so role or ban changes take effect
// on the next request.
func (m *Manager) Invalidate(ctx context.Context, userID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.InvalidateProfile(ctx, userID); err != nil && m.logger != nil {
		m.logger.Warnw("Profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

func identityFromProfile(p entities.Profile) Identity {
	return Identity{
		UserID: p.ID,
		Role:   p.Role,
		Banned: p.Banned,
	}
}

type contextKey struct{}

// WithIdentity attaches the caller's identity to the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity set by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
