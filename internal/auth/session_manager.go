package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/models"
)

// CredentialStore captures the persistence operations the session manager
// needs. Lookup methods must report missing accounts with ErrUserNotFound.
// SetRefreshToken overwrites the single stored refresh token for the user;
// ClearRefreshToken removes it.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// SessionManager orchestrates login, refresh, and logout on top of the token
// service and the credential store. It owns the rotation invariant: every
// successful login or refresh overwrites the stored refresh token, so at most
// one refresh token is ever valid for a user.
type SessionManager struct {
	tokens *TokenService
	users  CredentialStore
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(tokens *TokenService, users CredentialStore) *SessionManager {
	if tokens == nil || users == nil {
		panic("auth: session manager requires a token service and a credential store")
	}
	return &SessionManager{tokens: tokens, users: users}
}

// Login authenticates a user by username or email and issues a fresh token
// pair, overwriting any previously stored refresh token. The returned user is
// sanitized.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (models.SessionTokens, models.PublicUser, error) {
	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return models.SessionTokens{}, models.PublicUser{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return models.SessionTokens{}, models.PublicUser{}, ErrInvalidCredentials
	}

	tokens, err := m.issueAndStore(ctx, user.ID)
	if err != nil {
		return models.SessionTokens{}, models.PublicUser{}, err
	}

	return tokens, user.Public(), nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored value.
// A syntactically valid token that does not match the stored value is treated
// as reuse of a superseded token and rejected.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrNoToken
	}

	userID, err := m.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return models.SessionTokens{}, ErrTokenInvalid
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrTokenInvalid
		}
		return models.SessionTokens{}, err
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return models.SessionTokens{}, ErrTokenReused
	}

	return m.issueAndStore(ctx, user.ID)
}

// Logout clears the stored refresh token, invalidating future refresh
// attempts. Outstanding access tokens remain valid until natural expiry.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id must be provided")
	}
	return m.users.ClearRefreshToken(ctx, userID)
}

func (m *SessionManager) issueAndStore(ctx context.Context, userID string) (models.SessionTokens, error) {
	accessToken, accessExpiry, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, refreshExpiry, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	// Rotation point: the previous refresh token, if any, stops working here.
	if err := m.users.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}
