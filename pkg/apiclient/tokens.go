package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/estetica-academy/presenciales/internal/auth"
)

// ErrNoToken is returned when no session token is stored.
var ErrNoToken = errors.New("no session token")

// TokenSource supplies the bearer token for API requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// FileTokenSource reads the token from the storefront's persisted auth-token-storage entry.
// The file is re-read on every call so a re-login is picked up without restarting.
type FileTokenSource struct {
	Path string
}

type persistedAuth struct {
	State struct {
		Token string `json:"token"`
	} `json:"state"`
}

// Token implements TokenSource.
func (f FileTokenSource) Token(ctx context.Context) (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	var p persistedAuth
	if err := json.Unmarshal(b, &p); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	tok := strings.TrimSpace(p.State.Token)
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// Identity is the signed-in user as read from the session token.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     string
}

// IdentityFromToken reads the claims of a session token without verifying its
// signature. The API verifies every request; the console only needs the claims
// to evaluate eligibility locally.
func IdentityFromToken(token string) (Identity, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return Identity{}, errors.New("token has no user id")
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, FullName: claims.FullName, Role: claims.Role}, nil
}
