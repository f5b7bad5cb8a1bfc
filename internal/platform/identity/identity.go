package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "focusloop/internal/platform/errors"
)

// Provider supplies the authenticated user id stamped onto new records.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

type Static struct {
	ID string
}

func (s Static) UserID(context.Context) (string, error) {
	if strings.TrimSpace(s.ID) == "" {
		return "", fmt.Errorf("user id is not configured: %w", apperrors.ErrInvalidInput)
	}
	return s.ID, nil
}

// JWT resolves the user from an HS256 token's "sub" claim, falling back to "user_id".
type JWT struct {
	Token  string
	Secret []byte
}

func (j JWT) UserID(context.Context) (string, error) {
	return ParseToken(j.Secret, j.Token)
}

func GenerateToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     userID,
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse identity token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("identity token is invalid: %w", apperrors.ErrInvalidInput)
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		return sub, nil
	}
	if uid, _ := claims["user_id"].(string); uid != "" {
		return uid, nil
	}
	return "", fmt.Errorf("identity token has no subject: %w", apperrors.ErrInvalidInput)
}
