package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signupAudience = "signup"

type jwtCustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type signupClaims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed session JWT for the provided user. Role is
// only set for tokens issued through the admin flow.
func GenerateToken(secret string, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtCustomClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded user ID and role.
func ParseToken(secret, tokenString string) (uuid.UUID, string, error) {
	claims := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	if !token.Valid || len(claims.Audience) > 0 {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}
	return id, claims.Role, nil
}

// GenerateSignupTicket proves that phone passed OTP verification.
func GenerateSignupTicket(secret, phone string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &signupClaims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{signupAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSignupTicket returns the verified phone carried by a signup ticket.
func ParseSignupTicket(secret, ticket string) (string, error) {
	claims := &signupClaims{}
	_, err := jwt.ParseWithClaims(ticket, claims, hmacKey(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(signupAudience))
	if err != nil {
		return "", err
	}
	if claims.Phone == "" {
		return "", errors.New("signup ticket without phone")
	}
	return claims.Phone, nil
}

func hmacKey(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
}
