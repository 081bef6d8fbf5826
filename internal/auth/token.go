package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// TokenManager validates bearer tokens issued by the identity provider. It
// can also mint tokens for tooling and tests sharing the same secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int, issuer string) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, issuer: issuer}
}

// Claims describes JWT payload. The registered subject is the actor id.
type Claims struct {
	ActorType domain.ActorType `json:"actor_type"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for actor.
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		ActorType: actor.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Actor converts claims to the acting identity. Tokens without an actor
// type are treated as human users.
func (c *Claims) Actor() (domain.Actor, error) {
	switch c.ActorType {
	case "", domain.ActorTypeUser:
		return domain.Actor{ID: c.Subject, Type: domain.ActorTypeUser}, nil
	case domain.ActorTypeSystem:
		return domain.Actor{ID: c.Subject, Type: domain.ActorTypeSystem}, nil
	default:
		return domain.Actor{}, errors.New("unknown actor type")
	}
}
