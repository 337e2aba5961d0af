package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/alphabatem/common/context"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService verifies the access tokens issued by the identity provider.
// Tokens carry the user id and role; this service never issues tokens in
// production, ToJWT exists for seeding and tests.
type JWTService struct {
	context.DefaultService

	AccessTokenDuration time.Duration
	jwtSecretKey        string
	issuer              string
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

func NewJWTService(secret string, accessTokenDuration time.Duration) *JWTService {
	return &JWTService{
		AccessTokenDuration: accessTokenDuration,
		jwtSecretKey:        secret,
		issuer:              "akademo",
	}
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.AccessTokenDuration = shared.GetEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour)
	svc.jwtSecretKey = shared.GetEnv("JWT_SECRET", "")
	svc.issuer = shared.GetEnv("JWT_ISSUER", "akademo")
	if svc.jwtSecretKey == "" {
		return errors.New("JWT_SECRET is required")
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// VerifyJWTToken checks signature and expiry and returns the caller identity
func (svc *JWTService) VerifyJWTToken(jwtToken string) (*dto.Identity, error) {
	token, err := jwt.ParseWithClaims(jwtToken, &CustomClaims{}, svc.getJWTKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims == nil {
		return nil, errors.New("unsupported JWT format")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}

	role := shared.NormalizeRole(claims.Role)
	if !shared.IsKnownRole(role) {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	return &dto.Identity{UserID: claims.UserID, Role: role}, nil
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.jwtSecretKey), nil
}

func (svc *JWTService) ToJWT(userID, role string) (string, error) {
	now := time.Now()

	claims := &CustomClaims{
		UserID: userID,
		Role:   shared.NormalizeRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    svc.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Check if the header starts with "Bearer "
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}

	// Extract the token
	return strings.TrimSpace(authHeader[7:]), nil
}
