package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/golang-jwt/jwt/v5"

	"github.com/skilltrail/academy_api/dto"
)

type JWTService struct {
	context.DefaultService

	secret   []byte
	issuer   string
	tokenTTL time.Duration
	linkTTL  time.Duration
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	svc.secret = []byte(secret)
	svc.issuer = "academy_api"
	svc.tokenTTL = 24 * time.Hour
	svc.linkTTL = 15 * time.Minute

	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type magicLinkClaims struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a session token for an authenticated user.
func (svc *JWTService) GenerateAccessToken(userID, email string) (string, int64, error) {
	now := time.Now()
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(svc.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(svc.tokenTTL.Seconds()), nil
}

// VerifyAccessToken validates the signature and expiry and returns the
// embedded identity. Admin status is decided elsewhere, never trusted from
// the token.
func (svc *JWTService) VerifyAccessToken(tokenStr string) (*dto.Identity, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, svc.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(svc.issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}

	return &dto.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// GenerateMagicLinkToken signs a short-lived login token bound to the email.
func (svc *JWTService) GenerateMagicLinkToken(email, fullName string) (string, error) {
	now := time.Now()
	claims := magicLinkClaims{
		Email:    email,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.issuer,
			Audience:  jwt.ClaimStrings{"magic_link"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.linkTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(svc.secret)
}

// VerifyMagicLinkToken returns the email and full name a valid link token was
// issued for.
func (svc *JWTService) VerifyMagicLinkToken(tokenStr string) (email, fullName string, err error) {
	claims := &magicLinkClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, svc.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(svc.issuer),
		jwt.WithAudience("magic_link"))
	if err != nil {
		return "", "", err
	}
	if !token.Valid || claims.Email == "" {
		return "", "", errors.New("invalid magic link token")
	}
	return claims.Email, claims.FullName, nil
}

func (svc *JWTService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return svc.secret, nil
}
