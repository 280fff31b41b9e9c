package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth-api/internal/apperr"
	"auth-api/internal/domain"
)

const (
	typeVerify = "verify"
	typeAccess = "access"
)

// Service emite y valida tokens firmados HS256. Los tokens de verificación
// son la única prueba requerida para verificar un email: no hay registro
// server-side, el enlace sigue siendo válido aunque el proceso que lo emitió
// ya no exista.
type Service struct {
	secret    []byte
	verifyTTL time.Duration
	accessTTL time.Duration
	issuer    string
}

// Claims son los claims firmados por el servicio.
type Claims struct {
	UserID    int64  `json:"uid"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewService construye el servicio. Un secret vacío es un error de
// arranque, nunca un fallo en tiempo de ejecución.
func NewService(secret string, verifyTTL, accessTTL time.Duration) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Service{
		secret:    []byte(secret),
		verifyTTL: verifyTTL,
		accessTTL: accessTTL,
		issuer:    "auth-api",
	}, nil
}

// IssueVerification emite un token de verificación de email para userID.
func (s *Service) IssueVerification(userID int64) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    userID,
		TokenType: typeVerify,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.verifyTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyVerification valida un token de verificación y devuelve el id de
// usuario. Los fallos se distinguen por Kind: requerido, malformado,
// expirado, payload inválido o fallo inesperado.
func (s *Service) VerifyVerification(tokenStr string) (int64, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != typeVerify || claims.UserID <= 0 || claims.Issuer != s.issuer {
		return 0, apperr.TokenPayloadInvalid("Token payload is invalid")
	}
	return claims.UserID, nil
}

// IssueAccess emite un access token de sesión de corta vida para user.
func (s *Service) IssueAccess(user domain.User) (string, error) {
	now := time.Now().UTC()
	emailAddr := ""
	if user.Email != nil {
		emailAddr = *user.Email
	}
	claims := Claims{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     emailAddr,
		TokenType: typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseAccess valida un access token y devuelve sus claims.
func (s *Service) ParseAccess(tokenStr string) (Claims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != typeAccess || claims.UserID <= 0 || claims.Issuer != s.issuer {
		return Claims{}, apperr.TokenPayloadInvalid("Token payload is invalid")
	}
	return claims, nil
}

func (s *Service) parse(tokenStr string) (Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return Claims{}, apperr.TokenMissing("Token is required")
	}

	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, apperr.TokenExpired("Token has expired")
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, apperr.TokenMalformed("Invalid token format")
		default:
			return Claims{}, apperr.TokenVerificationFailed("Token verification failed", err)
		}
	}
	return claims, nil
}
