package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
	"auth-api/internal/credential"
	"auth-api/internal/domain"
	"auth-api/internal/email"
	"auth-api/internal/repository"
	"auth-api/internal/token"
)

// AuthService orquesta los casos de uso de autenticación. Cada método es un
// caso de uso independiente; ninguno invoca a otro. Todos devuelven el DTO
// saneado del usuario o un error tipado de apperr.
type AuthService struct {
	logger        *zap.Logger
	users         repository.UserRepository
	tokens        *token.Service
	hasher        *credential.Hasher
	sender        email.Sender
	baseURL       string
	resendLimiter ResendRateLimiter
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *token.Service,
	hasher *credential.Hasher,
	sender email.Sender,
	baseURL string,
	resendLimiter ResendRateLimiter,
) *AuthService {
	return &AuthService{
		logger:        logger,
		users:         users,
		tokens:        tokens,
		hasher:        hasher,
		sender:        sender,
		baseURL:       baseURL,
		resendLimiter: resendLimiter,
	}
}

type SignupCommand struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// Signup crea una cuenta local sin verificar y dispara el correo de
// verificación. Un fallo de envío se registra y se ignora: la creación de
// la cuenta no depende de la disponibilidad del transporte de correo.
func (s *AuthService) Signup(ctx context.Context, cmd SignupCommand) (domain.UserDTO, error) {
	passwordHash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return domain.UserDTO{}, err
	}

	emailAddr := normalizeEmail(cmd.Email)
	phone := strings.TrimSpace(cmd.Phone)
	address := strings.TrimSpace(cmd.Address)
	user, err := s.users.Create(ctx, repository.CreateUserInput{
		Name:            strings.TrimSpace(cmd.Name),
		Email:           &emailAddr,
		PasswordHash:    &passwordHash,
		Phone:           &phone,
		Address:         &address,
		IsEmailVerified: false,
	})
	if err != nil {
		return domain.UserDTO{}, err
	}

	verificationToken, err := s.tokens.IssueVerification(user.ID)
	if err != nil {
		return domain.UserDTO{}, err
	}
	if err := s.sendVerification(ctx, user, verificationToken); err != nil {
		s.logger.Warn("send verification email failed",
			zap.Error(err), zap.Int64("user_id", user.ID))
	}

	return domain.NewUserDTO(user), nil
}

type SigninCommand struct {
	Email    string
	Password string
}

// Signin autentica credenciales locales. El orden de chequeos es fijo:
// existencia, verificación de email y recién después la contraseña. Un
// email desconocido y una contraseña incorrecta responden lo mismo para no
// permitir enumerar cuentas.
func (s *AuthService) Signin(ctx context.Context, cmd SigninCommand) (domain.UserDTO, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(cmd.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserDTO{}, apperr.Authentication("Invalid credentials", http.StatusUnauthorized)
		}
		return domain.UserDTO{}, err
	}

	if !user.IsEmailVerified {
		return domain.UserDTO{}, apperr.Authentication("Email not verified", http.StatusBadRequest)
	}

	if user.PasswordHash == nil {
		return domain.UserDTO{}, apperr.Authentication("Invalid credentials", http.StatusUnauthorized)
	}
	ok, err := s.hasher.Compare(cmd.Password, *user.PasswordHash)
	if err != nil {
		return domain.UserDTO{}, err
	}
	if !ok {
		return domain.UserDTO{}, apperr.Authentication("Invalid credentials", http.StatusUnauthorized)
	}

	return domain.NewUserDTO(user), nil
}

// VerifyEmail consume un token de verificación y marca el email como
// verificado exactamente una vez. Un segundo intento sobre la misma cuenta
// falla con EmailAlreadyVerified; el flag nunca vuelve a false.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) error {
	userID, err := s.tokens.VerifyVerification(tokenStr)
	if err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("User not found")
		}
		return err
	}

	if user.IsEmailVerified {
		return apperr.EmailAlreadyVerified("Email already verified")
	}

	verified := true
	_, err = s.users.Update(ctx, user.ID, repository.UpdateUserInput{IsEmailVerified: &verified})
	return err
}

// ResendVerification reemite el token y reenvía el correo para una cuenta
// sin verificar. A diferencia de Signup, un fallo del mailer sí se propaga:
// el único propósito del reenvío es el correo.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) (domain.UserDTO, error) {
	emailAddr = normalizeEmail(emailAddr)
	if s.resendLimiter != nil && !s.resendLimiter.Allow(emailAddr) {
		return domain.UserDTO{}, apperr.RateLimited("Too many requests")
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserDTO{}, apperr.NotFound("User not found")
		}
		return domain.UserDTO{}, err
	}

	if user.IsEmailVerified {
		return domain.UserDTO{}, apperr.EmailAlreadyVerified("Email already verified")
	}

	verificationToken, err := s.tokens.IssueVerification(user.ID)
	if err != nil {
		return domain.UserDTO{}, err
	}
	if err := s.sendVerification(ctx, user, verificationToken); err != nil {
		return domain.UserDTO{}, err
	}

	return domain.NewUserDTO(user), nil
}

type OAuthCommand struct {
	Provider       string
	ProviderUserID string
	DisplayName    string
	Email          *string
	ImageURL       *string
}

// OAuthLogin resuelve o crea la cuenta a partir del claim del proveedor.
// Toda la lógica de vinculación vive en el repositorio; acá no hay
// contraseña ni flag de verificación que tocar.
func (s *AuthService) OAuthLogin(ctx context.Context, cmd OAuthCommand) (domain.UserDTO, error) {
	provider := strings.ToLower(strings.TrimSpace(cmd.Provider))
	providerUserID := strings.TrimSpace(cmd.ProviderUserID)
	if provider == "" || providerUserID == "" {
		return domain.UserDTO{}, apperr.Validation("Invalid OAuth data", nil)
	}

	var emailAddr *string
	if cmd.Email != nil {
		normalized := normalizeEmail(*cmd.Email)
		if normalized != "" {
			emailAddr = &normalized
		}
	}

	user, err := s.users.FindOrCreateFromSocial(ctx, provider, providerUserID, strings.TrimSpace(cmd.DisplayName), emailAddr, cmd.ImageURL)
	if err != nil {
		return domain.UserDTO{}, err
	}
	return domain.NewUserDTO(user), nil
}

// GetUser devuelve el DTO del usuario id, para el endpoint /me.
func (s *AuthService) GetUser(ctx context.Context, id int64) (domain.UserDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserDTO{}, apperr.NotFound("User not found")
		}
		return domain.UserDTO{}, err
	}
	return domain.NewUserDTO(user), nil
}

func (s *AuthService) sendVerification(ctx context.Context, user domain.User, verificationToken string) error {
	n, err := email.NewVerificationNotification(user, s.baseURL, verificationToken)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, n)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
