package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/apperr"
	"auth-api/internal/credential"
	"auth-api/internal/domain"
	"auth-api/internal/email"
	"auth-api/internal/repository"
	"auth-api/internal/token"
)

type mockUserRepo struct {
	nextID       int64
	usersByID    map[int64]domain.User
	usersByEmail map[string]int64
	identities   map[string]int64

	createCalls   int
	identityCalls int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
		identities:   make(map[string]int64),
	}
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.usersByID[id], nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Create(_ context.Context, input repository.CreateUserInput) (domain.User, error) {
	m.createCalls++
	m.nextID++
	now := time.Now().UTC()
	user := domain.User{
		ID:              m.nextID,
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		Address:         input.Address,
		ImageURL:        input.ImageURL,
		PasswordHash:    input.PasswordHash,
		IsEmailVerified: input.IsEmailVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.usersByID[user.ID] = user
	if user.Email != nil {
		m.usersByEmail[*user.Email] = user.ID
	}
	return user, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, input repository.UpdateUserInput) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.Address != nil {
		user.Address = input.Address
	}
	if input.ImageURL != nil {
		user.ImageURL = input.ImageURL
	}
	if input.JobTitle != nil {
		user.JobTitle = input.JobTitle
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.IsEmailVerified != nil {
		user.IsEmailVerified = *input.IsEmailVerified
	}
	user.UpdatedAt = time.Now().UTC()
	m.usersByID[id] = user
	return user, nil
}

func (m *mockUserRepo) FindOrCreateFromSocial(ctx context.Context, provider, providerUserID, name string, emailAddr, imageURL *string) (domain.User, error) {
	key := provider + "|" + providerUserID
	if id, ok := m.identities[key]; ok {
		return m.usersByID[id], nil
	}

	var user domain.User
	resolved := false
	if emailAddr != nil {
		if id, ok := m.usersByEmail[*emailAddr]; ok {
			user = m.usersByID[id]
			resolved = true
		}
	}
	if !resolved {
		created, err := m.Create(ctx, repository.CreateUserInput{
			Name:            name,
			Email:           emailAddr,
			ImageURL:        imageURL,
			IsEmailVerified: true,
		})
		if err != nil {
			return domain.User{}, err
		}
		user = created
	}

	m.identityCalls++
	m.identities[key] = user.ID
	return user, nil
}

type mockSender struct {
	sent []email.Notification
	err  error
}

func (m *mockSender) Send(_ context.Context, n email.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func newTestAuthService(t *testing.T, repo *mockUserRepo, sender *mockSender) *AuthService {
	t.Helper()
	tokens, err := token.NewService("secret", 24*time.Hour, 15*time.Minute)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	hasher := credential.NewHasher(bcrypt.MinCost)
	return NewAuthService(zap.NewNop(), repo, tokens, hasher, sender, "http://localhost:8080", nil)
}

func signupTestUser(t *testing.T, svc *AuthService) domain.UserDTO {
	t.Helper()
	dto, err := svc.Signup(context.Background(), SignupCommand{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "Password123!",
		Phone:    "0591234567",
		Address:  "123 Test St",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return dto
}

func TestSignup_CreatesUnverifiedUserAndSendsEmail(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{}
	svc := newTestAuthService(t, repo, sender)

	dto := signupTestUser(t, svc)

	if dto.ID == 0 || dto.Name != "Test User" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	stored := repo.usersByID[dto.ID]
	if stored.IsEmailVerified {
		t.Fatalf("new local account must start unverified")
	}
	if stored.PasswordHash == nil || *stored.PasswordHash == "Password123!" {
		t.Fatalf("stored password must be hashed")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one verification email, got %d", len(sender.sent))
	}
	n := sender.sent[0]
	if n.To != "test@example.com" || n.Subject != email.VerificationSubject {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if !strings.Contains(n.Text, "http://localhost:8080/api/auth/verify-email?token=") {
		t.Fatalf("verification link missing in body: %q", n.Text)
	}
}

func TestSignup_MailerFailureIsSwallowed(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{err: errors.New("smtp down")}
	svc := newTestAuthService(t, repo, sender)

	dto, err := svc.Signup(context.Background(), SignupCommand{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "Password123!",
		Phone:    "0591234567",
		Address:  "123 Test St",
	})
	if err != nil {
		t.Fatalf("signup must succeed when mail delivery fails, got %v", err)
	}
	if _, ok := repo.usersByID[dto.ID]; !ok {
		t.Fatalf("user must exist despite mailer failure")
	}
}

func TestSignin_UnknownEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})

	_, err := svc.Signin(context.Background(), SigninCommand{Email: "nadie@example.com", Password: "x"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if appErr.Message != "Invalid credentials" || appErr.Status != 401 {
		t.Fatalf("unexpected message/status: %q / %d", appErr.Message, appErr.Status)
	}
}

func TestSignin_UnverifiedBeforePasswordCheck(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	signupTestUser(t, svc)

	// incluso con contraseña incorrecta, la cuenta sin verificar responde
	// "Email not verified", no "Invalid credentials"
	_, err := svc.Signin(context.Background(), SigninCommand{Email: "test@example.com", Password: "wrong-password"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if appErr.Message != "Email not verified" || appErr.Status != 400 {
		t.Fatalf("unexpected message/status: %q / %d", appErr.Message, appErr.Status)
	}
}

func TestSignin_WrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	dto := signupTestUser(t, svc)
	verified := true
	if _, err := repo.Update(context.Background(), dto.ID, repository.UpdateUserInput{IsEmailVerified: &verified}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := svc.Signin(context.Background(), SigninCommand{Email: "test@example.com", Password: "wrong-password"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if appErr.Message != "Invalid credentials" || appErr.Status != 401 {
		t.Fatalf("unexpected message/status: %q / %d", appErr.Message, appErr.Status)
	}
}

func TestSignin_Success(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	dto := signupTestUser(t, svc)
	verified := true
	if _, err := repo.Update(context.Background(), dto.ID, repository.UpdateUserInput{IsEmailVerified: &verified}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.Signin(context.Background(), SigninCommand{Email: "Test@Example.com", Password: "Password123!"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if got.ID != dto.ID {
		t.Fatalf("expected user %d, got %d", dto.ID, got.ID)
	}
}

func TestVerifyEmail_FlipsFlagExactlyOnce(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{}
	svc := newTestAuthService(t, repo, sender)
	dto := signupTestUser(t, svc)

	link := sender.sent[0].Text
	tok := link[strings.Index(link, "token=")+len("token="):]

	if err := svc.VerifyEmail(context.Background(), tok); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if !repo.usersByID[dto.ID].IsEmailVerified {
		t.Fatalf("flag must be true after verification")
	}

	err := svc.VerifyEmail(context.Background(), tok)
	if apperr.KindOf(err) != apperr.KindEmailVerified {
		t.Fatalf("expected KindEmailVerified on repeat, got %v", err)
	}
	if !repo.usersByID[dto.ID].IsEmailVerified {
		t.Fatalf("flag must never toggle back")
	}
}

func TestVerifyEmail_UserMissing(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	tokens, err := token.NewService("secret", 24*time.Hour, 15*time.Minute)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	tok, err := tokens.IssueVerification(999)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.VerifyEmail(context.Background(), tok); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestVerifyEmail_TokenErrorsPropagate(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), &mockSender{})

	if err := svc.VerifyEmail(context.Background(), ""); apperr.KindOf(err) != apperr.KindTokenMissing {
		t.Fatalf("expected KindTokenMissing, got %v", err)
	}
	if err := svc.VerifyEmail(context.Background(), "garbage"); apperr.KindOf(err) != apperr.KindTokenMalformed {
		t.Fatalf("expected KindTokenMalformed, got %v", err)
	}
}

func TestResendVerification_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), &mockSender{})

	_, err := svc.ResendVerification(context.Background(), "nadie@example.com")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	dto := signupTestUser(t, svc)
	verified := true
	if _, err := repo.Update(context.Background(), dto.ID, repository.UpdateUserInput{IsEmailVerified: &verified}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := svc.ResendVerification(context.Background(), "test@example.com")
	if apperr.KindOf(err) != apperr.KindEmailVerified {
		t.Fatalf("expected KindEmailVerified, got %v", err)
	}
}

func TestResendVerification_MailerFailurePropagates(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{}
	svc := newTestAuthService(t, repo, sender)
	signupTestUser(t, svc)

	// a diferencia de signup, acá el fallo de envío es el resultado
	sender.err = errors.New("smtp down")
	if _, err := svc.ResendVerification(context.Background(), "test@example.com"); err == nil {
		t.Fatalf("expected mailer failure to propagate")
	}
}

func TestResendVerification_SendsFreshToken(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{}
	svc := newTestAuthService(t, repo, sender)
	dto := signupTestUser(t, svc)

	got, err := svc.ResendVerification(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if got.ID != dto.ID {
		t.Fatalf("expected user %d, got %d", dto.ID, got.ID)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected two emails (signup + resend), got %d", len(sender.sent))
	}
}

func TestResendVerification_RateLimited(t *testing.T) {
	repo := newMockUserRepo()
	sender := &mockSender{}
	tokens, err := token.NewService("secret", 24*time.Hour, 15*time.Minute)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	svc := NewAuthService(zap.NewNop(), repo, tokens, credential.NewHasher(bcrypt.MinCost), sender, "http://localhost:8080", denyLimiter{})

	_, err = svc.ResendVerification(context.Background(), "test@example.com")
	if apperr.KindOf(err) != apperr.KindRateLimited {
		t.Fatalf("expected KindRateLimited, got %v", err)
	}
}

func TestOAuthLogin_SameIdentityResolvesSameUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})

	cmd := OAuthCommand{Provider: "Google", ProviderUserID: "g-123", DisplayName: "Test User"}
	first, err := svc.OAuthLogin(context.Background(), cmd)
	if err != nil {
		t.Fatalf("oauth login: %v", err)
	}
	second, err := svc.OAuthLogin(context.Background(), cmd)
	if err != nil {
		t.Fatalf("oauth login repeat: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, second.ID)
	}
	if repo.identityCalls != 1 {
		t.Fatalf("expected exactly one identity row, got %d", repo.identityCalls)
	}
	if !repo.usersByID[first.ID].IsEmailVerified {
		t.Fatalf("social accounts are created pre-verified")
	}
}

func TestOAuthLogin_LinksExistingLocalAccountByEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(t, repo, &mockSender{})
	dto := signupTestUser(t, svc)
	createsBefore := repo.createCalls

	emailAddr := "test@example.com"
	linked, err := svc.OAuthLogin(context.Background(), OAuthCommand{
		Provider:       "google",
		ProviderUserID: "g-999",
		DisplayName:    "Test User",
		Email:          &emailAddr,
	})
	if err != nil {
		t.Fatalf("oauth login: %v", err)
	}

	if linked.ID != dto.ID {
		t.Fatalf("expected link to existing user %d, got %d", dto.ID, linked.ID)
	}
	if repo.createCalls != createsBefore {
		t.Fatalf("no new user must be created when linking by email")
	}
	if repo.identityCalls != 1 {
		t.Fatalf("expected exactly one identity row, got %d", repo.identityCalls)
	}
}

func TestOAuthLogin_InvalidClaim(t *testing.T) {
	svc := newTestAuthService(t, newMockUserRepo(), &mockSender{})

	_, err := svc.OAuthLogin(context.Background(), OAuthCommand{Provider: "", ProviderUserID: "x"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}
