package email

import (
	"errors"
	"fmt"

	"auth-api/internal/domain"
)

// VerificationSubject es el asunto fijo del correo de verificación.
const VerificationSubject = "Verify Your Email Address"

// NewVerificationNotification arma el correo de verificación con el enlace
// firmado para user. Falla si el usuario no tiene email.
func NewVerificationNotification(user domain.User, baseURL, token string) (Notification, error) {
	if user.Email == nil || *user.Email == "" {
		return Notification{}, errors.New("user email is not defined")
	}

	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", baseURL, token)
	text := fmt.Sprintf("Hello %s,\n\nPlease verify your email by clicking the link: %s", user.Name, link)
	html := verificationHTML(user.Name, link)

	return Notification{
		To:      *user.Email,
		Subject: VerificationSubject,
		Text:    text,
		HTML:    html,
	}, nil
}

func verificationHTML(name, link string) string {
	const description = "Thank you for signing up! To complete your registration, " +
		"please click the button below to verify your email address."
	return fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
      <h2 style="color: #333;">Hello %s,</h2>
      <p>%s</p>
      <p style="text-align: center; margin: 30px 0;">
        <a href="%s"
            style="display: inline-block; padding: 12px 24px; background-color: #2563eb;
                  color: white; text-decoration: none; border-radius: 4px; font-weight: bold;">
          Verify Email
        </a>
      </p>
      <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
      <p style="color: #777; font-size: 0.9em;">This link will expire in 24 hours.</p>
    </div>
  `, name, description, link)
}
