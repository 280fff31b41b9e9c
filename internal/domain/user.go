package domain

import "time"

// User es el sujeto de autenticación. Email y PasswordHash son nulos
// para cuentas creadas solo via proveedores sociales.
type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           *string   `json:"email,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Address         *string   `json:"address,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	JobTitle        *string   `json:"job_title,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	PasswordHash    *string   `json:"-"`
	IsEmailVerified bool      `json:"-"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// OAuthIdentity vincula una cuenta de un proveedor externo con un User local.
// El par (Provider, ProviderUserID) es único y la fila no se modifica después
// de creada.
type OAuthIdentity struct {
	ID             int64
	Provider       string
	ProviderUserID string
	UserID         int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserDTO es la proyección externa de User: sin hash, sin flag de
// verificación y sin timestamps.
type UserDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	ImageURL *string `json:"image_url"`
	JobTitle *string `json:"job_title"`
	Bio      *string `json:"bio"`
}

// NewUserDTO copia solo los campos publicables. Esta lista blanca es el
// único lugar donde se decide qué datos del usuario salen del servicio.
func NewUserDTO(u User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		ImageURL: u.ImageURL,
		JobTitle: u.JobTitle,
		Bio:      u.Bio,
	}
}
