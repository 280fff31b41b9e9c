package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/apperr"
)

// Hasher encapsula bcrypt con un costo configurable a nivel de proceso.
// Nunca registra ni persiste la contraseña en claro.
type Hasher struct {
	cost int
}

// NewHasher crea un Hasher; costos fuera de rango caen al default de bcrypt.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash devuelve el digest bcrypt (salteado) de plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", apperr.HashingFailed(err)
	}
	return string(hashBytes), nil
}

// Compare verifica plaintext contra digest. Un mismatch es (false, nil);
// cualquier otro fallo del primitivo devuelve error, nunca un booleano
// engañoso.
func (h *Hasher) Compare(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, apperr.ComparisonFailed(err)
}
