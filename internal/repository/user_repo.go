package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"auth-api/internal/domain"
)

// CreateUserInput son los campos de un usuario nuevo. Los punteros nulos
// quedan como NULL en la base.
type CreateUserInput struct {
	Name            string
	Email           *string
	PasswordHash    *string
	Phone           *string
	Address         *string
	ImageURL        *string
	IsEmailVerified bool
}

// UpdateUserInput es una actualización parcial: solo los campos no nulos
// se escriben.
type UpdateUserInput struct {
	Name            *string
	Phone           *string
	Address         *string
	ImageURL        *string
	JobTitle        *string
	Bio             *string
	IsEmailVerified *bool
}

// UserRepository define el contrato de persistencia que consume el core.
// La ausencia de fila se señala con pgx.ErrNoRows.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (domain.User, error)
	Update(ctx context.Context, id int64, input UpdateUserInput) (domain.User, error)
	FindOrCreateFromSocial(ctx context.Context, provider, providerUserID, name string, email, imageURL *string) (domain.User, error)
}

const userColumns = `id, name, email, phone, address, image_url, job_title, bio, password_hash, is_email_verified, created_at, updated_at`

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Address,
		&u.ImageURL,
		&u.JobTitle,
		&u.Bio,
		&u.PasswordHash,
		&u.IsEmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return findUserByEmail(ctx, r.pool, email)
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return findUserByID(ctx, r.pool, id)
}

func findUserByEmail(ctx context.Context, q pgQuerier, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.QueryRow(ctx, query, email))
}

func findUserByID(ctx context.Context, q pgQuerier, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) Create(ctx context.Context, input CreateUserInput) (domain.User, error) {
	return createUser(ctx, r.pool, input)
}

func createUser(ctx context.Context, q pgQuerier, input CreateUserInput) (domain.User, error) {
	query := `
		INSERT INTO users (name, email, phone, address, image_url, password_hash, is_email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	return scanUser(q.QueryRow(ctx, query,
		input.Name,
		input.Email,
		input.Phone,
		input.Address,
		input.ImageURL,
		input.PasswordHash,
		input.IsEmailVerified,
	))
}

func (r *PgUserRepository) Update(ctx context.Context, id int64, input UpdateUserInput) (domain.User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Phone != nil {
		add("phone", *input.Phone)
	}
	if input.Address != nil {
		add("address", *input.Address)
	}
	if input.ImageURL != nil {
		add("image_url", *input.ImageURL)
	}
	if input.JobTitle != nil {
		add("job_title", *input.JobTitle)
	}
	if input.Bio != nil {
		add("bio", *input.Bio)
	}
	if input.IsEmailVerified != nil {
		add("is_email_verified", *input.IsEmailVerified)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "),
		len(args),
	)
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// FindOrCreateFromSocial resuelve un claim de identidad externo a un User:
// identidad ya vinculada → su dueño; email existente → se vincula esa
// cuenta local; si no, se crea un usuario nuevo ya verificado (el proveedor
// verificó el email por su lado). Dos callbacks simultáneos para la misma
// identidad nueva se reconcilian con la restricción única de
// (provider, provider_user_id): el perdedor de la carrera relee en vez de
// propagar la violación.
func (r *PgUserRepository) FindOrCreateFromSocial(ctx context.Context, provider, providerUserID, name string, email, imageURL *string) (domain.User, error) {
	user, err := r.findBySocial(ctx, provider, providerUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	user, err = r.linkOrCreateSocial(ctx, provider, providerUserID, name, email, imageURL)
	if err != nil {
		if isUniqueViolation(err) {
			return r.findBySocial(ctx, provider, providerUserID)
		}
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) findBySocial(ctx context.Context, provider, providerUserID string) (domain.User, error) {
	query := `
		SELECT ` + prefixColumns("u", userColumns) + `
		FROM oauth_identities oi
		JOIN users u ON u.id = oi.user_id
		WHERE oi.provider = $1 AND oi.provider_user_id = $2`
	return scanUser(r.pool.QueryRow(ctx, query, provider, providerUserID))
}

func (r *PgUserRepository) linkOrCreateSocial(ctx context.Context, provider, providerUserID, name string, email, imageURL *string) (domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback(ctx)

	var user domain.User
	resolved := false
	if email != nil && *email != "" {
		user, err = findUserByEmail(ctx, tx, *email)
		if err == nil {
			resolved = true
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
	}
	if !resolved {
		user, err = createUser(ctx, tx, CreateUserInput{
			Name:            name,
			Email:           email,
			ImageURL:        imageURL,
			IsEmailVerified: true,
		})
		if err != nil {
			return domain.User{}, err
		}
	}

	const insertIdentity = `
		INSERT INTO oauth_identities (provider, provider_user_id, user_id)
		VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insertIdentity, provider, providerUserID, user.ID); err != nil {
		return domain.User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
