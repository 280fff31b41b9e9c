package db

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"auth-api/internal/db/migrations"
)

// RunMigrations aplica las migraciones embebidas con goose. Usa una
// conexión database/sql propia (goose no trabaja sobre pgxpool) que se
// cierra al terminar.
func RunMigrations(ctx context.Context, dsn string) error {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, conn, ".")
}
