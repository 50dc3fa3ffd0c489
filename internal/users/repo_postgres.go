package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepo persists users via database/sql over the pgx stdlib driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const userColumns = `id, username, email, phone_number, push_token, password_hash, created_at, updated_at`

func (r *PostgresRepo) Insert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, phone_number, push_token, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.PhoneNumber, u.PushToken, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ByID(ctx context.Context, id string) (User, bool, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepo) ByEmail(ctx context.Context, email string) (User, bool, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresRepo) ByPhoneNumber(ctx context.Context, phoneNumber string) (User, bool, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phoneNumber))
}

func (r *PostgresRepo) UpdatePushToken(ctx context.Context, id, pushToken string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET push_token = NULLIF($2, ''), updated_at = now()
		WHERE id = $1`,
		id, pushToken,
	)
	if err != nil {
		return fmt.Errorf("update push token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update push token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) scanOne(row *sql.Row) (User, bool, error) {
	var u User
	var phone, push sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &phone, &push, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("scan user: %w", err)
	}
	u.PhoneNumber = phone.String
	u.PushToken = push.String
	return u, true, nil
}
