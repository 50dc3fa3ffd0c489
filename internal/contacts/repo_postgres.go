package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, c Contact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, name, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Name, c.PhoneNumber, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ByID(ctx context.Context, userID, id string) (Contact, bool, error) {
	var c Contact
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, phone_number, created_at, updated_at
		FROM contacts WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, fmt.Errorf("get contact: %w", err)
	}
	return c, true, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, phone_number, created_at, updated_at
		FROM contacts WHERE user_id = $1
		ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, c Contact) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET name = $3, phone_number = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Name, c.PhoneNumber, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
