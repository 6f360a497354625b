package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRoleLookup struct {
	db *sql.DB
}

func NewPostgresRoleLookup(db *sql.DB) *PostgresRoleLookup {
	return &PostgresRoleLookup{db: db}
}

var _ RoleLookup = (*PostgresRoleLookup)(nil)

func (r *PostgresRoleLookup) RoleFor(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM auth_users WHERE user_id = $1`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up role: %w", err)
	}
	return role, nil
}
