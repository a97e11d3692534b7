package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"recordsmaster/internal/domain"
)

// PostgresUsersRepository manages accounts in the app_users table.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

// ListUsers returns all accounts with their current checked-out record count.
func (p *PostgresUsersRepository) ListUsers(ctx context.Context) ([]*domain.AppUser, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT u.user_id::text, u.email, u.role, u.created_on,
		        COUNT(r.record_id) AS checked_out_count
		 FROM app_users u
		 LEFT JOIN record_items r ON r.checked_out_to = u.user_id AND r.checked_out
		 GROUP BY u.user_id, u.email, u.role, u.created_on
		 ORDER BY u.email`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.AppUser{}
	for rows.Next() {
		var u domain.AppUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.CreatedOn, &u.CheckedOutCount); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (p *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.AppUser, error) {
	var u domain.AppUser
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id::text, email, role, created_on FROM app_users WHERE user_id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.Role, &u.CreatedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// EnsureUser creates the account if the email is unknown and returns its id
// either way. Used by the seed path in main.
func (p *PostgresUsersRepository) EnsureUser(ctx context.Context, email string, role domain.Role) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO app_users (user_id, email, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING user_id::text`,
		uuid.NewString(), email, string(role),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SetRole applies the single role-transition function to an account.
func (p *PostgresUsersRepository) SetRole(ctx context.Context, userID string, role domain.Role) error {
	u, err := p.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	next := domain.NextRole(u.Role, role)
	res, err := p.db.ExecContext(ctx,
		`UPDATE app_users SET role = $2 WHERE user_id = $1`,
		userID, string(next),
	)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrNotFound)
}
