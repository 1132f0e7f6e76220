package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"task-manager/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const userColumns = "id, name, email, password, age, created_at, updated_at"

type PostgresUserRepository struct {
	db *sql.DB
}

var _ UserRepository = (*PostgresUserRepository)(nil)

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// isDuplicateEmail reports a unique violation on users.email.
func isDuplicateEmail(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == "users_email_key"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Age, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Name, u.Email, u.Password, u.Age, u.CreatedAt, u.UpdatedAt)
	if isDuplicateEmail(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (r *PostgresUserRepository) FindByToken(ctx context.Context, id uuid.UUID, token string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.password, u.age, u.created_at, u.updated_at
		FROM users u
		JOIN user_tokens t ON t.user_id = u.id
		WHERE u.id = $1 AND t.token = $2`, id, token))
}

func buildUserUpdate(id uuid.UUID, u models.UserUpdate) (string, []any) {
	args := []any{id, u.UpdatedAt}
	sets := []string{"updated_at = $2"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Email != nil {
		set("email", *u.Email)
	}
	if u.Password != nil {
		set("password", *u.Password)
	}
	if u.Age != nil {
		set("age", *u.Age)
	}
	return "UPDATE users SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 RETURNING " + userColumns, args
}

func (r *PostgresUserRepository) Update(ctx context.Context, id uuid.UUID, u models.UserUpdate) (*models.User, error) {
	query, args := buildUserUpdate(id, u)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if isDuplicateEmail(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, err
}

func (r *PostgresUserRepository) DeleteWithTasks(ctx context.Context, id uuid.UUID) error {
	return RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE owner_id = $1", id); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		// user_tokens ikut terhapus lewat ON DELETE CASCADE
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return expectOneRow(res)
	})
}

func (r *PostgresUserRepository) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_tokens (user_id, token) VALUES ($1, $2)", id, token)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM user_tokens WHERE user_id = $1 AND token = $2", id, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) RemoveAllTokens(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM user_tokens WHERE user_id = $1", id); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Tokens(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT token FROM user_tokens WHERE user_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("select tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *PostgresUserRepository) Avatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var avatar []byte
	err := r.db.QueryRowContext(ctx, "SELECT avatar FROM users WHERE id = $1", id).Scan(&avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select avatar: %w", err)
	}
	return avatar, nil
}

func (r *PostgresUserRepository) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	var value any
	if data != nil {
		value = data
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET avatar = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1", id, value)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
