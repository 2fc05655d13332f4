package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
)

type CreateUserRequest struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
}

type UpdateUserRequest struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Role         *string
	IsActive     *bool
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(ctx context.Context, db *sql.DB, req CreateUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query,
		req.Email, req.PasswordHash, req.FirstName, req.LastName, role))
	if err != nil {
		if database.UniqueViolation(err, "users_email_key") {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, database.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail is the login lookup; the returned user includes the
// password hash for comparison.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err == sql.ErrNoRows {
		return nil, database.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func UpdateUser(ctx context.Context, db *sql.DB, id int64, req UpdateUserRequest) (*models.User, error) {
	var user *models.User

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current := &models.User{}
		err := tx.QueryRowContext(ctx,
			`SELECT email, password_hash, first_name, last_name, role, is_active
			 FROM users WHERE id = $1 FOR UPDATE`,
			id).Scan(
			&current.Email,
			&current.PasswordHash,
			&current.FirstName,
			&current.LastName,
			&current.Role,
			&current.IsActive,
		)
		if err == sql.ErrNoRows {
			return database.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		if req.Email != nil {
			current.Email = *req.Email
		}
		if req.PasswordHash != nil {
			current.PasswordHash = *req.PasswordHash
		}
		if req.FirstName != nil {
			current.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			current.LastName = *req.LastName
		}
		if req.Role != nil {
			current.Role = *req.Role
		}
		if req.IsActive != nil {
			current.IsActive = *req.IsActive
		}

		row := tx.QueryRowContext(ctx,
			`UPDATE users
			 SET email = $1, password_hash = $2, first_name = $3, last_name = $4,
			     role = $5, is_active = $6, updated_at = NOW()
			 WHERE id = $7
			 RETURNING `+userColumns,
			current.Email, current.PasswordHash, current.FirstName,
			current.LastName, current.Role, current.IsActive, id)

		user, err = scanUser(row)
		if err != nil {
			if database.UniqueViolation(err, "users_email_key") {
				return database.ErrEmailTaken
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return user, nil
}

func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		if database.ForeignKeyViolation(err) {
			return database.ErrUserReferenced
		}
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

func ListUsers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, pageSize), nil
}
