package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
)

type CreateTaskRequest struct {
	Title       string
	Description string
	Status      string
	Priority    string
	UserID      int64
	DueDate     *time.Time
}

type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
}

type TaskFilter struct {
	UserID   int64
	Status   string
	Priority string
	Search   string
}

func CreateTask(ctx context.Context, db *sql.DB, req CreateTaskRequest) (*models.Task, error) {
	status := req.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := &models.Task{}
	var dueDate sql.NullTime

	err := db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, user_id, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, title, description, status, priority, user_id, due_date, created_at, updated_at`,
		req.Title, req.Description, status, priority, req.UserID, req.DueDate).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.UserID,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}

	return task, nil
}

func GetTask(ctx context.Context, db *sql.DB, id int64) (*models.Task, error) {
	task := &models.Task{User: &models.UserSummary{}}
	var dueDate sql.NullTime

	err := db.QueryRowContext(ctx,
		`SELECT t.id, t.title, t.description, t.status, t.priority, t.user_id,
		        t.due_date, t.created_at, t.updated_at,
		        u.id, u.email, u.first_name, u.last_name
		 FROM tasks t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.id = $1`,
		id).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.UserID,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.User.ID,
		&task.User.Email,
		&task.User.FirstName,
		&task.User.LastName,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}

	return task, nil
}

func UpdateTask(ctx context.Context, db *sql.DB, id int64, req UpdateTaskRequest) (*models.Task, error) {
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var (
			title       string
			description string
			status      string
			priority    string
			dueDate     sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT title, description, status, priority, due_date
			 FROM tasks WHERE id = $1 FOR UPDATE`,
			id).Scan(&title, &description, &status, &priority, &dueDate)
		if err == sql.ErrNoRows {
			return database.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}

		if req.Title != nil {
			title = *req.Title
		}
		if req.Description != nil {
			description = *req.Description
		}
		if req.Status != nil {
			status = *req.Status
		}
		if req.Priority != nil {
			priority = *req.Priority
		}
		if req.DueDate != nil {
			dueDate = sql.NullTime{Time: *req.DueDate, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tasks
			 SET title = $1, description = $2, status = $3, priority = $4,
			     due_date = $5, updated_at = NOW()
			 WHERE id = $6`,
			title, description, status, priority, dueDate, id)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetTask(ctx, db, id)
}

func DeleteTask(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrTaskNotFound
	}

	return nil
}

// ListTasks filters by owner, status, priority and a free-text search over
// title and description. UserID 0 means all users (admin view).
func ListTasks(ctx context.Context, db *sql.DB, filter TaskFilter, page, pageSize int) (*OffsetPage, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND t.user_id = $%d", len(args))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND t.status = $%d", len(args))
	}
	if filter.Priority != "" && filter.Priority != "all" {
		args = append(args, filter.Priority)
		where += fmt.Sprintf(" AND t.priority = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (t.title ILIKE $%d OR t.description ILIKE $%d)", len(args), len(args))
	}

	var total int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks t "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(
		`SELECT t.id, t.title, t.description, t.status, t.priority, t.user_id,
		        t.due_date, t.created_at, t.updated_at,
		        u.id, u.email, u.first_name, u.last_name
		 FROM tasks t
		 JOIN users u ON u.id = t.user_id
		 %s
		 ORDER BY t.created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task := models.Task{User: &models.UserSummary{}}
		var dueDate sql.NullTime
		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.UserID,
			&dueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
			&task.User.ID,
			&task.User.Email,
			&task.User.FirstName,
			&task.User.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if dueDate.Valid {
			task.DueDate = &dueDate.Time
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(tasks, total, page, pageSize), nil
}
