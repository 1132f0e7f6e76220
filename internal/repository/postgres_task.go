package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"task-manager/internal/models"

	"github.com/google/uuid"
)

const taskColumns = "id, owner_id, description, completed, created_at, updated_at"

// sortColumns maps sortable fields to SQL. Input never reaches the query text directly.
var sortColumns = map[string]string{
	models.SortCreatedAt:   "created_at",
	models.SortUpdatedAt:   "updated_at",
	models.SortDescription: "description",
	models.SortCompleted:   "completed",
}

type PostgresTaskRepository struct {
	db *sql.DB
}

var _ TaskRepository = (*PostgresTaskRepository)(nil)

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Owner, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTaskRepository) Create(ctx context.Context, t *models.Task) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		t.ID, t.Owner, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func buildListQuery(owner uuid.UUID, q models.TaskQuery) (string, []any) {
	var sb strings.Builder
	args := []any{owner}

	sb.WriteString("SELECT " + taskColumns + " FROM tasks WHERE owner_id = $1")
	if q.Completed != nil {
		args = append(args, *q.Completed)
		fmt.Fprintf(&sb, " AND completed = $%d", len(args))
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if ok && q.Desc {
		direction = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC", column, direction)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

func (r *PostgresTaskRepository) List(ctx context.Context, owner uuid.UUID, q models.TaskQuery) ([]models.Task, error) {
	query, args := buildListQuery(owner, q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) FindOne(ctx context.Context, id, owner uuid.UUID) (*models.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND owner_id = $2", id, owner))
}

// buildTaskUpdate sets only the columns present in u, so concurrent changes
// to different fields do not overwrite each other.
func buildTaskUpdate(id, owner uuid.UUID, u models.TaskUpdate) (string, []any) {
	args := []any{id, owner, u.UpdatedAt}
	sets := []string{"updated_at = $3"}
	if u.Description != nil {
		args = append(args, *u.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if u.Completed != nil {
		args = append(args, *u.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}
	return "UPDATE tasks SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND owner_id = $2 RETURNING " + taskColumns, args
}

func (r *PostgresTaskRepository) Update(ctx context.Context, id, owner uuid.UUID, u models.TaskUpdate) (*models.Task, error) {
	query, args := buildTaskUpdate(id, owner, u)
	t, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, err
}

func (r *PostgresTaskRepository) DeleteOne(ctx context.Context, id, owner uuid.UUID) (*models.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx,
		"DELETE FROM tasks WHERE id = $1 AND owner_id = $2 RETURNING "+taskColumns, id, owner))
}
