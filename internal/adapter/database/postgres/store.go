package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
)

const tasksTable = "tasks"

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var taskColumns = []string{"id", "title", "description", "is_completed", "due_date", "created_at", "version"}

type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Query(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	query := s.db.QueryBuilder.Select(taskColumns...).
		From(tasksTable).
		OrderBy("due_date ASC NULLS LAST", "created_at ASC", "id ASC")

	if filter.Completed != nil {
		query = query.Where(sq.Eq{"is_completed": *filter.Completed})
	}
	if filter.HasQuery() {
		pattern := filter.LikePattern()
		query = query.Where(sq.Or{
			sq.Expr(`title ILIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`description ILIKE ? ESCAPE '\'`, pattern),
		})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Task, error) {
	stmt, args, err := s.db.QueryBuilder.Select(taskColumns...).
		From(tasksTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Task{}, err
	}

	t, err := scanTask(s.db.QueryRow(ctx, stmt, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, err
}

func (s *Store) Begin(ctx context.Context) (port.TaskBatch, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &batch{tx: tx, qb: s.db.QueryBuilder}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

type batch struct {
	tx pgx.Tx
	qb sq.StatementBuilderType
}

func (b *batch) Insert(ctx context.Context, task domain.Task) error {
	stmt, args, err := b.qb.Insert(tasksTable).
		Columns(taskColumns...).
		Values(task.ID, task.Title, task.Description, task.IsCompleted, task.DueDate, task.CreatedAt.UTC(), task.Version).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := b.tx.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: duplicate id %s", domain.ErrConflict, task.ID)
		}
		return err
	}
	return nil
}

func (b *batch) Replace(ctx context.Context, task domain.Task) error {
	stmt, args, err := b.qb.Update(tasksTable).
		Set("title", task.Title).
		Set("description", task.Description).
		Set("is_completed", task.IsCompleted).
		Set("due_date", task.DueDate).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": task.ID, "version": task.Version}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := b.tx.Exec(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := b.tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)", task.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (b *batch) Remove(ctx context.Context, id string) error {
	stmt, args, err := b.qb.Delete(tasksTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	tag, err := b.tx.Exec(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (b *batch) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *batch) Rollback(ctx context.Context) error {
	err := b.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.IsCompleted, &t.DueDate, &t.CreatedAt, &t.Version); err != nil {
		return domain.Task{}, err
	}

	t.CreatedAt = t.CreatedAt.UTC()
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	return t, nil
}
