package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
)

const tasksTable = "tasks"

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
		OrderBy("due_date IS NULL", "due_date ASC", "created_at ASC", "id ASC")

	if filter.Completed != nil {
		query = query.Where(sq.Eq{"is_completed": *filter.Completed})
	}

	if filter.HasQuery() {
		pattern := filter.LikePattern()
		query = query.Where(sq.Or{
			sq.Expr(`go_lower(title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`go_lower(description) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
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

	t, err := scanTask(s.db.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, err
}

func (s *Store) Begin(ctx context.Context) (port.TaskBatch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &batch{tx: tx, qb: s.db.QueryBuilder}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	tx *sql.Tx
	qb sq.StatementBuilderType
}

func (b *batch) Insert(ctx context.Context, task domain.Task) error {
	stmt, args, err := b.qb.Insert(tasksTable).
		Columns(taskColumns...).
		Values(task.ID, task.Title, task.Description, task.IsCompleted, nullTime(task), task.CreatedAt.UTC(), task.Version).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := b.tx.ExecContext(ctx, stmt, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
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
		Set("due_date", nullTime(task)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": task.ID, "version": task.Version}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := b.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}

	return b.checkAffected(ctx, res, task.ID)
}

func (b *batch) Remove(ctx context.Context, id string) error {
	stmt, args, err := b.qb.Delete(tasksTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	res, err := b.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// checkAffected tells a missing row apart from a stale version.
func (b *batch) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	stmt, args, err := b.qb.Select("1").From(tasksTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	var one int
	err = b.tx.QueryRowContext(ctx, stmt, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

func (b *batch) Commit(ctx context.Context) error {
	return b.tx.Commit()
}

func (b *batch) Rollback(ctx context.Context) error {
	err := b.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t   domain.Task
		due sql.NullTime
	)

	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.IsCompleted, &due, &t.CreatedAt, &t.Version); err != nil {
		return domain.Task{}, err
	}

	t.CreatedAt = t.CreatedAt.UTC()
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}

	return t, nil
}

func nullTime(t domain.Task) sql.NullTime {
	if t.DueDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
}
