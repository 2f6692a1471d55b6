// Package gormstore keeps tasks in SQLite through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	tasksqlite "taskmanager/internal/adapter/database/sqlite"
	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/port"
)

type taskModel struct {
	ID          string     `gorm:"primaryKey;type:text"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"not null;default:''"`
	IsCompleted bool       `gorm:"not null;default:false;index"`
	DueDate     *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	Version     int        `gorm:"not null;default:1"`
}

func (taskModel) TableName() string {
	return "tasks"
}

func toModel(t domain.Task) taskModel {
	m := taskModel{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt.UTC(),
		Version:     t.Version,
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		m.DueDate = &d
	}
	return m
}

func (m taskModel) toDomain() domain.Task {
	t := domain.Task{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		IsCompleted: m.IsCompleted,
		CreatedAt:   m.CreatedAt.UTC(),
		Version:     m.Version,
	}
	if m.DueDate != nil {
		d := m.DueDate.UTC()
		t.DueDate = &d
	}
	return t
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: tasksqlite.DriverName, DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a memory database also needs its connection kept open
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&taskModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Query(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	q := s.db.WithContext(ctx).Model(&taskModel{})

	if filter.Completed != nil {
		q = q.Where("is_completed = ?", *filter.Completed)
	}
	if filter.HasQuery() {
		pattern := filter.LikePattern()
		q = q.Where(`(go_lower(title) LIKE ? ESCAPE '\' OR go_lower(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var rows []taskModel
	err := q.Order("due_date IS NULL").
		Order("due_date ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
	}
	return tasks, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Task, error) {
	var m taskModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Task{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return m.toDomain(), nil
}

func (s *Store) Begin(ctx context.Context) (port.TaskBatch, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &batch{tx: tx}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type batch struct {
	tx   *gorm.DB
	done bool
}

func (b *batch) Insert(ctx context.Context, task domain.Task) error {
	var count int64
	if err := b.tx.WithContext(ctx).Model(&taskModel{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: duplicate id %s", domain.ErrConflict, task.ID)
	}

	m := toModel(task)
	return b.tx.WithContext(ctx).Create(&m).Error
}

func (b *batch) Replace(ctx context.Context, task domain.Task) error {
	m := toModel(task)
	res := b.tx.WithContext(ctx).Model(&taskModel{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"title":        m.Title,
			"description":  m.Description,
			"is_completed": m.IsCompleted,
			"due_date":     m.DueDate,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := b.tx.WithContext(ctx).Model(&taskModel{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (b *batch) Remove(ctx context.Context, id string) error {
	res := b.tx.WithContext(ctx).Delete(&taskModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (b *batch) Commit(ctx context.Context) error {
	b.done = true
	return b.tx.Commit().Error
}

func (b *batch) Rollback(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback().Error
}
