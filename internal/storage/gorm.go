package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one answered ACTION or CREATE_SERVER command.
type Entry struct {
	ID        string `gorm:"primaryKey"`
	User      string `gorm:"index"`
	Command   string
	Target    string
	Status    string
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&e).Error
}

// Recent returns up to limit entries, newest first.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *GormStore) RecentByUser(ctx context.Context, user string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := s.db.WithContext(ctx).Where(&Entry{User: user}).Order("created_at desc").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
