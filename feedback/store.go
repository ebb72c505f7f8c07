package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrStoreClosed 存储已关闭
var ErrStoreClosed = errors.New("feedback store closed")

// Store 反馈持久化接口
type Store interface {
	Save(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
}

// Record feedback_entries 表的行
type Record struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Rating    int       `gorm:"not null;index:idx_feedback_rating"`
	Comment   string    `gorm:"type:text"`
	ActionID  string    `gorm:"size:64;index:idx_feedback_action"`
	ToolName  string    `gorm:"size:128;index:idx_feedback_tool"`
	Tags      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "feedback_entries" }

// GormStore 基于 GORM 的反馈存储，表结构由 internal/migration 管理
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GORM 存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate 仅用于测试与本地 sqlite，生产环境使用 migrate 子命令
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Record{})
}

func (s *GormStore) Save(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save feedback %s: %w", e.ID, err)
	}
	return nil
}

// List 按时间顺序返回全部反馈
func (s *GormStore) List(ctx context.Context) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	var recs []Record
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toRecord(e Entry) (Record, error) {
	rec := Record{
		ID:        e.ID,
		Rating:    e.Rating,
		Comment:   e.Comment,
		ActionID:  e.ActionID,
		ToolName:  e.ToolName,
		CreatedAt: e.Timestamp,
	}
	if len(e.Tags) > 0 {
		data, err := json.Marshal(e.Tags)
		if err != nil {
			return Record{}, fmt.Errorf("encode tags: %w", err)
		}
		rec.Tags = string(data)
	}
	return rec, nil
}

func fromRecord(rec Record) (Entry, error) {
	e := Entry{
		ID:        rec.ID,
		Rating:    rec.Rating,
		Comment:   rec.Comment,
		ActionID:  rec.ActionID,
		ToolName:  rec.ToolName,
		Timestamp: rec.CreatedAt,
	}
	if rec.Tags != "" {
		if err := json.Unmarshal([]byte(rec.Tags), &e.Tags); err != nil {
			return Entry{}, fmt.Errorf("decode tags of %s: %w", rec.ID, err)
		}
	}
	return e, nil
}
