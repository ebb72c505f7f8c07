package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentgate/feedback"
)

// FeedbackStore 内存反馈存储，支持错误注入
type FeedbackStore struct {
	mu      sync.Mutex
	entries []feedback.Entry
	saveErr error
	listErr error
}

// NewFeedbackStore 创建存储，可预置条目
func NewFeedbackStore(entries ...feedback.Entry) *FeedbackStore {
	return &FeedbackStore{entries: append([]feedback.Entry(nil), entries...)}
}

// WithSaveError 让 Save 返回错误
func (s *FeedbackStore) WithSaveError(err error) *FeedbackStore {
	s.saveErr = err
	return s
}

// WithListError 让 List 返回错误
func (s *FeedbackStore) WithListError(err error) *FeedbackStore {
	s.listErr = err
	return s
}

func (s *FeedbackStore) Save(ctx context.Context, e feedback.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *FeedbackStore) List(ctx context.Context) ([]feedback.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]feedback.Entry(nil), s.entries...), nil
}

// Len 已保存条目数
func (s *FeedbackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
