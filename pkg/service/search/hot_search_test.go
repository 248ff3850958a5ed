package search

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

// fakeHotSearchRepo 是内存版 HotSearchRepository
type fakeHotSearchRepo struct {
	mu     sync.Mutex
	counts map[string]int64
	top    []string
}

func newFakeHotSearchRepo() *fakeHotSearchRepo {
	return &fakeHotSearchRepo{counts: make(map[string]int64)}
}

func (r *fakeHotSearchRepo) Increment(ctx context.Context, query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[query]++
	return nil
}

func (r *fakeHotSearchRepo) TopQueries(ctx context.Context, limit int) ([]string, error) {
	if len(r.top) > limit {
		return r.top[:limit], nil
	}
	return r.top, nil
}

func TestHotSearchRecord(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantKey   string
		wantCount int64
	}{
		{
			name:      "记录时统一小写并去除空白",
			query:     "  Go 并发  ",
			wantKey:   "go 并发",
			wantCount: 1,
		},
		{
			name:      "空查询不记录",
			query:     "   ",
			wantKey:   "",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeHotSearchRepo()
			svc := NewHotSearchService(nil, repo)
			svc.Record(context.Background(), tt.query)

			if tt.wantKey == "" {
				if len(repo.counts) != 0 {
					t.Errorf("不应有记录: %v", repo.counts)
				}
				return
			}
			if repo.counts[tt.wantKey] != tt.wantCount {
				t.Errorf("counts[%q] = %d, want %d", tt.wantKey, repo.counts[tt.wantKey], tt.wantCount)
			}
		})
	}
}

func TestHotSearchTop(t *testing.T) {
	repo := newFakeHotSearchRepo()
	repo.top = []string{"go", "react", "docker"}
	svc := NewHotSearchService(nil, repo)

	t.Run("Redis不可用时降级到数据库", func(t *testing.T) {
		got := svc.Top(context.Background(), 2)
		if !reflect.DeepEqual(got, []string{"go", "react"}) {
			t.Errorf("Top() = %v", got)
		}
	})

	t.Run("非法limit返回nil", func(t *testing.T) {
		if got := svc.Top(context.Background(), 0); got != nil {
			t.Errorf("Top(0) = %v, want nil", got)
		}
	})
}
