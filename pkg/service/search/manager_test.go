package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"
)

// fakeEngine 是可编程的 SearchEngine 测试替身
type fakeEngine struct {
	mu sync.Mutex

	healthy     bool
	failIndex   bool
	failSearch  bool
	bulkReturn  int
	rebuildOK   bool
	rebuildGate chan struct{} // 非 nil 时 RebuildIndex 会阻塞到通道关闭

	indexCalls   int32
	bulkCalls    int32
	deleteCalls  int32
	rebuildCalls int32
	bulkDocs     []*model.SearchIndex
	deleted      []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{healthy: true, rebuildOK: true}
}

func (f *fakeEngine) Search(ctx context.Context, criteria *model.SearchCriteria) (*model.SearchResult, error) {
	if f.failSearch {
		return nil, errors.New("引擎故障")
	}
	return &model.SearchResult{Items: []*model.SearchResultItem{}, TotalCount: 7}, nil
}

func (f *fakeEngine) IndexDocument(ctx context.Context, doc *model.SearchIndex) bool {
	atomic.AddInt32(&f.indexCalls, 1)
	return !f.failIndex
}

func (f *fakeEngine) BulkIndex(ctx context.Context, docs []*model.SearchIndex) int {
	atomic.AddInt32(&f.bulkCalls, 1)
	f.mu.Lock()
	f.bulkDocs = append(f.bulkDocs, docs...)
	f.mu.Unlock()
	if f.bulkReturn > 0 {
		return f.bulkReturn
	}
	return len(docs)
}

func (f *fakeEngine) DeleteDocument(ctx context.Context, entityType, entityID string) bool {
	atomic.AddInt32(&f.deleteCalls, 1)
	f.mu.Lock()
	f.deleted = append(f.deleted, entityType+":"+entityID)
	f.mu.Unlock()
	return true
}

func (f *fakeEngine) UpdateDocument(ctx context.Context, doc *model.SearchIndex) bool {
	return f.IndexDocument(ctx, doc)
}

func (f *fakeEngine) GetSuggestions(ctx context.Context, prefix string, size int) []string {
	return nil
}

func (f *fakeEngine) IsHealthy(ctx context.Context) bool {
	return f.healthy
}

func (f *fakeEngine) RebuildIndex(ctx context.Context) bool {
	atomic.AddInt32(&f.rebuildCalls, 1)
	if f.rebuildGate != nil {
		<-f.rebuildGate
	}
	return f.rebuildOK
}

func (f *fakeEngine) GetIndexStats(ctx context.Context) *model.IndexStats {
	return &model.IndexStats{Health: "green"}
}

// fakeIndexRepo 是内存版 SearchIndexRepository
type fakeIndexRepo struct {
	mu sync.Mutex

	upserts       []*model.SearchIndex
	upsertBatches []int // 每次 UpsertMany 收到的批大小
	deletes       []string
	titles        []string
	changed       []*model.SearchIndex
	failDelete    bool
	failList      bool
	failUpsert    bool
}

func newFakeIndexRepo() *fakeIndexRepo {
	return &fakeIndexRepo{}
}

func (r *fakeIndexRepo) Upsert(ctx context.Context, doc *model.SearchIndex) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, doc)
	return nil
}

func (r *fakeIndexRepo) UpsertMany(ctx context.Context, docs []*model.SearchIndex) error {
	if r.failUpsert {
		return errors.New("数据库故障")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, docs...)
	r.upsertBatches = append(r.upsertBatches, len(docs))
	return nil
}

func (r *fakeIndexRepo) FindByEntity(ctx context.Context, entityType, entityID string) (*model.SearchIndex, error) {
	return nil, nil
}

func (r *fakeIndexRepo) Delete(ctx context.Context, entityType, entityID string) (int64, error) {
	if r.failDelete {
		return 0, errors.New("数据库故障")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, entityType+":"+entityID)
	return 0, nil
}

func (r *fakeIndexRepo) Query(ctx context.Context, q *repository.SearchIndexQuery) ([]*model.SearchIndex, int64, error) {
	return nil, 0, nil
}

func (r *fakeIndexRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.SearchIndex, error) {
	if r.failList {
		return nil, errors.New("数据库故障")
	}
	return r.changed, nil
}

func (r *fakeIndexRepo) ListTitlesByPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.titles, nil
}

func (r *fakeIndexRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.upserts)), nil
}

func (r *fakeIndexRepo) LatestUpdateTime(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

func (r *fakeIndexRepo) Clear(ctx context.Context) error {
	return nil
}

// fakePostRepo 是内存版 PostRepository
type fakePostRepo struct {
	posts []*model.Post
}

func (r *fakePostRepo) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	for _, p := range r.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePostRepo) ListPublished(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	if offset >= len(r.posts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.posts) {
		end = len(r.posts)
	}
	return r.posts[offset:end], nil
}

func (r *fakePostRepo) CountPublished(ctx context.Context) (int64, error) {
	return int64(len(r.posts)), nil
}

func newTestManager(primary, fallback model.SearchEngine) (*Manager, *fakeIndexRepo) {
	repo := newFakeIndexRepo()
	return NewManager(primary, fallback, repo, &fakePostRepo{}, nil, "zh-CN"), repo
}

func TestManagerIndexDocument(t *testing.T) {
	doc := &model.SearchIndex{EntityType: "post", EntityID: "abc", Title: "t"}

	t.Run("双写任一成功即整体成功", func(t *testing.T) {
		primary := newFakeEngine()
		primary.failIndex = true
		fallback := newFakeEngine()
		m, repo := newTestManager(primary, fallback)

		if !m.IndexDocument(context.Background(), doc) {
			t.Error("降级引擎成功时整体应成功")
		}
		if atomic.LoadInt32(&primary.indexCalls) != 1 {
			t.Error("健康的主引擎应该被触达")
		}
		if len(repo.upserts) != 1 {
			t.Errorf("成功后应镜像到关系库，实际 upsert %d 次", len(repo.upserts))
		}
	})

	t.Run("两侧都失败才整体失败", func(t *testing.T) {
		primary := newFakeEngine()
		primary.failIndex = true
		fallback := newFakeEngine()
		fallback.failIndex = true
		m, repo := newTestManager(primary, fallback)

		if m.IndexDocument(context.Background(), doc) {
			t.Error("两侧都失败时整体应失败")
		}
		if len(repo.upserts) != 0 {
			t.Error("失败时不应镜像")
		}
	})

	t.Run("主引擎降级时不被触达", func(t *testing.T) {
		primary := newFakeEngine()
		primary.healthy = false
		fallback := newFakeEngine()
		m, _ := newTestManager(primary, fallback)
		m.HealthCheck(context.Background()) // 摘掉主引擎

		m.IndexDocument(context.Background(), doc)
		if atomic.LoadInt32(&primary.indexCalls) != 0 {
			t.Error("降级的主引擎不应被触达")
		}
	})

	t.Run("nil文档直接拒绝", func(t *testing.T) {
		m, _ := newTestManager(newFakeEngine(), newFakeEngine())
		if m.IndexDocument(context.Background(), nil) {
			t.Error("nil 文档应返回 false")
		}
	})
}

func TestManagerSearchFallback(t *testing.T) {
	t.Run("主引擎失败时落回降级引擎", func(t *testing.T) {
		primary := newFakeEngine()
		primary.failSearch = true
		fallback := newFakeEngine()
		m, _ := newTestManager(primary, fallback)

		result, err := m.Search(context.Background(), &model.SearchCriteria{Query: "go"})
		if err != nil {
			t.Fatalf("降级引擎可用时不应有错误: %v", err)
		}
		if result.TotalCount != 7 {
			t.Errorf("TotalCount = %d, want 7", result.TotalCount)
		}
	})

	t.Run("无主引擎时直接走降级引擎", func(t *testing.T) {
		m, _ := newTestManager(nil, newFakeEngine())
		result, err := m.Search(context.Background(), &model.SearchCriteria{Query: "go"})
		if err != nil || result == nil {
			t.Fatalf("Search() = %v, %v", result, err)
		}
	})
}

func TestManagerBulkIndexTakesMaxCount(t *testing.T) {
	primary := newFakeEngine()
	primary.bulkReturn = 3
	fallback := newFakeEngine()
	fallback.bulkReturn = 2
	m, _ := newTestManager(primary, fallback)

	docs := []*model.SearchIndex{
		{EntityType: "post", EntityID: "1"},
		{EntityType: "post", EntityID: "2"},
		{EntityType: "post", EntityID: "3"},
	}
	if got := m.BulkIndex(context.Background(), docs); got != 3 {
		t.Errorf("BulkIndex() = %d, want 3（两侧取较大值）", got)
	}
}

func TestManagerHealthCheck(t *testing.T) {
	t.Run("任一引擎健康即整体健康", func(t *testing.T) {
		primary := newFakeEngine()
		primary.healthy = false
		fallback := newFakeEngine()
		m, _ := newTestManager(primary, fallback)

		if !m.HealthCheck(context.Background()) {
			t.Error("降级引擎健康时整体应健康")
		}
	})

	t.Run("主引擎恢复后重新被触达", func(t *testing.T) {
		primary := newFakeEngine()
		primary.healthy = false
		fallback := newFakeEngine()
		m, _ := newTestManager(primary, fallback)

		m.HealthCheck(context.Background())
		m.IndexDocument(context.Background(), &model.SearchIndex{EntityType: "post", EntityID: "a"})
		if atomic.LoadInt32(&primary.indexCalls) != 0 {
			t.Fatal("降级期间主引擎不应被触达")
		}

		primary.healthy = true
		m.HealthCheck(context.Background())
		m.IndexDocument(context.Background(), &model.SearchIndex{EntityType: "post", EntityID: "b"})
		if atomic.LoadInt32(&primary.indexCalls) != 1 {
			t.Error("恢复后主引擎应重新被触达")
		}
	})
}

func TestManagerRebuildIndexLock(t *testing.T) {
	gate := make(chan struct{})
	fallback := newFakeEngine()
	fallback.rebuildGate = gate
	m, _ := newTestManager(nil, fallback)

	done := make(chan bool)
	go func() {
		done <- m.RebuildIndex(context.Background())
	}()

	// 等第一个重建拿到锁
	deadline := time.After(2 * time.Second)
	for !m.RebuildInProgress() {
		select {
		case <-deadline:
			t.Fatal("等待重建启动超时")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if m.RebuildIndex(context.Background()) {
		t.Error("重建进行中时第二次请求应立即返回 false")
	}

	close(gate)
	if !<-done {
		t.Error("第一次重建应成功")
	}
	if m.RebuildInProgress() {
		t.Error("重建结束后标记应清除")
	}
}

func TestManagerIncrementalSync(t *testing.T) {
	t.Run("变更记录被批量重新索引", func(t *testing.T) {
		fallback := newFakeEngine()
		m, repo := newTestManager(nil, fallback)
		repo.changed = []*model.SearchIndex{
			{EntityType: "post", EntityID: "1"},
			{EntityType: "post", EntityID: "2"},
		}

		if !m.IncrementalSync(context.Background(), time.Now().Add(-time.Hour)) {
			t.Fatal("同步应成功")
		}
		fallback.mu.Lock()
		got := len(fallback.bulkDocs)
		fallback.mu.Unlock()
		if got != 2 {
			t.Errorf("重新索引 %d 条, want 2", got)
		}
	})

	t.Run("查询失败返回false", func(t *testing.T) {
		m, repo := newTestManager(nil, newFakeEngine())
		repo.failList = true
		if m.IncrementalSync(context.Background(), time.Time{}) {
			t.Error("仓库查询失败时应返回 false")
		}
	})

	t.Run("无变更也推进水位并成功", func(t *testing.T) {
		fallback := newFakeEngine()
		m, _ := newTestManager(nil, fallback)
		if !m.IncrementalSync(context.Background(), time.Time{}) {
			t.Error("无变更时应返回 true")
		}
		if atomic.LoadInt32(&fallback.bulkCalls) != 0 {
			t.Error("无变更时不应触发批量索引")
		}
	})
}

func TestManagerIndexQueue(t *testing.T) {
	t.Run("按操作类型分组消费", func(t *testing.T) {
		fallback := newFakeEngine()
		m, _ := newTestManager(nil, fallback)

		m.QueueIndexOperation(&model.IndexOperation{
			Type:     model.IndexOpIndex,
			Document: &model.SearchIndex{EntityType: "post", EntityID: "1"},
		})
		m.QueueIndexOperation(&model.IndexOperation{
			Type:     model.IndexOpUpdate,
			Document: &model.SearchIndex{EntityType: "post", EntityID: "2"},
		})
		m.QueueIndexOperation(&model.IndexOperation{
			Type:       model.IndexOpDelete,
			EntityType: "post",
			EntityID:   "3",
		})

		if m.QueueLength() != 3 {
			t.Fatalf("队列长度 = %d, want 3", m.QueueLength())
		}
		m.ProcessIndexQueue(context.Background())

		if m.QueueLength() != 0 {
			t.Errorf("消费后队列长度 = %d, want 0", m.QueueLength())
		}
		if atomic.LoadInt32(&fallback.bulkCalls) != 1 {
			t.Errorf("Index/Update 应合并为一次批量写入，实际 %d 次", fallback.bulkCalls)
		}
		fallback.mu.Lock()
		bulkN, deleted := len(fallback.bulkDocs), len(fallback.deleted)
		fallback.mu.Unlock()
		if bulkN != 2 {
			t.Errorf("批量写入 %d 条, want 2", bulkN)
		}
		if deleted != 1 {
			t.Errorf("删除 %d 条, want 1", deleted)
		}
	})

	t.Run("单次消费至多100条", func(t *testing.T) {
		m, _ := newTestManager(nil, newFakeEngine())
		for i := 0; i < 130; i++ {
			m.QueueIndexOperation(&model.IndexOperation{
				Type:     model.IndexOpIndex,
				Document: &model.SearchIndex{EntityType: "post", EntityID: "x"},
			})
		}
		m.ProcessIndexQueue(context.Background())
		if m.QueueLength() != 30 {
			t.Errorf("剩余队列长度 = %d, want 30", m.QueueLength())
		}
	})

	t.Run("nil操作被忽略", func(t *testing.T) {
		m, _ := newTestManager(nil, newFakeEngine())
		m.QueueIndexOperation(nil)
		if m.QueueLength() != 0 {
			t.Error("nil 操作不应入队")
		}
	})
}

func TestManagerEnqueuePost(t *testing.T) {
	posts := &fakePostRepo{posts: []*model.Post{
		{ID: 1, Title: "可见文章", ContentMD: "正文", IsPublished: true},
		{ID: 2, Title: "已下架", ContentMD: "正文", IsPublished: false},
	}}
	m := NewManager(nil, newFakeEngine(), newFakeIndexRepo(), posts, nil, "zh-CN")

	t.Run("可见文章入队为索引操作", func(t *testing.T) {
		if err := m.EnqueuePost(context.Background(), 1, model.IndexOpIndex); err != nil {
			t.Fatalf("EnqueuePost() error = %v", err)
		}
		m.queueMu.Lock()
		op := m.queue[len(m.queue)-1]
		m.queueMu.Unlock()
		if op.Type != model.IndexOpIndex || op.Document == nil {
			t.Errorf("op = %+v, 应是带文档的 index 操作", op)
		}
		if op.Document.Title != "可见文章" {
			t.Errorf("文档标题 = %q", op.Document.Title)
		}
	})

	t.Run("不可见文章退化为删除操作", func(t *testing.T) {
		if err := m.EnqueuePost(context.Background(), 2, model.IndexOpUpdate); err != nil {
			t.Fatalf("EnqueuePost() error = %v", err)
		}
		m.queueMu.Lock()
		op := m.queue[len(m.queue)-1]
		m.queueMu.Unlock()
		if op.Type != model.IndexOpDelete {
			t.Errorf("op.Type = %q, want delete", op.Type)
		}
	})

	t.Run("不存在的文章退化为删除操作", func(t *testing.T) {
		if err := m.EnqueuePost(context.Background(), 999, model.IndexOpIndex); err != nil {
			t.Fatalf("EnqueuePost() error = %v", err)
		}
		m.queueMu.Lock()
		op := m.queue[len(m.queue)-1]
		m.queueMu.Unlock()
		if op.Type != model.IndexOpDelete || op.EntityID == "" {
			t.Errorf("op = %+v, 应是带公共ID的 delete 操作", op)
		}
	})
}

func TestManagerGetIndexStats(t *testing.T) {
	t.Run("主引擎降级时统计标记为degraded", func(t *testing.T) {
		primary := newFakeEngine()
		primary.healthy = false
		fallback := newFakeEngine()
		m, _ := newTestManager(primary, fallback)
		m.HealthCheck(context.Background())

		stats := m.GetIndexStats(context.Background())
		if stats.Health != "degraded" {
			t.Errorf("Health = %q, want degraded", stats.Health)
		}
	})

	t.Run("无主引擎时保留降级引擎的状态", func(t *testing.T) {
		m, _ := newTestManager(nil, newFakeEngine())
		stats := m.GetIndexStats(context.Background())
		if stats.Health != "green" {
			t.Errorf("Health = %q, want green", stats.Health)
		}
	})
}

func TestManagerDeleteDocument(t *testing.T) {
	primary := newFakeEngine()
	fallback := newFakeEngine()
	m, repo := newTestManager(primary, fallback)

	if !m.DeleteDocument(context.Background(), "post", "abc") {
		t.Fatal("删除应成功")
	}
	if len(repo.deletes) != 1 || repo.deletes[0] != "post:abc" {
		t.Errorf("镜像记录应同步删除: %v", repo.deletes)
	}
}
