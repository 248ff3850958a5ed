/*
 * @Description: 搜索索引管理器：双写、健康路由、增量同步、全量重建与异步索引队列
 * @Author: 晚风
 * @Date: 2025-09-10 14:28:51
 * @LastEditTime: 2025-12-21 01:40:09
 * @LastEditors: 晚风
 */
package search

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/model"
	"github.com/wanfeng-x/wanfeng-blog/pkg/domain/repository"
	"github.com/wanfeng-x/wanfeng-blog/pkg/idgen"
)

const (
	// queueDrainBatch 是单次队列消费的最大条数
	queueDrainBatch = 100
)

// Manager 是搜索子系统的统一门面。
//
// 主引擎（Elasticsearch）可能为 nil 或处于降级状态；降级引擎（数据库）永远在场。
// 写入扇出到两个引擎并发执行，读取路由到健康状态偏好的引擎。
// 主引擎降级期间跳过的写入不做重试排队：下一次增量同步从关系库重新推导，
// 天然把漏掉的写入补回去。
type Manager struct {
	primary  model.SearchEngine // 可能为 nil
	fallback model.SearchEngine

	indexRepo repository.SearchIndexRepository
	postRepo  repository.PostRepository
	hotSearch *HotSearchService
	language  string

	primaryHealthy atomic.Bool
	rebuildMu      sync.Mutex  // TryLock：同一时刻只允许一个重建
	rebuilding     atomic.Bool // 定时任务据此跳过与重建冲突的周期

	syncMu     sync.Mutex
	lastSyncAt time.Time

	queueMu sync.Mutex
	queue   []*model.IndexOperation
}

// NewManager 创建搜索索引管理器。primary 可以为 nil（集群未配置）。
func NewManager(
	primary, fallback model.SearchEngine,
	indexRepo repository.SearchIndexRepository,
	postRepo repository.PostRepository,
	hotSearch *HotSearchService,
	language string,
) *Manager {
	m := &Manager{
		primary:   primary,
		fallback:  fallback,
		indexRepo: indexRepo,
		postRepo:  postRepo,
		hotSearch: hotSearch,
		language:  language,
	}
	// 初始假定主引擎可用（若存在），首次健康检查会立刻校正
	m.primaryHealthy.Store(primary != nil)
	return m
}

var _ model.SearchIndexManager = (*Manager)(nil)

// primaryUsable 判断本次操作是否应该触达主引擎
func (m *Manager) primaryUsable() bool {
	return m.primary != nil && m.primaryHealthy.Load()
}

// RebuildInProgress 返回是否有全量重建正在进行
func (m *Manager) RebuildInProgress() bool {
	return m.rebuilding.Load()
}

// Search 将读请求路由到健康状态偏好的引擎，主引擎失败时自动落回降级引擎。
func (m *Manager) Search(ctx context.Context, criteria *model.SearchCriteria) (*model.SearchResult, error) {
	if m.hotSearch != nil {
		m.hotSearch.Record(ctx, criteria.Query)
	}

	if m.primaryUsable() {
		result, err := m.primary.Search(ctx, criteria)
		if err == nil && result != nil {
			return result, nil
		}
		log.Printf("警告: 主引擎搜索失败，落回数据库引擎: %v", err)
	}
	return m.fallback.Search(ctx, criteria)
}

// fanOut 并发地在降级引擎（无条件）与主引擎（仅健康时）上执行同一个写操作，
// 任一引擎成功即整体成功。
func (m *Manager) fanOut(op func(engine model.SearchEngine) bool) bool {
	usePrimary := m.primaryUsable()

	var wg sync.WaitGroup
	var fallbackOK, primaryOK bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		fallbackOK = op(m.fallback)
	}()

	if usePrimary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			primaryOK = op(m.primary)
		}()
	}
	wg.Wait()

	return fallbackOK || primaryOK
}

// IndexDocument 双写索引文档，成功后把权威记录镜像进关系库。
func (m *Manager) IndexDocument(ctx context.Context, doc *model.SearchIndex) bool {
	if doc == nil {
		return false
	}
	ok := m.fanOut(func(engine model.SearchEngine) bool {
		return engine.IndexDocument(ctx, doc)
	})
	if ok {
		m.mirrorDocument(ctx, doc)
	}
	return ok
}

// UpdateDocument 语义上等同 IndexDocument
func (m *Manager) UpdateDocument(ctx context.Context, doc *model.SearchIndex) bool {
	return m.IndexDocument(ctx, doc)
}

// mirrorDocument 把写入成功的文档 upsert 回关系库，
// 保证后续的增量同步与重建和实际索引内容一致。
func (m *Manager) mirrorDocument(ctx context.Context, doc *model.SearchIndex) {
	if m.indexRepo == nil {
		return
	}
	if err := m.indexRepo.Upsert(ctx, doc); err != nil {
		log.Printf("警告: 镜像索引记录 (%s, %s) 失败: %v", doc.EntityType, doc.EntityID, err)
	}
}

// BulkIndex 双写批量索引。两个引擎的成功计数取较大值：
// 一侧的部分失败不应该掩盖另一侧的完整成功。
func (m *Manager) BulkIndex(ctx context.Context, docs []*model.SearchIndex) int {
	if len(docs) == 0 {
		return 0
	}

	usePrimary := m.primaryUsable()

	var wg sync.WaitGroup
	var fallbackCount, primaryCount int

	wg.Add(1)
	go func() {
		defer wg.Done()
		fallbackCount = m.fallback.BulkIndex(ctx, docs)
	}()

	if usePrimary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			primaryCount = m.primary.BulkIndex(ctx, docs)
		}()
	}
	wg.Wait()

	count := fallbackCount
	if primaryCount > count {
		count = primaryCount
	}
	if count > 0 {
		for _, doc := range docs {
			if doc != nil {
				m.mirrorDocument(ctx, doc)
			}
		}
	}
	return count
}

// DeleteDocument 双写删除，并移除关系库中的镜像记录。
func (m *Manager) DeleteDocument(ctx context.Context, entityType, entityID string) bool {
	ok := m.fanOut(func(engine model.SearchEngine) bool {
		return engine.DeleteDocument(ctx, entityType, entityID)
	})
	if ok && m.indexRepo != nil {
		if _, err := m.indexRepo.Delete(ctx, entityType, entityID); err != nil {
			log.Printf("警告: 删除索引镜像记录 (%s, %s) 失败: %v", entityType, entityID, err)
		}
	}
	return ok
}

// GetSuggestions 路由到健康状态偏好的引擎
func (m *Manager) GetSuggestions(ctx context.Context, prefix string, size int) []string {
	if m.primaryUsable() {
		if suggestions := m.primary.GetSuggestions(ctx, prefix, size); len(suggestions) > 0 {
			return suggestions
		}
	}
	return m.fallback.GetSuggestions(ctx, prefix, size)
}

// RebuildIndex 全量重建。
// 非阻塞抢占重建锁：已有重建进行中时立即返回 false。
// 两个引擎的重建并行执行，随后从关系库按 1000 条一批重新灌入。
func (m *Manager) RebuildIndex(ctx context.Context) bool {
	if !m.rebuildMu.TryLock() {
		log.Println("警告: 已有索引重建正在进行，本次请求被拒绝")
		return false
	}
	defer m.rebuildMu.Unlock()

	m.rebuilding.Store(true)
	defer m.rebuilding.Store(false)

	log.Println("开始全量重建搜索索引...")

	usePrimary := m.primaryUsable()
	var wg sync.WaitGroup
	var fallbackOK, primaryOK bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		fallbackOK = m.fallback.RebuildIndex(ctx)
	}()
	if usePrimary {
		wg.Add(1)
		go func() {
			defer wg.Done()
			primaryOK = m.primary.RebuildIndex(ctx)
		}()
	}
	wg.Wait()

	if !fallbackOK && !primaryOK {
		log.Println("错误: 两个引擎的索引重建都失败了")
		return false
	}

	// 从权威数据源重新灌入
	offset := 0
	total := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("警告: 索引重建被取消，已灌入 %d 条", total)
			return false
		default:
		}

		posts, err := m.postRepo.ListPublished(ctx, offset, rebuildBatchSize)
		if err != nil {
			log.Printf("错误: 重建拉取文章失败 (offset=%d): %v", offset, err)
			return false
		}
		if len(posts) == 0 {
			break
		}

		docs := make([]*model.SearchIndex, 0, len(posts))
		for _, post := range posts {
			doc, buildErr := BuildSearchIndexFromPost(post, m.language)
			if buildErr != nil {
				log.Printf("警告: 跳过文章 %d: %v", post.ID, buildErr)
				continue
			}
			docs = append(docs, doc)
		}
		total += m.BulkIndex(ctx, docs)
		offset += rebuildBatchSize
	}

	log.Printf("✅ 全量重建完成，共灌入 %d 条索引", total)
	return true
}

// IncrementalSync 重新索引 since 之后发生变更的文档。
// since 为零值时使用上次同步水位。水位在同步结束后无条件推进：
// 失败条目的 lastUpdatedAt 没有变化，下一轮仍会被捞出来，属于至少一次语义。
func (m *Manager) IncrementalSync(ctx context.Context, since time.Time) bool {
	if since.IsZero() {
		m.syncMu.Lock()
		since = m.lastSyncAt
		m.syncMu.Unlock()
	}

	docs, err := m.indexRepo.ListUpdatedSince(ctx, since)
	if err != nil {
		log.Printf("错误: 增量同步查询变更记录失败: %v", err)
		return false
	}

	if len(docs) > 0 {
		synced := m.BulkIndex(ctx, docs)
		log.Printf("增量同步完成: 变更 %d 条，写入 %d 条", len(docs), synced)
	}

	m.syncMu.Lock()
	m.lastSyncAt = time.Now()
	m.syncMu.Unlock()
	return true
}

// HealthCheck 探测两个引擎，刷新主引擎健康标记。
// 整体健康是 OR 语义：任一引擎活着，搜索就还能服务。
func (m *Manager) HealthCheck(ctx context.Context) bool {
	primaryOK := false
	if m.primary != nil {
		primaryOK = m.primary.IsHealthy(ctx)
	}

	wasHealthy := m.primaryHealthy.Swap(primaryOK)
	if wasHealthy && !primaryOK {
		log.Println("警告: 主搜索引擎探测失败，读写降级到数据库引擎")
	} else if !wasHealthy && primaryOK {
		log.Println("✅ 主搜索引擎恢复，读写重新路由到集群")
	}

	fallbackOK := m.fallback.IsHealthy(ctx)
	return primaryOK || fallbackOK
}

// EnqueuePost 把一篇文章的索引维护操作放入队列，由定时任务异步消费。
// 文章已不可见（下架或删除）时，Index / Update 退化为一次删除操作。
func (m *Manager) EnqueuePost(ctx context.Context, postID uint, opType model.IndexOperationType) error {
	publicID, err := idgen.GeneratePublicID(postID, idgen.EntityTypeIDPost)
	if err != nil {
		return err
	}

	if opType != model.IndexOpDelete {
		post, findErr := m.postRepo.FindByID(ctx, postID)
		if findErr != nil {
			return findErr
		}
		if post != nil && post.Indexable() {
			doc, buildErr := BuildSearchIndexFromPost(post, m.language)
			if buildErr != nil {
				return buildErr
			}
			m.QueueIndexOperation(&model.IndexOperation{
				Type:       opType,
				EntityType: model.EntityTypePost,
				EntityID:   doc.EntityID,
				Document:   doc,
			})
			return nil
		}
	}

	m.QueueIndexOperation(&model.IndexOperation{
		Type:       model.IndexOpDelete,
		EntityType: model.EntityTypePost,
		EntityID:   publicID,
	})
	return nil
}

// QueueIndexOperation 把索引操作放入内存队列。
// 队列不持久化：进程重启丢失的操作由增量同步兜底。
func (m *Manager) QueueIndexOperation(op *model.IndexOperation) {
	if op == nil {
		return
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	m.queueMu.Lock()
	m.queue = append(m.queue, op)
	m.queueMu.Unlock()
}

// QueueLength 返回当前队列长度
func (m *Manager) QueueLength() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return len(m.queue)
}

// ProcessIndexQueue 单次消费至多 100 个操作：按操作类型分组，
// Index / Update 合并成一次 BulkIndex，Delete 逐个执行。
// 分组批处理不保证同一实体上 Index 与 Delete 的入队顺序，这是已知限制；
// 最终一致性由增量同步保证。
func (m *Manager) ProcessIndexQueue(ctx context.Context) {
	m.queueMu.Lock()
	n := len(m.queue)
	if n == 0 {
		m.queueMu.Unlock()
		return
	}
	if n > queueDrainBatch {
		n = queueDrainBatch
	}
	batch := m.queue[:n]
	m.queue = m.queue[n:]
	m.queueMu.Unlock()

	var upserts []*model.SearchIndex
	var deletes []*model.IndexOperation
	for _, op := range batch {
		switch op.Type {
		case model.IndexOpIndex, model.IndexOpUpdate:
			if op.Document != nil {
				upserts = append(upserts, op.Document)
			}
		case model.IndexOpDelete:
			deletes = append(deletes, op)
		default:
			log.Printf("警告: 未知的索引操作类型 '%s'，已丢弃", op.Type)
		}
	}

	if len(upserts) > 0 {
		written := m.BulkIndex(ctx, upserts)
		log.Printf("索引队列: 批量写入 %d/%d 条", written, len(upserts))
	}
	for _, op := range deletes {
		if !m.DeleteDocument(ctx, op.EntityType, op.EntityID) {
			log.Printf("警告: 索引队列删除 (%s, %s) 失败", op.EntityType, op.EntityID)
		}
	}
}

// GetIndexStats 返回健康状态偏好引擎的统计
func (m *Manager) GetIndexStats(ctx context.Context) *model.IndexStats {
	if m.primaryUsable() {
		return m.primary.GetIndexStats(ctx)
	}
	stats := m.fallback.GetIndexStats(ctx)
	if stats != nil && m.primary != nil {
		// 主引擎在场但不可用，整体处于降级
		stats.Health = "degraded"
	}
	return stats
}
