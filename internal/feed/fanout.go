package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/timeline-engine/internal/model"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

// Publisher 在一个事务内落地 Status 与 Outbox 事件；标签挂接在事务外完成
type Publisher struct {
	db   *gorm.DB
	tags repository.TagRepository
}

func NewPublisher(db *gorm.DB, tags repository.TagRepository) *Publisher {
	return &Publisher{db: db, tags: tags}
}

// Publish 写入状态并登记一条待扇出的 outbox 记录
func (p *Publisher) Publish(ctx context.Context, status *model.Status, tagNames []string) error {
	now := time.Now()
	if status.CreatedAt.IsZero() {
		status.CreatedAt = now
	}
	status.UpdatedAt = now
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(status).Error; err != nil {
			return err
		}
		out := &model.Outbox{
			ID:        uuid.New().String(),
			StatusID:  status.ID,
			AccountID: status.AccountID,
			CreatedAt: now,
			Status:    model.OutboxPending,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return err
	}
	if len(tagNames) > 0 {
		return p.tags.Attach(ctx, status.ID, tagNames)
	}
	return nil
}

// FanoutWorker 从 outbox 拉取事件并把状态写进各条时间线
type FanoutWorker struct {
	db           *gorm.DB
	cache        *Cache
	statuses     repository.StatusRepository
	rels         repository.RelationshipRepository
	tags         repository.TagRepository
	workers      int
	claimLimit   int
	pollInterval time.Duration
	metricsCh    chan time.Duration // outbox 创建到扇出完成的延迟
}

func NewFanoutWorker(db *gorm.DB, cache *Cache, statuses repository.StatusRepository, rels repository.RelationshipRepository, tags repository.TagRepository, workers, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 4
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &FanoutWorker{
		db:           db,
		cache:        cache,
		statuses:     statuses,
		rels:         rels,
		tags:         tags,
		workers:      workers,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		metricsCh:    make(chan time.Duration, 65536),
	}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理 outbox；返回停止函数。
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < w.workers; i++ {
		go w.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := w.ProcessOnce(context.Background()); err != nil {
				logger.Warn("fanout batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce claim 一批 pending outbox 并逐条扇出
func (w *FanoutWorker) ProcessOnce(ctx context.Context) error {
	var batch []model.Outbox
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", model.OutboxPending).
			Order("created_at").
			Limit(w.claimLimit).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).
			Update("status", model.OutboxProcessing).Error
	})
	if err != nil {
		return err
	}

	for _, b := range batch {
		count, err := w.deliver(ctx, b.StatusID)
		if err != nil {
			logger.Warn("fanout delivery failed", zap.Int64("status", b.StatusID), zap.Error(err))
			continue
		}
		now := time.Now()
		if err := w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]interface{}{"status": model.OutboxDone, "processed_at": now, "fanout_count": count}).Error; err != nil {
			return err
		}
		if !b.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(b.CreatedAt):
			default:
			}
		}
	}
	return nil
}

// deliver 把一条状态追加到它应出现的每条时间线，返回写入次数
func (w *FanoutWorker) deliver(ctx context.Context, statusID int64) (int64, error) {
	rows, err := w.statuses.GetByIDs(ctx, []int64{statusID})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		// 已被删除，无需扇出
		return 0, nil
	}
	status := rows[0]

	var written int64

	// 作者自己的 home 加上所有粉丝的 home
	followers, err := w.rels.FollowerIDs(ctx, status.AccountID)
	if err != nil {
		return written, err
	}
	for _, ownerID := range append(followers, status.AccountID) {
		if err := w.cache.Append(ctx, KindHome, ownerID, status.ID); err != nil {
			return written, err
		}
		written++
	}

	// 公共流只收顶层原创的公开状态
	if status.Visibility == model.VisibilityPublic && !status.Reply() && !status.Reblog() {
		if err := w.cache.Append(ctx, KindPublic, 0, status.ID); err != nil {
			return written, err
		}
		written++

		names, err := w.tags.NamesForStatus(ctx, status.ID)
		if err != nil {
			return written, err
		}
		for _, name := range names {
			tag, err := w.tags.FindOrCreate(ctx, name)
			if err != nil {
				return written, err
			}
			if err := w.cache.Append(ctx, KindTag, tag.ID, status.ID); err != nil {
				return written, err
			}
			written++
		}
	}

	// 圈组流只收已过审的状态
	if status.GroupID != 0 && status.ApprovalState == model.ApprovalApproved {
		if err := w.cache.Append(ctx, KindGroup, status.GroupID, status.ID); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// RemoveFromTimelines 删除状态时对称地清掉各条时间线里的残留
func (w *FanoutWorker) RemoveFromTimelines(ctx context.Context, status *model.Status) error {
	followers, err := w.rels.FollowerIDs(ctx, status.AccountID)
	if err != nil {
		return err
	}
	for _, ownerID := range append(followers, status.AccountID) {
		if err := w.cache.Remove(ctx, KindHome, ownerID, status.ID); err != nil {
			return err
		}
	}
	if err := w.cache.Remove(ctx, KindPublic, 0, status.ID); err != nil {
		return err
	}
	names, err := w.tags.NamesForStatus(ctx, status.ID)
	if err != nil {
		return err
	}
	for _, name := range names {
		tag, err := w.tags.FindOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := w.cache.Remove(ctx, KindTag, tag.ID, status.ID); err != nil {
			return err
		}
	}
	if status.GroupID != 0 {
		if err := w.cache.Remove(ctx, KindGroup, status.GroupID, status.ID); err != nil {
			return err
		}
	}
	return nil
}
