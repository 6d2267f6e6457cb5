package trending

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/timeline-engine/internal/faststore"
	"github.com/d60-Lab/timeline-engine/internal/repository"
	"github.com/d60-Lab/timeline-engine/pkg/logger"
)

type useJob struct {
	tagName   string
	accountID int64
	at        time.Time
	enqAt     time.Time
}

// Recorder 异步记录标签使用：热点路径只入队，落库和写桶在 worker 里完成
type Recorder struct {
	tags      repository.TagRepository
	store     *faststore.Store
	ch        chan useJob
	metricsCh chan time.Duration
}

func NewRecorder(tags repository.TagRepository, store *faststore.Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Recorder{
		tags:      tags,
		store:     store,
		ch:        make(chan useJob, queueSize),
		metricsCh: make(chan time.Duration, 65536),
	}
}

// Use enqueues one tag use by one account. Queue overflow drops the
// observation: trending data is approximate by construction and a
// dropped sample is cheaper than backpressure on the publish path.
func (r *Recorder) Use(tagName string, accountID int64, at time.Time) {
	select {
	case r.ch <- useJob{tagName: tagName, accountID: accountID, at: at, enqAt: time.Now()}:
	default:
		logger.Warn("trending queue full, drop use", zap.String("tag", tagName), zap.Int64("account", accountID))
	}
}

func (r *Recorder) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-r.ch:
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					if err := r.record(ctx, job); err != nil {
						logger.Warn("trending record failed", zap.String("tag", job.tagName), zap.Error(err))
					}
					cancel()
					if !job.enqAt.IsZero() {
						select {
						case r.metricsCh <- time.Since(job.enqAt):
						default:
						}
					}
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 等待队列自然排空一小段时间
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			default:
				if len(r.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (r *Recorder) record(ctx context.Context, job useJob) error {
	tag, err := r.tags.FindOrCreate(ctx, job.tagName)
	if err != nil {
		return err
	}
	day := dayKey(job.at)
	member := strconv.FormatInt(job.accountID, 10)
	// 去重计数按账号而不是按次：同一人一天刷一百次只算一次
	if err := r.store.PFAdd(ctx, activityKey(tag.ID, day), member, bucketTTL); err != nil {
		return err
	}
	if _, err := r.store.SAdd(ctx, usedKey(day), strconv.FormatInt(tag.ID, 10)); err != nil {
		return err
	}
	return r.store.Expire(ctx, usedKey(day), bucketTTL)
}

// Metrics 返回记录落地耗时的只读通道。
func (r *Recorder) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (r *Recorder) QueueLen() int { return len(r.ch) }

const bucketTTL = 48 * time.Hour

func dayKey(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

func activityKey(tagID int64, day string) string {
	return fmt.Sprintf("activity:tags:%d:%s", tagID, day)
}

func usedKey(day string) string {
	return "trending:tags:used:" + day
}
