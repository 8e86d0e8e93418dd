package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/fanout-engine/internal/repository"
	"github.com/d60-Lab/fanout-engine/pkg/logger"
)

type replicateAction int

const (
	actionAdd replicateAction = iota + 1
	actionRemove
)

type replicateJob struct {
	action     replicateAction
	identityID string
	fanID      string
}

// FanReplicator 把关注变更异步冗余到 fans 表。
// fan-out 规划按 fans 扫收件人，冗余落地前的新粉丝会错过
// 这段窗口内的帖子（设计取舍）。
type FanReplicator struct {
	fanRepo repository.FanRepository
	ch      chan replicateJob
}

func NewFanReplicator(fanRepo repository.FanRepository, queueSize int) *FanReplicator {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &FanReplicator{fanRepo: fanRepo, ch: make(chan replicateJob, queueSize)}
}

func (r *FanReplicator) Start(workers int) func(context.Context) error {
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
					switch job.action {
					case actionAdd:
						_ = r.fanRepo.Create(ctx, job.identityID, job.fanID)
					case actionRemove:
						_ = r.fanRepo.Delete(ctx, job.identityID, job.fanID)
					}
					cancel()
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

func (r *FanReplicator) EnqueueAdd(identityID, fanID string) {
	select {
	case r.ch <- replicateJob{action: actionAdd, identityID: identityID, fanID: fanID}:
	default:
		logger.Warn("replicator queue full, drop add", zap.String("identity", identityID), zap.String("fan", fanID))
	}
}

func (r *FanReplicator) EnqueueRemove(identityID, fanID string) {
	select {
	case r.ch <- replicateJob{action: actionRemove, identityID: identityID, fanID: fanID}:
	default:
		logger.Warn("replicator queue full, drop remove", zap.String("identity", identityID), zap.String("fan", fanID))
	}
}

// QueueLen 当前积压长度（采样值）
func (r *FanReplicator) QueueLen() int { return len(r.ch) }
