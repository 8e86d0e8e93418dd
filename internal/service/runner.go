package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/fanout-engine/pkg/logger"
)

// Clock 注入的时钟，调度判定不读环境时间
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 真实时钟
func SystemClock() Clock { return systemClock{} }

// Queue 执行器轮询的持久实体队列。ClaimDue 必须保证同一 id
// 不会被并发认领（认领即盖章），否则幂等契约不成立。
type Queue interface {
	ClaimDue(ctx context.Context, now time.Time, interval time.Duration, limit, maxAttempts int) ([]string, error)
	MarkSent(ctx context.Context, id string) error
}

// Handler 非终态实体的处理函数；返回 nil 即提交状态迁移
type Handler func(ctx context.Context, id string) error

// RunnerConfig 见 config.StatorConfig
type RunnerConfig struct {
	TryInterval  time.Duration // 两次尝试之间的最小间隔
	PollInterval time.Duration
	Workers      int
	Batch        int
	MaxAttempts  int // 0 = 无限重试
}

// Runner 通用重试执行器：轮询非终态实体，认领后调 handler，
// 成功提交迁移，失败留在原状态等下一轮。
// 不保证跨任务顺序：同一主体的 create 和 edit 可能乱序投递。
type Runner struct {
	queue   Queue
	handler Handler
	clock   Clock
	cfg     RunnerConfig
}

func NewRunner(queue Queue, handler Handler, clock Clock, cfg RunnerConfig) *Runner {
	if cfg.TryInterval <= 0 {
		cfg.TryInterval = 300 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 64
	}
	return &Runner{queue: queue, handler: handler, clock: clock, cfg: cfg}
}

// Start 启动 worker 轮询；返回停止函数
func (r *Runner) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < r.cfg.Workers; i++ {
		go r.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (r *Runner) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = r.ProcessOnce(context.Background())
		}
	}
}

// ProcessOnce 认领并处理一批到期实体，返回处理（含失败）条数
func (r *Runner) ProcessOnce(ctx context.Context) int {
	ids, err := r.queue.ClaimDue(ctx, r.clock.Now(), r.cfg.TryInterval, r.cfg.Batch, r.cfg.MaxAttempts)
	if err != nil {
		logger.Error("claim due entities", zap.Error(err))
		return 0
	}
	for _, id := range ids {
		if err := r.handler(ctx, id); err != nil {
			// 状态不动，间隔过后会再被认领
			logger.Warn("handler failed, will retry",
				zap.String("id", id),
				zap.Duration("retry_in", r.cfg.TryInterval),
				zap.Error(err))
			continue
		}
		if err := r.queue.MarkSent(ctx, id); err != nil {
			// 提交失败会导致重放，handler 副作用必须幂等
			logger.Error("commit transition", zap.String("id", id), zap.Error(err))
		}
	}
	return len(ids)
}
