package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/fanout-engine/internal/repository"
	"github.com/d60-Lab/fanout-engine/pkg/logger"
)

// Pruner 周期清理已终态的 fan-out 行（cron 挂在 cmd/server）
type Pruner struct {
	fanouts repository.FanOutRepository
	clock   Clock
	after   time.Duration
}

func NewPruner(fanouts repository.FanOutRepository, clock Clock, after time.Duration) *Pruner {
	return &Pruner{fanouts: fanouts, clock: clock, after: after}
}

func (p *Pruner) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := p.fanouts.PruneSent(ctx, p.clock.Now().Add(-p.after))
	if err != nil {
		logger.Error("prune sent fan-outs", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("pruned sent fan-outs", zap.Int64("rows", n))
	}
}
