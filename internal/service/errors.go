package service

import "github.com/cockroachdb/errors"

// 调度失败分三类，用 marker + errors.Is 判别：
// 前两类是瞬态，按固定间隔重试；Unclassified 是逻辑错，
// 默认仍走同一重试策略（stator.max_attempts 可改成死信）。
var (
	// ErrResolution 任务引用的数据取不到（悬空引用等）
	ErrResolution = errors.New("fan-out resolution failed")
	// ErrDelivery 出站投递失败或超时
	ErrDelivery = errors.New("outbound delivery failed")
	// ErrUnclassified (kind, locality) 组合不在调度矩阵里
	ErrUnclassified = errors.New("unclassified fan-out")
)
