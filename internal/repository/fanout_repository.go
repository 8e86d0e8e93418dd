package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

type FanOutRepository interface {
	Create(ctx context.Context, fo *model.FanOut) error
	// ResolveFull 连同收件身份与主体（帖子或互动）一次取全，调度时不再补查
	ResolveFull(ctx context.Context, id string) (*model.FanOut, error)
	// ClaimDue 认领一批到期的 new 任务并盖章 last_attempt / attempts。
	// maxAttempts > 0 时超限任务不再被认领（死信，只能人工处理）。
	ClaimDue(ctx context.Context, now time.Time, interval time.Duration, limit, maxAttempts int) ([]string, error)
	MarkSent(ctx context.Context, id string) error
	CountByState(ctx context.Context) (map[model.FanOutState]int64, error)
	CountDead(ctx context.Context, maxAttempts int) (int64, error)
	// Reschedule 人工重试：清掉认领痕迹
	Reschedule(ctx context.Context, id string) error
	PruneSent(ctx context.Context, olderThan time.Time) (int64, error)
}

type fanOutRepository struct{ db *gorm.DB }

func NewFanOutRepository(db *gorm.DB) FanOutRepository { return &fanOutRepository{db: db} }

func (r *fanOutRepository) Create(ctx context.Context, fo *model.FanOut) error {
	return r.db.WithContext(ctx).Create(fo).Error
}

func (r *fanOutRepository) ResolveFull(ctx context.Context, id string) (*model.FanOut, error) {
	var fo model.FanOut
	err := r.db.WithContext(ctx).
		Preload("Identity").
		Preload("SubjectPost.Author").
		Preload("SubjectPost.Mentions").
		Preload("SubjectInteraction.Identity").
		Preload("SubjectInteraction.Post.Author").
		First(&fo, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if fo.Identity == nil {
		return nil, errors.Newf("fan-out %s: recipient identity missing", id)
	}
	// 悬空外键在这里暴露，而不是在调度分支里 panic。
	// 只校验引用了的主体能否取到；kind 的合法性归调度矩阵判
	if fo.SubjectPostID != nil && fo.SubjectPost == nil {
		return nil, errors.Newf("fan-out %s: subject post %s missing", id, *fo.SubjectPostID)
	}
	if fo.SubjectInteractionID != nil && fo.SubjectInteraction == nil {
		return nil, errors.Newf("fan-out %s: subject interaction %s missing", id, *fo.SubjectInteractionID)
	}
	if fo.SubjectPostID == nil && fo.SubjectInteractionID == nil {
		return nil, errors.Newf("fan-out %s: no subject reference", id)
	}
	return &fo, nil
}

func (r *fanOutRepository) ClaimDue(ctx context.Context, now time.Time, interval time.Duration, limit, maxAttempts int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.FanOut{}).
			Where("state = ?", model.FanOutStateNew).
			Where("last_attempt IS NULL OR last_attempt <= ?", now.Add(-interval))
		if maxAttempts > 0 {
			q = q.Where("attempts < ?", maxAttempts)
		}
		// sqlite（测试）没有行锁，认领靠单进程即可
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Order("created_at").Limit(limit).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&model.FanOut{}).Where("id IN ?", ids).
			Updates(map[string]any{
				"last_attempt": now,
				"attempts":     gorm.Expr("attempts + 1"),
			}).Error
	})
	return ids, err
}

func (r *fanOutRepository) MarkSent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.FanOut{}).
		Where("id = ? AND state = ?", id, model.FanOutStateNew).
		Update("state", model.FanOutStateSent).Error
}

func (r *fanOutRepository) CountByState(ctx context.Context) (map[model.FanOutState]int64, error) {
	type row struct {
		State model.FanOutState
		Cnt   int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&model.FanOut{}).
		Select("state, count(*) as cnt").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make(map[model.FanOutState]int64, len(rows))
	for _, rw := range rows {
		res[rw.State] = rw.Cnt
	}
	return res, nil
}

func (r *fanOutRepository) CountDead(ctx context.Context, maxAttempts int) (int64, error) {
	if maxAttempts <= 0 {
		return 0, nil
	}
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.FanOut{}).
		Where("state = ? AND attempts >= ?", model.FanOutStateNew, maxAttempts).
		Count(&cnt).Error
	return cnt, err
}

func (r *fanOutRepository) Reschedule(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.FanOut{}).
		Where("id = ? AND state = ?", id, model.FanOutStateNew).
		Updates(map[string]any{"last_attempt": nil, "attempts": 0}).Error
}

func (r *fanOutRepository) PruneSent(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", model.FanOutStateSent, olderThan).
		Delete(&model.FanOut{})
	return res.RowsAffected, res.Error
}
