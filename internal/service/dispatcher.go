package service

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/fanout-engine/internal/activitypub"
	"github.com/d60-Lab/fanout-engine/internal/model"
	"github.com/d60-Lab/fanout-engine/internal/repository"
)

// FollowSource 收件人的正向关注集合快照读。
// FollowRepository 与 cache.FollowCache 都满足它。
type FollowSource interface {
	FollowingIDSet(ctx context.Context, identityID string) (map[string]struct{}, error)
}

// Sender 出站签名投递（delivery.Transport 的契约，测试用假实现）
type Sender interface {
	SignedRequest(ctx context.Context, acting *model.Identity, method, uri string, body []byte) error
}

// Dispatcher 按 (kind, 收件人本地性) 执行八种投递行为之一。
// Dispatch 返回 nil 表示本次投递完成，由执行器提交 new→sent；
// 返回错误则状态不动，等下一轮重试。所有副作用可安全重放。
type Dispatcher struct {
	fanouts  repository.FanOutRepository
	timeline repository.TimelineRepository
	follows  FollowSource
	send     Sender
	tracer   trace.Tracer
}

func NewDispatcher(
	fanouts repository.FanOutRepository,
	timeline repository.TimelineRepository,
	follows FollowSource,
	send Sender,
) *Dispatcher {
	return &Dispatcher{
		fanouts:  fanouts,
		timeline: timeline,
		follows:  follows,
		send:     send,
		tracer:   otel.Tracer("fanout-engine/dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, id string) error {
	ctx, span := d.tracer.Start(ctx, "fanout.dispatch")
	defer span.End()

	fo, err := d.fanouts.ResolveFull(ctx, id)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "resolve fan-out %s", id), ErrResolution)
	}
	span.SetAttributes(
		attribute.String("fanout.kind", string(fo.Kind)),
		attribute.Bool("fanout.recipient_local", fo.Identity.Local),
	)

	switch {
	// 本地帖子的新建 / 编辑：时间线写入决策 + 提及检查
	case (fo.Kind == model.FanOutPost || fo.Kind == model.FanOutPostEdited) && fo.Identity.Local:
		return d.localPost(ctx, fo)

	// 远端新建：Create 文档，由帖子作者签名发往收件箱
	case fo.Kind == model.FanOutPost && !fo.Identity.Local:
		return d.deliver(ctx, fo.SubjectPost.Author, fo.Identity, activitypub.Create(fo.SubjectPost))

	// 远端编辑：Update 文档
	case fo.Kind == model.FanOutPostEdited && !fo.Identity.Local:
		return d.deliver(ctx, fo.SubjectPost.Author, fo.Identity, activitypub.Update(fo.SubjectPost))

	// 本地删除：清掉该收件人时间线上这篇帖子的全部条目
	case fo.Kind == model.FanOutPostDeleted && fo.Identity.Local:
		return d.timeline.DeleteByPost(ctx, fo.IdentityID, fo.SubjectPost.ID)

	// 远端删除：Delete 文档
	case fo.Kind == model.FanOutPostDeleted && !fo.Identity.Local:
		return d.deliver(ctx, fo.SubjectPost.Author, fo.Identity, activitypub.Delete(fo.SubjectPost))

	// 本地互动：直接写一条互动时间线条目
	case fo.Kind == model.FanOutInteraction && fo.Identity.Local:
		return d.timeline.AddInteraction(ctx, fo.IdentityID, fo.SubjectInteraction.ID)

	// 远端互动：由互动发起者签名投递
	case fo.Kind == model.FanOutInteraction && !fo.Identity.Local:
		return d.deliver(ctx, fo.SubjectInteraction.Identity, fo.Identity, activitypub.Interaction(fo.SubjectInteraction))

	// 本地撤销互动：删对应时间线条目
	case fo.Kind == model.FanOutUndoInteraction && fo.Identity.Local:
		return d.timeline.DeleteByInteraction(ctx, fo.IdentityID, fo.SubjectInteraction.ID)

	// 远端撤销互动：Undo 文档
	case fo.Kind == model.FanOutUndoInteraction && !fo.Identity.Local:
		return d.deliver(ctx, fo.SubjectInteraction.Identity, fo.Identity, activitypub.Undo(fo.SubjectInteraction))

	default:
		err := errors.Mark(
			errors.Newf("cannot fan out kind=%s local=%t", fo.Kind, fo.Identity.Local),
			ErrUnclassified,
		)
		// 逻辑错也留在 new 里按策略重试，但每次都上报，避免静默空转
		sentry.CaptureException(err)
		return err
	}
}

// localPost 本地时间线写入决策。
// 回复只有在「关注作者 且 关注至少一个被提及者」时才进时间线，
// 挡掉已关注账号回复陌生人刷出来的噪音；非回复一律写入。
// 收件人自己被提及时独立追加一条 mentioned 条目，不受回复过滤影响。
func (d *Dispatcher) localPost(ctx context.Context, fo *model.FanOut) error {
	post := fo.SubjectPost
	mentioned := post.MentionIDSet()
	followed, err := d.follows.FollowingIDSet(ctx, fo.IdentityID)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "load follow set"), ErrResolution)
	}

	add := true
	if post.InReplyTo != nil {
		_, followsAuthor := followed[post.AuthorID]
		add = followsAuthor && intersects(mentioned, followed)
	}
	if add {
		if err := d.timeline.AddPost(ctx, fo.IdentityID, post.ID); err != nil {
			return err
		}
	}
	if _, ok := mentioned[fo.IdentityID]; ok {
		if err := d.timeline.AddMentioned(ctx, fo.IdentityID, post.ID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, acting *model.Identity, recipient *model.Identity, doc activitypub.Document) error {
	body, err := activitypub.Canonicalise(doc)
	if err != nil {
		return errors.Wrap(err, "canonicalise activity")
	}
	if err := d.send.SignedRequest(ctx, acting, http.MethodPost, recipient.InboxURI, body); err != nil {
		return errors.Mark(errors.Wrapf(err, "deliver to %s", recipient.InboxURI), ErrDelivery)
	}
	return nil
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
