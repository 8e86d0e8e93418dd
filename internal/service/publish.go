package service

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

// Planner 事务内落地活动本体并为每个收件人生成一条 FanOut。
// 收件人 = 行为人的粉丝（分页扫 fans 冗余表）∪ 被提及身份 ∪ 本地回显，
// 互动类再加上帖子作者。本地/远端都生成，投递行为由调度矩阵区分。
type Planner struct {
	db       *gorm.DB
	fanPage  int
	localURI string // 本站对象 URI 前缀，如 https://example.com
}

func NewPlanner(db *gorm.DB, localURI string) *Planner {
	return &Planner{db: db, fanPage: 500, localURI: localURI}
}

// PublishPost 发帖：写 post（含提及关联）并生成 post 类 fan-out
func (p *Planner) PublishPost(ctx context.Context, authorID, content string, inReplyTo *string, mentionIDs []string) (*model.Post, error) {
	post := &model.Post{
		ID:       uuid.New().String(),
		AuthorID: authorID,
		Content:  content,
	}
	post.ObjectURI = fmt.Sprintf("%s/posts/%s", p.localURI, post.ID)
	post.InReplyTo = inReplyTo

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mentions []*model.Identity
		if len(mentionIDs) > 0 {
			if err := tx.Find(&mentions, "id IN ?", mentionIDs).Error; err != nil {
				return err
			}
			if len(mentions) != len(mentionIDs) {
				return errors.New("mentioned identity does not exist")
			}
		}
		post.Mentions = mentions
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return p.fanOutPost(ctx, tx, post, model.FanOutPost)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// EditPost 编辑：更新内容并生成 post_edited fan-out
func (p *Planner) EditPost(ctx context.Context, postID, content string) (*model.Post, error) {
	var post model.Post
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Mentions").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		if post.Deleted {
			return errors.New("cannot edit a deleted post")
		}
		if err := tx.Model(&post).Update("content", content).Error; err != nil {
			return err
		}
		post.Content = content
		return p.fanOutPost(ctx, tx, &post, model.FanOutPostEdited)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost 删帖：行保留（fan-out 解析还要用），打 deleted 标记
func (p *Planner) DeletePost(ctx context.Context, postID string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Preload("Mentions").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Update("deleted", true).Error; err != nil {
			return err
		}
		return p.fanOutPost(ctx, tx, &post, model.FanOutPostDeleted)
	})
}

// AddInteraction 点赞/转发：写互动并生成 interaction fan-out
func (p *Planner) AddInteraction(ctx context.Context, actorID, postID string, kind model.InteractionKind) (*model.PostInteraction, error) {
	inter := &model.PostInteraction{
		ID:         uuid.New().String(),
		Kind:       kind,
		IdentityID: actorID,
		PostID:     postID,
	}
	inter.ActivityURI = fmt.Sprintf("%s/interactions/%s", p.localURI, inter.ID)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		if err := tx.Create(inter).Error; err != nil {
			return err
		}
		return p.fanOutInteraction(ctx, tx, inter, post.AuthorID, model.FanOutInteraction)
	})
	if err != nil {
		return nil, err
	}
	return inter, nil
}

// UndoInteraction 撤销互动：行保留，生成 undo_interaction fan-out
func (p *Planner) UndoInteraction(ctx context.Context, interactionID string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inter model.PostInteraction
		if err := tx.Preload("Post").First(&inter, "id = ?", interactionID).Error; err != nil {
			return err
		}
		if err := tx.Model(&inter).Update("undone", true).Error; err != nil {
			return err
		}
		return p.fanOutInteraction(ctx, tx, &inter, inter.Post.AuthorID, model.FanOutUndoInteraction)
	})
}

func (p *Planner) fanOutPost(ctx context.Context, tx *gorm.DB, post *model.Post, kind model.FanOutKind) error {
	recipients := map[string]struct{}{post.AuthorID: {}} // 本地回显
	for _, m := range post.Mentions {
		recipients[m.ID] = struct{}{}
	}
	if err := p.collectFans(ctx, tx, post.AuthorID, recipients); err != nil {
		return err
	}
	return p.createJobs(tx, recipients, kind, post.ID)
}

func (p *Planner) fanOutInteraction(ctx context.Context, tx *gorm.DB, inter *model.PostInteraction, postAuthorID string, kind model.FanOutKind) error {
	recipients := map[string]struct{}{postAuthorID: {}}
	if err := p.collectFans(ctx, tx, inter.IdentityID, recipients); err != nil {
		return err
	}
	// 自己的互动不用通知自己
	delete(recipients, inter.IdentityID)
	return p.createJobs(tx, recipients, kind, inter.ID)
}

// collectFans 分页扫冗余粉丝表
func (p *Planner) collectFans(ctx context.Context, tx *gorm.DB, identityID string, into map[string]struct{}) error {
	offset := 0
	for {
		var fans []*model.Fan
		if err := tx.WithContext(ctx).
			Where("identity_id = ?", identityID).
			Offset(offset).Limit(p.fanPage).
			Find(&fans).Error; err != nil {
			return err
		}
		for _, f := range fans {
			into[f.FanID] = struct{}{}
		}
		if len(fans) < p.fanPage {
			return nil
		}
		offset += p.fanPage
	}
}

func (p *Planner) createJobs(tx *gorm.DB, recipients map[string]struct{}, kind model.FanOutKind, subjectID string) error {
	jobs := make([]*model.FanOut, 0, len(recipients))
	for id := range recipients {
		fo, err := model.NewFanOut(id, kind, subjectID)
		if err != nil {
			return err
		}
		jobs = append(jobs, fo)
	}
	if len(jobs) == 0 {
		return nil
	}
	return tx.CreateInBatches(jobs, 200).Error
}
