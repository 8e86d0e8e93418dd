package handler

import (
	"github.com/d60-Lab/fanout-engine/internal/repository"
	"github.com/d60-Lab/fanout-engine/internal/service"
)

// Handler API 层依赖集合
type Handler struct {
	relService  service.RelationshipService
	planner     *service.Planner
	timeline    repository.TimelineRepository
	fanouts     repository.FanOutRepository
	maxAttempts int
}

func New(
	relService service.RelationshipService,
	planner *service.Planner,
	timeline repository.TimelineRepository,
	fanouts repository.FanOutRepository,
	maxAttempts int,
) *Handler {
	return &Handler{
		relService:  relService,
		planner:     planner,
		timeline:    timeline,
		fanouts:     fanouts,
		maxAttempts: maxAttempts,
	}
}
