package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/fanout-engine/config"
	"github.com/d60-Lab/fanout-engine/internal/model"
	"github.com/d60-Lab/fanout-engine/internal/repository"
	"github.com/d60-Lab/fanout-engine/internal/service"
	"github.com/d60-Lab/fanout-engine/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(p * float64(len(xs)))
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

type noopSender struct{}

func (noopSender) SignedRequest(ctx context.Context, acting *model.Identity, method, uri string, body []byte) error {
	return nil
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	// params
	N := 5000  // recipients following the author
	POSTS := 50
	BATCH := 256
	if s := os.Getenv("N"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			N = v
		}
	}
	if s := os.Getenv("POSTS"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			POSTS = v
		}
	}
	if s := os.Getenv("BATCH"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			BATCH = v
		}
	}

	ctx := context.Background()
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	fanoutRepo := repository.NewFanOutRepository(db)

	// seed one local author and N local recipients
	author := model.Identity{ID: "author0", Username: "author0", Domain: "bench.local", Local: true}
	_ = db.Where("id = ?", author.ID).FirstOrCreate(&author).Error
	recipients := make([]model.Identity, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		recipients[i] = model.Identity{ID: id, Username: "u" + id[:8], Domain: "bench.local", Local: true}
	}
	_ = db.CreateInBatches(&recipients, 1000).Error
	for i := 0; i < N; i++ {
		_ = followRepo.Create(ctx, recipients[i].ID, author.ID)
		_ = fanRepo.Create(ctx, author.ID, recipients[i].ID)
	}

	planner := service.NewPlanner(db, "http://bench.local")
	dispatcher := service.NewDispatcher(fanoutRepo, timelineRepo, followRepo, noopSender{})
	runner := service.NewRunner(fanoutRepo, dispatcher.Dispatch, service.SystemClock(), service.RunnerConfig{
		TryInterval: time.Minute,
		Batch:       BATCH,
	})

	// publish POSTS posts
	pubStart := time.Now()
	for i := 0; i < POSTS; i++ {
		_ = must(planner.PublishPost(ctx, author.ID, fmt.Sprintf("post %d", i), nil, nil))
	}
	pubDur := time.Since(pubStart)

	// drain the queue with explicit claim rounds and record per-round latency
	rounds := make([]time.Duration, 0, 1024)
	dispatchStart := time.Now()
	total := 0
	for {
		st := time.Now()
		n := runner.ProcessOnce(ctx)
		if n == 0 {
			break
		}
		total += n
		rounds = append(rounds, time.Since(st))
	}
	dispatchDur := time.Since(dispatchStart)

	fmt.Printf("N=%d POSTS=%d BATCH=%d\n", N, POSTS, BATCH)
	fmt.Printf("plan: %d posts in %v (%.0f posts/s)\n", POSTS, pubDur, float64(POSTS)/pubDur.Seconds())
	fmt.Printf("dispatch: %d jobs in %v (%.0f jobs/s)\n", total, dispatchDur, float64(total)/dispatchDur.Seconds())
	fmt.Printf("claim round: p50=%v p95=%v p99=%v\n", pct(rounds, 0.50), pct(rounds, 0.95), pct(rounds, 0.99))
}
