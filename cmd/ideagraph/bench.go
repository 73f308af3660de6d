package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

// benchCmd 压测关注写入、粉丝索引复制与新想法扇出
func benchCmd() *cobra.Command {
	var n, conc, page int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Seed a celebrity with N followers and measure follow and fan-out latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return a.bench(cmd.Context(), n, conc, page)
		},
	}
	cmd.Flags().IntVar(&n, "n", 10000, "number of followers")
	cmd.Flags().IntVar(&conc, "conc", 8, "concurrent follow callers")
	cmd.Flags().IntVar(&page, "page", 50, "page size for list queries")
	return cmd
}

func (a *app) bench(ctx context.Context, n, conc, page int) error {
	if conc > n {
		conc = n
	}
	celeb, err := a.seedUser(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, n)
	for i := range ids {
		u, err := a.seedUser(ctx)
		if err != nil {
			return err
		}
		ids[i] = u.ID
	}

	stopReplicator := a.replicator.Start(a.cfg.Worker.ReplicatorWorkers)

	feed := make(chan string, n)
	for _, id := range ids {
		feed <- id
	}
	close(feed)
	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, n)
		failed    int
		wg        sync.WaitGroup
	)
	t0 := time.Now()
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range feed {
				st := time.Now()
				_, err := a.services.Relations.Follow(ctx, id, celeb.ID)
				d := time.Since(st)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					latencies = append(latencies, d)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	followDur := time.Since(t0)

	drainStart := time.Now()
	if err := stopReplicator(ctx); err != nil {
		return err
	}
	drainDur := time.Since(drainStart)

	q0 := time.Now()
	if _, err := a.services.Relations.ListFollowers(ctx, celeb.ID, 1, page); err != nil {
		return err
	}
	fansDur := time.Since(q0)

	// 新想法扇出：outbox 清空即视为完成
	stopFanout := a.fanout.Start()
	t1 := time.Now()
	if _, err := a.services.Ideas.CreateIdea(ctx, celeb.ID, service.IdeaInput{
		Title:    "bench " + celeb.ID[:8],
		Body:     "fan-out benchmark",
		Category: model.DefaultCategories[0],
	}); err != nil {
		return err
	}
	for {
		pending, err := a.store.Outbox.CountPending(ctx)
		if err != nil {
			return err
		}
		if pending == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	fanoutDur := time.Since(t1)
	if err := stopFanout(ctx); err != nil {
		return err
	}

	fmt.Printf("N=%d CONC=%d PAGE=%d failed=%d\n", n, conc, page, failed)
	fmt.Printf("follow total: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, percentile(latencies, 0.50), percentile(latencies, 0.95), percentile(latencies, 0.99))
	fmt.Printf("fan index drain: %v\n", drainDur)
	fmt.Printf("list followers(%d): %v\n", page, fansDur)
	fmt.Printf("new idea fan-out to %d followers: %v\n", n, fanoutDur)
	return nil
}

func (a *app) seedUser(ctx context.Context) (*model.User, error) {
	id := uuid.NewString()
	u := &model.User{
		ID:        id,
		Username:  "b" + id[:8],
		Email:     id[:8] + "@bench.local",
		FirstName: "Bench",
		LastName:  id[:8],
	}
	return u, a.store.Users.Create(ctx, u)
}

func percentile(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
