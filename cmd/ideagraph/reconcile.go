package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

const reconcilePage = 500

func reconcileCmd() *cobra.Command {
	var (
		userID string
		ideas  bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute denormalized counters and rebuild fan index rows",
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

			ctx := cmd.Context()
			if userID != "" {
				_, err := a.services.Relations.Reconcile(ctx, userID)
				return err
			}
			users, err := a.reconcileUsers(ctx)
			if err != nil {
				return err
			}
			logger.Info("users reconciled", zap.Int("count", users))
			if ideas {
				n, err := a.reconcileIdeas(ctx)
				if err != nil {
					return err
				}
				logger.Info("ideas reconciled", zap.Int("count", n))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "reconcile a single user")
	cmd.Flags().BoolVar(&ideas, "ideas", false, "also recompute idea like/comment/view counts")
	return cmd
}

func (a *app) reconcileUsers(ctx context.Context) (int, error) {
	total, after := 0, ""
	for {
		ids, err := a.store.Users.ListIDs(ctx, after, reconcilePage)
		if err != nil {
			return total, err
		}
		for _, id := range ids {
			if _, err := a.services.Relations.Reconcile(ctx, id); err != nil {
				logger.Warn("reconcile user failed", zap.String("user", id), zap.Error(err))
				continue
			}
			total++
		}
		if len(ids) < reconcilePage {
			return total, nil
		}
		after = ids[len(ids)-1]
	}
}

func (a *app) reconcileIdeas(ctx context.Context) (int, error) {
	total, offset := 0, 0
	for {
		page, err := a.store.Ideas.Find(ctx, repository.NewQuery().OrderBy("id", false).Limit(reconcilePage).Offset(offset))
		if err != nil {
			return total, err
		}
		for _, idea := range page {
			if _, err := a.services.Engagement.ReconcileIdea(ctx, idea.ID); err != nil {
				logger.Warn("reconcile idea failed", zap.String("idea", idea.ID), zap.Error(err))
				continue
			}
			total++
		}
		if len(page) < reconcilePage {
			return total, nil
		}
		offset += reconcilePage
	}
}
