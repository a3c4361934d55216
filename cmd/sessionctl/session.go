package main

import (
	"context"
	"fmt"
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/spf13/cobra"
)

func sessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Plan and move collection sessions"}
	cmd.AddCommand(sessionListCmd(a))
	cmd.AddCommand(sessionGetCmd(a))
	cmd.AddCommand(sessionCreateCmd(a))
	cmd.AddCommand(sessionTransitionCmd(a))
	cmd.AddCommand(sessionShortcutCmd(a, "start", "Start a planned session", domain.StatusInProgress))
	cmd.AddCommand(sessionCompleteCmd(a))
	cmd.AddCommand(sessionShortcutCmd(a, "cancel", "Cancel a planned or running session", domain.StatusCancelled))
	cmd.AddCommand(sessionDeleteCmd(a))
	cmd.AddCommand(sessionStatsCmd(a))
	return cmd
}

func sessionListCmd(a *app) *cobra.Command {
	var status string
	var filter service.ListFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				parsed, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = parsed
			}
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				sessions, err := svc.ListSessions(ctx, filter)
				if err != nil {
					return err
				}
				return a.printSessions(sessions)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&filter.SupplierID, "supplier-id", "", "supplier filter")
	cmd.Flags().StringVar(&filter.CoordinatorID, "coordinator-id", "", "coordinator filter")
	return cmd
}

func sessionGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one session with its problems and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
}

func sessionCreateCmd(a *app) *cobra.Command {
	var (
		in         domain.CreateSessionInput
		start, end string
		estimate   float64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Plan a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				in.EstimatedStartDate = &t
			}
			if end != "" {
				t, err := time.Parse(time.RFC3339, end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				in.EstimatedEndDate = &t
			}
			if cmd.Flags().Changed("estimate") {
				in.EstimatedAmount = &estimate
			}

			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.CreateSession(ctx, in, a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.SupplierID, "supplier-id", "", "supplier id")
	f.StringVar(&in.SupplierName, "supplier-name", "", "supplier name")
	f.StringVar(&in.SiteLocation, "site", "", "pickup site")
	f.StringVar(&in.CoordinatorID, "coordinator-id", "", "coordinator user id")
	f.StringVar(&in.CoordinatorName, "coordinator-name", "", "coordinator name (looked up when empty)")
	f.StringVar(&in.MarketerID, "marketer-id", "", "marketer user id")
	f.StringVar(&in.MarketerName, "marketer-name", "", "marketer name (looked up when empty)")
	f.StringVar(&start, "start", "", "planned start, RFC3339")
	f.StringVar(&end, "end", "", "planned end, RFC3339")
	f.Float64Var(&estimate, "estimate", 0, "estimated amount")
	return cmd
}

func sessionTransitionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move a session to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return a.transition(cmd.Context(), args[0], target)
		},
	}
}

func sessionShortcutCmd(a *app, use, short string, target domain.SessionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transition(cmd.Context(), args[0], target)
		},
	}
}

func sessionCompleteCmd(a *app) *cobra.Command {
	var actual float64
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a running session and score it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []service.TransitionOption
			if cmd.Flags().Changed("actual") {
				opts = append(opts, service.WithCollectionData(domain.CollectionDataUpdate{ActualAmount: &actual}))
			}
			return a.transition(cmd.Context(), args[0], domain.StatusCompleted, opts...)
		},
	}
	cmd.Flags().Float64Var(&actual, "actual", 0, "record the collected amount in the same write")
	return cmd
}

func (a *app) transition(ctx context.Context, id string, target domain.SessionStatus, opts ...service.TransitionOption) error {
	return a.withService(ctx, func(ctx context.Context, svc *service.SessionService) error {
		s, warnings, err := svc.TransitionSession(ctx, id, target, a.actor(), opts...)
		if err != nil {
			return err
		}
		return a.printResult(s, warnings)
	})
}

func sessionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session with its problems and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				if err := svc.DeleteSession(ctx, args[0], a.actor()); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func sessionStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				return a.printStats(stats)
			})
		},
	}
}
