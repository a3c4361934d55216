package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/spf13/cobra"
)

func collectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "collection", Short: "Record collected amounts"}
	cmd.AddCommand(collectionSetCmd(a))
	cmd.AddCommand(collectionPaperCmd(a))
	cmd.AddCommand(collectionActualCmd(a))
	return cmd
}

func collectionSetCmd(a *app) *cobra.Command {
	var (
		actual float64
		papers map[string]string
	)
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Save collection data; buckets not given are set to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update domain.CollectionDataUpdate
			if cmd.Flags().Changed("actual") {
				update.ActualAmount = &actual
			}
			if len(papers) > 0 {
				buckets, err := parsePaperTypes(papers)
				if err != nil {
					return err
				}
				update.PaperTypes = &buckets
			}

			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, warnings, err := svc.UpdateCollectionData(ctx, args[0], update, a.actor())
				if err != nil {
					return err
				}
				return a.printResult(s, warnings)
			})
		},
	}
	cmd.Flags().Float64Var(&actual, "actual", 0, "actual collected amount")
	cmd.Flags().StringToStringVar(&papers, "paper", nil, "paper type quantities, e.g. --paper carton=40,np=5")
	return cmd
}

func parsePaperTypes(raw map[string]string) (domain.PaperTypes, error) {
	var buckets domain.PaperTypes
	for name, value := range raw {
		paperType, err := domain.ParsePaperType(name)
		if err != nil {
			return buckets, err
		}
		quantity, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return buckets, fmt.Errorf("--paper %s: %w", name, err)
		}
		if err := buckets.Set(paperType, quantity); err != nil {
			return buckets, err
		}
	}
	return buckets, nil
}

func collectionPaperCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "paper <id> <type> <quantity>",
		Short: "Replace one paper type bucket",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			paperType, err := domain.ParsePaperType(args[1])
			if err != nil {
				return err
			}
			quantity, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}

			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.UpdatePaperType(ctx, args[0], paperType, quantity, a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
}

func collectionActualCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actual <id> <quantity>",
		Short: "Record the weighed total",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("quantity: %w", err)
			}

			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.UpdateActualAmount(ctx, args[0], quantity, a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
}

func problemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "problem", Short: "Report and resolve problems"}

	var description, priority string
	report := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Report a problem on a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.ReportProblem(ctx, args[0], description, domain.ProblemPriority(priority), a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
	report.Flags().StringVarP(&description, "description", "d", "", "what went wrong")
	report.Flags().StringVarP(&priority, "priority", "p", string(domain.PriorityMedium), "low, medium, high or critical")

	var resolution string
	resolve := &cobra.Command{
		Use:   "resolve <session-id> <problem-id>",
		Short: "Resolve an open problem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.ResolveProblem(ctx, args[0], args[1], resolution, a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
	resolve.Flags().StringVarP(&resolution, "resolution", "r", "", "how it was resolved")

	cmd.AddCommand(report, resolve)
	return cmd
}

func commentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "comment", Short: "Annotate sessions"}

	var commentType string
	add := &cobra.Command{
		Use:   "add <session-id> <text>",
		Short: "Append a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(ctx context.Context, svc *service.SessionService) error {
				s, err := svc.AddComment(ctx, args[0], args[1], commentType, a.actor())
				if err != nil {
					return err
				}
				return a.printSession(s)
			})
		},
	}
	add.Flags().StringVarP(&commentType, "type", "t", "", "comment type (default general)")

	cmd.AddCommand(add)
	return cmd
}
