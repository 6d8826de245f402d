package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hrygo/wordloop/plugin/export"
	"github.com/hrygo/wordloop/plugin/srs"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/server/timezone"
)

type planOptions struct {
	userID int32
	days   int
	out    string
}

func newPlanCmd() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print a learner's study plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plans, err := generatePlan(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), plans)
		},
	}
	addPlanFlags(cmd, opts)
	return cmd
}

func newExportCmd() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a learner's study plan to an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plans, err := generatePlan(cmd.Context(), opts)
			if err != nil {
				return err
			}
			f, err := os.Create(opts.out)
			if err != nil {
				return err
			}
			if err := export.WritePlan(f, plans); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d days to %s\n", len(plans), opts.out)
			return nil
		},
	}
	addPlanFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.out, "out", "plan.xlsx", "output workbook path")
	return cmd
}

func addPlanFlags(cmd *cobra.Command, opts *planOptions) {
	cmd.Flags().Int32Var(&opts.userID, "user", 0, "learner id")
	cmd.Flags().IntVar(&opts.days, "days", 7, "number of days to project")
	_ = cmd.MarkFlagRequired("user")
}

func generatePlan(ctx context.Context, opts *planOptions) ([]srs.DayPlan, error) {
	instanceProfile, storeInstance, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer storeInstance.Close()

	config, err := review.ConfigFromProfile(instanceProfile)
	if err != nil {
		return nil, err
	}
	return review.NewService(storeInstance, config).GeneratePlan(ctx, opts.userID, opts.days)
}

func printPlan(w io.Writer, plans []srs.DayPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tITEMS\tMINUTES\tEASY\tMEDIUM\tHARD\tFIRST ITEMS")
	for _, plan := range plans {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			plan.Date.Format(timezone.DateLayout),
			len(plan.Items),
			plan.EstimatedTimeMinutes,
			plan.Histogram.Easy,
			plan.Histogram.Medium,
			plan.Histogram.Hard,
			firstItems(plan.Items, 5),
		)
	}
	return tw.Flush()
}

func firstItems(items []srs.Candidate, n int) string {
	out := ""
	for i, item := range items {
		if i == n {
			out += ", ..."
			break
		}
		if i > 0 {
			out += ", "
		}
		out += item.Record.ItemID
	}
	return out
}
