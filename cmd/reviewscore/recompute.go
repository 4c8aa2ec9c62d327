package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/service/scheduler"
)

var (
	recomputeProject uint
	recomputeType    string
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute aggregate rubrics",
	Long: `Recompute rebuilds aggregate rubrics from the current canonical reviews.
Without flags every (project, artifact type) pair is recomputed, the same
work the scheduled reconcile job does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.buildServices(ctx, !noRedis)
		if err != nil {
			return err
		}
		defer svc.close()

		if recomputeProject == 0 && recomputeType == "" {
			sched := scheduler.NewService(a.cfg, svc.projects, svc.engine, a.log.Component("scheduler"))
			n, err := sched.RunReconcile(ctx)
			if err != nil {
				return err
			}
			ui.Success("Recomputed %d aggregate(s)", n)
			return nil
		}

		kinds := artifact.All()
		if recomputeType != "" {
			kind, err := artifact.Parse(recomputeType)
			if err != nil {
				return err
			}
			kinds = []artifact.Kind{kind}
		}

		projectIDs := []uint{recomputeProject}
		if recomputeProject == 0 {
			if projectIDs, err = svc.projects.ListIDs(ctx); err != nil {
				return err
			}
		}

		table := ui.Table([]string{"PROJECT", "TYPE", "REVIEWS", "OVERALL"})
		for _, projectID := range projectIDs {
			for _, kind := range kinds {
				agg, err := svc.engine.Recompute(ctx, projectID, kind)
				if err != nil {
					return fmt.Errorf("project %d %s: %w", projectID, kind, err)
				}
				_ = table.Append([]string{
					fmt.Sprintf("%d", projectID),
					kind.String(),
					fmt.Sprintf("%d", agg.ReviewCount),
					fmt.Sprintf("%.2f", agg.OverallScore),
				})
			}
		}
		_ = table.Render()
		return nil
	},
}

var noRedis bool

func init() {
	recomputeCmd.Flags().UintVar(&recomputeProject, "project", 0, "Only this project id")
	recomputeCmd.Flags().StringVar(&recomputeType, "type", "", "Only this artifact type (e.g. requirements)")
	recomputeCmd.Flags().BoolVar(&noRedis, "no-redis", false, "Skip aggregate cache invalidation")
	rootCmd.AddCommand(recomputeCmd)
}
