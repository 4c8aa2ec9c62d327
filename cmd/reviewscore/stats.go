package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/internal/service/stats"
)

var (
	statsProject uint
	statsQuery   stats.ListQuery
)

// operator is the actor CLI commands read as; it sees every project.
var operator = access.Actor{Role: models.RoleAdmin}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show project review statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.buildServices(ctx, false)
		if err != nil {
			return err
		}

		if statsProject != 0 {
			ps, err := svc.stats.GetProjectStats(ctx, operator, statsProject)
			if err != nil {
				return err
			}
			renderProjectDetail(ui, ps)
			return nil
		}

		page, err := svc.stats.GetProjectsStats(ctx, operator, statsQuery)
		if err != nil {
			return err
		}
		renderProjectsPage(ui, page)
		return nil
	},
}

func init() {
	statsCmd.Flags().UintVar(&statsProject, "project", 0, "Show one project broken down by artifact type")
	statsCmd.Flags().IntVar(&statsQuery.Page, "page", 1, "Page number")
	statsCmd.Flags().IntVar(&statsQuery.Limit, "limit", 10, "Projects per page")
	statsCmd.Flags().StringVar(&statsQuery.Sort, "sort", "name", "Sort key: name, created_at, updated_at, overallAverageGrade, completionPercentage, totalArtifacts")
	statsCmd.Flags().StringVar(&statsQuery.Order, "order", "asc", "asc or desc")
	statsCmd.Flags().StringVar(&statsQuery.Search, "search", "", "Filter by name or description")
	rootCmd.AddCommand(statsCmd)
}

func renderProjectsPage(u *UI, page *stats.ProjectsPage) {
	table := u.Table([]string{"ID", "PROJECT", "ARTIFACTS", "REVIEWED", "GRADE", "COMPLETION"})
	for _, p := range page.Projects {
		_ = table.Append([]string{
			fmt.Sprintf("%d", p.ProjectID),
			p.Name,
			fmt.Sprintf("%d", p.TotalArtifacts),
			fmt.Sprintf("%d", p.TotalReviews),
			fmt.Sprintf("%.2f", p.OverallAverageGrade),
			completionColor(p.CompletionPercentage),
		})
	}
	_ = table.Render()

	pg := page.Pagination
	fmt.Fprintf(u.Out, "\npage %d of %d (%d projects)\n", pg.CurrentPage, pg.TotalPages, pg.TotalItems)
}

func renderProjectDetail(u *UI, ps *stats.ProjectStats) {
	fmt.Fprintf(u.Out, "%s (#%d)\n\n", ps.Name, ps.ProjectID)

	table := u.Table([]string{"TYPE", "TOTAL", "REVIEWED", "AVG RATING"})
	for _, kind := range artifact.All() {
		ks := ps.ByType[kind.String()]
		_ = table.Append([]string{
			kind.Descriptor().Label,
			fmt.Sprintf("%d", ks.Total),
			fmt.Sprintf("%d", ks.Reviewed),
			fmt.Sprintf("%.2f", ks.AverageRating),
		})
	}
	_ = table.Render()

	fmt.Fprintf(u.Out, "\noverall grade %.2f, completion %s\n", ps.OverallAverageGrade, completionColor(ps.CompletionPercentage))
}
