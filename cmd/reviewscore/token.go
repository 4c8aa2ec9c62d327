package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/api/middleware"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
)

var (
	tokenUsername string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUsername == "" {
			return fmt.Errorf("--username is required")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		user, err := repository.NewUserRepository(a.db).GetByUsername(cmd.Context(), tokenUsername)
		if err != nil {
			return err
		}
		if user.ID == a.cfg.Reviews.SystemReviewerID {
			return fmt.Errorf("user %q is the system reviewer and cannot authenticate", user.Username)
		}
		if !models.ValidRole(user.Role) {
			return fmt.Errorf("user %q has unknown role %q", user.Username, user.Role)
		}

		auth := middleware.NewAuth(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Reviews.SystemReviewerID)
		token, err := auth.Sign(user.ID, user.Role, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(ui.Out, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "Username to issue the token for")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
