package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/service"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
)

func newTokenCmd() *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.UserRole(strings.ToUpper(role))
			switch r {
			case models.RoleAdmin, models.RoleScheduler, models.RoleViewer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := service.NewTokenService(cfg.JWT).Issue(user, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "cli", "user id placed in the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleScheduler), "ADMIN, SCHEDULER or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
