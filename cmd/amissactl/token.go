package main

import (
	"fmt"
	"time"

	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/pkg/auth"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var actor model.Actor
	var role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor.Role = model.Role(role)
			switch {
			case !actor.Role.Valid():
				return fmt.Errorf("unknown role %q", role)
			case actor.Role == model.RoleDioceseAdmin && actor.DioceseID == "":
				return fmt.Errorf("--diocese is required for %s", role)
			case actor.Role == model.RoleParishStaff && actor.ParishID == "":
				return fmt.Errorf("--parish is required for %s", role)
			}

			secret := auth.SecretBytes(config.Load().JWTSecret)
			token, err := auth.IssueToken(secret, &actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor.ID, "subject", "", "actor id (required)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleOperator), "super_admin, diocese_admin, parish_staff or operator")
	cmd.Flags().StringVar(&actor.DioceseID, "diocese", "", "diocese id for diocese_admin")
	cmd.Flags().StringVar(&actor.ParishID, "parish", "", "parish id for parish_staff")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
