package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/server"
	"github.com/jonathan/hiring-pipeline/internal/server/middleware"
)

var (
	tokenActorID string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for an actor",
	Long:  "Signs a bearer token with JWT_SECRET for a recruiter, candidate or admin. The actor ID becomes the token subject.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenActorID, "actor-id", "", "Actor ID (random when empty)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", middleware.RoleRecruiter, "recruiter, candidate or admin")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	actor := uuid.New()
	if tokenActorID != "" {
		var err error
		if actor, err = uuid.Parse(tokenActorID); err != nil {
			return fmt.Errorf("invalid --actor-id: %w", err)
		}
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(actor, tokenRole)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
