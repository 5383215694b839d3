package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/dispensary-crm/pkg/auth"
	"github.com/angelmondragon/dispensary-crm/pkg/auth/session"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
)

func newTokenCmd() *cobra.Command {
	var (
		org    string
		role   string
		userID string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token and register its session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.App.IsProd() {
				return fmt.Errorf("token minting is disabled in prod")
			}

			memberRole, err := enums.ParseMemberRole(role)
			if err != nil {
				return err
			}
			uid := uuid.New()
			if userID != "" {
				if uid, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			payload := auth.AccessTokenPayload{
				UserID: uid,
				OrgID:  org,
				Role:   memberRole,
				JTI:    uuid.NewString(),
			}
			token, err := auth.MintAccessToken(cfg.JWT, time.Now(), payload)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logg := logger.New(logger.Options{ServiceName: "crmctl", Level: logger.ParseLevel("warn")})
			redisClient, err := redis.New(ctx, cfg.Redis, logg)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			sessions, err := session.NewManager(redisClient)
			if err != nil {
				return err
			}
			if err := sessions.Register(ctx, payload.JTI, cfg.JWT.Expiration()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "org id carried in the token")
	cmd.Flags().StringVar(&role, "role", string(enums.MemberRoleOwner), "member role")
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
