package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/config"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	redisRepo "github.com/briansimoni/weewoo.study-sub000/internal/repository/redis"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
	"github.com/briansimoni/weewoo.study-sub000/pkg/auth"
	"github.com/briansimoni/weewoo.study-sub000/pkg/database"
)

// app держит зависимости, общие для всех подкоманд
type app struct {
	configPath string
	logLevel   string

	loadConfig func(path string) (*config.Config, error)
	connect    func(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error)

	cfg    *config.Config
	logger *zap.Logger
	client redis.UniversalClient
}

func newApp() *app {
	return &app{
		loadConfig: config.Load,
		connect:    database.NewUniversalRedisClient,
	}
}

// userService открывает соединение с Redis при первом обращении
func (a *app) userService(ctx context.Context) (*service.UserService, error) {
	if a.client == nil {
		client, err := a.connect(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.client = client
	}

	kv, err := redisRepo.NewKVStore(a.client, a.cfg.Store.Namespace, a.logger)
	if err != nil {
		return nil, err
	}
	opts := redisRepo.Options{MaxCommitAttempts: a.cfg.Store.MaxCommitAttempts, Logger: a.logger}
	return service.NewUserService(
		redisRepo.NewUserRepo(kv, opts),
		redisRepo.NewStreakRepo(kv, a.cfg.Streak.Window(), opts),
		a.logger,
	), nil
}

func (a *app) close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
		a.client = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "weewoo-admin",
		Short:         "Maintenance tasks for the weewoo.study record store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				a.configPath = os.Getenv("CONFIG_PATH")
			}
			cfg, err := a.loadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg

			level := a.logLevel
			if level == "" {
				level = cfg.Log.Level
			}
			logger, err := logging.NewLogger(level)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default $CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level")

	cmd.AddCommand(newReindexLeaderboardCommand(a))
	cmd.AddCommand(newSweepStreaksCommand(a))
	cmd.AddCommand(newIssueTokenCommand(a))

	return cmd
}

func newReindexLeaderboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex-leaderboard",
		Short: "Rebuild leaderboard entries from user records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.userService(cmd.Context())
			if err != nil {
				return err
			}
			fixed, err := users.RebuildLeaderboard(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("leaderboard reindexed", zap.Int("fixed", fixed))
			fmt.Fprintf(cmd.OutOrStdout(), "leaderboard entries fixed: %d\n", fixed)
			return nil
		},
	}
}

func newSweepStreaksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-streaks",
		Short: "Delete streak records that are past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.userService(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := users.SweepExpiredStreaks(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("expired streaks swept", zap.Int("removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "expired streaks removed: %d\n", removed)
			return nil
		},
	}
}

func newIssueTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a signed bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			jwtService, err := auth.NewJWTService(a.cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			token, err := jwtService.GenerateToken(subject, role, ttl)
			if err != nil {
				return err
			}
			a.logger.Info("token issued", zap.String("subject", subject), zap.String("role", role), zap.Duration("ttl", ttl))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject (who the token is for)")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
