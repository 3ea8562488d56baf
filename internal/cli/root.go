// Package cli реализует служебную утилиту admin: старт сезона, чистку
// дублей, переименование учащихся, миграции и чтение событий прогресса.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/course-progress/internal/cache"
	"github.com/magabrotheeeer/course-progress/internal/config"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
	services "github.com/magabrotheeeer/course-progress/internal/services/admin"
	"github.com/magabrotheeeer/course-progress/internal/storage"
)

// AdminService — операции, которые утилита выполняет над хранилищем.
type AdminService interface {
	StartSeason(ctx context.Context) (models.Season, error)
	ListUsersBasic(ctx context.Context) ([]models.BasicUser, error)
	UpdateNames(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error)
	DeleteDuplicateSerials(ctx context.Context, dryRun bool) (services.CleanupResult, error)
}

// AdminFactory открывает сервис и возвращает функцию освобождения ресурсов.
type AdminFactory func(ctx context.Context, opts *RootOptions) (AdminService, func(), error)

// RootOptions — глобальные флаги всех команд.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool

	newAdmin AdminFactory
}

// ValidFormats — допустимые форматы вывода.
var ValidFormats = []string{"text", "json"}

// NewRootCommand создаёт корневую команду утилиты.
func NewRootCommand() *cobra.Command {
	return newRootCommand(connectAdmin)
}

func newRootCommand(factory AdminFactory) *cobra.Command {
	opts := &RootOptions{newAdmin: factory}

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Course progress administration",
		Long:          "Administrative tasks for the course progress service: seasons, duplicate cleanup, renames, migrations and events.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the service config")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewStartSeasonCommand(opts))
	cmd.AddCommand(NewListUsersCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewHashTokenCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return nil, fmt.Errorf("config path is empty: use --config or CONFIG_PATH")
	}
	return config.Load(o.ConfigPath)
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Verbose {
		return sl.SetupLogger(sl.EnvLocal, os.Stderr)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func connectAdmin(ctx context.Context, opts *RootOptions) (AdminService, func(), error) {
	const op = "cli.connectAdmin"

	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = storage.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	redis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	closeFn := func() {
		_ = redis.Close()
		_ = db.Close()
	}
	return services.NewAdminService(db, redis, opts.logger()), closeFn, nil
}
