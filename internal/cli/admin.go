package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/magabrotheeeer/course-progress/internal/models"
	services "github.com/magabrotheeeer/course-progress/internal/services/admin"
)

func withAdmin(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, svc AdminService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := opts.newAdmin(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

// NewStartSeasonCommand создаёт команду start-season.
func NewStartSeasonCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "start-season",
		Short:        "Start a new season today",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, svc AdminService) error {
				season, err := svc.StartSeason(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.Format, season, func(w io.Writer) {
					fmt.Fprintf(w, "season started: %s\n", season.StartDate.Format("2006-01-02"))
				})
			})
		},
	}
}

// NewListUsersCommand создаёт команду list-users.
func NewListUsersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list-users",
		Short:        "List users with their login codes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, svc AdminService) error {
				users, err := svc.ListUsersBasic(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.Format, users, func(w io.Writer) {
					for _, u := range users {
						fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Serial, u.Name)
					}
					fmt.Fprintf(w, "total: %d\n", len(users))
				})
			})
		},
	}
}

// RenameOptions — флаги команды rename.
type RenameOptions struct {
	*RootOptions
	File string
}

// NewRenameCommand создаёт команду rename. Файл — YAML-список пар serial/name.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenameOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename users by login code",
		Long: `Rename users by login code from a YAML file:

  - serial: "A-001"
    name: "Ivan Petrov"
  - serial: "A-002"
    name: "Anna Smirnova"`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := readNameUpdates(opts.File)
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts.RootOptions, func(ctx context.Context, svc AdminService) error {
				res, err := svc.UpdateNames(ctx, updates)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "updated: %d\n", res.UpdatedCount)
					if len(res.MissingSerials) > 0 {
						fmt.Fprintf(w, "missing: %s\n", strings.Join(res.MissingSerials, ", "))
					}
				})
			})
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file with serial/name pairs")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readNameUpdates(path string) ([]models.NameUpdate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var updates []models.NameUpdate
	if err := yaml.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, u := range updates {
		if strings.TrimSpace(u.Serial) == "" || strings.TrimSpace(u.Name) == "" {
			return nil, fmt.Errorf("entry %d: serial and name are required", i+1)
		}
	}
	return updates, nil
}

// CleanupOptions — флаги команды cleanup-duplicates.
type CleanupOptions struct {
	*RootOptions
	DryRun bool
}

// NewCleanupCommand создаёт команду cleanup-duplicates.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "cleanup-duplicates",
		Short:        "Delete duplicate records that share a login code",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts.RootOptions, func(ctx context.Context, svc AdminService) error {
				res, err := svc.DeleteDuplicateSerials(ctx, opts.DryRun)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
					printCleanup(w, res)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report duplicates without deleting them")
	return cmd
}

func printCleanup(w io.Writer, res services.CleanupResult) {
	verb := "deleted"
	if res.DryRun {
		verb = "would delete"
	}
	fmt.Fprintf(w, "serials with duplicates: %d\n", res.Serials)
	fmt.Fprintf(w, "%s: %d, kept: %d\n", verb, res.Deleted, len(res.Kept))
	for _, id := range res.DeletedIDs {
		fmt.Fprintf(w, "  %s\n", id)
	}
}
