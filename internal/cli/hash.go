package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/course-progress/internal/lib/password"
)

// NewHashTokenCommand создаёт команду hash-token: печатает bcrypt-хеш
// административного токена для admin.token_hash.
func NewHashTokenCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "hash-token <token>",
		Short:        "Hash an admin token for the service config",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.GetHash(args[0])
			if err != nil {
				return err
			}
			res := map[string]string{"tokenHash": hash}
			return printResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
				fmt.Fprintln(w, hash)
			})
		},
	}
}
