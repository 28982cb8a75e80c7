package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/homevault/internal/cryptox"
	"github.com/dmitrijs2005/homevault/internal/server/credentials"
)

type recordAdder interface {
	Add(ctx context.Context, username, passwordHash string) error
}

// openPostgres is a seam for tests.
var openPostgres = credentials.OpenPostgres

func newUserAddCmd() *cobra.Command {
	var (
		file string
		dsn  string
	)

	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Add a user or set a new password",
		Long: `Prompts for a password and stores username and hash.

Any existing record for the username is replaced. Without --dsn the
credentials file is rewritten; the server picks it up on SIGHUP. With --dsn
the user row in PostgreSQL is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			username := args[0]

			pw, err := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).newPassword()
			if err != nil {
				return err
			}

			hash, err := cryptox.HashPassword([]byte(pw))
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			var target recordAdder
			if dsn != "" {
				db, err := openPostgres(ctx, dsn)
				if err != nil {
					return err
				}
				defer db.Close()
				target = credentials.NewPostgresSource(db)
			} else {
				source, err := credentials.NewFileSource(file)
				if err != nil {
					return err
				}
				target = source
			}

			if err := target.Add(ctx, username, hash); err != nil {
				return fmt.Errorf("add user %q: %w", username, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %q saved\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "users.csv", "credentials file")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN; overrides --file")
	return cmd
}
