package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/homevault/internal/cryptox"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the argon2id hash of a password",
		Long: `Prompts for a password and prints its hash in the form stored in the
credentials file, so a line can be written by hand as username|hash.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).newPassword()
			if err != nil {
				return err
			}

			hash, err := cryptox.HashPassword([]byte(pw))
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
