// Package commands implements the vaultctl administration commands.
package commands

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the vaultctl command tree reading prompts from in and
// writing results to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "homevault administration",
		Long: `vaultctl manages homevault user accounts.

Passwords are read without echo when stdin is a terminal and as one line
per prompt otherwise, so they can be piped in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(newHashCmd())
	root.AddCommand(newUserAddCmd())
	return root
}
