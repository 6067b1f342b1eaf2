// Command tokengen prints a fresh upload credential for a user id. Paste the
// output into the [users] table of the config file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediagate/uploader/internal/auth"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		id  int64
		key string
	)

	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Generate an upload credential for a user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("id") {
				return fmt.Errorf("--id is required")
			}
			token, err := auth.GenerateToken(id, []byte(key))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "numeric user id embedded in the credential")
	cmd.Flags().StringVar(&key, "key", "", "signing key; a random key is used when empty")
	return cmd
}
