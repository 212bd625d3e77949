package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docnexus/internal/domain"
	"docnexus/internal/infra/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(newConfigEncryptCmd(), newConfigPathCmd())
	return cmd
}

const encryptLongDesc = `Encrypt a secret for the config file.

The passphrase is read from DOCNEXUS_CONFIG_KEY. Paste the output as the
value, e.g. "auth.token: enc:...", and export the same key when running
docnexus.`

func newConfigEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a config secret",
		Long:  encryptLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv("DOCNEXUS_CONFIG_KEY")
			if key == "" {
				return domain.NewDomainError("config.encrypt", domain.ErrInvalidInput, "DOCNEXUS_CONFIG_KEY is not set")
			}
			enc, err := config.EncryptValue(args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "enc:"+enc)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default config, session and log locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:  %s\n", config.DefaultPath())
			fmt.Fprintf(out, "session: %s\n", config.Defaults().Session.Path)
			fmt.Fprintf(out, "log:     %s\n", config.DefaultLogFile())
			return nil
		},
	}
}
