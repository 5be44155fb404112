package main

import (
	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file utilities",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration file",
	Long: `Write a commented example configuration to the --config path.
Refuses to overwrite an existing file.

Examples:
  cfcert config init
  cfcert config init --config ./config.yaml`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteExample(configPath); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", configPath)
	cmd.Println("set default.origin_ca_key (or CLOUDFLARE_ORIGIN_CA_KEY) before the first run")
	return nil
}
