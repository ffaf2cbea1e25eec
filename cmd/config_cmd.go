package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vtable/vtable/internal/config"
	"github.com/vtable/vtable/internal/typemap"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the vtable configuration and the export type mapping.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Validation errors:")
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return fmt.Errorf("config invalid")
		}
		success(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}

var typeMapOut string

var configTypeMapCmd = &cobra.Command{
	Use:   "type-map",
	Short: "Show or write the export type mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		tm := typemap.Default()
		if typeMapOut != "" {
			if err := tm.WriteYAML(typeMapOut); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", typeMapOut)
			return nil
		}
		rows := make([][]string, 0)
		for _, name := range tm.SortedTypes() {
			rows = append(rows, []string{name, string(tm.Resolve(name))})
		}
		renderTable(cmd.OutOrStdout(), []string{"VALUE TYPE", "BSON TYPE"}, rows)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init <dsn>",
	Short: "Write a starter config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.ExpandHome(config.DefaultPath)
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		cfg := &config.Config{
			Version: config.CurrentVersion,
			Store:   config.StoreConfig{DSN: args[0]},
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Wrote %s", path)
		return nil
	},
}

func init() {
	configTypeMapCmd.Flags().StringVarP(&typeMapOut, "output", "o", "", "write the default mapping to a YAML file")
	configCmd.AddCommand(configShowCmd, configValidateCmd, configTypeMapCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
