package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValidateCmd(logger *zap.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a machine config and report whether it is well formed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := cfg.BuildKinematics(); err != nil {
				return errors.Wrap(err, "kinematics")
			}
			if _, err := cfg.BuildShapers(); err != nil {
				return errors.Wrap(err, "shapers")
			}
			fmt.Fprintf(os.Stdout, "config OK: kinematics=%s axes=%d shapers=%d\n",
				cfg.Kinematics.Type, len(cfg.Axes), len(cfg.Shapers))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the machine config JSON file")
	cmd.MarkFlagRequired("config")
	return cmd
}
