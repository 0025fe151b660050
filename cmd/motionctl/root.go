package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "motionctl",
		Short: "Drive a motioncore controller from a machine config and a move list",
	}
	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newValidateCmd(logger))
	return root
}
