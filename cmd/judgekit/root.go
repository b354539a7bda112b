package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "judgekit",
		Short:         "LLM relevance judging over NDJSON query/document pairs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newStrategiesCmd())
	return root
}
