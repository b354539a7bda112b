package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modelrank/judgekit/infrastructure/parsers"
)

func newParseCmd() *cobra.Command {
	var (
		flagStrategy string
		flagField    string
		flagFile     string
	)

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Run a parsing strategy against raw model output",
		Long: "Parse applies a response parsing strategy to raw model output " +
			"given as an argument, via --file, or on stdin, and prints the " +
			"parsed judgement as JSON. Useful for debugging prompt formats.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawText, err := readInput(args, flagFile)
			if err != nil {
				return err
			}

			parser, err := parsers.New(flagStrategy, parsers.Config{Field: flagField})
			if err != nil {
				return err
			}

			parsed, err := parser.Parse(rawText)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(parsed, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagStrategy, "strategy", "s", parsers.StrategyTagged, "parsing strategy")
	cmd.Flags().StringVar(&flagField, "field", "", "JSON score field for the json-field strategy")
	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "read raw output from a file instead of stdin")
	return cmd
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available parsing strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(strings.Join(parsers.Strategies(), "\n"))
			return nil
		},
	}
}

func readInput(args []string, file string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
