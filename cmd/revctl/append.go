package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appendKey     string
	appendFile    string
	appendTime    string
	appendMessage string
)

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "save a new state at the tail of a resource's history",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}
		t, err := parseTimeFlag(appendTime)
		if err != nil {
			return err
		}
		stmts, err := readStatements(appendFile)
		if err != nil {
			return err
		}

		eng, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		unchanged, err := eng.Append(cmd.Context(), repo, appendKey, stmts, t, appendMessage)
		if err != nil {
			return fmt.Errorf("append: %w", err)
		}
		if unchanged {
			fmt.Println("unchanged")
		} else {
			fmt.Println("ok")
		}
		return nil
	},
}

func init() {
	appendCmd.Flags().StringVar(&appendKey, "key", "", "resource key")
	appendCmd.Flags().StringVar(&appendFile, "file", "-", "file of newline-delimited statements, - for stdin")
	appendCmd.Flags().StringVar(&appendTime, "time", "", "RFC3339 timestamp (default now)")
	appendCmd.Flags().StringVar(&appendMessage, "message", "", "commit message")
	_ = appendCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(appendCmd)
}
