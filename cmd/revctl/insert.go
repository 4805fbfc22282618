package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	insertKey     string
	insertFile    string
	insertTime    string
	insertMessage string
)

var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "save a state at an arbitrary point in a resource's history",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}
		t, err := parseTimeFlag(insertTime)
		if err != nil {
			return err
		}
		if insertTime == "" {
			return fmt.Errorf("insert: --time is required")
		}
		stmts, err := readStatements(insertFile)
		if err != nil {
			return err
		}

		eng, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := eng.Insert(cmd.Context(), repo, insertKey, stmts, t, insertMessage); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	insertCmd.Flags().StringVar(&insertKey, "key", "", "resource key")
	insertCmd.Flags().StringVar(&insertFile, "file", "-", "file of newline-delimited statements, - for stdin")
	insertCmd.Flags().StringVar(&insertTime, "time", "", "RFC3339 timestamp of the memento to insert")
	insertCmd.Flags().StringVar(&insertMessage, "message", "", "commit message")
	_ = insertCmd.MarkFlagRequired("key")
	_ = insertCmd.MarkFlagRequired("time")
	rootCmd.AddCommand(insertCmd)
}
