package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	removeKey  string
	removeTime string
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "physically excise a changeset from a resource's history",
	Long: `remove deletes a changeset outright, rather than recording a
tombstone. The changeset immediately following it, if any, is
re-encoded against the rewritten chain. Use with care: this changes
history rather than adding to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}
		t, err := parseTimeFlag(removeTime)
		if err != nil {
			return err
		}
		if removeTime == "" {
			return fmt.Errorf("remove: --time is required")
		}

		eng, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := eng.Remove(cmd.Context(), repo, removeKey, t); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeKey, "key", "", "resource key")
	removeCmd.Flags().StringVar(&removeTime, "time", "", "RFC3339 timestamp of the changeset to remove")
	_ = removeCmd.MarkFlagRequired("key")
	_ = removeCmd.MarkFlagRequired("time")
	rootCmd.AddCommand(removeCmd)
}
