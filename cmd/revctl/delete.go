package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteKey  string
	deleteTime string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "record a tombstone for a resource at a point in time",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}
		t, err := parseTimeFlag(deleteTime)
		if err != nil {
			return err
		}

		eng, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		unchanged, err := eng.Delete(cmd.Context(), repo, deleteKey, t)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
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
	deleteCmd.Flags().StringVar(&deleteKey, "key", "", "resource key")
	deleteCmd.Flags().StringVar(&deleteTime, "time", "", "RFC3339 timestamp (default now)")
	_ = deleteCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(deleteCmd)
}
