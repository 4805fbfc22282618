package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdfvault/revengine/internal/codec"
)

var (
	chainKey    string
	chainVerify bool
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "print a resource's full changeset chain, or verify its invariants",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}

		eng, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if chainVerify {
			violations, err := eng.VerifyChain(cmd.Context(), repo, chainKey)
			if err != nil {
				return fmt.Errorf("chain: %w", err)
			}
			if len(violations) == 0 {
				fmt.Println("ok: no invariant violations")
				return nil
			}
			for _, v := range violations {
				fmt.Printf("%s %s: %s\n", v.KeySHA, v.Time.Format(time.RFC3339Nano), v.Reason)
			}
			return fmt.Errorf("chain: %d invariant violation(s)", len(violations))
		}

		keySHA := codec.KeySHA(chainKey)
		farFuture := time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)
		c, err := store.ListRange(cmd.Context(), repo, keySHA, time.Time{}, farFuture)
		if err != nil {
			return fmt.Errorf("chain: %w", err)
		}
		for _, cs := range c {
			fmt.Printf("%s  %-8s  len=%d\n", cs.Time.Format(time.RFC3339Nano), cs.Type, cs.Len)
		}
		return nil
	},
}

func init() {
	chainCmd.Flags().StringVar(&chainKey, "key", "", "resource key")
	chainCmd.Flags().BoolVar(&chainVerify, "verify", false, "check chain invariants instead of printing")
	_ = chainCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(chainCmd)
}
