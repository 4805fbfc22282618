package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rdfvault/revengine/internal/chain"
	"github.com/rdfvault/revengine/internal/codec"
	"github.com/rdfvault/revengine/internal/revision"
	"github.com/rdfvault/revengine/internal/types"
)

var (
	showKey  string
	showTime string
)

// showResult is the --json encoding of a show result.
type showResult struct {
	Kind       string   `json:"kind"`
	Statements []string `json:"statements,omitempty"`
}

func sortedLines(s types.StatementSet) []string {
	lines := s.Lines()
	sort.Strings(lines)
	return lines
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "reconstruct and print a resource's state at a point in time",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}
		t, err := parseTimeFlag(showTime)
		if err != nil {
			return err
		}

		_, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		keySHA := codec.KeySHA(showKey)
		c, err := chain.AtTS(cmd.Context(), store, repo, keySHA, t)
		if err != nil {
			return fmt.Errorf("show: %w", err)
		}
		state, kind, err := revision.GetRevision(cmd.Context(), store, repo, keySHA, c)
		if err != nil {
			return fmt.Errorf("show: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(showResult{
				Kind:       kind.String(),
				Statements: sortedLines(state),
			})
		}

		switch kind {
		case revision.NotFound:
			fmt.Println("(no history at or before this time)")
		case revision.Deleted:
			fmt.Println("(deleted)")
		case revision.Found:
			for _, s := range sortedLines(state) {
				fmt.Println(s)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showKey, "key", "", "resource key")
	showCmd.Flags().StringVar(&showTime, "time", "", "RFC3339 timestamp (default now)")
	_ = showCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(showCmd)
}
