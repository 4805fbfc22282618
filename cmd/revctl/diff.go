package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rdfvault/revengine/internal/deltaexport"
)

var (
	diffKey  string
	diffAt   string
	diffFrom string
	diffTo   string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "print the statement-level delta a memento introduced, or between two mementos",
	Long: `diff --key K --at T prints what memento T added and removed
relative to its immediate predecessor.

diff --key K --from A --to B prints the line-prefixed delta ("A "/"D ")
of the memento at A relative to the memento at B: "A " lines are
statements present at A but absent at B, "D " lines the reverse.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := parseRepo()
		if err != nil {
			return err
		}

		_, store, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		switch {
		case diffAt != "":
			t, err := parseTimeFlag(diffAt)
			if err != nil {
				return err
			}
			added, removed, err := deltaexport.OfMemento(cmd.Context(), store, repo, diffKey, t)
			if err != nil {
				return fmt.Errorf("diff: %w", err)
			}
			printPrefixed(added.Lines(), removed.Lines())
			return nil

		case diffFrom != "" && diffTo != "":
			tA, err := parseTimeFlag(diffFrom)
			if err != nil {
				return err
			}
			tB, err := parseTimeFlag(diffTo)
			if err != nil {
				return err
			}
			lines, err := deltaexport.BetweenMementos(cmd.Context(), store, repo, diffKey, tA, tB)
			if err != nil {
				return fmt.Errorf("diff: %w", err)
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil

		default:
			return fmt.Errorf("diff: either --at, or both --from and --to, is required")
		}
	},
}

// printPrefixed renders added/removed line slices sorted within each
// group, "A "/"D " prefixed, added first.
func printPrefixed(added, removed []string) {
	sort.Strings(added)
	sort.Strings(removed)
	for _, l := range added {
		fmt.Println("A " + l)
	}
	for _, l := range removed {
		fmt.Println("D " + l)
	}
}

func init() {
	diffCmd.Flags().StringVar(&diffKey, "key", "", "resource key")
	diffCmd.Flags().StringVar(&diffAt, "at", "", "RFC3339 timestamp of a single memento")
	diffCmd.Flags().StringVar(&diffFrom, "from", "", "RFC3339 timestamp of the earlier memento")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "RFC3339 timestamp of the later memento")
	_ = diffCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(diffCmd)
}
