// Command revctl is the command-line front end for the revision engine,
// one file per subcommand in the teacher's cmd/bd layout.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rdfvault/revengine/internal/config"
	"github.com/rdfvault/revengine/internal/engine"
	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/storage/factory"
	"github.com/rdfvault/revengine/internal/telemetry"
	"github.com/rdfvault/revengine/internal/types"
)

var (
	backendFlag string
	dsnFlag     string
	configFlag  string
	repoFlag    string
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "revctl",
	Short: "revctl - versioned RDF repository revision engine",
	Long:  `Insert, delete, remove, and reconstruct the history of a versioned RDF repository's string-keyed resources.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite, mysql, memory (default from config)")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "backend connection string (sqlite path or mysql DSN)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a revengine config.yaml")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "repository as owner/name")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
}

func main() {
	providers, err := telemetry.Init(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "revctl: telemetry init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "revctl: %v\n", err)
		os.Exit(1)
	}
}

// openEngine builds an Engine from the --backend/--dsn/--config flags,
// applying the same flags-over-config precedence the teacher's
// PersistentPreRun gives cobra flags over viper ("Priority: flags > viper
// (config file + env vars) > defaults").
func openEngine(ctx context.Context) (*engine.Engine, storage.Store, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if dsnFlag != "" {
		cfg.DSN = dsnFlag
	}

	store, err := factory.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage backend %q: %w", cfg.Backend, err)
	}
	return engine.New(store, cfg.SNAPF), store, nil
}

// parseRepo splits "owner/name" into a types.Repo, or fails if --repo
// wasn't given in that form.
func parseRepo() (types.Repo, error) {
	for i := 0; i < len(repoFlag); i++ {
		if repoFlag[i] == '/' {
			return types.Repo{Owner: repoFlag[:i], Name: repoFlag[i+1:]}, nil
		}
	}
	return types.Repo{}, fmt.Errorf("--repo must be in owner/name form, got %q", repoFlag)
}
