package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shapescale/dialbox/internal/config"
	"github.com/shapescale/dialbox/internal/store"
	"github.com/shapescale/dialbox/internal/store/jsonfile"
	"github.com/shapescale/dialbox/internal/store/sqlite"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "dialbox",
		Short:   "Dialpad SMS mailbox",
		Long:    "A local Dialpad SMS mailbox: webhook ingestion, searchable storage, and notifications.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
				switch shell {
				case "bash":
					return cmd.Root().GenBashCompletion(os.Stdout)
				case "zsh":
					return cmd.Root().GenZshCompletion(os.Stdout)
				case "fish":
					return cmd.Root().GenFishCompletion(os.Stdout, true)
				default:
					return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
				}
			}
			return cmd.Help()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("dialbox %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	root.Flags().MarkHidden("generate-completion")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.AddCommand(newServeCmd())
	root.AddCommand(newConversationsCmd())
	root.AddCommand(newThreadCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newMarkReadCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSecretCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the application configuration from the config file and
// fills unset secrets from the OS keyring.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ResolveSecrets(config.NewSecretStore()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore creates the data directory and opens the configured message
// store backend.
func openStore(cfg *config.Config) (store.Store, error) {
	path := cfg.StoragePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	switch cfg.Storage.Driver {
	case "", "sqlite":
		db, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	case "jsonfile":
		s, err := jsonfile.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open mailbox file: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
