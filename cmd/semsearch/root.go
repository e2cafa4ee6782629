package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/config"
)

var (
	globalEnv    string
	globalConfig config.Config
	envFile      string
)

var rootCmd = &cobra.Command{
	Use:   "semsearch",
	Short: "Semantic search over the SciELO México article corpus",
	Long: `semsearch answers free-text queries against a fixed set of SciELO México
articles using precomputed embeddings from two model families:

  deep  instruction-tuned model, slower, better topical matches
  fast  multilingual model, quicker answers

Serve it over HTTP, browse it in the terminal, or expose it to agents over MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		switch cmd.Name() {
		case "help", "version", "completion":
			return nil
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		if globalEnv == "" {
			globalEnv = config.GetEnv()
		}

		cfg, err := config.Load(globalEnv)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalEnv, "env", "", "config environment (local, dev, prod); defaults to $ENV or local")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}
