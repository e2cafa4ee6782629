package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/corpus"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

var manifestOut string

var manifestCmd = &cobra.Command{
	Use:   "manifest <space>",
	Short: "Write the YAML sidecar describing a configured matrix",
	Long: `manifest reads the matrix configured for a space, records its shape and the
model settings from the config, and writes them as the sidecar the loader checks.

The output defaults to spaces.<space>.manifest, or the matrix path with a .yaml
extension when no manifest path is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().StringVarP(&manifestOut, "out", "o", "", "output path (overrides the configured manifest path)")
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	space, err := domain.ParseSpace(args[0])
	if err != nil {
		return err
	}
	m, path, err := buildManifest(globalConfig, space, manifestOut)
	if err != nil {
		return err
	}
	if err := corpus.WriteManifest(path, m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s: %d rows x %d dims)\n", path, space, m.Rows, m.Dimensions)
	return nil
}

// buildManifest describes the matrix configured for space and picks where the sidecar goes.
func buildManifest(cfg config.Config, space domain.Space, out string) (domain.Manifest, string, error) {
	spaces, err := configuredSpaces(cfg)
	if err != nil {
		return domain.Manifest{}, "", err
	}
	sc, ok := spaces[space]
	if !ok {
		return domain.Manifest{}, "", fmt.Errorf("%w: space %s is not configured", domain.ErrInvalidInput, space)
	}

	ms := corpusSources(cfg, spaces).Matrices[space]
	base := ms.Fallback
	base.Space = space

	m, err := corpus.DescribeMatrix(ms.Path, base)
	if err != nil {
		return domain.Manifest{}, "", err
	}

	path := out
	if path == "" {
		path = sc.Manifest
	}
	if path == "" {
		path = strings.TrimSuffix(sc.Matrix, filepath.Ext(sc.Matrix)) + ".yaml"
	}
	return m, path, nil
}
