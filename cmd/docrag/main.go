// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command docrag renders the struct documentation of a Rust project from
// rustdoc JSON, indexes it in a vector store, and answers semantic queries
// against it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/petar-djukic/docrag/internal/logging"
	"github.com/petar-djukic/docrag/internal/store"
	"github.com/petar-djukic/docrag/pkg/docrag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := newRootCmd()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, rootCmd, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs cmd and reports a failure as a single "error:" line on
// stderr. It returns the process exit code.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "Semantic search over Rust struct documentation",
		Long: "docrag walks the rustdoc JSON of a project and its dependencies, renders one document per " +
			"reachable struct, embeds the documents and answers nearest-neighbour queries over them.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}

	distance := store.SquaredL2

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String("jsons-dir", "./jsons", "Directory of rustdoc JSON files")
	flags.String("out-dir", "./out", "Output directory for rendered documents")
	flags.StringP("project", "p", "bevy", "Name of the project being documented")
	flags.StringP("embedding", "e", "", "Embedding model (default depends on provider)")
	flags.String("embed-provider", docrag.ProviderOllama, "Embedding provider: ollama or bedrock")
	flags.String("ollama-url", "", "Ollama server URL")
	flags.String("region", "", "AWS region for Bedrock")
	flags.String("profile", "", "AWS credential profile for Bedrock")
	flags.VarP(&distance, "distance", "d", "Distance function: squared-l2, l2, inner-product, ip or cosine")
	flags.String("store", docrag.StoreWeaviate, "Vector store: weaviate or memory")
	flags.String("weaviate-url", "http://localhost:8080", "Weaviate server URL")
	flags.IntP("nb-results", "n", 10, "Number of results to return")
	flags.BoolP("recompute", "r", false, "Force recompute of everything from scratch")
	flags.String("cache-dir", "", "Embedding cache directory (empty disables the cache)")
	flags.Int("concurrency", 4, "Parallel embedding requests")
	flags.Int("max-chars", 0, "Clip documents to this many characters before embedding (0 = no limit)")
	flags.Bool("qualify-names", false, "Name documents unit::Struct instead of Struct")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", logging.FormatText, "Log format: text or json")

	// Bind flags to viper.
	flags.VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})

	// Env vars: DOCRAG_PROJECT, DOCRAG_NB_RESULTS, etc.
	viper.SetEnvPrefix("DOCRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".docrag")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setupLogging installs the process logger and carries it in the command
// context.
func setupLogging(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(logging.Config{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
		Writer: os.Stderr,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	return nil
}

// configFromViper builds the library config from flags, environment and
// config file.
func configFromViper() docrag.Config {
	return docrag.Config{
		JSONsDir:      viper.GetString("jsons-dir"),
		OutDir:        viper.GetString("out-dir"),
		Project:       viper.GetString("project"),
		Embedding:     viper.GetString("embedding"),
		EmbedProvider: viper.GetString("embed-provider"),
		OllamaURL:     viper.GetString("ollama-url"),
		Region:        viper.GetString("region"),
		Profile:       viper.GetString("profile"),
		Distance:      store.Distance(viper.GetString("distance")),
		Store:         viper.GetString("store"),
		WeaviateURL:   viper.GetString("weaviate-url"),
		CacheDir:      viper.GetString("cache-dir"),
		Concurrency:   viper.GetInt("concurrency"),
		MaxChars:      viper.GetInt("max-chars"),
		QualifyNames:  viper.GetBool("qualify-names"),
		Recompute:     viper.GetBool("recompute"),
	}
}

// open creates a Docrag from the current configuration.
func open() (docrag.Docrag, error) {
	d, err := docrag.New(configFromViper())
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	return d, nil
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print docrag version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docrag %s\n", version)
		},
	}
}
