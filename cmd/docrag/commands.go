// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/petar-djukic/docrag/pkg/docrag"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRenderCmd creates the "render" command.
func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render struct documents without embedding",
		Long:  "Render walks the project and its dependencies and writes one markdown document per reachable struct to <out-dir>/structs.",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := open()
			if err != nil {
				return err
			}
			defer closeInto(d, &err)

			result, err := d.Render(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

// newIndexCmd creates the "index" command.
func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Render, embed and store the documents",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := open()
			if err != nil {
				return err
			}
			defer closeInto(d, &err)

			result, err := d.Index(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

// newQueryCmd creates the "query" command.
func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Answer prompts read from stdin",
		Long:  "Query reads one prompt per line from stdin and prints the closest documents for each.",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := open()
			if err != nil {
				return err
			}
			defer closeInto(d, &err)

			return queryLoop(cmd.Context(), d, os.Stdin, cmd.OutOrStdout(), viper.GetInt("nb-results"))
		},
	}
}

// newRunCmd creates the "run" command.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Index if needed, then answer prompts",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := open()
			if err != nil {
				return err
			}
			defer closeInto(d, &err)

			if _, err := d.Index(cmd.Context()); err != nil {
				return err
			}
			return queryLoop(cmd.Context(), d, os.Stdin, cmd.OutOrStdout(), viper.GetInt("nb-results"))
		},
	}
}

// querier is the part of docrag.Docrag the prompt loop needs.
type querier interface {
	Query(ctx context.Context, text string, n int) ([]docrag.Result, error)
}

// queryLoop prompts, reads a line, prints the n nearest documents, and
// repeats until in is exhausted. Blank lines are skipped.
func queryLoop(ctx context.Context, q querier, in io.Reader, out io.Writer, n int) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Enter a prompt:")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprintln(out, "Enter a prompt:")
			continue
		}

		results, err := q.Query(ctx, line, n)
		if err != nil {
			return err
		}
		for i, r := range results {
			fmt.Fprintf(out, "%02d. %-40s %.3f\n", i+1, r.Name, r.Distance)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Enter a prompt:")
	}
	return scanner.Err()
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// closeInto closes d and folds any close error into *err.
func closeInto(d docrag.Docrag, err *error) {
	if cerr := d.Close(); cerr != nil {
		*err = multierror.Append(*err, cerr).ErrorOrNil()
	}
}
