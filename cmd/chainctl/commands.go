// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianChain/services/chain/app"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/chain/telemetry"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

// defaultServerURL is used by ask when neither --server nor
// ALEUTIAN_CHAIN_URL is set.
const defaultServerURL = "http://localhost:8080"

// cli holds shared flag values and output streams.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	cacheDir   string
	jsonOut    bool
	noColor    bool
	verbose    bool
	serverURL  string
	timeout    time.Duration

	// clients replaces provider construction from the environment.
	clients *providers.RoleClients
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{out: out, errOut: errOut}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "chainctl",
		Short:         "Aleutian Chain: plan and run tool chains for a query",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", os.Getenv("CHAIN_CONFIG"), "YAML overlay on the built-in configuration")
	pf.BoolVar(&c.jsonOut, "json", false, "Print the raw JSON result")
	pf.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Log chain progress to stderr")

	root.AddCommand(newRunCmd(c), newAskCmd(c), newToolsCmd(c))
	return root
}

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run a chain in-process using the configured providers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be empty")
			}
			a, err := c.newApp(cmd.Context())
			if err != nil {
				c.reportError(err)
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					c.logger().Warn("closing search cache", slog.String("error", err.Error()))
				}
			}()
			return c.printResult(a.Controller.Run(cmd.Context(), query))
		},
	}
	cmd.Flags().StringVar(&c.cacheDir, "cache-dir", os.Getenv("SEARCH_CACHE_DIR"), "Persist search results in this directory")
	return cmd
}

func newAskCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Send a query to a running chain server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be empty")
			}
			client := newServerClient(c.resolveServerURL(), c.timeout)
			res, err := client.Run(cmd.Context(), query)
			if err != nil {
				c.reportError(err)
				return err
			}
			return c.printResult(res)
		},
	}
	cmd.Flags().StringVar(&c.serverURL, "server", "", "Chain server base URL (default $ALEUTIAN_CHAIN_URL or "+defaultServerURL+")")
	cmd.Flags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "Request timeout")
	return cmd
}

func newToolsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the planner can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs := tools.BuiltinSpecs()
			if c.jsonOut {
				return writeJSON(c.out, specs)
			}
			c.renderer().Tools(specs)
			return nil
		},
	}
}

func (c *cli) newApp(ctx context.Context) (*app.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, app.Options{
		ConfigPath:      c.configPath,
		CacheDir:        c.cacheDir,
		DefaultProvider: os.Getenv("CHAIN_DEFAULT_PROVIDER"),
		Clients:         c.clients,
		Logger:          c.logger(),
	})
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return telemetry.NewLogger(c.errOut, "text", level)
}

func (c *cli) printResult(res datatypes.ChainResult) error {
	if c.jsonOut {
		return writeJSON(c.out, res)
	}
	c.renderer().Result(res)
	return nil
}

func (c *cli) reportError(err error) {
	fmt.Fprintln(c.errOut, c.renderer().styles.failed.Render("Error: ")+err.Error())
}

func (c *cli) renderer() *renderer {
	return newRenderer(c.out, c.useColor())
}

// useColor is true only when writing to a terminal and color was not
// disabled by --no-color or NO_COLOR.
func (c *cli) useColor() bool {
	if c.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := c.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *cli) resolveServerURL() string {
	if c.serverURL != "" {
		return c.serverURL
	}
	if u := os.Getenv("ALEUTIAN_CHAIN_URL"); u != "" {
		return u
	}
	return defaultServerURL
}
