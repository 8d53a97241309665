// cliplingo: translate whatever lands on the clipboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.klb.dev/cliplingo/internal/ocr"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := newWatchCmd("cliplingo")
	root.SilenceUsage = true
	root.Short = "Translate clipboard images and text"
	root.Long = `cliplingo watches the system clipboard. When a new image appears, its text
is extracted with Tesseract; when new text appears it is used as is. The
language is detected, the text is translated into the target language, and
the translation replaces the clipboard content.

Running "cliplingo" with no subcommand is the same as "cliplingo watch".

Config file search order (first found wins):
  /etc/cliplingo/cliplingo.toml
  $HOME/.config/cliplingo/cliplingo.toml
  path supplied via --config

A .env file in $HOME/.config/cliplingo/ or the working directory is loaded
first; it never overrides variables already set.

All flags can be set via CLIPLINGO_<FLAG> env vars or config-file keys.`

	root.AddCommand(
		newWatchCmd("watch"),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cliplingo %s (tesseract %s)\n", Version, ocr.Version())
		},
	}
}
