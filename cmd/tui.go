package cmd

import (
	"context"
	"fmt"
	"os"

	errors "github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/z-Shi/TangoWithDjango/cmd/tui"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

var tuiCMD = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive search console",
	Long: `Launch an interactive search console for rango.

Type a query and press enter to run it against the configured
search engine, then browse the hits with the arrow keys.

Example:
  go run main.go tui -c settings.yml

Keyboard shortcuts:
  Enter       Search
  ↑/↓ or j/k  Browse results
  Esc         New search
  q / Ctrl+C  Quit`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
}

// runTUI starts the search console and returns any start/run error.
func runTUI() error {
	engine, err := newSearchEngine()
	if err != nil {
		return errors.Wrap(err, "new search engine")
	}

	p := tea.NewProgram(
		tui.NewModel(engine),
		tea.WithAltScreen(),
	)

	_, err = p.Run()
	return errors.WithStack(err)
}
