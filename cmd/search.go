package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/z-Shi/TangoWithDjango/library/log"
	"github.com/z-Shi/TangoWithDjango/library/search"
)

const searchCMDTimeout = 30 * time.Second

var searchCMD = &cobra.Command{
	Use:   "search [terms...]",
	Short: "search",
	Long: `run one web search and print the results.

Without terms the query is read from stdin.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newSearchEngine()
		if err != nil {
			return errors.Wrap(err, "new search engine")
		}

		ctx, cancel := context.WithTimeout(context.Background(), searchCMDTimeout)
		defer cancel()
		return runSearch(ctx, engine, args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCMD.AddCommand(searchCMD)
}

// runSearch prints every hit of one query. The query is args joined by
// spaces, or one line read from in after a prompt when args is empty.
func runSearch(ctx context.Context, engine search.Engine, args []string, in io.Reader, out io.Writer) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if len(args) == 0 {
		fmt.Fprint(out, "Search for... ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "read query")
		}
		query = strings.TrimSpace(line)
	}
	if query == "" {
		return errors.New("query cannot be empty")
	}

	results, err := engine.Search(ctx, query)
	if err != nil {
		return errors.Wrapf(err, "search %q", query)
	}

	fmt.Fprintf(out, "Result: %d\n", len(results))
	for _, r := range results {
		fmt.Fprintln(out, r.Title)
		fmt.Fprintln(out, r.Link)
		fmt.Fprintln(out, r.Summary)
		fmt.Fprintln(out, "===============")
	}
	return nil
}
