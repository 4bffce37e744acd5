package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/watchwherelive/internal/curation"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

var (
	flagSport string
	flagLimit int
	flagSort  string
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List games waiting for curator validation",
		RunE:  runQueue,
	}

	cmd.Flags().StringVar(&flagSport, "sport", "", "Only list this sport (NBA, EPL)")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Games per sport (default api.queue_limit)")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByDate), "Sort order: date, sport or team")

	return cmd
}

func runQueue(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	order := SortOrder(strings.ToLower(flagSort))
	if !order.valid() {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'sport' or 'team')", flagSort)
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	svc := curation.NewService(a.store, a.cfg, curation.WithLogger(a.log))
	games, err := svc.Queue(cmd.Context(), schedule.ParseSport(flagSport), flagLimit)
	if err != nil {
		return fmt.Errorf("reading queue: %w", err)
	}

	sortGames(games, order)
	return WriteQueue(os.Stdout, games, format, flagVerbose)
}
