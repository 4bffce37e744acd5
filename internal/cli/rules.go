package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/watchwherelive/internal/curation"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

var (
	flagDMA     string
	flagTeam    string
	flagChannel string
	flagList    bool
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Save a DMA rule mapping a team's games in a TV market to a channel",
		Example: `  watchwherelive map --dma LA --team "Los Angeles Lakers" --sport NBA --channel "Spectrum SportsNet"
  watchwherelive map --list --sport NBA`,
		RunE: runMap,
	}

	cmd.Flags().StringVar(&flagDMA, "dma", "", "Market code")
	cmd.Flags().StringVar(&flagTeam, "team", "", "Team name")
	cmd.Flags().StringVar(&flagSport, "sport", "", "Sport (NBA, EPL)")
	cmd.Flags().StringVar(&flagChannel, "channel", "", "Regional channel")
	cmd.Flags().BoolVar(&flagList, "list", false, "List saved rules instead of saving one")

	return cmd
}

func runMap(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	svc := curation.NewService(a.store, a.cfg, curation.WithMetrics(a.metrics), curation.WithLogger(a.log))

	if flagList {
		rules, err := svc.ListRules(cmd.Context(), schedule.ParseSport(flagSport))
		if err != nil {
			return fmt.Errorf("listing rules: %w", err)
		}
		return WriteRules(os.Stdout, rules, format)
	}

	res, err := svc.SaveRule(cmd.Context(), flagDMA, flagTeam, flagSport, flagChannel)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	return WriteRuleSaved(os.Stdout, res, format)
}

func newApplyRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply-rules",
		Short: "Apply saved DMA rules to games waiting for validation",
		Long: `Write each saved rule's channel into the regional map of the unvalidated games
its team plays in. Run it after a scrape so newly listed games pick up existing rules;
serve does this after every scheduled scrape.`,
		RunE: runApplyRules,
	}

	cmd.Flags().StringVar(&flagSport, "sport", "", "Only apply rules for this sport (NBA, EPL)")

	return cmd
}

func runApplyRules(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	svc := curation.NewService(a.store, a.cfg, curation.WithMetrics(a.metrics), curation.WithLogger(a.log))
	applied, err := svc.ApplyRules(cmd.Context(), schedule.ParseSport(flagSport))
	if err != nil {
		return fmt.Errorf("applying rules: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(os.Stdout, map[string]int{"applied": applied})
	}
	fmt.Fprintf(os.Stdout, "Applied rules to %d queued game entries\n", applied)
	return nil
}
