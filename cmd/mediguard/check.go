package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/service/compliance"
)

// checkCmd runs a single dose check against the catalog at a chosen time of
// day, without starting the server.
func checkCmd() *cobra.Command {
	var (
		at     string
		seed   int64
		result string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one dose check at a given time",
		Example: `  mediguard check --at 08:00
  mediguard check --at 06:30 --result missed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				if now, err = compliance.TodayAt(now, at); err != nil {
					return err
				}
			}
			if seed == 0 {
				seed = cfg.Verifier.Seed
			}

			var verifier compliance.Verifier
			switch result {
			case "":
				verifier = compliance.NewRandomVerifier(cfg.Verifier.TakeProbability, cfg.Verifier.SensorReliability, seed)
			case "taken":
				verifier = compliance.AlwaysTaken
			case "missed":
				verifier = compliance.AlwaysMissed
			default:
				return fmt.Errorf("unknown --result %q, want taken or missed", result)
			}

			engine := compliance.NewEngine(svc, verifier, compliance.WithClock(func() time.Time { return now }))
			ev, ok := engine.RunCheck(cmd.Context())
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "nothing due at %s\n", now.Format(model.ClockLayout))
				return nil
			}
			fmt.Fprintf(out, "%s  %s  %s\n  %s\n", ev.Time, ev.Medication, ev.Status, ev.Details)
			for _, a := range engine.Alerts() {
				fmt.Fprintf(out, "  alert [%s] %s\n", a.Level, a.Message)
			}
			fmt.Fprintf(out, "  status: %s\n", engine.Status())
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "time of day as HH:MM (default: now)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for the simulated scanner")
	cmd.Flags().StringVar(&result, "result", "", "force the scan result: taken or missed")
	return cmd
}
