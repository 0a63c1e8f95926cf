package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/mediguard/internal/config"
	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository/file"
	"github.com/jwalitptl/mediguard/internal/service/catalog"
	"github.com/jwalitptl/mediguard/pkg/logger"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and edit the medication catalog file",
	}
	cmd.AddCommand(catalogListCmd())
	cmd.AddCommand(catalogAddCmd())
	cmd.AddCommand(catalogRemoveCmd())
	return cmd
}

func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.Service, error) {
	svc := catalog.NewService(file.NewCatalogRepository(cfg.Catalog.Path), logger.Nop(), nil)
	if err := svc.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return svc, nil
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), svc.List())
			return nil
		},
	}
}

func printCatalog(out io.Writer, meds []model.Medication) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOSE\tSCHEDULE\tCRITICAL\tPILL")
	for _, m := range meds {
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%t\t%s\n",
			m.Icon, m.Name, m.Dose, strings.Join(m.Schedule, ", "), m.Critical, m.Pill())
	}
	w.Flush()
}

func catalogAddCmd() *cobra.Command {
	var req model.CreateMedicationRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a medication",
		Example: `  mediguard catalog add --name Warfarin --dose "5 mg" --schedule "09:00,21:00" --critical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			med := req.ToMedication()
			replaced, err := svc.AddOrReplace(cmd.Context(), med)
			if err != nil {
				return err
			}
			verb := "added"
			if replaced {
				verb = "replaced"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s at %s)\n", verb, med.Name, med.Dose, strings.Join(med.Schedule, ", "))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "medication name")
	f.StringVar(&req.Dose, "dose", "", "dose, free text")
	f.StringVar(&req.Schedule, "schedule", "", "comma-separated HH:MM dose times")
	f.BoolVar(&req.Critical, "critical", false, "escalate any miss straight to emergency")
	f.StringVar(&req.Icon, "icon", "", "display icon")
	f.StringVar(&req.Shape, "shape", "", "pill shape")
	f.StringVar(&req.Color, "color", "", "pill color")
	f.StringVar(&req.Imprint, "imprint", "", "pill imprint")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dose")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}

func catalogRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a medication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := svc.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
