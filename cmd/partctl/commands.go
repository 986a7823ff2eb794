package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parttracker/config"
	"parttracker/importer"
	"parttracker/tracking"
)

var defaultStages = []string{
	"Blank", "Cutting", "Turning", "Milling",
	"Drilling", "Heat treatment", "QC inspection", "Packing",
}

var defaultRouteStages = []string{"Blank", "Turning", "Milling", "QC inspection"}

var sampleParts = []tracking.PartInput{
	{PartID: "DT75-01-114", ProductDesignation: "Tractor DT-75"},
	{PartID: "HOUSING-A-02", ProductDesignation: "Gearbox R-500"},
	{PartID: "KRN-2.1-05B", ProductDesignation: "Cultivator KRN"},
	{PartID: "XYZ-123-FINAL", ProductDesignation: "Product XYZ"},
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var withSamples bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default stage dictionary, route and admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				c := cmd.Context()
				out := cmd.OutOrStdout()
				stages, err := svc.ListStages(c)
				if err != nil {
					return err
				}
				if len(stages) > 0 {
					fmt.Fprintln(out, "Stage dictionary is not empty, skipping seed")
					return nil
				}

				ids := make(map[string]int64, len(defaultStages))
				for _, name := range defaultStages {
					st, err := svc.AddStage(c, tracking.System, name)
					if err != nil {
						return err
					}
					ids[name] = st.ID
				}
				route := tracking.RouteInput{Name: "Standard route", IsDefault: true}
				for _, name := range defaultRouteStages {
					route.StageIDs = append(route.StageIDs, ids[name])
				}
				if _, err := svc.CreateTemplate(c, tracking.System, route); err != nil {
					return err
				}
				fmt.Fprintf(out, "Created %d stages and default route %q\n", len(defaultStages), route.Name)

				if withSamples {
					res, err := svc.ImportParts(c, tracking.System, "seed", sampleParts)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Sample parts: %d added, %d skipped\n", res.Added, res.Skipped)
				}

				created, err := svc.EnsureDefaultAdmin(c)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(out, "Created user admin with password admin. Change it after the first login.")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withSamples, "samples", false, "Also create sample parts")
	return cmd
}

func newInitConfigCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration file with default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *ctx.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Defaults().Save(path); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk-create parts from an .xlsx or CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := importer.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				templates, err := svc.ListTemplates(cmd.Context())
				if err != nil {
					return err
				}
				inputs, rejected := importer.Inputs(rows, templates)
				res, err := svc.ImportParts(cmd.Context(), tracking.System, filepath.Base(args[0]), inputs)
				if err != nil {
					return err
				}
				res.Reject(rejected...)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added: %d, skipped duplicates: %d, invalid: %d\n", res.Added, res.Skipped, res.Invalid)
				for _, e := range res.Errors {
					fmt.Fprintf(out, "  row %d (%s): %s\n", e.Row, e.PartID, e.Reason)
				}
				return nil
			})
		},
	}
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [product]",
		Short: "Show completion per product, or per part of one product",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					parts, err := svc.ListPartsWithProgress(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(parts))
					for _, p := range parts {
						rows = append(rows, []string{
							p.PartID,
							p.CurrentStatus,
							fmt.Sprintf("%d/%d", p.Progress.Completed, p.Progress.Total),
							string(p.State),
						})
					}
					fmt.Fprintln(out, renderTable([]column{textCol("Part"), textCol("Status"), numCol("Stages"), textCol("State")}, rows, nil))
					return nil
				}
				list, err := svc.ListProductProgress(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No parts")
					return nil
				}
				rows := make([][]string, 0, len(list))
				var total tracking.ProductProgress
				for _, pp := range list {
					total.TotalParts += pp.TotalParts
					total.CompletedStages += pp.CompletedStages
					total.PossibleStages += pp.PossibleStages
					rows = append(rows, []string{
						pp.Product,
						strconv.Itoa(pp.TotalParts),
						fmt.Sprintf("%d/%d", pp.CompletedStages, pp.PossibleStages),
						fmt.Sprintf("%.1f%%", pp.Percent()),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{textCol("Product"), numCol("Parts"), numCol("Stages"), numCol("Done")},
					rows,
					[]string{
						"Total",
						strconv.Itoa(total.TotalParts),
						fmt.Sprintf("%d/%d", total.CompletedStages, total.PossibleStages),
						fmt.Sprintf("%.1f%%", total.Percent()),
					}))
				return nil
			})
		},
	}
}

func newQRLinksCommand(ctx *commandContext) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "qr-links [product]",
		Short: "Print the scan link and label file name of every part",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *tracking.Service) error {
				base := baseURL
				if base == "" {
					base = cfg.Web.PublicURL
				}
				product := ""
				if len(args) == 1 {
					product = args[0]
				}
				parts, err := svc.ListParts(cmd.Context(), product)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(parts))
				for _, p := range parts {
					rows = append(rows, []string{p.PartID, tracking.ScanURL(base, p.PartID), "qr_" + tracking.SafeFileName(p.PartID) + ".png"})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textCol("Part"), textCol("Link"), textCol("File")}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public server URL (defaults to web.public_url)")
	return cmd
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stage dictionary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				stages, err := svc.ListStages(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stages))
				for _, st := range stages {
					rows = append(rows, []string{strconv.FormatInt(st.ID, 10), st.Name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{numCol("ID"), textCol("Name")}, rows, nil))
				return nil
			})
		},
	}
}

func newRoutesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List route templates with their stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				routes, err := svc.ListTemplates(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(routes))
				for _, rt := range routes {
					def := ""
					if rt.IsDefault {
						def = "yes"
					}
					rows = append(rows, []string{strconv.FormatInt(rt.ID, 10), rt.Name, def, strings.Join(rt.StageNames(), " → ")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{numCol("ID"), textCol("Name"), textCol("Default"), textCol("Stages")}, rows, nil))
				return nil
			})
		},
	}
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Count stage confirmations per operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseDate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if !end.IsZero() {
				end = end.AddDate(0, 0, 1)
			}
			return ctx.withService(func(_ *config.Config, svc *tracking.Service) error {
				stats, err := svc.OperatorPerformance(cmd.Context(), start, end)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{s.Operator, strconv.Itoa(s.Confirmations)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textCol("Operator"), numCol("Confirmations")}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	return cmd
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
