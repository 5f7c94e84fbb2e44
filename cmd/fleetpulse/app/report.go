package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/fleetpulse/cmd/fleetpulse/app/options"
	"github.com/autopeer-io/fleetpulse/internal/fleethub"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/service"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

const reportTimeout = time.Minute

type reportFlags struct {
	year      int
	month     int
	vehicleID string
}

// newReportCommand prints usage reports straight from the event store,
// without starting any server.
func newReportCommand(opts *options.FleetOptions) *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print monthly or yearly usage from the event store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			ctx, cancel := context.WithTimeout(cmd.Context(), reportTimeout)
			defer cancel()

			store, err := fleethub.NewEventStore(ctx, opts.StoreOptions)
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := opts.QueryOptions.Location()
			if err != nil {
				return err
			}
			svc := service.New(store, nil, service.WithLocation(loc))

			return printReport(ctx, cmd.OutOrStdout(), svc, f)
		},
	}

	now := time.Now()
	cmd.Flags().IntVar(&f.year, "year", now.Year(), "Calendar year to report.")
	cmd.Flags().IntVar(&f.month, "month", 0, "Month (1-12) to report; 0 prints the whole year by month.")
	cmd.Flags().StringVar(&f.vehicleID, "vehicle-id", "", "Restrict the report to one vehicle.")

	return cmd
}

func printReport(ctx context.Context, out io.Writer, svc *service.Service, f *reportFlags) error {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("YEAR", "MONTH", "VEHICLE", "START", "END", "USAGE")

	if f.month != 0 {
		usage, err := svc.MonthlyUsage(ctx, f.year, f.month, f.vehicleID)
		if err != nil {
			return err
		}
		addUsageRow(table, usage)
	} else {
		yearly, err := svc.YearlyUsage(ctx, f.year, f.vehicleID)
		if err != nil {
			return err
		}
		for i := range yearly.MonthlyBreakdown {
			addUsageRow(table, &yearly.MonthlyBreakdown[i])
		}
		table.AddRow("", "", "", "", "TOTAL", formatUsage(yearly.TotalYearlyUsage))
	}

	_, err := fmt.Fprintln(out, table)
	return err
}

func addUsageRow(table *uitable.Table, u *model.MonthlyUsage) {
	vehicle := u.VehicleID
	if vehicle == "" {
		vehicle = "*"
	}
	table.AddRow(u.Year, u.Month, vehicle, formatReading(u.StartUsage), formatReading(u.EndUsage), formatUsage(u.MonthlyUsage))
}

func formatReading(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatUsage(*v)
}

func formatUsage(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
