package main

import (
	"fmt"
	"io"

	"carsales/internal/engine"
	"carsales/internal/models"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the dataset overview as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadDashboard(cmd.Context(), a.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), d.Overview())
		},
	}
}

func newChartCmd(a *app) *cobra.Command {
	var (
		tab      string
		brand    string
		location string
		fuels    []string
		mileage  []int
		years    []int
		prices   []float64
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Compute one chart and print it as JSON",
		Example: `  carsales chart --tab tab-scatter --brand Acme --fuel Petrol --mileage 0,5000
  carsales chart --tab tab-price --fuel ""   # no fuel type selected`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := models.ChartFilters{
				Brand:        brand,
				Location:     location,
				MileageRange: mileage,
				YearRange:    years,
				PriceRange:   prices,
			}
			if cmd.Flags().Changed("fuel") {
				f.FuelTypes = nonEmpty(fuels)
			}

			d, err := a.loadDashboard(cmd.Context(), a.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			chart, err := d.ComputeChart(cmd.Context(), tab, f)
			if err != nil {
				return err
			}
			if !engine.KnownTab(tab) {
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown tab %q, known tabs: %v\n", tab, engine.Tabs)
			}
			return writeJSON(cmd.OutOrStdout(), chart)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&tab, "tab", "", "chart tab, e.g. tab-price")
	fl.StringVar(&brand, "brand", "", "restrict to one brand")
	fl.StringVar(&location, "location", "", "restrict to one location")
	fl.StringSliceVar(&fuels, "fuel", nil, "allowed fuel types (repeatable); an empty value selects none")
	fl.IntSliceVar(&mileage, "mileage", nil, "mileage range as min,max")
	fl.IntSliceVar(&years, "year", nil, "model year range as min,max")
	fl.Float64SliceVar(&prices, "price", nil, "price range as min,max")
	_ = cmd.MarkFlagRequired("tab")
	return cmd
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
