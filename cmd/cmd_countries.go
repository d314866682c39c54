// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/jcodagnone/safires/spatial"
	"github.com/spf13/cobra"
)

type countriesOptions struct {
	path       string
	property   string
	borderMode string
}

var (
	countriesOpts countriesOptions
	countryFilter string
)

// load reads the countries file and derives its border set.
func (o *countriesOptions) load() (*spatial.CountrySet, *spatial.BorderSet, error) {
	if o.path == "" {
		return nil, nil, errors.New("--countries is required")
	}

	mode, err := spatial.ParseBorderMode(o.borderMode)
	if err != nil {
		return nil, nil, err
	}

	countries, err := spatial.LoadCountries(o.path, o.property)
	if err != nil {
		return nil, nil, fmt.Errorf("loading countries: %w", err)
	}

	return countries, spatial.NewBorderSet(countries, mode), nil
}

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Reference country polygons",
}

var countriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the countries of a polygon file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		countries, borders, err := countriesOpts.load()
		if err != nil {
			return err
		}

		list := countries.Countries()
		if countryFilter != "" {
			c, ok := countries.Find(countryFilter)
			if !ok {
				return fmt.Errorf("country %q not found in %s", countryFilter, countriesOpts.path)
			}

			list = []*spatial.Country{c}
		}

		t := newTable("Country", "Polygons", "Area (km²)", "Center", "Border segments").alignRight(1, 2, 4)
		for _, c := range list {
			center := spatial.PointFromOrb(c.Bound.Center())
			t.add(
				c.Name,
				len(c.Geometry),
				fmt.Sprintf("%.0f", c.AreaKm2()),
				fmt.Sprintf("%.3f %.3f", center.Lat, center.Lng),
				borders.CountFor(c.Name),
			)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d countries, %d %s border segments:\n", countries.Len(), borders.Len(), borders.Mode())
		t.print(cmd.OutOrStdout())

		return nil
	},
}

func addCountriesFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&countriesOpts.path, "countries", "", "Country polygons, GeoJSON or name,wkt CSV")
	cmd.Flags().StringVar(&countriesOpts.property, "country-property", "", "GeoJSON property holding the country name (detected when empty)")
	cmd.Flags().StringVar(&countriesOpts.borderMode, "border-mode", string(spatial.BorderModeAll), "Edges that count as border: all or shared")
}

func init() {
	rootCmd.AddCommand(countriesCmd)
	countriesCmd.AddCommand(countriesListCmd)
	addCountriesFlags(countriesListCmd)
	countriesListCmd.Flags().StringVar(&countryFilter, "country", "", "Only list this country (case and accent insensitive)")
}
