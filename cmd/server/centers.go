package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"ecoroute/internal/geo"
)

var (
	centersKind string
	centersLat  float64
	centersLon  float64
)

var centersCmd = &cobra.Command{
	Use:   "centers",
	Short: "Inspect the collection center registry",
}

var centersNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Print the center nearest to a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !geo.ValidCoordinates(centersLat, centersLon) {
			return eris.Errorf("invalid coordinates %v, %v", centersLat, centersLon)
		}

		registry, err := geo.LoadRegistry(cfg.Centers.RegistryPath)
		if err != nil {
			return err
		}

		center, err := registry.Nearest(geo.Kind(centersKind), centersLat, centersLon)
		if err != nil {
			return eris.Wrapf(err, "nearest %s center", centersKind)
		}

		km := geo.Distance(geo.Point{Latitude: centersLat, Longitude: centersLon}, center.Point())
		cmd.Printf("%s <%s> at %.5f, %.5f (%.1f km)\n", center.Name, center.Email, center.Latitude, center.Longitude, km)
		return nil
	},
}

func init() {
	centersNearestCmd.Flags().StringVar(&centersKind, "kind", string(geo.KindGarbage), "garbage or recycling")
	centersNearestCmd.Flags().Float64Var(&centersLat, "lat", 0, "latitude")
	centersNearestCmd.Flags().Float64Var(&centersLon, "lon", 0, "longitude")
	_ = centersNearestCmd.MarkFlagRequired("lat")
	_ = centersNearestCmd.MarkFlagRequired("lon")

	centersCmd.AddCommand(centersNearestCmd)
	rootCmd.AddCommand(centersCmd)
}
