package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"placematch/internal/config"
	"placematch/internal/geo"
)

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.ProviderTimeout()}
}

func formatCoordinate(c geo.Coordinate) string {
	if c.Lat == 0 && c.Lon == 0 {
		return "-"
	}
	return c.String()
}

func formatOptionalFloat(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// parseCoordinate reads "lat,lon".
func parseCoordinate(value string) (geo.Coordinate, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q must be lat,lon", value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", value, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", value, err)
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate %q is out of range", value)
	}
	return c, nil
}

// writeJSON encodes v as indented JSON to the command's stdout. Maps URLs
// keep their ampersands unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
