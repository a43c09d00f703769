package main

import (
	"fmt"
	"strconv"
	"strings"

	"moodreel/internal/services"
)

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "cli", "parse id", fmt.Sprintf("invalid %s id %q", what, raw), nil)
	}
	return id, nil
}

func yearText(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func formatRating(v float64) string {
	if v <= 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func formatRank(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// optionalFloat returns &v only when the flag was set.
func optionalFloat(changed bool, v float64) *float64 {
	if !changed {
		return nil
	}
	return &v
}
