package www

import (
	"math"
	"time"

	"parttracker/tracking"
)

type productProgressView struct {
	Product         string  `json:"product"`
	TotalParts      int     `json:"total_parts"`
	CompletedStages int     `json:"completed_stages"`
	PossibleStages  int     `json:"possible_stages"`
	Percent         float64 `json:"percent"`
}

func productView(pp tracking.ProductProgress) productProgressView {
	return productProgressView{
		Product:         pp.Product,
		TotalParts:      pp.TotalParts,
		CompletedStages: pp.CompletedStages,
		PossibleStages:  pp.PossibleStages,
		Percent:         math.Round(pp.Percent()*10) / 10,
	}
}

func productViews(list []tracking.ProductProgress) []productProgressView {
	out := make([]productProgressView, 0, len(list))
	for _, pp := range list {
		out = append(out, productView(pp))
	}
	return out
}

// parseDay reads a YYYY-MM-DD query value in UTC. Empty yields the zero time.
func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
