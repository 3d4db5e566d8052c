package predictions

import (
	"fmt"
	"strings"
)

const DefaultMaxPredictions = 2

// FormatRoute renders a route as its two display lines:
//
//	<code> <title>
//	<prediction> <prediction> ...
//
// Only the first maxPredictions arrivals are kept and a leading 0m reads Now.
func FormatRoute(route *Route, maxPredictions int) []string {
	if maxPredictions <= 0 {
		maxPredictions = DefaultMaxPredictions
	}

	n := min(maxPredictions, len(route.Predictions))
	tokens := make([]string, 0, n)

	for _, minutes := range route.Predictions[:n] {
		tokens = append(tokens, fmt.Sprintf("%dm", minutes))
	}

	if len(tokens) > 0 && tokens[0] == "0m" {
		tokens[0] = "Now"
	}

	return []string{
		fmt.Sprintf("%s %s", route.RouteCode, route.Title),
		strings.Join(tokens, " "),
	}
}

// FormatRoutes renders every extracted route in the configured route code
// order, skipping codes with nothing to show.
func FormatRoutes(routes map[string]*Route, routeCodes []string, maxPredictions int) []string {
	var lines []string

	for _, routeCode := range routeCodes {
		route, exists := routes[routeCode]
		if !exists {
			continue
		}

		lines = append(lines, FormatRoute(route, maxPredictions)...)
	}

	return lines
}
