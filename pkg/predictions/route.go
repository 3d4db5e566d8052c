package predictions

// Route is one transit line at the stop and the minutes until each of its
// predicted arrivals, in feed order.
type Route struct {
	RouteCode   string
	Title       string
	Predictions []int
}

func NewRoute(routeCode string, title string) *Route {
	return &Route{
		RouteCode: routeCode,
		Title:     title,
	}
}

func (r *Route) AddPrediction(minutes int) {
	r.Predictions = append(r.Predictions, minutes)
}
