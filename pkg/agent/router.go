package agent

import "strings"

// Route keys produced by the classify node.
const (
	RouteFinance = "finance"
	RouteWeather = "weather"
	RouteGeneral = "general"
)

var (
	// DefaultFinanceKeywords route a question to the finance node.
	DefaultFinanceKeywords = []string{
		"price", "stock", "market", "bitcoin", "btc", "crypto",
		"precio", "acciones", "mercado", "bolsa",
	}

	// DefaultWeatherKeywords route a question to the weather node.
	DefaultWeatherKeywords = []string{
		"weather", "forecast", "rain", "temperature", "sunny",
		"clima", "lluvia", "temperatura", "pronóstico",
	}
)

// Router picks a route key by case-insensitive substring match. Finance
// keywords are checked before weather keywords; no match routes to general.
type Router struct {
	Finance []string
	Weather []string
}

// NewRouter returns a Router with the given keyword lists, substituting the
// defaults for empty lists.
func NewRouter(finance, weather []string) *Router {
	if len(finance) == 0 {
		finance = DefaultFinanceKeywords
	}
	if len(weather) == 0 {
		weather = DefaultWeatherKeywords
	}

	return &Router{
		Finance: lowerAll(finance),
		Weather: lowerAll(weather),
	}
}

// Classify returns the route key for text.
func (r *Router) Classify(text string) string {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, r.Finance):
		return RouteFinance
	case containsAny(lower, r.Weather):
		return RouteWeather
	default:
		return RouteGeneral
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
