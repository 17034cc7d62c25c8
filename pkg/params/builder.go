package params

import "net/http"

// MapRequestParameters copies the query string of r into a plain map.
// When a key is repeated the last value wins.
func MapRequestParameters(r *http.Request) map[string]string {
	mapped := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		mapped[key] = values[len(values)-1]
	}
	return mapped
}

// FromRequest maps and validates the search parameters of r
func FromRequest(r *http.Request) (*SearchParams, error) {
	return New(MapRequestParameters(r))
}
