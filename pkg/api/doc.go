// Package api exposes the registry search over HTTP.
//
// # Endpoints
//
//	GET /search?q=boulangerie&commune=Nouméa&page=2&per_page=25
//	GET /search?q=1234567.001
//	GET /entreprises/{rid}/etablissements
//
// /search accepts the keys q, commune, code_postal, forme_juridique, page and
// per_page. Rejected parameters answer 400 with the French validation
// message and no query is run:
//
//	{"error": "Veuillez indiquer un paramètre `per_page` entre `1` et `25`, par défaut `10`."}
//
// /entreprises/{rid}/etablissements answers 400 for a malformed RID and 404
// for an unknown one. Storage failures always answer 500 with a generic
// message, the cause is logged with the request ID.
//
// # Usage
//
//	service := search.NewService(cm.Primary(), search.WithReplicas(cm.Replica))
//	server := api.NewServer(service, logger, api.WithMetrics(metrics))
//	http.ListenAndServe(":8080", server.Handler())
package api
