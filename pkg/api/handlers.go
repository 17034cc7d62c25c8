package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opendata-nc/registre/pkg/httputil"
	"github.com/opendata-nc/registre/pkg/models"
	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/params"
	"github.com/opendata-nc/registre/pkg/ridet"
	"github.com/opendata-nc/registre/pkg/search"
)

// EtablissementsResponse lists the establishments of one entreprise
type EtablissementsResponse struct {
	RID          string                 `json:"rid"`
	Results      []models.Etablissement `json:"results"`
	TotalResults int                    `json:"total_results"`
}

// search handles GET /search
// Query parameters:
//   - q: free text or a RID/RIDET
//   - commune, code_postal, forme_juridique: comma separated filters
//   - page, per_page: pagination
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	p, err := params.FromRequest(r)
	if err != nil {
		var invalid *params.InvalidParamError
		if errors.As(err, &invalid) {
			s.validationFailed(invalid.Field)
			httputil.WriteBadRequest(w, invalid.Message)
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("failed to read search parameters")
		httputil.WriteInternalError(w)
		return
	}

	resp, err := s.searcher.Search(r.Context(), p)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("search failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, resp)
}

// etablissements handles GET /entreprises/{rid}/etablissements
func (s *Server) etablissements(w http.ResponseWriter, r *http.Request) {
	rid := mux.Vars(r)["rid"]

	results, err := s.searcher.Etablissements(r.Context(), rid)
	switch {
	case errors.Is(err, ridet.ErrInvalid):
		s.validationFailed("rid")
		httputil.WriteBadRequest(w, "rid doit être un RID (7 chiffres) ou un RIDET (10 chiffres)")
		return
	case errors.Is(err, search.ErrNotFound):
		httputil.WriteNotFoundError(w, "entreprise introuvable")
		return
	case err != nil:
		observability.FromContext(r.Context()).WithError(err).WithField("rid", rid).Error("failed to load etablissements")
		httputil.WriteInternalError(w)
		return
	}

	if results == nil {
		results = []models.Etablissement{}
	}

	httputil.WriteSuccess(w, EtablissementsResponse{
		RID:          rid,
		Results:      results,
		TotalResults: len(results),
	})
}

func (s *Server) validationFailed(field string) {
	if s.metrics == nil {
		return
	}
	if field == "" {
		field = "query"
	}
	s.metrics.ValidationErrorsTotal.WithLabelValues(field).Inc()
}
