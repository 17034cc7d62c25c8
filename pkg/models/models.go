// Package models defines the records returned by the search API.
//
// Every field is a *string: nil marks an attribute absent from the source
// row and is encoded as JSON null.
package models

// Entreprise is a company as exposed by the search endpoint
type Entreprise struct {
	RID            *string `json:"rid"`
	Sigle          *string `json:"sigle"`
	Enseigne       *string `json:"enseigne"`
	FormeJuridique *string `json:"forme_juridique"`
	Adresse        *string `json:"adresse"`
	CodePostal     *string `json:"code_postal"`
	Ville          *string `json:"ville"`
}

// Etablissement is one establishment of a company
type Etablissement struct {
	TypeEtablissement    *string `json:"type_etablissement"`
	Situation            *string `json:"situation"`
	RID                  *string `json:"rid"`
	Designation          *string `json:"designation"`
	Enseigne             *string `json:"enseigne"`
	APE                  *string `json:"ape"`
	CodeAPE              *string `json:"code_ape"`
	ActivitesSecondaires *string `json:"activites_secondaires"`
	CodeNafa             *string `json:"code_nafa"`
	CodeNafaSecondaires  *string `json:"code_nafa_secondaires"`
	AdressePhysique      *string `json:"adresse_physique"`
	CodePostalPhysique   *string `json:"code_postal_physique"`
	VillePhysique        *string `json:"ville_physique"`
	AdressePostale       *string `json:"adresse_postale"`
	CodePostalPostale    *string `json:"code_postal_postale"`
	VillePostale         *string `json:"ville_postale"`
	DateCreation         *string `json:"date_creation"`
	DateDebutActivite    *string `json:"date_debut_activite"`
	ConventionCollective *string `json:"convention_collective"`
}

// EntrepriseColumns lists the entreprise table columns, in table order
var EntrepriseColumns = []string{
	"id", "rid", "sigle", "enseigne", "forme_juridique", "adresse", "code_postal", "ville",
}

// EtablissementFields lists the whitelisted output fields of an Etablissement
var EtablissementFields = []string{
	"type_etablissement",
	"situation",
	"rid",
	"designation",
	"enseigne",
	"ape",
	"code_ape",
	"activites_secondaires",
	"code_nafa",
	"code_nafa_secondaires",
	"adresse_physique",
	"code_postal_physique",
	"ville_physique",
	"adresse_postale",
	"code_postal_postale",
	"ville_postale",
	"date_creation",
	"date_debut_activite",
	"convention_collective",
}
