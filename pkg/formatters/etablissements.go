package formatters

import "github.com/opendata-nc/registre/pkg/models"

// FormatEtablissements maps rows onto Etablissement records.
// Missing attributes become nil; nil or empty input yields an empty slice.
func FormatEtablissements(etablissements []Record) []models.Etablissement {
	formatted := make([]models.Etablissement, 0, len(etablissements))

	for _, e := range etablissements {
		formatted = append(formatted, models.Etablissement{
			TypeEtablissement:    GetValue(e, "type_etablissement"),
			Situation:            GetValue(e, "situation"),
			RID:                  GetValue(e, "rid"),
			Designation:          GetValue(e, "designation"),
			Enseigne:             GetValue(e, "enseigne"),
			APE:                  GetValue(e, "ape"),
			CodeAPE:              GetValue(e, "code_ape"),
			ActivitesSecondaires: GetValue(e, "activites_secondaires"),
			CodeNafa:             GetValue(e, "code_nafa"),
			CodeNafaSecondaires:  GetValue(e, "code_nafa_secondaires"),
			AdressePhysique:      GetValue(e, "adresse_physique"),
			CodePostalPhysique:   GetValue(e, "code_postal_physique"),
			VillePhysique:        GetValue(e, "ville_physique"),
			AdressePostale:       GetValue(e, "adresse_postale"),
			CodePostalPostale:    GetValue(e, "code_postal_postale"),
			VillePostale:         GetValue(e, "ville_postale"),
			DateCreation:         GetValue(e, "date_creation"),
			DateDebutActivite:    GetValue(e, "date_debut_activite"),
			ConventionCollective: GetValue(e, "convention_collective"),
		})
	}

	return formatted
}

// FormatEntreprises maps rows onto Entreprise records with the same rules
func FormatEntreprises(entreprises []Record) []models.Entreprise {
	formatted := make([]models.Entreprise, 0, len(entreprises))

	for _, e := range entreprises {
		formatted = append(formatted, models.Entreprise{
			RID:            GetValue(e, "rid"),
			Sigle:          GetValue(e, "sigle"),
			Enseigne:       GetValue(e, "enseigne"),
			FormeJuridique: GetValue(e, "forme_juridique"),
			Adresse:        GetValue(e, "adresse"),
			CodePostal:     GetValue(e, "code_postal"),
			Ville:          GetValue(e, "ville"),
		})
	}

	return formatted
}
