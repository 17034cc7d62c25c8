package migrations

// Migration is one reversible schema change
type Migration struct {
	Version     int
	Revision    string
	Description string
	Up          string
	Down        string
}

// All returns the registry schema migrations in application order
func All() []Migration {
	return []Migration{
		{
			Version:     1,
			Revision:    "2b66a33c4bc4",
			Description: "schéma initial du registre",
			Up: `
				CREATE TABLE IF NOT EXISTS entreprise (
					id SERIAL PRIMARY KEY,
					rid VARCHAR(16) UNIQUE,
					sigle VARCHAR,
					enseigne VARCHAR,
					forme_juridique VARCHAR,
					adresse VARCHAR,
					code_postal VARCHAR(5),
					ville VARCHAR
				);

				CREATE TABLE IF NOT EXISTS etablissement (
					id SERIAL PRIMARY KEY,
					entreprise_id INTEGER REFERENCES entreprise(id) ON DELETE CASCADE,
					type_etablissement VARCHAR,
					situation VARCHAR,
					rid VARCHAR(16) UNIQUE,
					designation VARCHAR,
					enseigne VARCHAR,
					ape VARCHAR,
					code_ape VARCHAR,
					activites_secondaires VARCHAR,
					code_nafa VARCHAR,
					code_nafa_secondaires VARCHAR,
					adresse_physique VARCHAR,
					code_postal_physique VARCHAR(5),
					ville_physique VARCHAR,
					adresse_postale VARCHAR,
					code_postal_postale VARCHAR(5),
					ville_postale VARCHAR,
					date_creation DATE,
					date_debut_activite DATE,
					convention_collective VARCHAR
				);

				CREATE TABLE IF NOT EXISTS bilan (
					id SERIAL PRIMARY KEY,
					entreprise_id INTEGER NOT NULL REFERENCES entreprise(id),
					etablissement_id INTEGER NOT NULL REFERENCES etablissement(id),
					annee INTEGER,
					chiffre_affaires NUMERIC,
					resultat_net NUMERIC
				);

				CREATE TABLE IF NOT EXISTS dirigeant (
					id SERIAL PRIMARY KEY,
					entreprise_id INTEGER NOT NULL REFERENCES entreprise(id),
					etablissement_id INTEGER NOT NULL REFERENCES etablissement(id),
					nom VARCHAR,
					prenom VARCHAR,
					fonction VARCHAR
				);

				CREATE TABLE IF NOT EXISTS indicateurs_financiers (
					id SERIAL PRIMARY KEY,
					entreprise_id INTEGER NOT NULL REFERENCES entreprise(id),
					etablissement_id INTEGER NOT NULL REFERENCES etablissement(id),
					annee INTEGER,
					indicateur VARCHAR,
					valeur NUMERIC
				);

				CREATE INDEX IF NOT EXISTS etablissement_entreprise_id_idx ON etablissement(entreprise_id);
				CREATE INDEX IF NOT EXISTS entreprise_ville_idx ON entreprise(UPPER(ville));
				CREATE INDEX IF NOT EXISTS entreprise_code_postal_idx ON entreprise(code_postal);
				CREATE INDEX IF NOT EXISTS entreprise_search_idx ON entreprise USING GIN (
					to_tsvector('french', coalesce(sigle, '') || ' ' || coalesce(enseigne, '') || ' ' || coalesce(rid, ''))
				);
			`,
			Down: `
				DROP TABLE IF EXISTS indicateurs_financiers;
				DROP TABLE IF EXISTS dirigeant;
				DROP TABLE IF EXISTS bilan;
				DROP TABLE IF EXISTS etablissement;
				DROP TABLE IF EXISTS entreprise;
			`,
		},
		{
			Version:     2,
			Revision:    "a3c5d4fb38e4",
			Description: "clé étrangère nullable",
			Up: `
				ALTER TABLE bilan ALTER COLUMN entreprise_id DROP NOT NULL;
				ALTER TABLE bilan ALTER COLUMN etablissement_id DROP NOT NULL;
				ALTER TABLE dirigeant ALTER COLUMN entreprise_id DROP NOT NULL;
				ALTER TABLE dirigeant ALTER COLUMN etablissement_id DROP NOT NULL;
				ALTER TABLE indicateurs_financiers ALTER COLUMN entreprise_id DROP NOT NULL;
				ALTER TABLE indicateurs_financiers ALTER COLUMN etablissement_id DROP NOT NULL;
			`,
			// Fails if NULL rows were written in the meantime
			Down: `
				ALTER TABLE indicateurs_financiers ALTER COLUMN etablissement_id SET NOT NULL;
				ALTER TABLE indicateurs_financiers ALTER COLUMN entreprise_id SET NOT NULL;
				ALTER TABLE dirigeant ALTER COLUMN etablissement_id SET NOT NULL;
				ALTER TABLE dirigeant ALTER COLUMN entreprise_id SET NOT NULL;
				ALTER TABLE bilan ALTER COLUMN etablissement_id SET NOT NULL;
				ALTER TABLE bilan ALTER COLUMN entreprise_id SET NOT NULL;
			`,
		},
		{
			Version:     3,
			Revision:    "c81f0e4b7d29",
			Description: "historique des recherches",
			Up: `
				CREATE TABLE IF NOT EXISTS search_history (
					id BIGSERIAL PRIMARY KEY,
					terms TEXT NOT NULL,
					strategy VARCHAR(16) NOT NULL,
					result_count INTEGER NOT NULL DEFAULT 0,
					search_duration_ms INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS search_history_created_at_idx ON search_history(created_at);
			`,
			Down: `
				DROP TABLE IF EXISTS search_history;
			`,
		},
	}
}
