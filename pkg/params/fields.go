package params

import "regexp"

// FieldLimits bounds a numeric query parameter
type FieldLimits struct {
	Min     int
	Max     int
	Default int
}

// NumericFieldLimits holds the range of every integer parameter.
// FieldTotalResults caps page * per_page. The min/max tags of SearchParams
// must agree with these values.
var NumericFieldLimits = map[string]FieldLimits{
	FieldPage:         {Min: 1, Max: 1000, Default: 1},
	FieldPerPage:      {Min: 1, Max: 25, Default: 10},
	FieldTotalResults: {Max: 10000},
}

// Query-string keys
const (
	FieldPage           = "page"
	FieldPerPage        = "per_page"
	FieldTerms          = "q"
	FieldCommune        = "commune"
	FieldCodePostal     = "code_postal"
	FieldFormeJuridique = "forme_juridique"

	// FieldTotalResults names the page * per_page rule
	FieldTotalResults = "total_results"
)

// validationOrder is the order rules are reported in, first failure wins
var validationOrder = []string{
	FieldPage,
	FieldPerPage,
	FieldCommune,
	FieldCodePostal,
	FieldFormeJuridique,
	FieldTotalResults,
}

// PatternRule constrains each element of a list parameter with a regular expression
type PatternRule struct {
	Pattern *regexp.Regexp
}

// EnumRule constrains each element of a list parameter to a fixed set
type EnumRule struct {
	Alias  string
	Values []string
}

// Contains reports whether value belongs to the allowed set
func (r EnumRule) Contains(value string) bool {
	for _, v := range r.Values {
		if v == value {
			return true
		}
	}
	return false
}

// PatternFieldValues lists the regex-constrained list parameters
var PatternFieldValues = map[string]PatternRule{
	FieldCodePostal: {Pattern: regexp.MustCompile(`^988\d{2}$`)},
	FieldCommune:    {Pattern: regexp.MustCompile(`^(?:\p{L}\p{M}*)+(?:[ '\-](?:\p{L}\p{M}*)+)*$`)},
}

// EnumFieldValues lists the whitelist-constrained list parameters
var EnumFieldValues = map[string]EnumRule{
	FieldFormeJuridique: {
		Alias: "forme_juridique",
		Values: []string{
			"ASSOCIATION",
			"EI",
			"EIRL",
			"EURL",
			"GIE",
			"SA",
			"SARL",
			"SARLU",
			"SAS",
			"SASU",
			"SCA",
			"SCI",
			"SCP",
			"SCS",
			"SELARL",
			"SEM",
			"SNC",
		},
	},
}
