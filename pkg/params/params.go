package params

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// SearchParams holds the validated parameters of one search request.
// It is built once per request by New and never modified afterwards.
type SearchParams struct {
	Page           int      `query:"page" validate:"min=1,max=1000"`
	PerPage        int      `query:"per_page" validate:"min=1,max=25"`
	Terms          string   `query:"q"`
	Commune        []string `query:"commune" validate:"omitempty,dive,field_pattern=commune"`
	CodePostal     []string `query:"code_postal" validate:"omitempty,dive,field_pattern=code_postal"`
	FormeJuridique []string `query:"forme_juridique" validate:"omitempty,dive,field_enum=forme_juridique"`
}

// New coerces raw query-string values into a SearchParams and validates it.
// Rules are reported in validationOrder and the first failing one is returned
// as an *InvalidParamError. Unknown keys are ignored.
func New(raw map[string]string) (*SearchParams, error) {
	p := &SearchParams{
		Page:    NumericFieldLimits[FieldPage].Default,
		PerPage: NumericFieldLimits[FieldPerPage].Default,
	}
	failures := make(map[string]error)

	if value, ok := raw[FieldPage]; ok {
		if n, err := parseInt(FieldPage, value); err != nil {
			failures[FieldPage] = err
		} else {
			p.Page = n
		}
	}
	if value, ok := raw[FieldPerPage]; ok {
		if n, err := parseInt(FieldPerPage, value); err != nil {
			failures[FieldPerPage] = err
		} else {
			p.PerPage = n
		}
	}

	p.Terms = cleanStr(raw[FieldTerms])
	p.Commune = strToList(cleanStr(raw[FieldCommune]))
	p.CodePostal = strToList(cleanStr(raw[FieldCodePostal]))
	p.FormeJuridique = strToList(cleanStr(raw[FieldFormeJuridique]))

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate search parameters: %w", err)
		}
		for _, fe := range fieldErrs {
			// A coercion failure outranks the checks run on the default value
			if _, seen := failures[ruleField(fe)]; !seen {
				failures[ruleField(fe)] = toInvalidParam(fe)
			}
		}
	}

	for _, field := range validationOrder {
		if err := failures[field]; err != nil {
			return nil, err
		}
	}

	if p.isEmpty() {
		return nil, newInvalidParam("", "Veuillez indiquer au moins un paramètre de recherche.")
	}

	return p, nil
}

// Offset returns the number of rows skipped before the current page
func (p *SearchParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasFilters reports whether any list filter is set
func (p *SearchParams) HasFilters() bool {
	return len(p.Commune) > 0 || len(p.CodePostal) > 0 || len(p.FormeJuridique) > 0
}

// CacheKey returns a deterministic key identifying these parameters
func (p *SearchParams) CacheKey() string {
	values := url.Values{}
	values.Set(FieldPage, strconv.Itoa(p.Page))
	values.Set(FieldPerPage, strconv.Itoa(p.PerPage))
	if p.Terms != "" {
		values.Set(FieldTerms, p.Terms)
	}
	if len(p.Commune) > 0 {
		values.Set(FieldCommune, strings.Join(p.Commune, ","))
	}
	if len(p.CodePostal) > 0 {
		values.Set(FieldCodePostal, strings.Join(p.CodePostal, ","))
	}
	if len(p.FormeJuridique) > 0 {
		values.Set(FieldFormeJuridique, strings.Join(p.FormeJuridique, ","))
	}
	return values.Encode()
}

// isEmpty is true when no criterion besides pagination carries a value.
// An explicitly passed but empty parameter counts as unset.
func (p *SearchParams) isEmpty() bool {
	return p.Terms == "" && !p.HasFilters()
}

// parseInt coerces an integer parameter, range checks are left to the validator
func parseInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, newInvalidParam(field,
			fmt.Sprintf("Veuillez indiquer un paramètre `%s` entier.", field))
	}
	return n, nil
}

// cleanStr composes accents (NFC), trims the value and collapses inner whitespace
func cleanStr(value string) string {
	return strings.Join(strings.Fields(norm.NFC.String(value)), " ")
}

var typographicApostrophes = strings.NewReplacer("\u2019", "'", "\u02bc", "'")

// strToList splits a comma separated value into upper-cased, non-empty elements.
// An empty input yields nil.
func strToList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToUpper(strings.TrimSpace(typographicApostrophes.Replace(part)))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
