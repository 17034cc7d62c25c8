package params

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags. The tag parameter names the rule table entry.
const (
	tagPattern      = "field_pattern"
	tagEnum         = "field_enum"
	tagTotalResults = "total_results"
)

// validate caches struct metadata and is safe for concurrent use
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Errors are reported with query-string keys
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("query"); name != "" {
			return name
		}
		return field.Name
	})

	mustRegister(v, tagPattern, func(fl validator.FieldLevel) bool {
		rule, ok := PatternFieldValues[fl.Param()]
		return ok && rule.Pattern.MatchString(fl.Field().String())
	})
	mustRegister(v, tagEnum, func(fl validator.FieldLevel) bool {
		rule, ok := EnumFieldValues[fl.Param()]
		return ok && rule.Contains(fl.Field().String())
	})

	v.RegisterStructValidation(validateTotalResults, SearchParams{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("params: register %s: %v", tag, err))
	}
}

func validateTotalResults(sl validator.StructLevel) {
	p := sl.Current().Interface().(SearchParams)
	if p.Page*p.PerPage > NumericFieldLimits[FieldTotalResults].Max {
		sl.ReportError(p.Page, FieldTotalResults, "Page", tagTotalResults, "")
	}
}

// ruleField returns the parameter a validation failure belongs to. Element
// failures of list parameters carry it as the tag parameter.
func ruleField(fe validator.FieldError) string {
	switch fe.Tag() {
	case tagPattern, tagEnum:
		return fe.Param()
	case tagTotalResults:
		return FieldTotalResults
	default:
		return fe.Field()
	}
}

// toInvalidParam renders a validation failure with the user facing message
// of its rule
func toInvalidParam(fe validator.FieldError) *InvalidParamError {
	field := ruleField(fe)

	switch fe.Tag() {
	case "min", "max":
		limits := NumericFieldLimits[field]
		return newInvalidParam(field,
			fmt.Sprintf("Veuillez indiquer un paramètre `%s` entre `%d` et `%d`, par défaut `%d`.",
				field, limits.Min, limits.Max, limits.Default))

	case tagPattern:
		return newInvalidParam(field,
			fmt.Sprintf("Au moins une valeur du paramètre %s est non valide.", field))

	case tagEnum:
		rule := EnumFieldValues[field]
		quoted := make([]string, len(rule.Values))
		for i, valid := range rule.Values {
			quoted[i] = "'" + valid + "'"
		}
		return newInvalidParam(field,
			fmt.Sprintf("Au moins un paramètre `%s` est non valide. Les valeurs valides : [%s].",
				rule.Alias, strings.Join(quoted, ", ")))

	case tagTotalResults:
		return newInvalidParam(FieldPage,
			"Le nombre total de résultats est restreint à 10 000. "+
				"Pour garantir cela, le produit du numéro de page "+
				"(par défaut, page = 1) et du nombre de résultats par page "+
				"(par défaut, per_page = 10), c'est-à-dire `page * per_page`, "+
				"ne doit pas excéder 10 000.")

	default:
		return newInvalidParam(field, fmt.Sprintf("Le paramètre `%s` est non valide.", field))
	}
}
