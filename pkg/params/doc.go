// Package params maps and validates the query parameters of a search request.
//
// # Overview
//
// Raw query-string values are copied into a map, then coerced into a
// SearchParams value whose `validate` tags are checked with
// go-playground/validator. Every rule failure yields an *InvalidParamError
// whose message is returned to the caller as is.
//
// # Rules
//
//   - page, per_page: integers within NumericFieldLimits
//   - commune, code_postal: comma separated, each element matches a regex.
//     Input is NFC normalised and typographic apostrophes become '.
//   - forme_juridique: comma separated, each element in a fixed whitelist
//   - page * per_page must not exceed 10 000
//   - at least one criterion besides pagination must be set
//
// # Usage Example
//
//	p, err := params.FromRequest(r)
//	if params.IsInvalidParam(err) {
//		httputil.WriteBadRequest(w, err.Error())
//		return
//	}
package params
