// Package ridet recognizes and normalizes RIDET registry identifiers.
//
// A RID identifies a company with 7 digits (a leading zero is often
// dropped). A RIDET appends the 3-digit rank of one of its establishments,
// usually written "1234567.001".
package ridet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned by Parse when the term is not a RID or RIDET
var ErrInvalid = errors.New("invalid ridet")

var (
	separators = strings.NewReplacer(" ", "", ".", "", "-", "")
	digits     = regexp.MustCompile(`^\d+$`)
)

// Ridet is a normalized identifier
type Ridet struct {
	// RID is the 7-digit company number
	RID string
	// Etablissement is the 3-digit establishment rank, empty for a bare RID
	Etablissement string
}

// IsRidet reports whether term is written as a RID or RIDET
func IsRidet(term string) bool {
	_, err := Parse(term)
	return err == nil
}

// Parse normalizes term into a Ridet
func Parse(term string) (Ridet, error) {
	compact := separators.Replace(strings.TrimSpace(term))
	if !digits.MatchString(compact) {
		return Ridet{}, fmt.Errorf("%w: %q", ErrInvalid, term)
	}

	switch len(compact) {
	case 6, 7:
		return Ridet{RID: padRID(compact)}, nil
	case 9, 10:
		cut := len(compact) - 3
		return Ridet{RID: padRID(compact[:cut]), Etablissement: compact[cut:]}, nil
	default:
		return Ridet{}, fmt.Errorf("%w: %q has %d digits", ErrInvalid, term, len(compact))
	}
}

// String renders the canonical form, "1234567" or "1234567.001"
func (r Ridet) String() string {
	if r.Etablissement == "" {
		return r.RID
	}
	return r.RID + "." + r.Etablissement
}

// HasEtablissement reports whether the identifier targets one establishment
func (r Ridet) HasEtablissement() bool {
	return r.Etablissement != ""
}

func padRID(rid string) string {
	if len(rid) == 6 {
		return "0" + rid
	}
	return rid
}
