package params

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	p, err := New(map[string]string{"q": "boulangerie"})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, "boulangerie", p.Terms)
	assert.Nil(t, p.Commune)
	assert.Nil(t, p.CodePostal)
	assert.Nil(t, p.FormeJuridique)
	assert.Equal(t, 0, p.Offset())
}

func TestNew_Pagination(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]string
		expectPage  int
		expectPer   int
		expectError string
	}{
		{
			name:       "explicit values",
			raw:        map[string]string{"q": "x", "page": "3", "per_page": "25"},
			expectPage: 3,
			expectPer:  25,
		},
		{
			name:       "surrounding spaces",
			raw:        map[string]string{"q": "x", "page": " 2 "},
			expectPage: 2,
			expectPer:  10,
		},
		{
			name:        "page not an integer",
			raw:         map[string]string{"q": "x", "page": "abc"},
			expectError: "Veuillez indiquer un paramètre `page` entier.",
		},
		{
			name:        "per_page empty",
			raw:         map[string]string{"q": "x", "per_page": ""},
			expectError: "Veuillez indiquer un paramètre `per_page` entier.",
		},
		{
			name:        "page zero",
			raw:         map[string]string{"q": "x", "page": "0"},
			expectError: "Veuillez indiquer un paramètre `page` entre `1` et `1000`, par défaut `1`.",
		},
		{
			name:        "per_page too large",
			raw:         map[string]string{"q": "x", "per_page": "26"},
			expectError: "Veuillez indiquer un paramètre `per_page` entre `1` et `25`, par défaut `10`.",
		},
		{
			name:       "page at the upper bound",
			raw:        map[string]string{"q": "x", "page": "1000", "per_page": "1"},
			expectPage: 1000,
			expectPer:  1,
		},
		{
			name:        "page above the upper bound",
			raw:         map[string]string{"q": "x", "page": "1001", "per_page": "1"},
			expectError: "Veuillez indiquer un paramètre `page` entre `1` et `1000`, par défaut `1`.",
		},
		{
			name:        "negative per_page",
			raw:         map[string]string{"q": "x", "per_page": "-1"},
			expectError: "Veuillez indiquer un paramètre `per_page` entre",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.raw)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.True(t, IsInvalidParam(err))
				assert.Contains(t, err.Error(), tt.expectError)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectPage, p.Page)
			assert.Equal(t, tt.expectPer, p.PerPage)
		})
	}
}

func TestNew_TotalResultsCeiling(t *testing.T) {
	t.Run("at the ceiling", func(t *testing.T) {
		p, err := New(map[string]string{"q": "x", "page": "400", "per_page": "25"})
		require.NoError(t, err)
		assert.Equal(t, 10000, p.Page*p.PerPage)
		assert.Equal(t, 9975, p.Offset())
	})

	t.Run("above the ceiling", func(t *testing.T) {
		_, err := New(map[string]string{"q": "x", "page": "401", "per_page": "25"})
		require.Error(t, err)
		assert.True(t, IsInvalidParam(err))
		assert.Contains(t, err.Error(), "restreint à 10 000")

		var invalid *InvalidParamError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, FieldPage, invalid.Field)
	})

	t.Run("range error reported before the ceiling", func(t *testing.T) {
		_, err := New(map[string]string{"q": "x", "page": "2000", "per_page": "25"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entre `1` et `1000`")
	})
}

func TestNew_PaginationInvariantHoldsForAllAccepted(t *testing.T) {
	for page := 1; page <= 1000; page += 37 {
		for perPage := 1; perPage <= 25; perPage += 4 {
			raw := map[string]string{
				"q":        "x",
				"page":     fmt.Sprint(page),
				"per_page": fmt.Sprint(perPage),
			}
			p, err := New(raw)
			if page*perPage > 10000 {
				assert.True(t, IsInvalidParam(err), "page=%d per_page=%d", page, perPage)
				continue
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Page, 1)
			assert.GreaterOrEqual(t, p.PerPage, 1)
			assert.LessOrEqual(t, p.Page*p.PerPage, 10000)
		}
	}
}

func TestNew_EmptyCriteria(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
	}{
		{"nothing", map[string]string{}},
		{"pagination only", map[string]string{"page": "2", "per_page": "5"}},
		{"blank terms", map[string]string{"q": "   "}},
		{"empty list", map[string]string{"commune": ""}},
		{"only separators", map[string]string{"code_postal": " , ,"}},
		{"unknown keys only", map[string]string{"foo": "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.raw)
			require.Error(t, err)

			var invalid *InvalidParamError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, "Veuillez indiquer au moins un paramètre de recherche.", invalid.Message)
		})
	}
}

func TestNew_CodePostal(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expected    []string
		expectError bool
	}{
		{"single valid", "98800", []string{"98800"}, false},
		{"several valid", "98800, 98890,98809", []string{"98800", "98890", "98809"}, false},
		{"letters", "ABCDE", nil, true},
		{"outside territory", "75001", nil, true},
		{"one bad among good", "98800,9880", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(map[string]string{"code_postal": tt.value})
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, "Au moins une valeur du paramètre code_postal est non valide.", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.CodePostal)
		})
	}
}

func TestNew_Commune(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expected    []string
		expectError bool
	}{
		{"accented", "Nouméa", []string{"NOUMÉA"}, false},
		{"compound", "Mont-Dore,Île des Pins", []string{"MONT-DORE", "ÎLE DES PINS"}, false},
		{"apostrophe", "L'Île", []string{"L'ÎLE"}, false},
		{"typographic apostrophe", "L\u2019Île", []string{"L'ÎLE"}, false},
		{"decomposed accent", "Kone\u0301", []string{"KONÉ"}, false},
		{"decomposed accent list", "Poue\u0301bo, Thio", []string{"POUÉBO", "THIO"}, false},
		{"digits", "Noumea2", nil, true},
		{"trailing hyphen", "Koné-", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(map[string]string{"commune": tt.value})
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, IsInvalidParam(err))
				assert.Contains(t, err.Error(), "commune")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Commune)
		})
	}
}

func TestNew_FormeJuridique(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		p, err := New(map[string]string{"forme_juridique": "SARL"})
		require.NoError(t, err)
		assert.Equal(t, []string{"SARL"}, p.FormeJuridique)
	})

	t.Run("lower case is normalized", func(t *testing.T) {
		p, err := New(map[string]string{"forme_juridique": "sarl, sas"})
		require.NoError(t, err)
		assert.Equal(t, []string{"SARL", "SAS"}, p.FormeJuridique)
	})

	t.Run("invalid value lists allowed values", func(t *testing.T) {
		_, err := New(map[string]string{"forme_juridique": "XXXX"})
		require.Error(t, err)

		var invalid *InvalidParamError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, FieldFormeJuridique, invalid.Field)
		assert.Contains(t, invalid.Message, "`forme_juridique` est non valide")
		for _, v := range EnumFieldValues[FieldFormeJuridique].Values {
			assert.Contains(t, invalid.Message, "'"+v+"'")
		}
	})
}

func TestNew_FirstFailureWins(t *testing.T) {
	_, err := New(map[string]string{
		"page":            "abc",
		"code_postal":     "ABCDE",
		"forme_juridique": "XXXX",
	})
	require.Error(t, err)

	var invalid *InvalidParamError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, FieldPage, invalid.Field)
}

func TestNew_FailureOrder(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]string
		expectField string
	}{
		{
			name:        "range before coercion of a later field",
			raw:         map[string]string{"q": "x", "page": "0", "per_page": "abc"},
			expectField: FieldPage,
		},
		{
			name:        "per_page before lists",
			raw:         map[string]string{"per_page": "99", "commune": "123", "forme_juridique": "XXXX"},
			expectField: FieldPerPage,
		},
		{
			name:        "commune before code_postal",
			raw:         map[string]string{"code_postal": "75001", "commune": "123"},
			expectField: FieldCommune,
		},
		{
			name:        "forme_juridique before the ceiling",
			raw:         map[string]string{"forme_juridique": "XXXX", "page": "1000", "per_page": "25"},
			expectField: FieldFormeJuridique,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.raw)
			require.Error(t, err)

			var invalid *InvalidParamError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.expectField, invalid.Field)
		})
	}
}

func TestSearchParams_CacheKey(t *testing.T) {
	a, err := New(map[string]string{"q": "snack", "commune": "Nouméa,Dumbéa", "page": "2"})
	require.NoError(t, err)
	b, err := New(map[string]string{"page": "2", "commune": "NOUMÉA, DUMBÉA", "q": " snack "})
	require.NoError(t, err)
	c, err := New(map[string]string{"q": "snack", "commune": "Nouméa,Dumbéa", "page": "3"})
	require.NoError(t, err)

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestInvalidParamError(t *testing.T) {
	err := fmt.Errorf("search failed: %w", newInvalidParam("page", "bad page"))

	assert.True(t, IsInvalidParam(err))
	assert.False(t, IsInvalidParam(errors.New("boom")))
	assert.Equal(t, "search failed: bad page", err.Error())
}
