package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushhealth/go-ayush/internal/apperr"
	"github.com/ayushhealth/go-ayush/internal/pagination"
)

func allPages() pagination.Params {
	return pagination.Params{Limit: DefaultLimit}
}

func TestListQueryMatchesNameSynonymOrDescription(t *testing.T) {
	c := Default()

	for _, term := range []string{"a", "PILES", "cough", "joint", "sugar", "vata", "disorder", "zzz"} {
		got, meta := c.List(Filter{Query: term, Page: allPages()})
		assert.Equal(t, len(got), meta.Total, "term %q", term)

		lower := strings.ToLower(term)
		for _, d := range got {
			hit := strings.Contains(strings.ToLower(d.Name), lower) ||
				strings.Contains(strings.ToLower(d.Description), lower)
			for _, s := range d.Synonyms {
				hit = hit || strings.Contains(strings.ToLower(s), lower)
			}
			assert.True(t, hit, "disease %s returned for %q without a match", d.Name, term)
		}
	}
}

func TestListBySynonym(t *testing.T) {
	got, _ := Default().List(Filter{Query: "hemorrhoids", Page: allPages()})
	require.Len(t, got, 1)
	assert.Equal(t, "Arsha", got[0].Name)
}

func TestListCategoryIsExactAndCaseInsensitive(t *testing.T) {
	c := Default()

	got, meta := c.List(Filter{Category: "respiratory system", Page: allPages()})
	assert.Equal(t, 3, meta.Total)
	for _, d := range got {
		assert.Equal(t, CategoryRespiratory, d.Category)
	}

	got, _ = c.List(Filter{Category: "Respiratory", Page: allPages()})
	assert.Empty(t, got)
}

func TestListPagination(t *testing.T) {
	c := Default()

	got, meta := c.List(Filter{Page: pagination.Params{Limit: 3, Offset: 8}})
	assert.Len(t, got, 2)
	assert.Equal(t, pagination.Meta{Total: 10, Limit: 3, Offset: 8, HasMore: false}, meta)

	got, meta = c.List(Filter{Page: pagination.Params{Limit: 3, Offset: 0}})
	assert.Len(t, got, 3)
	assert.True(t, meta.HasMore)
	assert.Equal(t, "1", got[0].ID)
}

func TestGet(t *testing.T) {
	c := Default()

	d, err := c.Get("4")
	require.NoError(t, err)
	assert.Equal(t, "Madhumeha", d.Name)

	_, err = c.Get("404")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Nil(t, c.Lookup("404"))
}

func TestCategoriesFirstOccurrence(t *testing.T) {
	assert.Equal(t, []string{
		CategoryDigestive,
		CategoryMusculoskeletal,
		CategoryEndocrine,
		CategoryRespiratory,
		CategoryCardiovascular,
		CategoryMentalHealth,
		CategoryNeurological,
	}, Default().Categories())
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Disease{{ID: "1"}, {ID: "1"}})
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `diseases:
  - id: "k1"
    name: Jwara
    icd: MG26
    tm2: TM2100
    description: Fever
    category: General
    synonyms: [Fever, Pyrexia]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	d, err := c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fever", "Pyrexia"}, d.Synonyms)
}

func TestLoadEmptyPathUsesSeed(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())
}
