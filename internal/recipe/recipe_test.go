package recipe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("tomato.seedling")
	require.NoError(t, err)
	assert.Equal(t, Key{Crop: "tomato", Stage: "seedling"}, k)
	assert.Equal(t, "tomato.seedling", k.String())

	for _, bad := range []string{"", "tomato", "tomato.", ".seedling", "a.b.c"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, cerrors.ErrMalformedRecipeKey, bad)
	}
}

func TestFileCatalog_JSON(t *testing.T) {
	path := writeFile(t, "catalog_crop.json", `{"tomato":{"seedling":{"Temp":{"min":18,"max":26},"Hum":{"min":60}}}}`)

	c, err := FileCatalog{Path: path}.LoadCatalog()
	require.NoError(t, err)

	stage, err := c.Lookup(Key{Crop: "tomato", Stage: "seedling"})
	require.NoError(t, err)

	lim, ok := stage.Match("Temp Sensor")
	require.True(t, ok)
	assert.Equal(t, 18.0, *lim.Min)
	assert.Equal(t, 26.0, *lim.Max)

	lim, ok = stage.Match("greenhouse HUMIDITY")
	require.True(t, ok)
	assert.Equal(t, 60.0, *lim.Min)
	assert.Nil(t, lim.Max)

	_, ok = stage.Match("Soil moisture")
	assert.False(t, ok)

	_, err = c.Lookup(Key{Crop: "tomato", Stage: "flowering"})
	assert.ErrorIs(t, err, cerrors.ErrRecipeNotFound)
	_, err = c.Lookup(Key{Crop: "lettuce", Stage: "seedling"})
	assert.ErrorIs(t, err, cerrors.ErrRecipeNotFound)
}

func TestFileCatalog_YAML(t *testing.T) {
	path := writeFile(t, "catalog_crop.yaml", `
strawberry:
  flowering:
    temp:
      min: 15
      max: 24
`)
	c, err := FileCatalog{Path: path}.LoadCatalog()
	require.NoError(t, err)
	stage, err := c.Lookup(Key{Crop: "strawberry", Stage: "flowering"})
	require.NoError(t, err)
	require.Len(t, stage, 1)
	assert.Equal(t, "temp", stage[0].Keyword)
	assert.Equal(t, 24.0, *stage[0].Limits.Max)
}

func TestFileCatalog_Errors(t *testing.T) {
	_, err := FileCatalog{Path: filepath.Join(t.TempDir(), "missing.json")}.LoadCatalog()
	assert.ErrorIs(t, err, cerrors.ErrMissingDocument)

	_, err = FileCatalog{Path: writeFile(t, "bad.json", `{"tomato":`)}.LoadCatalog()
	assert.ErrorIs(t, err, cerrors.ErrMalformedDocument)
}

func TestStage_MatchDocumentOrder(t *testing.T) {
	jsonPath := writeFile(t, "catalog_crop.json",
		`{"tomato":{"seedling":{"temp":{"min":18,"max":26},"soil":{"min":30,"max":60},"air":null}}}`)
	yamlPath := writeFile(t, "catalog_crop.yaml", `
tomato:
  seedling:
    temp: {min: 18, max: 26}
    soil: {min: 30, max: 60}
`)
	for _, path := range []string{jsonPath, yamlPath} {
		c, err := FileCatalog{Path: path}.LoadCatalog()
		require.NoError(t, err, path)
		stage, err := c.Lookup(Key{Crop: "tomato", Stage: "seedling"})
		require.NoError(t, err, path)
		require.GreaterOrEqual(t, len(stage), 2, path)
		assert.Equal(t, "temp", stage[0].Keyword, path)
		assert.Equal(t, "soil", stage[1].Keyword, path)

		lim, ok := stage.Match("Soil Temp")
		require.True(t, ok, path)
		assert.Equal(t, 18.0, *lim.Min, path)
		assert.Equal(t, 26.0, *lim.Max, path)

		lim, ok = stage.Match("Soil Moisture")
		require.True(t, ok, path)
		assert.Equal(t, 30.0, *lim.Min, path)
	}

	reversed := Stage{
		{Keyword: "soil", Limits: Limits{Min: ptr(30)}},
		{Keyword: "temp", Limits: Limits{Min: ptr(18)}},
	}
	lim, ok := reversed.Match("Soil Temp")
	require.True(t, ok)
	assert.Equal(t, 30.0, *lim.Min)
}

func TestStage_DecodeErrors(t *testing.T) {
	_, err := FileCatalog{Path: writeFile(t, "bad_stage.json", `{"tomato":{"seedling":[1,2]}}`)}.LoadCatalog()
	assert.ErrorIs(t, err, cerrors.ErrMalformedDocument)

	_, err = FileCatalog{Path: writeFile(t, "bad_limits.json", `{"tomato":{"seedling":{"temp":{"min":"warm"}}}}`)}.LoadCatalog()
	assert.ErrorIs(t, err, cerrors.ErrMalformedDocument)
}

func TestZone_ResolveStage(t *testing.T) {
	z := Zone{ID: "A", Crop: "tomato", Schedule: map[string]string{
		"seedling":  "2024-01-01",
		"flowering": "2024-03-01",
	}}

	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "seedling"},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "flowering"},
		{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), "sowing"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "flowering"},
		{time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC), "seedling"},
	}
	for _, tt := range tests {
		got, err := z.ResolveStage(tt.now)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.now.String())
	}

	k, err := z.RecipeKey(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "tomato.seedling", k.String())
}

func TestZone_ResolveStage_Location(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	z := Zone{ID: "A", Schedule: map[string]string{"seedling": "2024-01-01"}}

	// 2024-01-01 00:30 in Seoul is still 2023-12-31 in UTC
	now := time.Date(2024, 1, 1, 0, 30, 0, 0, seoul)
	got, err := z.ResolveStage(now)
	require.NoError(t, err)
	assert.Equal(t, "seedling", got)

	k, err := z.RecipeKey(now)
	require.NoError(t, err)
	assert.Equal(t, "none.seedling", k.String())
}

func TestFileSchedule(t *testing.T) {
	path := writeFile(t, "zone_config.json", `[
		{"id": "A", "crop": "tomato", "schedule": {"seedling": "2024-01-01"}},
		{"id": "B", "schedule": {}}
	]`)
	s, err := FileSchedule{Path: path}.LoadSchedule()
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, "A", s[0].ID)
	assert.Equal(t, "none", s[1].CropOrDefault())

	path = writeFile(t, "zone_config.yml", "- id: C\n  crop: lettuce\n  schedule:\n    harvest: 2024-05-01\n")
	s, err = FileSchedule{Path: path}.LoadSchedule()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", s[0].Schedule["harvest"])

	path = writeFile(t, "bad_date.json", `[{"id": "A", "schedule": {"seedling": "01/01/2024"}}]`)
	_, err = FileSchedule{Path: path}.LoadSchedule()
	assert.ErrorIs(t, err, cerrors.ErrMalformedDocument)
}

func ptr(v float64) *float64 { return &v }
