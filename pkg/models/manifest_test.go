package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_DecodesPreviousFormat(t *testing.T) {
	raw := `[
	  {
	    "link": "https://www.gov.uk/api/content/a",
	    "lastModified": "2024-01-01T00:00:00.000Z",
	    "documentKeys": ["k1", "k2"],
	    "summariesKeys": ["s1"]
	  }
	]`

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Len(t, m, 1)

	assert.Equal(t, "https://www.gov.uk/api/content/a", m[0].Link)
	assert.True(t, m[0].LastModified.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"k1", "k2"}, m[0].DocumentKeys)
	assert.Equal(t, []string{"s1"}, m[0].SummaryKeys)
}

func TestManifest_DecodesPreviousFormat_Timestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2024-01-01T00:00:00Z"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"milliseconds", `"2024-01-01T10:30:00.000Z"`, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"offset", `"2024-01-01T10:30:00+01:00"`, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)},
		{"no zone", `"2024-01-01T10:30:00"`, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"date only", `"2024-01-01"`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"empty", `""`, time.Time{}},
		{"null", `null`, time.Time{}},
		{"garbage", `"last tuesday"`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `[{"link":"a","lastModified":` + tt.raw + `,"documentKeys":["k1"],"summariesKeys":["s1"]}]`

			var m Manifest
			require.NoError(t, json.Unmarshal([]byte(raw), &m))
			require.Len(t, m, 1)
			assert.True(t, m[0].LastModified.Equal(tt.want), "got %v, want %v", m[0].LastModified, tt.want)
			assert.Equal(t, "a", m[0].Link)
			assert.Equal(t, []string{"k1"}, m[0].DocumentKeys)
			assert.Equal(t, []string{"s1"}, m[0].SummaryKeys)
		})
	}
}

func TestManifest_MissingTimestampIsZero(t *testing.T) {
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(`[{"link":"a","documentKeys":[],"summariesKeys":[]}]`), &m))
	require.Len(t, m, 1)
	assert.True(t, m[0].LastModified.IsZero())
}

func TestManifest_NonStringTimestampFails(t *testing.T) {
	var m Manifest
	assert.Error(t, json.Unmarshal([]byte(`[{"link":"a","lastModified":42}]`), &m))
}

func TestManifest_EncodesRFC3339(t *testing.T) {
	data, err := json.Marshal(Manifest{{Link: "a", LastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastModified":"2024-01-01T00:00:00Z"`)
}

func TestManifest_Keys(t *testing.T) {
	m := Manifest{
		{Link: "a", DocumentKeys: []string{"k1", "k2"}, SummaryKeys: []string{"s1"}},
		{Link: "b", DocumentKeys: []string{"k3"}, SummaryKeys: []string{"s2"}},
	}

	assert.Equal(t, []string{"k1", "k2", "k3"}, m.DocumentKeys())
	assert.Equal(t, []string{"s1", "s2"}, m.SummaryKeys())
	assert.Equal(t, []string{"a", "b"}, m.Links())
}
