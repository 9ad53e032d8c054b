package episode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMarshalParse_RoundTrip(t *testing.T) {
	ep := &Episode{
		Number:     42,
		Identifier: "ep42",
		Title:      "Episodio 42",
		Subject:    StringList{"linux", "podcast"},
		Downloads:  37,
		Filename:   "ep42.mp3",
		Datetime:   time.Date(2023, 7, 22, 10, 0, 0, 0, time.UTC),
		Version:    1690000000,
		Size:       2048000,
		Length:     301,
		Mtime:      1690000000,
		Excerpt:    "Hoy hablamos",
		Slug:       "episodio-42",
		Body:       "Hoy hablamos de **Linux**.\n",
	}

	data, err := Marshal(ep)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "---\nnumber: 42\nidentifier: ep42\n"))

	got, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, ep, got)
}

func TestParse_SubjectAsString(t *testing.T) {
	doc := "---\nidentifier: ep1\ntitle: Uno\nsubject: linux\ndownloads: 3\n---\n\nCuerpo\n"

	ep, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, StringList{"linux"}, ep.Subject)
	require.Equal(t, uint64(3), ep.Downloads)
	require.Equal(t, "Cuerpo\n", ep.Body)
	require.Empty(t, ep.Slug)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no front matter", "identifier: ep1\n"},
		{"unterminated", "---\nidentifier: ep1\n"},
		{"bad yaml", "---\nidentifier: [ep1\n---\nbody"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestDerive(t *testing.T) {
	ep := &Episode{Title: "Canción nº 1", Body: "uno dos tres"}
	require.True(t, ep.Derive())
	require.Equal(t, "cancion-n-1", ep.Slug)
	require.Equal(t, "uno dos tres", ep.Excerpt)

	// Cached values are not recomputed.
	ep.Title = "Otro"
	require.False(t, ep.Derive())
	require.Equal(t, "cancion-n-1", ep.Slug)
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	var one StringList
	require.NoError(t, one.UnmarshalJSON([]byte(`"linux"`)))
	require.Equal(t, StringList{"linux"}, one)

	var many StringList
	require.NoError(t, many.UnmarshalJSON([]byte(`["a","b"]`)))
	require.Equal(t, StringList{"a", "b"}, many)

	var bad StringList
	require.Error(t, bad.UnmarshalJSON([]byte(`42`)))
}
