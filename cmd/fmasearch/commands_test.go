package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmasearch/internal/config"
	"fmasearch/internal/query"
)

func TestStatementFlagsBuild(t *testing.T) {
	tests := []struct {
		name  string
		flags statementFlags
		want  string
	}{
		{
			name:  "defaults",
			flags: statementFlags{},
			want:  "SELECT *\nFROM Audio\nWHERE audio_sim <-> '034996'\nLIMIT 8;",
		},
		{
			name:  "where and limit",
			flags: statementFlags{columns: "*", where: "genre = 'Rock'", limit: 3},
			want:  "SELECT *\nFROM Audio\nWHERE audio_sim <-> '034996'\nAND genre = 'Rock'\nLIMIT 3;",
		},
		{
			name:  "statement wins",
			flags: statementFlags{statement: "SELECT title FROM Audio WHERE audio_sim <-> '2';", columns: "id", where: "x = 1"},
			want:  "SELECT title FROM Audio WHERE audio_sim <-> '2';",
		},
		{
			name:  "limit applied to statement",
			flags: statementFlags{statement: "SELECT title FROM Audio WHERE audio_sim <-> '2' LIMIT 9;", limit: 4},
			want:  "SELECT title FROM Audio WHERE audio_sim <-> '2' LIMIT 4;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.flags.build("Audio", "audio_sim", "<->", "034996", 8)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltStatementTranslates(t *testing.T) {
	f := statementFlags{columns: "title, artist", where: "year >= 2010"}
	spec := query.Translate(f.build("Audio", "lyric", "@@", "it's love", 10), 1)

	assert.Equal(t, "it's love", spec.Reference())
	assert.Equal(t, "year >= 2010", spec.Predicate)
	assert.Equal(t, []string{"artist", "title"}, spec.Projection.Fields())
	assert.Equal(t, 10, spec.Limit)
}

func TestDefaultSelectShowsAllFields(t *testing.T) {
	cmd := newAudioCmd(&app{})
	assert.Equal(t, "*", cmd.Flags().Lookup("select").DefValue)

	var f statementFlags
	spec := query.Translate(f.build("Audio", "audio_sim", "<->", "2", 8), 1)
	assert.True(t, spec.Projection.IsAll())
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	var out bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init-config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Created default config file")

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().BackendURL, cfg.BackendURL)

	out.Reset()
	cmd = newRootCmd(&app{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init-config", path})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.Contains(out.String(), "already exists"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
