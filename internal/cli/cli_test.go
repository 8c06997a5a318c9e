package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GazetteScanner/internal/domain"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gazettescanner", cmd.Use)

	for _, name := range []string{"run", "monitor", "list"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestParseSections(t *testing.T) {
	cases := []struct {
		in   string
		want []domain.Section
	}{
		{"all", domain.KnownSections},
		{"123e", []domain.Section{domain.Section1, domain.Section2, domain.Section3, domain.SectionExtra}},
		{"11a", []domain.Section{domain.Section1, domain.SectionSupplement}},
		{"1a", []domain.Section{domain.SectionSupplement}},
		{"e, 2 ,2", []domain.Section{domain.SectionExtra, domain.Section2}},
		{"E", []domain.Section{domain.SectionExtra}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSections(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSectionsRejectsUnknown(t *testing.T) {
	_, err := ParseSections("14")
	assert.ErrorIs(t, err, domain.ErrUnknownSection)

	_, err = ParseSections(" ")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestListRejectsBadDate(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"list", "13/05/2024"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRunReportsMissingState(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "gazette.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("state:\n  path: "+filepath.Join(dir, "missing.yaml")+"\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--config", configPath})

	err := cmd.Execute()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "gazette.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ledger:\n  backend: floppy\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "-c", configPath})

	err := cmd.Execute()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
