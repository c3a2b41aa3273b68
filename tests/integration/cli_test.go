package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dryad  = "10.5061/DRYAD.8515"
	target = "https://datadryad.org/stash/dataset/doi:10.5061/dryad.8515"
)

var projectRoot string

// TestMain builds the doireg binary once.
func TestMain(m *testing.M) {
	root, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	projectRoot = root

	tmpDir, err := os.MkdirTemp("", "doireg-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	doiregBin = filepath.Join(tmpDir, "doireg")

	cmd := exec.Command("go", "build", "-o", doiregBin, "./cmd/doireg")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func fixture(parts ...string) string {
	return filepath.Join(append([]string{projectRoot, "internal", "codec"}, parts...)...)
}

type record struct {
	Identifier        string `json:"identifier"`
	State             string `json:"state"`
	URL               string `json:"url"`
	SuppressionReason string `json:"suppression_reason"`
	CurrentVersionID  string `json:"current_version_id"`
	Revision          int64  `json:"revision"`
	Resolvable        bool   `json:"is_resolvable"`
}

type snapshot struct {
	VersionID    string `json:"version_id"`
	Identifier   string `json:"identifier"`
	Sequence     int    `json:"sequence"`
	SourceFormat string `json:"source_format"`
	RevertedFrom string `json:"reverted_from"`
}

func TestSniffFixtures(t *testing.T) {
	env := NewTestEnv(t, "")
	tests := []struct {
		path []string
		want string
	}{
		{[]string{"datacite", "testdata", "kernel4.xml"}, "datacite-xml"},
		{[]string{"datacite", "testdata", "kernel4.json"}, "datacite-json"},
		{[]string{"crosscite", "testdata", "citation.json"}, "crosscite"},
		{[]string{"schemaorg", "testdata", "dataset.jsonld"}, "schema-org"},
		{[]string{"schemaorg", "testdata", "software.codemeta.json"}, "codemeta"},
		{[]string{"bibtex", "testdata", "article.bib"}, "bibtex"},
		{[]string{"ris", "testdata", "article.ris"}, "ris"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := env.MustRun("sniff", fixture(tt.path...))
			assert.Equal(t, tt.want, strings.TrimSpace(r.Stdout))
		})
	}
}

func TestRetiredSchemaCreatesNothing(t *testing.T) {
	env := NewTestEnv(t, "")
	r := env.Run(nil, "publish", dryad, fixture("datacite", "testdata", "kernel2.xml"), "--url", target)
	assert.Equal(t, 1, r.ExitCode)
	assert.Contains(t, r.Stderr, "is no longer supported")

	r = env.Run(nil, "show", dryad)
	assert.Equal(t, 1, r.ExitCode)
}

func TestLifecycleAcrossProcesses(t *testing.T) {
	for _, strategy := range []string{"immediate", "on_close"} {
		t.Run(strategy, func(t *testing.T) {
			env := NewTestEnv(t, strategy)
			env.MustRun("init")

			env.MustRun("publish", dryad, fixture("datacite", "testdata", "kernel4.xml"), "--url", target)
			rec := ParseJSON[record](t, env.MustRun("--json", "show", dryad).Stdout)
			assert.Equal(t, "findable", rec.State)
			assert.True(t, rec.Resolvable)
			assert.Equal(t, target, rec.URL)

			env.MustRun("hide", dryad, "--reason", "under review")
			rec = ParseJSON[record](t, env.MustRun("--json", "show", dryad).Stdout)
			assert.Equal(t, "registered", rec.State)
			assert.False(t, rec.Resolvable)
			assert.Equal(t, "under review", rec.SuppressionReason)

			// A BibTeX payload for the same identifier from stdin.
			bib, err := os.ReadFile(fixture("bibtex", "testdata", "article.bib"))
			require.NoError(t, err)
			bib = []byte(strings.ReplaceAll(string(bib), "10.1371/journal.ppat.1000446", "10.5061/dryad.8515"))
			r := env.Run(bib, "update", dryad, "-")
			require.Equal(t, 0, r.ExitCode, r.Stderr)

			snaps := ParseJSON[[]snapshot](t, env.MustRun("--json", "history", dryad).Stdout)
			require.Len(t, snaps, 2)
			assert.Equal(t, "datacite-xml", snaps[0].SourceFormat)
			assert.Equal(t, "bibtex", snaps[1].SourceFormat)

			env.MustRun("revert", dryad, snaps[0].VersionID)
			snaps = ParseJSON[[]snapshot](t, env.MustRun("--json", "history", dryad).Stdout)
			require.Len(t, snaps, 3)
			assert.Equal(t, snaps[0].VersionID, snaps[2].RevertedFrom)

			lines := ReadJSONLFile[snapshot](t, filepath.Join(env.DataDir, "snapshots.jsonl"))
			assert.Len(t, lines, 3)
			recs := ReadJSONLFile[record](t, filepath.Join(env.DataDir, "identifiers.jsonl"))
			require.Len(t, recs, 1)
			assert.Equal(t, snaps[2].VersionID, recs[0].CurrentVersionID)

			env.MustRun("publish", dryad)
			rec = ParseJSON[record](t, env.MustRun("--json", "show", dryad).Stdout)
			assert.Equal(t, "findable", rec.State)
			assert.Empty(t, rec.SuppressionReason)
		})
	}
}

func TestRenderFormats(t *testing.T) {
	env := NewTestEnv(t, "")
	env.MustRun("publish", dryad, fixture("datacite", "testdata", "kernel4.xml"), "--url", target)

	tests := []struct {
		format string
		want   string
	}{
		{"datacite-xml", "http://datacite.org/schema/kernel-4"},
		{"datacite-json", `"doi"`},
		{"schema-org", `"@context"`},
		{"citeproc", `"DOI"`},
		{"bibtex", "@"},
		{"ris", "TY  - "},
		{"jats", "<element-citation"},
		{"citation", "https://doi.org/10.5061/dryad.8515"},
		{"csv", "10.5061/dryad.8515"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r := env.MustRun("show", dryad, "--format", tt.format)
			assert.Contains(t, r.Stdout, tt.want)
		})
	}
}

func TestExitCodes(t *testing.T) {
	env := NewTestEnv(t, "")
	env.MustRun("update", dryad, fixture("datacite", "testdata", "kernel4.xml"))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"publish needs url", []string{"publish", dryad}, 1},
		{"hide from draft", []string{"hide", dryad}, 1},
		{"unknown identifier", []string{"show", "10.5061/UNKNOWN"}, 1},
		{"unknown version", []string{"revert", dryad, "0190aaaa-0000-7000-8000-000000000000"}, 1},
		{"bad prefix", []string{"mint", "99.1"}, 1},
		{"success", []string{"version"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.Run(nil, tt.args...)
			assert.Equal(t, tt.want, r.ExitCode, r.Stderr)
		})
	}
}
