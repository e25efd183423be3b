package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volview/pkg/ingest"
	"volview/pkg/transfer"
	"volview/pkg/volerr"
)

// execute runs the root command with args against a config path that does
// not exist, so defaults apply unless args override it.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	full := append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeRamp(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "4x3x2_uint8.raw")
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i * 10)
	}
	require.NoError(t, os.WriteFile(path, payload, 0644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "volview", cmd.Use)

	for _, name := range []string{"inspect", "slices", "tf", "config", "header"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "volview.yaml", configFlag.DefValue)
}

func TestInspect(t *testing.T) {
	path := writeRamp(t, t.TempDir())

	out, _, err := execute(t, "inspect", path, "--histogram", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "dims:      4x3x2")
	assert.Contains(t, out, "type:      uint8")
	assert.Contains(t, out, "elements:  24")
	assert.Contains(t, out, "range:     0 .. 230")
	assert.Contains(t, out, "scale:     1 0.75 0.5")
	assert.Contains(t, out, "histogram:")
	assert.NotContains(t, out, "constant volume")
}

func TestInspectReportsLoadErrors(t *testing.T) {
	_, _, err := execute(t, "inspect", filepath.Join(t.TempDir(), "128x128_uint8.raw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, volerr.ErrMalformedFilename))
}

func TestHeaderThenInspect(t *testing.T) {
	dir := t.TempDir()
	raw := writeRamp(t, dir)

	out, _, err := execute(t, "header", raw, "--spacing", "0.5,1,2")
	require.NoError(t, err)
	nhdr := filepath.Join(dir, "4x3x2_uint8.nhdr")
	assert.Contains(t, out, nhdr)

	meta, buf, err := ingest.NewLoader(nil).Load(nhdr)
	require.NoError(t, err)
	assert.Equal(t, 24, buf.Len())
	assert.Equal(t, 2.0, meta.Spacing.Z)
	assert.Equal(t, raw, meta.DataFile)
}

func TestHeaderRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "4x4x4_uint16.raw")
	require.NoError(t, os.WriteFile(raw, make([]byte, 64), 0644))

	_, _, err := execute(t, "header", raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, volerr.ErrSizeMismatch))
}

func TestSlices(t *testing.T) {
	dir := t.TempDir()
	raw := writeRamp(t, dir)
	out := filepath.Join(dir, "slices")

	stdout, _, err := execute(t, "slices", raw, "--axis", "x", "--out", out, "--preset", "bone")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 4 slices")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	_, _, err = execute(t, "slices", raw, "--axis", "all", "--out", out)
	require.NoError(t, err)
	for axis, n := range map[string]int{"x": 4, "y": 3, "z": 2} {
		entries, err := os.ReadDir(filepath.Join(out, axis))
		require.NoError(t, err)
		assert.Len(t, entries, n, axis)
	}

	phys := filepath.Join(dir, "phys")
	_, _, err = execute(t, "slices", raw, "--axis", "z", "--out", phys, "--physical")
	require.NoError(t, err)
	entries, err = os.ReadDir(phys)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, _, err = execute(t, "slices", raw, "--preset", "missing")
	assert.ErrorContains(t, err, "unknown preset")
}

func TestTFPresetAndSample(t *testing.T) {
	dir := t.TempDir()
	tfl := filepath.Join(dir, "gray.tfl")

	_, _, err := execute(t, "tf", "preset", "grayscale", "--out", tfl)
	require.NoError(t, err)

	knots, err := transfer.ReadFile(tfl)
	require.NoError(t, err)
	assert.Equal(t, transfer.Grayscale().Colors, knots.Colors)
	assert.Equal(t, transfer.Grayscale().Alphas, knots.Alphas)

	out, _, err := execute(t, "tf", "sample", tfl, "--size", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0 0 0 0 0", lines[0])
	assert.Equal(t, "1 0.5 0.5 0.5 0.5", lines[1])
	assert.Equal(t, "2 1 1 1 1", lines[2])

	stdout, _, err := execute(t, "tf", "preset", "bone")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "0 0\n80 0\n"), stdout)
}

func TestConfigInitAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volview.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", path, "--log-format", "json", "--log-level", "debug", "inspect", writeRamp(t, dir)})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), `"msg":"volume loaded"`)

	_, _, err = execute(t, "--log-format", "xml", "config", "init", filepath.Join(dir, "other.yaml"))
	assert.ErrorContains(t, err, "logging.format")
}
