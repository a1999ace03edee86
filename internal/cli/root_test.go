package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

const testDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<deploy-config>
  <ra-entity resource-adaptor-id="SipBroker">
    <properties>
      <property name="port" value="8080"/>
      <property name="host" value="localhost"/>
      <property name="timeout" value="30"/>
    </properties>
  </ra-entity>
</deploy-config>
`

// setupWorkDir changes into a fresh directory holding foo.jar and
// site.properties, and isolates temporary workspaces under tmp/.
// It returns the directory path.
func setupWorkDir(t *testing.T, overrides string) string {
	t.Helper()

	dir := t.TempDir()
	prevDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prevDir) })
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tmp"), 0o755))
	t.Setenv("DEPLOY_REPACK_TEMP_DIR", filepath.Join(dir, "tmp"))

	out, err := os.Create(filepath.Join(dir, "foo.jar"))
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("META-INF/deploy-config.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(testDescriptor))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.properties"), []byte(overrides), 0o644))
	return dir
}

// execute runs the root command with args and returns the exit code and
// captured stdout/stderr.
func execute(t *testing.T, args ...string) (model.ExitCode, string, string) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	code := Run(context.Background(), cmd)
	return code, stdout.String(), stderr.String()
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestRun_WrongArgCount verifies that any argument count other than three
// prints usage and performs no work.
func TestRun_WrongArgCount(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"site.properties", "foo.jar"},
		{"site.properties", "foo.jar", "prod", "extra"},
	} {
		t.Run(filepath.Join(append([]string{"args"}, args...)...), func(t *testing.T) {
			dir := setupWorkDir(t, "port=9000\n")

			code, stdout, stderr := execute(t, args...)
			assert.Equal(t, model.ExitUsage, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "expected 3 arguments")
			assert.Contains(t, stderr, "Usage:")

			assert.ElementsMatch(t, []string{"foo.jar", "site.properties", "tmp"}, listDir(t, dir))
			assert.Empty(t, listDir(t, filepath.Join(dir, "tmp")))
		})
	}
}

// TestRun_Success checks the full run from the command line: the archive
// lands in the working directory under the expected name.
func TestRun_Success(t *testing.T) {
	dir := setupWorkDir(t, "port=9000\n# comment\nhost=db1\n")

	code, stdout, stderr := execute(t, "site.properties", "foo.jar", "prod")
	require.Equal(t, model.ExitSuccess, code, "stderr: %s", stderr)

	assert.FileExists(t, filepath.Join(dir, "foo_prod.jar"))
	assert.NoFileExists(t, filepath.Join(dir, "foo_prod.zip"))
	assert.Empty(t, listDir(t, filepath.Join(dir, "tmp")), "temporary workspace is removed")

	assert.Contains(t, stdout, "Property port set to 9000")
	assert.Contains(t, stdout, "Property host set to db1")
	assert.NotContains(t, stdout, "timeout")
	assert.Contains(t, stdout, "Created new package with custom deploy-config: foo_prod.jar")
	assert.Empty(t, stderr, "nothing is logged without --verbose")
}

func TestRun_JSONOutput(t *testing.T) {
	setupWorkDir(t, "port=9000\nretries=5\n")

	code, stdout, stderr := execute(t, "--json", "site.properties", "foo.jar", "prod")
	require.Equal(t, model.ExitSuccess, code, "stderr: %s", stderr)

	var result model.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result), "stdout should be a single JSON object: %s", stdout)
	assert.Equal(t, "foo_prod.jar", result.OutputArchive)
	assert.Equal(t, "prod", result.Suffix)
	assert.Equal(t, []model.PropertyChange{{Name: "port", OldValue: "8080", NewValue: "9000"}}, result.Changes)
	assert.Equal(t, []string{"retries"}, result.Unmatched)
}

func TestRun_Verbose(t *testing.T) {
	setupWorkDir(t, "port=9000\n")

	code, _, stderr := execute(t, "-v", "site.properties", "foo.jar", "prod")
	require.Equal(t, model.ExitSuccess, code)
	assert.Contains(t, stderr, "settings resolved")
	assert.Contains(t, stderr, "archive extracted")
}

func TestRun_OutputDirAndWorkspaceFlags(t *testing.T) {
	dir := setupWorkDir(t, "host=db1\n")

	code, _, stderr := execute(t, "--output-dir", "dist", "--workspace", "work", "site.properties", "foo.jar", "qa")
	require.Equal(t, model.ExitSuccess, code, "stderr: %s", stderr)

	assert.FileExists(t, filepath.Join(dir, "dist", "foo_qa.jar"))
	assert.FileExists(t, filepath.Join(dir, "work", "deploy-config.tmp"))
	assert.DirExists(t, filepath.Join(dir, "work", "tmpdir", "META-INF"))
}

// TestRun_Errors verifies the exit code and message of each failure class.
func TestRun_Errors(t *testing.T) {
	t.Run("malformed override", func(t *testing.T) {
		dir := setupWorkDir(t, "port=9000\nhost\n")

		code, _, stderr := execute(t, "site.properties", "foo.jar", "prod")
		assert.Equal(t, model.ExitOverrideError, code)
		assert.Contains(t, stderr, "Error: failed to load overrides: malformed override line")
		assert.NotContains(t, stderr, "Usage:")
		assert.NoFileExists(t, filepath.Join(dir, "foo_prod.jar"))
	})

	t.Run("missing archive", func(t *testing.T) {
		setupWorkDir(t, "port=9000\n")

		code, _, _ := execute(t, "site.properties", "absent.jar", "prod")
		assert.Equal(t, model.ExitArchiveError, code)
	})

	t.Run("strict unmatched", func(t *testing.T) {
		dir := setupWorkDir(t, "retries=5\n")

		code, _, stderr := execute(t, "--strict", "site.properties", "foo.jar", "prod")
		assert.Equal(t, model.ExitDescriptorError, code)
		assert.Contains(t, stderr, "retries")
		assert.NoFileExists(t, filepath.Join(dir, "foo_prod.jar"))
	})

	t.Run("json error format", func(t *testing.T) {
		setupWorkDir(t, "host\n")

		code, stdout, stderr := execute(t, "--json", "site.properties", "foo.jar", "prod")
		assert.Equal(t, model.ExitOverrideError, code)
		assert.Empty(t, stdout)

		var payload struct {
			Error struct {
				Message string `json:"message"`
				Detail  string `json:"detail"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(stderr), &payload))
		assert.Equal(t, "failed to load overrides", payload.Error.Message)
		assert.Contains(t, payload.Error.Detail, "malformed override line")
	})

	t.Run("unknown flag", func(t *testing.T) {
		setupWorkDir(t, "port=9000\n")

		code, _, stderr := execute(t, "--bogus", "site.properties", "foo.jar", "prod")
		assert.Equal(t, model.ExitUsage, code)
		assert.Contains(t, stderr, "unknown flag")
	})

	t.Run("invalid descriptor setting", func(t *testing.T) {
		setupWorkDir(t, "port=9000\n")

		code, _, stderr := execute(t, "--descriptor", "/abs.xml", "site.properties", "foo.jar", "prod")
		assert.Equal(t, model.ExitUsage, code)
		assert.Contains(t, stderr, "invalid settings")
	})
}

// TestSettingsFromFlags verifies that only explicitly set flags are
// forwarded to the settings layer.
func TestSettingsFromFlags(t *testing.T) {
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--strict", "--output-dir", "dist"}))

	flags := &rootFlags{strict: true, outputDir: "dist", workspace: "ignored-unless-set"}
	s := settingsFromFlags(cmd, flags)

	assert.True(t, s.Strict)
	assert.Equal(t, "dist", s.OutputDir)
	assert.Empty(t, s.Workspace)
	assert.Empty(t, s.Descriptor)
}
