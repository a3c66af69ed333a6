package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/specialistvlad/protectgrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const inventory = `
projects:
  - id: p1
    name: demo
    servers:
      - {id: s1, name: web, image: i1, volumes: [v1]}
    volumes:
      - {id: v1, name: data}
    images:
      - {id: i1, name: ubuntu}
`

// workspace writes an inventory, a local-bank provider and request files,
// and returns the global flags pointing at them.
func workspace(t *testing.T) (dir string, flags []string) {
	t.Helper()
	bankRoot := t.TempDir()
	dir = app.WriteTestFiles(t, map[string]string{
		"inventory.yaml": inventory,
		"providers/local.hcl": fmt.Sprintf(`provider {
  id           = "local"
  name         = "Local"
  bank         = "local"
  plugin       = ["resource-metadata"]
  bank_options = { root = %q }
}`, bankRoot),
		"plan.yaml": `
id: plan-1
name: nightly
provider_id: local
resources:
  - {type: "OS::Nova::Server", id: s1, name: web}
parameters:
  "OS::Nova::Server":
    note: nightly
`,
	})
	return dir, []string{
		"--provider-config-dir", filepath.Join(dir, "providers"),
		"--inventory", filepath.Join(dir, "inventory.yaml"),
		"--log-level", "error",
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), args, out, errOut)
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestExecute_Help(t *testing.T) {
	out, err := execute(t, "-h")

	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "protect")
}

func TestExecute_UsageErrors(t *testing.T) {
	_, flags := workspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--nope"}, "unknown flag: --nope"},
		{"unknown command", []string{"frobnicate"}, "unknown command \"frobnicate\""},
		{"missing plan", []string{"protect"}, "accepts 1 arg(s), received 0"},
		{"bad log level", append(append([]string{}, flags...), "--log-level", "loud", "protectable", "types"), "invalid log-level"},
		{"bad log format", append(append([]string{}, flags...), "--log-format", "xml", "protectable", "types"), "invalid log-format"},
		{"negative workers", append(append([]string{}, flags...), "--workers", "-1", "protectable", "types"), "WorkerCount cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			exitErr := requireExitCode(t, err, 2)
			assert.Contains(t, exitErr.Message, tt.want)
		})
	}
}

func TestExecute_ProtectableQueries(t *testing.T) {
	_, flags := workspace(t)

	out, err := execute(t, append(flags, "protectable", "types")...)
	require.NoError(t, err)
	var types []string
	require.NoError(t, yaml.Unmarshal([]byte(out), &types))
	assert.Equal(t, []string{"OS::Cinder::Volume", "OS::Glance::Image", "OS::Keystone::Project", "OS::Nova::Server"}, types)

	out, err = execute(t, append(flags, "protectable", "dependents", "OS::Nova::Server", "s1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "id: v1")
	assert.Contains(t, out, "id: i1")

	out, err = execute(t, append(flags, "protectable", "show-type", "OS::Keystone::Project")...)
	require.NoError(t, err)
	assert.Contains(t, out, "dependent_types:")
}

func TestExecute_CheckpointLifecycle(t *testing.T) {
	dir, flags := workspace(t)

	out, err := execute(t, append(flags, "protect", filepath.Join(dir, "plan.yaml"))...)
	require.NoError(t, err)
	var cp struct {
		ID     string `yaml:"id"`
		Status string `yaml:"status"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &cp))
	assert.Equal(t, "available", cp.Status)
	require.NotEmpty(t, cp.ID)

	out, err = execute(t, append(flags, "checkpoint", "show", "local", cp.ID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "OS::Nova::Server#s1")
	assert.Contains(t, out, "OS::Cinder::Volume#v1")

	out, err = execute(t, append(flags, "checkpoint", "list", "local")...)
	require.NoError(t, err)
	assert.Contains(t, out, cp.ID)

	restore := app.WriteTestFiles(t, map[string]string{"restore.yaml": fmt.Sprintf(`
provider_id: local
checkpoint_id: %s
parameters:
  "OS::Cinder::Volume":
    name_prefix: restored-
`, cp.ID)})
	out, err = execute(t, append(flags, "restore", filepath.Join(restore, "restore.yaml"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "name: restored-data")

	_, err = execute(t, append(flags, "checkpoint", "delete", "local", cp.ID)...)
	require.NoError(t, err)

	out, err = execute(t, append(flags, "checkpoint", "list", "local")...)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestExecute_OperationLogsUseConfiguredLogger(t *testing.T) {
	dir, flags := workspace(t)
	args := append(flags, "--log-level", "debug", "--log-format", "json", "protect", filepath.Join(dir, "plan.yaml"))

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	require.NoError(t, Execute(context.Background(), args, out, errOut))

	byMsg := map[string][]string{}
	for _, line := range strings.Split(strings.TrimSpace(errOut.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record), "every log line is json: %s", line)
		msg, _ := record["msg"].(string)
		byMsg[msg] = append(byMsg[msg], line)
	}

	require.Len(t, byMsg["Protection started."], 1)
	require.Len(t, byMsg["Checkpoint status changed."], 1)
	require.NotEmpty(t, byMsg["Task done."])
	for _, line := range append(byMsg["Protection started."], byMsg["Checkpoint status changed."]...) {
		assert.Equal(t, 1, strings.Count(line, `"checkpoint":`), "attribute is logged once: %s", line)
	}
}

func TestExecute_ProviderShow(t *testing.T) {
	_, flags := workspace(t)

	out, err := execute(t, append(flags, "provider", "show", "local")...)
	require.NoError(t, err)
	assert.Contains(t, out, "bank: local")
	assert.Contains(t, out, "note: string")

	_, err = execute(t, append(flags, "provider", "show", "missing")...)
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "operation failures are not usage errors")
}
