package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "race.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
apiVersion: paceline.dev/v1
kind: Race
metadata:
  name: minlp-foo
spec:
  solver: /opt/solvers/minlp
  instance: foo.nl
  stopMode: true
  paramsFile: params.txt
  initialBound: 100.0
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "Race", m.Kind)
	assert.Equal(t, "minlp-foo", m.Metadata.Name)
	assert.Equal(t, "/opt/solvers/minlp", m.Spec.Solver)
	assert.Equal(t, "foo.nl", m.Spec.Stub)
	assert.True(t, m.Spec.StopMode)
	assert.Equal(t, "params.txt", m.Spec.ParamsFile)
	assert.Equal(t, 100.0, m.Spec.InitialBound)
}

func TestLoadManifestDefaultsBound(t *testing.T) {
	path := writeManifest(t, `
apiVersion: paceline.dev/v1
kind: Race
metadata:
  name: minlp-foo
spec:
  solver: /opt/solvers/minlp
  instance: foo.nl
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	// An omitted bound means "no bound", never a literal zero
	assert.Equal(t, float64(NoBound), m.Spec.InitialBound)
	assert.False(t, m.Spec.StopMode)
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name: "wrong kind",
			manifest: `
apiVersion: paceline.dev/v1
kind: Service
metadata:
  name: web
spec:
  solver: /opt/solvers/minlp
  instance: foo.nl
`,
			wantErr: "unsupported resource kind",
		},
		{
			name: "missing solver",
			manifest: `
apiVersion: paceline.dev/v1
kind: Race
metadata:
  name: minlp-foo
spec:
  instance: foo.nl
`,
			wantErr: "solver is required",
		},
		{
			name: "missing instance",
			manifest: `
apiVersion: paceline.dev/v1
kind: Race
metadata:
  name: minlp-foo
spec:
  solver: /opt/solvers/minlp
`,
			wantErr: "instance is required",
		},
		{
			name:     "not yaml",
			manifest: "{{{",
			wantErr:  "failed to parse manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.manifest)
			_, err := LoadManifest(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}

func TestAgentInfoStandalone(t *testing.T) {
	assert.True(t, AgentInfo{}.Standalone())
	assert.False(t, AgentInfo{Address: "localhost", Port: 35071}.Standalone())
}
