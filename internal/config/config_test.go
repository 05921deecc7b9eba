package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

const sample = `
job: nightly
ssh:
  host: zos.example.com
  username: builder
  known_hosts: /etc/ssh/known_hosts
workspace:
  local: ./build
  remote: /u/builder/work
package:
  filename: pkg.tar.Z
  archive_options: -x os390
  compress: true
  environment:
    RELEASE: "1.2"
  extra_files: build.log, logs/trace.txt,build.log
timeout: 10m
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestLoad_Defaults checks that omitted settings are filled in.
func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	require.Equal(t, DefaultPort, cfg.SSH.Port)
	require.Equal(t, DefaultShell, cfg.SSH.Shell)
	require.Equal(t, DefaultDialTimeout, cfg.SSH.DialTimeout)
	require.Equal(t, "ISO8859-1", cfg.Encoding.Transfer)
	require.Equal(t, "IBM-1047", cfg.Encoding.Native)
	require.Equal(t, 10*time.Minute, cfg.Timeout)
	require.Equal(t, DefaultCleanupTimeout, cfg.CleanupTimeout)
	require.Equal(t, ExtraFiles{"build.log", "logs/trace.txt"}, cfg.Package.ExtraFiles)
}

// TestLoad_ExtraFilesShapes accepts a comma separated string or a list and nothing else.
func TestLoad_ExtraFilesShapes(t *testing.T) {
	t.Parallel()

	var scalar, list Config

	require.NoError(t, yamlUnmarshal("package:\n  extra_files: a,b,c\n", &scalar))
	require.NoError(t, yamlUnmarshal("package:\n  extra_files: [a, b, c]\n", &list))
	require.Equal(t, ExtraFiles{"a", "b", "c"}, scalar.Package.ExtraFiles)
	require.Equal(t, scalar.Package.ExtraFiles, list.Package.ExtraFiles)

	_, err := Load(writeConfig(t, "package:\n  extra_files:\n    a: b\n"))
	require.ErrorIs(t, err, packaging.ErrValidation)

	_, err = Load(writeConfig(t, "package:\n  extra_files: [a, [b]]\n"))
	require.ErrorIs(t, err, packaging.ErrValidation)
}

// TestValidate checks the settings outside the job itself.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	require.ErrorIs(t, Validate(&Config{Encoding: Encoding{Native: "EBCDIC-XX"}}), packaging.ErrValidation)
	require.ErrorIs(t, Validate(&Config{Timeout: -time.Second}), packaging.ErrValidation)
	require.ErrorIs(t, Validate(&Config{LogLevel: "loud"}), packaging.ErrValidation)

	cfg := &Config{CleanupTimeout: time.Minute, LogLevel: "debug"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, time.Minute, cfg.CleanupTimeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back without the password.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.SSH.Password = "secret"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)

	cfg.SSH.Password = ""
	require.Equal(t, cfg, loaded)
}

// TestJob maps the configuration onto a valid job.
func TestJob(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.SSH.Password = "secret"

	job := cfg.ToJob()
	require.NoError(t, job.Validate())

	require.Equal(t, "nightly", job.ID)
	require.Equal(t, "builder@zos.example.com:22", job.Credentials.String())
	require.Equal(t, "pkg.tar.Z", job.Artifact().Target())
	require.Equal(t, "pkg.tar", job.Artifact().WorkingName)
	require.Equal(t, []string{"build.log", "logs/trace.txt"}, job.ExtraFiles)
	require.Equal(t, "IBM-1047", cfg.Encodings().Native)
}

// TestResolvePassword prefers the flag over the environment.
func TestResolvePassword(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")

	require.Equal(t, "from-flag", ResolvePassword("from-flag"))
	require.Equal(t, "from-env", ResolvePassword(""))
}

func yamlUnmarshal(text string, cfg *Config) error {
	return yaml.Unmarshal([]byte(text), cfg)
}
