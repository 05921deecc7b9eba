package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/remote-packager/internal/codeset"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/script"
)

// Config describes one packaging job and how to reach its host.
type Config struct {
	// Job identifies the job; it seeds the remote process uid.
	Job string `yaml:"job"`
	// SSH holds the connection settings of the packaging host.
	SSH SSH `yaml:"ssh"`
	// Workspace holds the local and remote workspace roots.
	Workspace Workspace `yaml:"workspace"`
	// Package describes the produced package.
	Package Package `yaml:"package"`
	// Encoding names the code sets on both sides of the transfer.
	Encoding Encoding `yaml:"encoding"`
	// Timeout bounds remote execution of the packaging script.
	Timeout time.Duration `yaml:"timeout"`
	// CleanupTimeout bounds the cleanup stages.
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
	// ReportFile is an optional path of the YAML run report.
	ReportFile string `yaml:"report_file,omitempty"`
	// LogLevel is the minimal level of log entries.
	LogLevel string `yaml:"log_level,omitempty"`
}

// SSH holds the connection settings of the packaging host.
type SSH struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	// Password is supplied at run time and never persisted.
	Password string `yaml:"-"`
	// Shell reads the command blocks on the remote host.
	Shell string `yaml:"shell"`
	// KnownHosts is the known_hosts file used to verify the host key.
	KnownHosts string `yaml:"known_hosts,omitempty"`
	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key,omitempty"`
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Workspace holds the local and remote workspace roots.
type Workspace struct {
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
}

// Package describes the produced package.
type Package struct {
	Filename        string            `yaml:"filename"`
	ArchiveOptions  string            `yaml:"archive_options,omitempty"`
	Compress        bool              `yaml:"compress"`
	CompressOptions string            `yaml:"compress_options,omitempty"`
	Environment     map[string]string `yaml:"environment,omitempty"`
	ExtraFiles      ExtraFiles        `yaml:"extra_files,omitempty"`
	KeepTempFolder  bool              `yaml:"keep_temp_folder,omitempty"`
}

// Encoding names the code sets on both sides of the transfer.
type Encoding struct {
	Transfer string `yaml:"transfer"`
	Native   string `yaml:"native"`
}

// ExtraFiles accepts either a comma separated string or a list of paths.
type ExtraFiles []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *ExtraFiles) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	files, err := packaging.NormalizeExtraFiles(raw)
	if err != nil {
		return err
	}

	*e = files

	return nil
}

const (
	// DefaultConfigFilename is the default filename of a job configuration.
	DefaultConfigFilename = "remote-packager.yaml"

	// PasswordEnv is the environment variable holding the SSH password.
	PasswordEnv = "REMOTE_PACKAGER_SSH_PASSWORD"

	// DefaultPort is the default SSH port.
	DefaultPort = 22

	// DefaultShell is the default remote shell.
	DefaultShell = "/bin/sh"

	// DefaultTimeout is the default bound of remote execution.
	DefaultTimeout = 30 * time.Minute

	// DefaultCleanupTimeout is the default bound of cleanup.
	DefaultCleanupTimeout = 5 * time.Minute

	// DefaultDialTimeout is the default bound of connection establishment.
	DefaultDialTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config and report files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeDuration is returned when a timeout is negative.
	errNegativeDuration = errors.New("duration must not be negative")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path. The password is never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings that are not part of the
// job itself. Required job fields are checked by the job validation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = DefaultPort
	}

	if cfg.SSH.Shell == "" {
		cfg.SSH.Shell = DefaultShell
	}

	if cfg.Encoding.Transfer == "" {
		cfg.Encoding.Transfer = codeset.DefaultTransfer
	}

	if cfg.Encoding.Native == "" {
		cfg.Encoding.Native = codeset.DefaultNative
	}

	encodings := []struct {
		field string
		name  string
	}{
		{"encoding.transfer", cfg.Encoding.Transfer},
		{"encoding.native", cfg.Encoding.Native},
	}

	for _, e := range encodings {
		if !codeset.Known(e.name) {
			return &packaging.ValidationError{Field: e.field, Reason: fmt.Sprintf("%q: %v", e.name, codeset.ErrUnknown)}
		}
	}

	durations := []struct {
		field string
		value *time.Duration
		def   time.Duration
	}{
		{"timeout", &cfg.Timeout, DefaultTimeout},
		{"cleanup_timeout", &cfg.CleanupTimeout, DefaultCleanupTimeout},
		{"ssh.dial_timeout", &cfg.SSH.DialTimeout, DefaultDialTimeout},
	}

	for _, d := range durations {
		switch {
		case *d.value < 0:
			return &packaging.ValidationError{Field: d.field, Reason: errNegativeDuration.Error()}
		case *d.value == 0:
			*d.value = d.def
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return &packaging.ValidationError{Field: "log_level", Reason: fmt.Sprintf("%q: %v", cfg.LogLevel, errUnknownLogLevel)}
	}

	return nil
}

// ToJob builds the packaging job described by cfg.
func (cfg *Config) ToJob() *packaging.Job {
	return &packaging.Job{
		ID: cfg.Job,
		Credentials: packaging.Credentials{
			Host:     cfg.SSH.Host,
			Port:     cfg.SSH.Port,
			Username: cfg.SSH.Username,
			Password: cfg.SSH.Password,
		},
		Filename:        cfg.Package.Filename,
		LocalWorkspace:  cfg.Workspace.Local,
		RemoteWorkspace: cfg.Workspace.Remote,
		ArchiveOptions:  cfg.Package.ArchiveOptions,
		Compress:        cfg.Package.Compress,
		CompressOptions: cfg.Package.CompressOptions,
		Environment:     cfg.Package.Environment,
		ExtraFiles:      append([]string(nil), cfg.Package.ExtraFiles...),
		KeepTempFolder:  cfg.Package.KeepTempFolder,
	}
}

// Encodings returns the configured transfer and native encodings.
func (cfg *Config) Encodings() script.Encodings {
	return script.Encodings{
		Transfer: cfg.Encoding.Transfer,
		Native:   cfg.Encoding.Native,
	}
}

// ResolvePassword returns flagValue when set, otherwise the PasswordEnv variable.
func ResolvePassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	return os.Getenv(PasswordEnv)
}
