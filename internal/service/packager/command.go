package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/remote-packager/internal/config"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/repository/report"
	"github.com/oshokin/remote-packager/internal/script"
	"github.com/oshokin/remote-packager/internal/transport"
)

// Options contains inputs for the packager entry points.
type Options struct {
	// ConfigPath is the job configuration file (defaults to remote-packager.yaml).
	ConfigPath string
	// Password overrides the REMOTE_PACKAGER_SSH_PASSWORD variable.
	Password string
	// KeepTempFolder leaves the remote workspace in place regardless of the configuration.
	KeepTempFolder bool
	// ReportFile overrides the configured report path.
	ReportFile string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// InitOptions contains inputs for writing a starter configuration.
type InitOptions struct {
	// ConfigPath is the file to write (defaults to remote-packager.yaml).
	ConfigPath string
	// Force allows overwriting an existing file.
	Force bool
	// Config holds the values given on the command line.
	Config config.Config
}

var errConfigExists = errors.New("configuration file already exists")

// Run executes the job described by the configuration file over SSH.
func Run(ctx context.Context, opts *Options) (*packaging.Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "remote-packager")

	cfg, err := load(opts)
	if err != nil {
		return nil, err
	}

	sshOpts, err := sshOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p := New(transport.SSHDialer(sshOpts...),
		WithEncodings(cfg.Encodings()),
		WithTimeout(cfg.Timeout),
		WithCleanupTimeout(cfg.CleanupTimeout),
	)

	logger.InfoKV(ctx, "Starting packaging job",
		"job", cfg.Job,
		"host", cfg.SSH.Host,
		"filename", cfg.Package.Filename,
	)

	result, err := p.Pack(ctx, cfg.ToJob())

	if cfg.ReportFile != "" {
		if saveErr := report.NewFileRepository(cfg.ReportFile).Save(ctx, result); saveErr != nil {
			logger.WarnKV(ctx, "Failed to save run report", "path", cfg.ReportFile, "error", saveErr)
		} else {
			logger.InfoKV(ctx, "Run report saved", "path", cfg.ReportFile)
		}
	}

	return result, err
}

// Script renders the remote packaging script of the configured job without
// contacting the host.
func Script(_ context.Context, opts *Options) (string, error) {
	cfg, err := load(opts)
	if err != nil {
		return "", err
	}

	job := cfg.ToJob()
	if job.Credentials.Password == "" {
		// Rendering never connects.
		job.Credentials.Password = "unused"
	}

	if err = job.Validate(); err != nil {
		return "", err
	}

	params, err := script.NewParams(job, packaging.NewWorkspace(job.RemoteWorkspace, job.ID, job.SubmittedAt), cfg.Encodings())
	if err != nil {
		return "", err
	}

	return script.Packaging(params)
}

// Init writes a starter configuration filled with defaults.
func Init(ctx context.Context, opts *InitOptions) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return "", fmt.Errorf("%s: %w", path, errConfigExists)
	}

	cfg := opts.Config
	if cfg.Package.Filename == "" {
		cfg.Package.Filename = "package.pax"
	}

	if err := config.Save(path, &cfg); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Configuration written", "path", path)

	return path, nil
}

func load(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg.SSH.Password = config.ResolvePassword(opts.Password)

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, &packaging.ValidationError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}

	logger.SetLevel(level)

	if opts.KeepTempFolder {
		cfg.Package.KeepTempFolder = true
	}

	if opts.ReportFile != "" {
		cfg.ReportFile = opts.ReportFile
	}

	return cfg, nil
}

// sshOptions translates the connection settings into transport options.
func sshOptions(ctx context.Context, cfg *config.Config) ([]transport.SSHOption, error) {
	opts := []transport.SSHOption{
		transport.WithShell(cfg.SSH.Shell),
		transport.WithDialTimeout(cfg.SSH.DialTimeout),
	}

	if cfg.SSH.InsecureIgnoreHostKey {
		logger.Warn(ctx, "Host key verification is disabled")

		return append(opts, transport.WithInsecureIgnoreHostKey()), nil
	}

	knownHosts := cfg.SSH.KnownHosts
	if knownHosts == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}

		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := transport.KnownHostsCallback(knownHosts)
	if err != nil {
		return nil, err
	}

	return append(opts, transport.WithHostKeyCallback(cb)), nil
}
