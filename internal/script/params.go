package script

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/remote-packager/internal/codeset"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

// Encodings names the code sets on both sides of the transfer.
type Encodings struct {
	// Transfer is the encoding text files are uploaded in.
	Transfer string
	// Native is the remote host's native text encoding.
	Native string
}

// DefaultEncodings returns the ISO8859-1 to IBM-1047 pair used with z/OS hosts.
func DefaultEncodings() Encodings {
	return Encodings{
		Transfer: codeset.DefaultTransfer,
		Native:   codeset.DefaultNative,
	}
}

// Params carries everything the remote templates need for one job invocation.
type Params struct {
	Label            string
	Workspace        packaging.Workspace
	JobID            string
	Filename         string
	Artifact         packaging.Artifact
	Compress         bool
	ArchiveOptions   string
	CompressOptions  string
	EnvPrefix        string
	TransferEncoding string
	NativeEncoding   string
}

// NewParams builds render parameters for job running in ws.
// Option strings and environment values that cannot be expressed safely
// in the generated shell are rejected as validation errors.
func NewParams(job *packaging.Job, ws packaging.Workspace, enc Encodings) (*Params, error) {
	if err := validateOptions("package.archive_options", job.ArchiveOptions); err != nil {
		return nil, err
	}

	if err := validateOptions("package.compress_options", job.CompressOptions); err != nil {
		return nil, err
	}

	prefix, err := EnvironmentPrefix(packaging.SortedEnvironment(job.Environment))
	if err != nil {
		return nil, err
	}

	if enc.Transfer == "" || enc.Native == "" {
		return nil, &packaging.ValidationError{Field: "encoding", Reason: "transfer and native encodings are required"}
	}

	return &Params{
		Label:            PackLabel,
		Workspace:        ws,
		JobID:            job.ID,
		Filename:         job.Filename,
		Artifact:         job.Artifact(),
		Compress:         job.Compress,
		ArchiveOptions:   strings.TrimSpace(job.ArchiveOptions),
		CompressOptions:  strings.TrimSpace(job.CompressOptions),
		EnvPrefix:        prefix,
		TransferEncoding: enc.Transfer,
		NativeEncoding:   enc.Native,
	}, nil
}

// EnvironmentPrefix renders vars as space separated KEY=value assignments with quoted values.
func EnvironmentPrefix(vars []packaging.EnvVar) (string, error) {
	parts := make([]string, 0, len(vars))

	for _, v := range vars {
		value, err := quote(v.Value)
		if err != nil {
			return "", &packaging.ValidationError{
				Field:  "package.environment",
				Reason: fmt.Sprintf("value of %s cannot be quoted: %v", v.Key, err),
			}
		}

		parts = append(parts, v.Key+"="+value)
	}

	return strings.Join(parts, " "), nil
}

// validateOptions accepts a plain list of shell words: no separators, redirections,
// assignments or expansions that would run or read anything.
func validateOptions(field, options string) error {
	if strings.TrimSpace(options) == "" {
		return nil
	}

	invalid := func(reason string) error {
		return &packaging.ValidationError{Field: field, Reason: reason}
	}

	file, err := syntax.NewParser().Parse(strings.NewReader("true "+options), field)
	if err != nil {
		return invalid(err.Error())
	}

	if len(file.Stmts) != 1 {
		return invalid("must be a single list of words")
	}

	stmt := file.Stmts[0]
	if len(stmt.Redirs) > 0 || stmt.Background || stmt.Negated || stmt.Coprocess {
		return invalid("redirections and control operators are not allowed")
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 {
		return invalid("must be a single list of words")
	}

	var expansion bool

	syntax.Walk(stmt, func(node syntax.Node) bool {
		switch node.(type) {
		case *syntax.CmdSubst, *syntax.ProcSubst, *syntax.ArithmExp, *syntax.ParamExp:
			expansion = true
		}

		return !expansion
	})

	if expansion {
		return invalid("expansions are not allowed")
	}

	return nil
}
