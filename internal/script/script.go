package script

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"text/template"

	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/remote-packager/internal/codeset"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

const (
	// PackLabel prefixes messages of the packaging script.
	PackLabel = "pack:"
	// CleanupLabel prefixes messages of the cleanup blocks.
	CleanupLabel = "cleanup:"
)

// Exit codes of the guarded steps.
const (
	ExitBootstrap    = 9
	ExitValidate     = 10
	ExitWorkspace    = 11
	ExitExtract      = 12
	ExitMergeASCII   = 13
	ExitPreHook      = 14
	ExitBuildPackage = 15
	ExitPostHook     = 16
	ExitCompress     = 17
	ExitVerify       = 18
	ExitCatchAllHook = 20
)

var (
	//go:embed remote.sh.tmpl
	templateText string

	//nolint:gochecknoglobals // Parsed once, read-only afterwards.
	templates = template.Must(template.New("remote").Funcs(template.FuncMap{
		"q":   quote,
		"msg": message,
	}).Parse(templateText))

	errUnsafeRemoval = errors.New("refusing to remove an unscoped remote path")
)

// StepKind selects the template a step is rendered with.
type StepKind int

const (
	StepValidateInputs StepKind = iota
	StepEnterWorkspace
	StepExtractArchive
	StepMergeASCII
	StepRunHook
	StepListWorkspace
	StepBuildPackage
	StepCompress
	StepVerifyArtifact
)

// String returns the template name of the kind.
func (k StepKind) String() string {
	switch k {
	case StepValidateInputs:
		return "validate-inputs"
	case StepEnterWorkspace:
		return "enter-workspace"
	case StepExtractArchive:
		return "extract-archive"
	case StepMergeASCII:
		return "merge-ascii"
	case StepRunHook:
		return "run-hook"
	case StepListWorkspace:
		return "list-workspace"
	case StepBuildPackage:
		return "build-package"
	case StepCompress:
		return "compress"
	case StepVerifyArtifact:
		return "verify-artifact"
	default:
		return "unknown"
	}
}

// Step is one stage of the remote procedure.
type Step struct {
	// Kind selects the rendering.
	Kind StepKind
	// Name is the human-readable stage name used in errors.
	Name string
	// Hook is the hook run by a StepRunHook step.
	Hook packaging.Hook
	// ExitCode is the status the script exits with when the step fails; zero for unchecked steps.
	ExitCode int
}

// PackagingSteps returns the remote procedure in execution order.
func PackagingSteps(compress bool) []Step {
	steps := []Step{
		{Kind: StepValidateInputs, Name: "validate inputs", ExitCode: ExitValidate},
		{Kind: StepEnterWorkspace, Name: "enter workspace", ExitCode: ExitWorkspace},
		{Kind: StepExtractArchive, Name: "extract archive", ExitCode: ExitExtract},
		{Kind: StepMergeASCII, Name: "merge ascii content", ExitCode: ExitMergeASCII},
		{Kind: StepRunHook, Name: "pre-packaging hook", Hook: packaging.HookPrePackaging, ExitCode: ExitPreHook},
		{Kind: StepListWorkspace, Name: "list workspace"},
		{Kind: StepBuildPackage, Name: "build package", ExitCode: ExitBuildPackage},
		{Kind: StepRunHook, Name: "post-packaging hook", Hook: packaging.HookPostPackaging, ExitCode: ExitPostHook},
	}

	if compress {
		steps = append(steps, Step{Kind: StepCompress, Name: "compress package", ExitCode: ExitCompress})
	}

	return append(steps, Step{Kind: StepVerifyArtifact, Name: "verify artifact", ExitCode: ExitVerify})
}

// CatchAllSteps returns the cleanup hook procedure.
func CatchAllSteps() []Step {
	return []Step{
		{Kind: StepRunHook, Name: "catch-all hook", Hook: packaging.HookCatchAll, ExitCode: ExitCatchAllHook},
	}
}

// StepByExitCode finds the step that exits with code.
func StepByExitCode(steps []Step, code int) (Step, bool) {
	if code == ExitBootstrap {
		return Step{Name: "bootstrap", ExitCode: ExitBootstrap}, true
	}

	for _, s := range steps {
		if s.ExitCode != 0 && s.ExitCode == code {
			return s, true
		}
	}

	return Step{}, false
}

// Render renders steps into a complete script and checks that it parses.
func Render(p *Params, steps []Step) (string, error) {
	var buf bytes.Buffer

	if err := templates.ExecuteTemplate(&buf, "header", p); err != nil {
		return "", fmt.Errorf("render header: %w", err)
	}

	for _, s := range steps {
		data := stepData{Params: p, Step: s}
		if err := templates.ExecuteTemplate(&buf, s.Kind.String(), data); err != nil {
			return "", fmt.Errorf("render step %q: %w", s.Name, err)
		}
	}

	return checked(buf.String(), "script")
}

// Packaging renders the full packaging script of p.
func Packaging(p *Params) (string, error) {
	return Render(p, PackagingSteps(p.Compress))
}

// Bootstrap renders the command block that converts, sources and removes the uploaded script.
func Bootstrap(p *Params) (string, error) {
	data := blockData{Params: p, ExitCode: ExitBootstrap}

	return execute("bootstrap", data)
}

// CatchAll renders the cleanup block running the catch-all hook when it exists.
func CatchAll(p *Params) (string, error) {
	cp := *p
	cp.Label = CleanupLabel

	var buf bytes.Buffer

	for _, s := range CatchAllSteps() {
		if err := templates.ExecuteTemplate(&buf, s.Kind.String(), stepData{Params: &cp, Step: s}); err != nil {
			return "", fmt.Errorf("render step %q: %w", s.Name, err)
		}
	}

	return checked(buf.String(), "catch-all")
}

// Removal renders the command block deleting the execution directory and every
// sibling sharing its prefix (the uploaded archive and script).
func Removal(p *Params) (string, error) {
	if p.Workspace.ProcessUID == "" || strings.Trim(p.Workspace.Root, "/") == "" {
		return "", errUnsafeRemoval
	}

	return execute("removal", blockData{Params: p})
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer

	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	return checked(buf.String(), name)
}

// checked parses the rendered text so that a quoting mistake never reaches the remote host.
func checked(text, name string) (string, error) {
	if _, err := syntax.NewParser().Parse(strings.NewReader(text), name); err != nil {
		return "", fmt.Errorf("rendered %s does not parse: %w", name, err)
	}

	return text, nil
}

type stepData struct {
	*Params

	Step Step
}

type blockData struct {
	*Params

	ExitCode int
}

func quote(s string) (string, error) {
	return syntax.Quote(s, syntax.LangPOSIX)
}

func message(label, text string) (string, error) {
	return quote(label + " " + text)
}

// Convert reports whether text must be converted between the two encodings.
func (p *Params) Convert() bool {
	return !codeset.Same(p.TransferEncoding, p.NativeEncoding)
}

// PaxConversion returns the pax option value converting text to the native encoding.
func (p *Params) PaxConversion() string {
	return "from=" + p.TransferEncoding + ",to=" + p.NativeEncoding
}

// FullPath returns the remote execution directory.
func (p *Params) FullPath() string {
	return p.Workspace.FullPath()
}

// ArchivePath returns the remote path of the uploaded main archive.
func (p *Params) ArchivePath() string {
	return p.Workspace.ArchivePath()
}

// ScriptPath returns the remote path of the uploaded script.
func (p *Params) ScriptPath() string {
	return p.Workspace.ScriptPath()
}

// ContentPath returns the remote content directory.
func (p *Params) ContentPath() string {
	return path.Join(p.FullPath(), packaging.ContentDir)
}

// WorkingPath returns the remote path the archiver writes.
func (p *Params) WorkingPath() string {
	return path.Join(p.FullPath(), p.Artifact.WorkingName)
}

// CompressedPath returns the remote path left by compression.
func (p *Params) CompressedPath() string {
	return path.Join(p.FullPath(), p.Artifact.CompressedName)
}

// HookPath returns the remote path of a hook script.
func (p *Params) HookPath(h packaging.Hook) string {
	return path.Join(p.FullPath(), h.Filename())
}

// Launch returns the hook invocation line with the environment prefixed.
func (p *Params) Launch(h packaging.Hook) string {
	return HookInvocation(p.EnvPrefix, h)
}

// HookInvocation runs h as an executable from the current directory,
// so its interpreter line decides how it is interpreted.
func HookInvocation(envPrefix string, h packaging.Hook) string {
	if envPrefix == "" {
		return "./" + h.Filename()
	}

	return envPrefix + " ./" + h.Filename()
}

// ContentDir is exposed to templates.
func (*Params) ContentDir() string { return packaging.ContentDir }

// ASCIIDir is exposed to templates.
func (*Params) ASCIIDir() string { return packaging.ASCIIDir }

// ASCIIArchive is exposed to templates.
func (*Params) ASCIIArchive() string { return packaging.ASCIIArchive }
