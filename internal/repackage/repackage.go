// Package repackage runs the end-to-end customization of a deployable unit.
//
// Orchestration steps:
//  1. Load the override file
//  2. Prepare a workspace (ephemeral, or caller-provided and cleared)
//  3. Extract the source archive into the workspace
//  4. Parse the deployment descriptor and apply the overrides
//  5. Serialize the descriptor to an intermediate file and copy it over the
//     extracted original
//  6. Re-archive the extracted tree as <base>_<suffix>.zip
//  7. Rename the archive to carry the source archive's extension
//
// Every failure is returned as a model.CLIError whose exit code names the
// failing step. The output archive only appears once all steps succeed.
package repackage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/deploy-repack/internal/archive"
	"github.com/shinji-kodama/deploy-repack/internal/config"
	"github.com/shinji-kodama/deploy-repack/internal/descriptor"
	"github.com/shinji-kodama/deploy-repack/internal/logger"
	"github.com/shinji-kodama/deploy-repack/internal/model"
	"github.com/shinji-kodama/deploy-repack/internal/overrides"
	"github.com/shinji-kodama/deploy-repack/internal/workspace"
)

// Request holds the three positional inputs of a run and its settings.
type Request struct {
	// OverridesFile is the path of the name=value override file.
	OverridesFile string

	// SourceArchive is the path of the deployable unit to customize.
	SourceArchive string

	// Suffix is appended to the archive base name: foo.jar → foo_<suffix>.jar.
	Suffix string

	// Settings are the resolved run settings. Nil means config.Defaults().
	Settings *config.Settings
}

// Repackager executes repackaging runs.
type Repackager struct {
	out io.Writer
	log *logger.Logger
}

// New creates a Repackager that prints progress lines to out and
// diagnostics to log. Pass io.Discard to suppress progress output.
func New(out io.Writer, log *logger.Logger) *Repackager {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Repackager{out: out, log: log}
}

// OutputName returns the file name of the customized archive:
// the source base name without extension, "_", the suffix, and the source
// extension. OutputName("dist/foo.jar", "prod") is "foo_prod.jar".
func OutputName(sourceArchive, suffix string) string {
	stem, ext := splitName(sourceArchive)
	return stem + "_" + suffix + ext
}

// splitName splits the base name of p into stem and extension.
func splitName(p string) (stem, ext string) {
	base := filepath.Base(p)
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	// A leading dot starts a hidden name, not an extension.
	if stem == "" {
		return base, ""
	}
	return stem, ext
}

// Run executes all steps for req.
func (r *Repackager) Run(ctx context.Context, req Request) (*model.Result, error) {
	settings := req.Settings
	if settings == nil {
		settings = config.Defaults()
	}
	if err := model.ValidateSuffix(req.Suffix); err != nil {
		return nil, model.WrapCLIError(model.ExitUsage, "invalid suffix", err)
	}

	r.printf("Preparing custom package for: %s\n", req.Suffix)
	r.printf("Config file: %s\n", req.OverridesFile)
	r.printf("Package    : %s\n", req.SourceArchive)

	// Step 1: Load the override file before touching the filesystem, so a
	// bad override file leaves no workspace behind.
	set, err := overrides.Load(req.OverridesFile)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitOverrideError, "failed to load overrides", err)
	}
	r.log.Debug().Int("count", set.Len()).Str("file", req.OverridesFile).Msg("overrides loaded")

	// Step 2: Prepare the workspace.
	ws, err := workspace.NewManager(settings.TempDir, r.log).Prepare(settings.Workspace, settings.KeepWorkspace)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to prepare workspace", err)
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			r.log.Warn().Err(closeErr).Msg("workspace cleanup failed")
		}
	}()

	// Step 3: Extract the source archive.
	n, err := archive.Extract(ctx, req.SourceArchive, ws.ExtractDir, r.log.With("step", "extract"))
	if err != nil {
		return nil, stepError(model.ExitArchiveError, "failed to extract archive", err)
	}
	r.log.Debug().Int("files", n).Str("dir", ws.ExtractDir).Msg("archive extracted")

	descPath, err := archive.Member(ws.ExtractDir, settings.Descriptor)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDescriptorError,
			fmt.Sprintf("deployment descriptor %s not found in %s", settings.Descriptor, req.SourceArchive), err)
	}

	// Step 4: Patch the descriptor.
	doc, err := descriptor.Load(descPath)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDescriptorError, "invalid deployment descriptor", err)
	}

	changes, unmatched := doc.Apply(set)
	for _, c := range changes {
		r.printf("%s\n", c.String())
	}
	for _, name := range unmatched {
		r.log.Info().Str("property", name).Int("line", set.Line(name)).Msg("override matches no descriptor property")
	}
	if settings.Strict && len(unmatched) > 0 {
		return nil, model.WrapCLIError(model.ExitDescriptorError, "strict mode",
			&descriptor.UnmatchedOverridesError{Names: unmatched})
	}

	// Step 5: Write the intermediate file and copy it over the original.
	if err := doc.WriteFile(ws.Intermediate); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to write patched descriptor", err)
	}
	if err := workspace.CopyFile(ws.Intermediate, descPath); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to replace deployment descriptor", err)
	}

	// Step 6: Re-archive under a .zip name.
	if err := ctx.Err(); err != nil {
		return nil, stepError(model.ExitGeneralError, "interrupted", err)
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to create output directory", err)
	}

	stem, ext := splitName(req.SourceArchive)
	base := stem + "_" + req.Suffix
	zipPath := filepath.Join(settings.OutputDir, base+".zip")
	finalPath := filepath.Join(settings.OutputDir, base+ext)

	if _, err := archive.Pack(ctx, ws.ExtractDir, zipPath, r.log.With("step", "pack")); err != nil {
		return nil, stepError(model.ExitArchiveError, "failed to create archive", err)
	}

	// Step 7: Rename to the source extension.
	if zipPath != finalPath {
		if err := os.Rename(zipPath, finalPath); err != nil {
			_ = os.Remove(zipPath)
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to rename archive", err)
		}
	}

	r.printf("\nCreated new package with custom deploy-config: %s\n", finalPath)

	return &model.Result{
		SourceArchive: req.SourceArchive,
		OutputArchive: finalPath,
		Suffix:        req.Suffix,
		Changes:       nonNil(changes),
		Unmatched:     unmatched,
		Workspace:     ws.Root,
		WorkspaceKept: ws.Kept(),
	}, nil
}

// stepError wraps err for a step, reporting cancellation as a general
// error regardless of the step it interrupted.
func stepError(code model.ExitCode, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.WrapCLIError(model.ExitGeneralError, "interrupted", err)
	}
	return model.WrapCLIError(code, message, err)
}

func (r *Repackager) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// nonNil keeps JSON output as [] rather than null when nothing changed.
func nonNil(changes []model.PropertyChange) []model.PropertyChange {
	if changes == nil {
		return []model.PropertyChange{}
	}
	return changes
}
