// Package cli implements the cobra-based command line of deploy-repack.
//
// The tool has a single command: the root command takes the override file,
// the source archive and the suffix as positional arguments. Global
// concerns (settings resolution, logging, error formatting and exit codes)
// are handled here; the work itself is delegated to internal/repackage.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/deploy-repack/internal/config"
	"github.com/shinji-kodama/deploy-repack/internal/logger"
	"github.com/shinji-kodama/deploy-repack/internal/model"
	"github.com/shinji-kodama/deploy-repack/internal/repackage"
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// rootFlags holds the flag values of the root command.
type rootFlags struct {
	configFile    string
	workspace     string
	keepWorkspace bool
	outputDir     string
	descriptor    string
	strict        bool
	jsonOutput    bool
	verbose       bool
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "deploy-repack [flags] <overrides-file> <source-archive> <suffix>",
		Short: "Customize the deploy-config.xml of a resource adaptor deployable unit",
		Long: `deploy-repack rewrites property values in the deployment descriptor
(META-INF/deploy-config.xml) of a resource adaptor deployable unit and writes
the result as a new archive named <source-base>_<suffix>.<source-ext>.

The overrides file holds one name=value pair per line; lines starting with
'#' are comments. Files ending in .json, .jsonc, .yaml or .yml are read as a
flat object of property names to values instead.

Examples:
  deploy-repack site-a.properties ovoo-sip-broker-ra-du-1.0.jar site-a
  deploy-repack --output-dir dist --strict prod.yaml broker-du.jar prod
  deploy-repack --workspace ./work --json test.properties broker-du.jar test`,

		Args: exactArgs(3),

		// SilenceUsage prevents cobra from printing usage on every error;
		// usage is printed by Run only for command line errors.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepackage(cmd, flags, args)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "YAML settings file (env: DEPLOY_REPACK_CONFIG)")
	f.StringVar(&flags.workspace, "workspace", "", "Use this workspace directory instead of a temporary one")
	f.BoolVar(&flags.keepWorkspace, "keep-workspace", false, "Do not remove the temporary workspace after the run")
	f.StringVar(&flags.outputDir, "output-dir", "", "Directory for the new archive (default: current directory)")
	f.StringVar(&flags.descriptor, "descriptor", "", "Descriptor path inside the archive (default: "+model.DefaultDescriptorPath+")")
	f.BoolVar(&flags.strict, "strict", false, "Fail when an override matches no descriptor property")
	f.BoolVar(&flags.jsonOutput, "json", false, "Output the result in JSON format")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")

	return rootCmd
}

// exactArgs is cobra.ExactArgs with a usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return model.NewCLIError(model.ExitUsage,
				fmt.Sprintf("expected %d arguments (overrides file, source archive, suffix), got %d", n, len(args)))
		}
		return nil
	}
}

// settingsFromFlags returns only the flags the user set explicitly, so
// that unset flags do not mask environment or file settings.
func settingsFromFlags(cmd *cobra.Command, flags *rootFlags) *config.Settings {
	s := &config.Settings{}
	changed := cmd.Flags().Changed

	if changed("config") {
		s.ConfigFile = flags.configFile
	}
	if changed("workspace") {
		s.Workspace = flags.workspace
	}
	if changed("keep-workspace") {
		s.KeepWorkspace = flags.keepWorkspace
	}
	if changed("output-dir") {
		s.OutputDir = flags.outputDir
	}
	if changed("descriptor") {
		s.Descriptor = flags.descriptor
	}
	if changed("strict") {
		s.Strict = flags.strict
	}
	return s
}

func runRepackage(cmd *cobra.Command, flags *rootFlags, args []string) error {
	log := logger.New(cmd.ErrOrStderr(), "deploy-repack", flags.verbose)

	settings, err := config.Load(config.Options{Flags: settingsFromFlags(cmd, flags)})
	if err != nil {
		return model.WrapCLIError(model.ExitUsage, "invalid settings", err)
	}
	log.Debug().
		Str("workspace", settings.Workspace).
		Str("outputDir", settings.OutputDir).
		Str("descriptor", settings.Descriptor).
		Bool("strict", settings.Strict).
		Msg("settings resolved")

	var progress io.Writer = cmd.OutOrStdout()
	if flags.jsonOutput {
		progress = io.Discard
	}

	result, err := repackage.New(progress, log).Run(cmd.Context(), repackage.Request{
		OverridesFile: args[0],
		SourceArchive: args[1],
		Suffix:        args[2],
		Settings:      settings,
	})
	if err != nil {
		return err
	}

	if flags.jsonOutput {
		return printResultJSON(cmd.OutOrStdout(), result)
	}
	return nil
}

// Run executes rootCmd and translates the outcome into an exit code.
// Errors are printed to the command's stderr; command line errors are
// followed by the usage text.
func Run(ctx context.Context, rootCmd *cobra.Command) model.ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return model.ExitSuccess
	}

	jsonOutput, _ := rootCmd.Flags().GetBool("json")
	stderr := rootCmd.ErrOrStderr()

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(stderr, jsonOutput, cliErr.Message, cliErr.Err)
		if cliErr.Code == model.ExitUsage && !jsonOutput {
			_, _ = fmt.Fprintf(stderr, "\n%s", rootCmd.UsageString())
		}
		return cliErr.Code
	}

	// Unknown flags and other cobra parse errors are command line errors.
	printError(stderr, jsonOutput, err.Error(), nil)
	if !jsonOutput {
		_, _ = fmt.Fprintf(stderr, "\n%s", rootCmd.UsageString())
	}
	return model.ExitUsage
}
