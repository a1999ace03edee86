package model

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultDescriptorPath is the location of the deployment descriptor inside
// a resource adaptor deployable unit.
const DefaultDescriptorPath = "META-INF/deploy-config.xml"

// OverrideSet maps descriptor property names to their replacement values.
//
// Keys are unique: setting a name twice keeps the last value, matching the
// "last occurrence wins" rule of the override file. The source line of the
// winning occurrence is remembered for diagnostics.
type OverrideSet struct {
	values map[string]string
	lines  map[string]int
}

// NewOverrideSet creates an empty OverrideSet.
func NewOverrideSet() *OverrideSet {
	return &OverrideSet{
		values: make(map[string]string),
		lines:  make(map[string]int),
	}
}

// Set stores value under name. line is the 1-based source line, or 0 when
// the override did not come from a line-oriented file.
func (o *OverrideSet) Set(name, value string, line int) {
	o.values[name] = value
	o.lines[name] = line
}

// Get returns the override value for name and whether it is present.
func (o *OverrideSet) Get(name string) (string, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Line returns the source line recorded for name (0 if unknown).
func (o *OverrideSet) Line(name string) int {
	return o.lines[name]
}

// Len returns the number of distinct property names.
func (o *OverrideSet) Len() int {
	return len(o.values)
}

// Names returns all property names sorted alphabetically.
// Map iteration order is random in Go, so callers that print or compare
// names get a stable order from here.
func (o *OverrideSet) Names() []string {
	names := make([]string, 0, len(o.values))
	for name := range o.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the name → value mapping.
func (o *OverrideSet) Map() map[string]string {
	out := make(map[string]string, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// PropertyChange records one descriptor property whose value was replaced.
type PropertyChange struct {
	// Name is the value of the property's name attribute.
	Name string `json:"name"`

	// OldValue is the value attribute before patching. It is empty when the
	// property element had no value attribute.
	OldValue string `json:"oldValue"`

	// NewValue is the override value written into the descriptor.
	NewValue string `json:"newValue"`
}

// String returns the confirmation line printed for a change.
func (c PropertyChange) String() string {
	return fmt.Sprintf("Property %s set to %s", c.Name, c.NewValue)
}

// Result summarizes a completed repackaging run.
type Result struct {
	// SourceArchive is the archive path as given on the command line.
	SourceArchive string `json:"sourceArchive"`

	// OutputArchive is the path of the produced archive.
	OutputArchive string `json:"outputArchive"`

	// Suffix is the configuration suffix appended to the archive base name.
	Suffix string `json:"suffix"`

	// Changes lists the patched properties in descriptor order.
	Changes []PropertyChange `json:"changes"`

	// Unmatched lists override names that matched no descriptor property.
	Unmatched []string `json:"unmatched,omitempty"`

	// Workspace is the workspace root used for this run.
	Workspace string `json:"workspace"`

	// WorkspaceKept reports whether the workspace was left on disk.
	WorkspaceKept bool `json:"workspaceKept"`
}

// ValidateSuffix checks that suffix can be embedded in an archive file name
// without leaving the output directory. Any other characters are allowed.
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if strings.ContainsAny(suffix, "/\\\x00") || strings.Contains(suffix, "..") {
		return fmt.Errorf("invalid suffix %q: must not contain a path separator, \"..\" or NUL", suffix)
	}
	return nil
}

// ExitCode defines the process exit codes of the CLI.
// Scripts driving deploy-repack can tell which step failed from the code.
type ExitCode int

const (
	// ExitSuccess indicates the archive was produced.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates the command line was invalid. No work was done.
	ExitUsage ExitCode = 2

	// ExitOverrideError indicates the override file was missing, unreadable
	// or malformed.
	ExitOverrideError ExitCode = 3

	// ExitArchiveError indicates the source archive could not be read,
	// extracted or re-packed.
	ExitArchiveError ExitCode = 4

	// ExitDescriptorError indicates the deployment descriptor was missing,
	// malformed, or did not have the expected structure.
	ExitDescriptorError ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
