// Package model defines the domain types and value objects for the
// deploy-repack CLI.
//
// This package contains pure data structures with no external dependencies.
// The OverrideSet, PropertyChange and Result types are transient: they live
// for a single repackaging run and nothing is persisted between runs.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
