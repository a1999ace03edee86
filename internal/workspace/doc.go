// Package workspace manages the scratch area used during one repackaging
// run: an extraction directory and an intermediate descriptor file.
//
// By default a fresh temporary directory is created and removed when the
// run ends, whatever the outcome. A caller may instead name a fixed root;
// leftovers from a previous run are cleared from it first and the result is
// left in place for inspection afterwards.
package workspace
