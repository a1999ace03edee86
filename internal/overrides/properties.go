package overrides

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

// MalformedLineError reports a non-comment override line that has no '='
// separator.
type MalformedLineError struct {
	// Source is the file name (or other label) the line was read from.
	Source string

	// Line is the 1-based line number.
	Line int

	// Text is the offending line with trailing whitespace removed.
	Text string
}

// Error implements the error interface.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed override line %s:%d: %q: expected name=value", e.Source, e.Line, e.Text)
}

// ParseProperties reads name=value lines from r into a new OverrideSet.
// source is used only for error messages.
func ParseProperties(r io.Reader, source string) (*model.OverrideSet, error) {
	set := model.NewOverrideSet()

	scanner := bufio.NewScanner(r)
	// Values such as inline certificates exceed the default 64 KiB token.
	scanner.Buffer(make([]byte, 0, 64*1024), math.MaxInt32)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		// Trailing whitespace (including the '\r' of CRLF files) is never
		// part of a value.
		line := strings.TrimRight(scanner.Text(), " \t\r\n\f\v")

		if strings.HasPrefix(line, "#") {
			continue
		}

		name, value, found := strings.Cut(line, "=")
		if !found {
			return nil, &MalformedLineError{Source: source, Line: lineNo, Text: line}
		}
		set.Set(name, value, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	return set, nil
}
