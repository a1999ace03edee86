package overrides

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseProperties_Scenario covers the basic override file: comments
// are skipped and each name=value line becomes one entry.
func TestParseProperties_Scenario(t *testing.T) {
	input := "port=9000\n# comment\nhost=db1\n"

	set, err := ParseProperties(strings.NewReader(input), "test.properties")
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, map[string]string{"port": "9000", "host": "db1"}, set.Map())
	assert.Equal(t, 1, set.Line("port"))
	assert.Equal(t, 3, set.Line("host"))
}

// TestParseProperties_LongLine verifies values larger than bufio's default
// token size are read whole.
func TestParseProperties_LongLine(t *testing.T) {
	cert := strings.Repeat("A", 200*1024)
	input := "port=9000\ncert=" + cert + "\nhost=db1\n"

	set, err := ParseProperties(strings.NewReader(input), "long.properties")
	require.NoError(t, err)

	got, ok := set.Get("cert")
	require.True(t, ok)
	assert.Equal(t, cert, got)
	assert.Equal(t, 3, set.Line("host"))
}

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "empty file",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "only comments",
			input: "# a\n#b=c\n",
			want:  map[string]string{},
		},
		{
			name:  "duplicate keys keep last value",
			input: "port=1\nport=2\nport=3\n",
			want:  map[string]string{"port": "3"},
		},
		{
			name:  "value keeps everything after first separator",
			input: "url=jdbc:postgresql://db/app?ssl=true&x=y\n",
			want:  map[string]string{"url": "jdbc:postgresql://db/app?ssl=true&x=y"},
		},
		{
			name:  "empty value is allowed",
			input: "password=\n",
			want:  map[string]string{"password": ""},
		},
		{
			name:  "trailing whitespace and CRLF are stripped",
			input: "host=db1  \r\nport=9000\r\n",
			want:  map[string]string{"host": "db1", "port": "9000"},
		},
		{
			name:  "leading whitespace is kept",
			input: " host= db1\n",
			want:  map[string]string{" host": " db1"},
		},
		{
			name:  "no trailing newline",
			input: "host=db1",
			want:  map[string]string{"host": "db1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseProperties(strings.NewReader(tt.input), "test")
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Map())
		})
	}
}

// TestParseProperties_Malformed verifies that lines without a separator
// are rejected with the line number, including blank lines.
func TestParseProperties_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantText string
	}{
		{name: "missing separator", input: "port=9000\nhost\n", wantLine: 2, wantText: "host"},
		{name: "blank line", input: "port=9000\n\nhost=db1\n", wantLine: 2, wantText: ""},
		{name: "indented comment is not a comment", input: "  # note\n", wantLine: 1, wantText: "  # note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProperties(strings.NewReader(tt.input), "site.properties")
			require.Error(t, err)

			var lineErr *MalformedLineError
			require.True(t, errors.As(err, &lineErr), "error should be a MalformedLineError")
			assert.Equal(t, "site.properties", lineErr.Source)
			assert.Equal(t, tt.wantLine, lineErr.Line)
			assert.Equal(t, tt.wantText, lineErr.Text)
			assert.Contains(t, err.Error(), "malformed override line")
		})
	}
}
