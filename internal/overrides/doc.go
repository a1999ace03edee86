// Package overrides loads the property override file that drives a
// repackaging run.
//
// The primary format is a line-oriented properties file:
//
//	# comment lines start with '#'
//	port=9000
//	url=jdbc:postgresql://db1/app?ssl=true
//
// Each non-comment line is split on its first '='. Values may therefore
// contain '='. A non-comment line without '=' (including a blank line) is
// rejected with a MalformedLineError naming the offending line.
//
// Files ending in .json/.jsonc or .yaml/.yml are read as a flat object of
// property names to scalar values instead. JSONC comments are stripped with
// github.com/tidwall/jsonc before decoding.
package overrides
