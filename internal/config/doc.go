// Package config resolves the settings of a deploy-repack run.
//
// Settings come from four layers, lowest precedence first: built-in
// defaults, an optional YAML settings file, DEPLOY_REPACK_* environment
// variables, and explicitly set command-line flags. Layers are merged with
// dario.cat/mergo; a non-zero value in a higher layer replaces the value
// below it. Booleans can therefore only be switched on by a higher layer.
package config
