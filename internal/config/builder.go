package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// layer ranks a settings source; higher ranks win on merge.
type layer int

const (
	layerDefaults layer = iota
	layerFile
	layerEnv
	layerFlags
)

type builder struct {
	layers map[layer]*Settings
	err    error
}

func newBuilder() *builder {
	return &builder{layers: make(map[layer]*Settings, 4)}
}

func (b *builder) withDefaults() *builder {
	b.layers[layerDefaults] = Defaults()
	return b
}

func (b *builder) withEnv(environ map[string]string) *builder {
	s, err := parseEnv(environ)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.layers[layerEnv] = s
	return b
}

func (b *builder) withFlags(flags *Settings) *builder {
	if flags != nil {
		b.layers[layerFlags] = flags
	}
	return b
}

// withFile reads the settings file named by the flag or env layer. It must
// run after those layers are added; its values still rank below them.
func (b *builder) withFile() *builder {
	var p string
	for _, l := range []layer{layerEnv, layerFlags} {
		if s := b.layers[l]; s != nil && s.ConfigFile != "" {
			p = s.ConfigFile
		}
	}
	if p == "" {
		return b
	}

	s, err := ParseFile(p)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	s.ConfigFile = p
	b.layers[layerFile] = s
	return b
}

func (b *builder) build() (*Settings, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occurred during building settings: %w", b.err)
	}

	result := new(Settings)
	for _, l := range []layer{layerDefaults, layerFile, layerEnv, layerFlags} {
		s := b.layers[l]
		if s == nil {
			continue
		}
		if err := mergo.Merge(result, s, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging settings: %w", err)
		}
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}
