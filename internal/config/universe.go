package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"SectorSentinel/internal/model"
)

//go:embed universe.yaml
var defaultUniverse []byte

type universeFile struct {
	Instruments       []model.Instrument `yaml:"instruments"`
	Sectors           []model.Sector     `yaml:"sectors"`
	SecondaryFirst    []string           `yaml:"secondary_first"`
	SecondaryExcluded []string           `yaml:"secondary_excluded"`
	PrivateCompanies  []string           `yaml:"private_companies"`
}

// LoadUniverse reads the instrument universe from path, or the built-in
// universe when path is empty.
func LoadUniverse(path string) (*model.Universe, error) {
	data := defaultUniverse
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read universe: %w", err)
		}
	}
	return ParseUniverse(data)
}

// ParseUniverse decodes and validates a universe document.
func ParseUniverse(data []byte) (*model.Universe, error) {
	var f universeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}
	order := model.NewProviderOrder(f.SecondaryFirst, f.SecondaryExcluded)
	return model.NewUniverse(f.Instruments, f.Sectors, order, f.PrivateCompanies)
}
