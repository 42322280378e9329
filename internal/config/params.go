package config

import (
	"os"

	"loanverify/domain/scoring"
	"loanverify/internal/errors"

	"gopkg.in/yaml.v3"
)

// LoadParameters returns the default parameter table with any keys present
// in the YAML file at path laid over it. An empty path yields the defaults.
// The result is validated; a bad table is a CONFIG_INVALID error.
func LoadParameters(path string) (scoring.Parameters, error) {
	params := scoring.DefaultParameters()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return scoring.Parameters{}, errors.WithCode(errors.CodeConfigInvalid,
			errors.Wrapf(err, "failed to read scoring parameters %s", path))
	}
	return ParseParameters(data)
}

// ParseParameters overlays a YAML document on the default table
func ParseParameters(data []byte) (scoring.Parameters, error) {
	params := scoring.DefaultParameters()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return scoring.Parameters{}, errors.WithCode(errors.CodeConfigInvalid,
			errors.Wrap(err, "failed to parse scoring parameters"))
	}
	if err := params.Validate(); err != nil {
		return scoring.Parameters{}, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return params, nil
}
