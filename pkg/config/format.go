package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type OutputFormat int

const (
	OutputHDF5 OutputFormat = iota
	OutputSQL
)

var outputFormatStrings = []string{
	"hdf5",
	"sql",
}

func (f OutputFormat) String() string {
	if f < OutputHDF5 || f > OutputSQL {
		return "UNKNOWN"
	}
	return outputFormatStrings[f]
}

func parseOutputFormat(s string) (OutputFormat, error) {
	for i, v := range outputFormatStrings {
		if v == s {
			return OutputFormat(i), nil
		}
	}
	return 0, fmt.Errorf("invalid OutputFormat: %s", s)
}

func (f OutputFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *OutputFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseOutputFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f OutputFormat) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

func (f *OutputFormat) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseOutputFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
