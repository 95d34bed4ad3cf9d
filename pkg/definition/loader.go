package definition

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a definition document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Schema returns the JSON Schema that definition documents must satisfy.
func Schema() []byte {
	return schemaJSON
}

type stateDoc struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	IsInitial   bool   `mapstructure:"isInitial"`
	IsFinal     bool   `mapstructure:"isFinal"`
	Description string `mapstructure:"description"`
}

type actionDoc struct {
	ID          string   `mapstructure:"id"`
	Name        string   `mapstructure:"name"`
	FromStates  []string `mapstructure:"fromStates"`
	ToState     string   `mapstructure:"toState"`
	Enabled     *bool    `mapstructure:"enabled"`
	Description string   `mapstructure:"description"`
}

type document struct {
	ID          string      `mapstructure:"id"`
	Name        string      `mapstructure:"name"`
	Description string      `mapstructure:"description"`
	States      []stateDoc  `mapstructure:"states"`
	Actions     []actionDoc `mapstructure:"actions"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and parses a definition file.
func Load(path string) (*domain.Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a definition document. Shape problems are returned as *SchemaError.
func Parse(data []byte, format Format) (*domain.Definition, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return doc.toDomain(), nil
}

func decodeRaw(data []byte, format Format) (map[string]any, error) {
	raw := map[string]any{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return raw, nil
}

func checkSchema(raw map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to check definition schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{}
	for _, re := range result.Errors() {
		schemaErr.Errors = append(schemaErr.Errors, FieldError{Field: re.Field(), Reason: re.Description()})
	}
	return schemaErr
}

func (d document) toDomain() *domain.Definition {
	def := &domain.Definition{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		States:      make([]domain.State, 0, len(d.States)),
		Actions:     make([]domain.Action, 0, len(d.Actions)),
	}
	for _, s := range d.States {
		def.States = append(def.States, domain.State(s))
	}
	for _, a := range d.Actions {
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		def.Actions = append(def.Actions, domain.Action{
			ID:          a.ID,
			Name:        a.Name,
			FromStates:  a.FromStates,
			ToState:     a.ToState,
			Enabled:     enabled,
			Description: a.Description,
		})
	}
	return def
}
