package tex2typst

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// OptionsDocument groups the option tables of both conversion directions, as
// they appear in config files and HTTP requests.
type OptionsDocument struct {
	Tex   TexOptions   `json:"tex"`
	Typst TypstOptions `json:"typst"`
}

// OptionsSchema returns the JSON Schema of OptionsDocument.
func OptionsSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&OptionsDocument{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
