package normalize

import (
	_ "embed"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response.schema.json
var responseSchemaJSON string

const responseSchemaURL = "https://watchpath.local/schema/response.json"

var responseSchema = jsonschema.MustCompileString(responseSchemaURL, responseSchemaJSON)

// conforms reports whether obj follows the requested response protocol.
// Nonconforming output is still normalized; the verdict is informational.
func conforms(obj objectNode) bool {
	if err := responseSchema.Validate(toValue(obj)); err != nil {
		slog.Debug("model response does not match protocol", "error", err)
		return false
	}
	return true
}
