package messages

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// terminalCommandSchema guards the TERMINAL stream against payloads that did
// not come through the Publisher.
var terminalCommandSchema = fmt.Sprintf(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["session_id", "cmd"],
  "properties": {
    "session_id": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
    "cmd": {"type": "string", "minLength": 1, "maxLength": %d},
    "correlation_id": {"type": "string"}
  },
  "additionalProperties": false
}`, MaxCommandLength)

var terminalCommandValidator = jsonschema.MustCompileString("terminal_command.json", terminalCommandSchema)

// DecodeTerminalCommand validates raw JSON against the command schema and
// decodes it.
func DecodeTerminalCommand(data []byte) (TerminalCommandMessage, error) {
	var cmd TerminalCommandMessage
	if err := ValidateTerminalPayload(data); err != nil {
		return cmd, err
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("decode terminal command: %w", err)
	}
	return cmd, nil
}

// ValidateTerminalPayload checks data against the terminal command schema.
func ValidateTerminalPayload(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode terminal command: %w", err)
	}
	if err := terminalCommandValidator.Validate(doc); err != nil {
		return fmt.Errorf("invalid terminal command: %w", err)
	}
	return nil
}
