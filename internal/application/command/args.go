package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// JobID accepts a job id sent either as a JSON number or as a numeric string
type JobID int

// UnmarshalJSON implements json.Unmarshaler
func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("job id %q is not a number", s)
		}
		*id = JobID(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id %s is not a number", data)
	}
	*id = JobID(n)
	return nil
}

// JSONSchema describes both accepted encodings
func (JobID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("1")},
			{Type: "string", Pattern: `^[0-9]+$`},
		},
		Description: "native job id",
	}
}

// Flag accepts true/false as a JSON boolean or as a string
type Flag bool

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%q is not a boolean", s)
		}
		*f = Flag(b)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%s is not a boolean", data)
	}
	*f = Flag(b)
	return nil
}

// JSONSchema describes both accepted encodings
func (Flag) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "boolean"},
			{Type: "string", Enum: []any{"true", "false"}},
		},
	}
}

// NoArgs is the argument object of commands that take none
type NoArgs struct{}

// CreateTempFileArgs are the arguments of create_temp_file
type CreateTempFileArgs struct {
	BufferData string `json:"buffer_data" jsonschema:"description=base64 document or data URL"`
	Filename   string `json:"filename" jsonschema:"description=plain file name inside the scratch directory"`
}

// RemoveTempFileArgs are the arguments of remove_temp_file
type RemoveTempFileArgs struct {
	Filename string `json:"filename"`
}

// PrinterArgs name a printer
type PrinterArgs struct {
	PrinterName string `json:"printername"`
}

// JobArgs name one job in a printer queue
type JobArgs struct {
	PrinterName string `json:"printername"`
	JobID       JobID  `json:"jobid"`
}

// PrintPDFArgs are the arguments of print_pdf
type PrintPDFArgs struct {
	ID               string `json:"id,omitempty" jsonschema:"description=destination printer name; empty selects the default printer"`
	Path             string `json:"path"`
	PrinterSetting   string `json:"printer_setting,omitempty" jsonschema_description:"print settings such as -print-settings 1-2,A4,duplex"`
	RemoveAfterPrint Flag   `json:"remove_after_print,omitempty"`
}

// decode unmarshals args into v. Missing or null args decode as an empty object.
func decode(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
