package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var ErrUnknownFunction = errors.New("unknown function")

// BiomarkerFunction is one of the data operations the model may call.
type BiomarkerFunction int

const (
	FunctionSleep BiomarkerFunction = iota + 1
	FunctionActivity
)

var biomarkerFunctions = []BiomarkerFunction{FunctionSleep, FunctionActivity}

func (f BiomarkerFunction) String() string {
	switch f {
	case FunctionSleep:
		return "getSleep"
	case FunctionActivity:
		return "getActivity"
	}
	return fmt.Sprintf("BiomarkerFunction(%d)", int(f))
}

func (f BiomarkerFunction) Endpoint() Endpoint {
	switch f {
	case FunctionSleep:
		return EndpointSleep
	case FunctionActivity:
		return EndpointActivity
	}
	return ""
}

// Describe returns the description shown to the model. It quotes today's
// date so relative questions ("last night") can be turned into a range.
func (f BiomarkerFunction) Describe(name string, today time.Time) string {
	switch f {
	case FunctionActivity:
		return fmt.Sprintf("Returns %s's biomarker data for non-sleep activity such as steps and calories burned. Today's date is %s.", name, FormatToday(today))
	default:
		return fmt.Sprintf("Returns %s's biomarker data for sleep and resting heart rate. Today's date is %s.", name, FormatToday(today))
	}
}

// ParseBiomarkerFunction maps a function name chosen by the model back to the
// operation. Names outside the registered set are rejected.
func ParseBiomarkerFunction(name string) (BiomarkerFunction, error) {
	for _, f := range biomarkerFunctions {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
}

var dateRangeSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"start_date": {
			Type:        jsonschema.String,
			Description: "Beginning date",
		},
		"end_date": {
			Type:        jsonschema.String,
			Description: "End date",
		},
	},
}

// FunctionDefinitions is the set of functions offered during the intent phase.
func FunctionDefinitions(name string, today time.Time) []openai.FunctionDefinition {
	defs := make([]openai.FunctionDefinition, 0, len(biomarkerFunctions))
	for _, f := range biomarkerFunctions {
		defs = append(defs, openai.FunctionDefinition{
			Name:        f.String(),
			Description: f.Describe(name, today),
			Parameters:  dateRangeSchema,
		})
	}
	return defs
}

// ParseDateRange decodes the JSON argument string of a function call.
func ParseDateRange(arguments string) (DateRange, error) {
	var r DateRange
	if err := json.Unmarshal([]byte(arguments), &r); err != nil {
		return DateRange{}, fmt.Errorf("invalid function arguments: %w", err)
	}
	return r, nil
}
