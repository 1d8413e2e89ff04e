package analysis

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Output schemas for each flow. The model reply is validated against these
// before decoding so a malformed answer fails the step instead of producing
// a half-filled report.
const (
	riskEnum = `{"type": "string", "enum": ["Low", "Medium", "High"]}`
	score    = `{"type": "integer", "minimum": 0, "maximum": 100}`

	textSchema = `{
  "type": "object",
  "required": ["summary", "keyClaims", "contentAnalysis", "misinformationRisk", "riskReasoning"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "keyClaims": {"type": "array", "items": {"type": "string"}},
    "contentAnalysis": {"type": "string"},
    "misinformationRisk": ` + riskEnum + `,
    "riskReasoning": {"type": "string"}
  }
}`

	urlSchema = `{
  "type": "object",
  "required": ["summary", "keyClaims", "sourceReputation", "misinformationRisk", "riskReasoning"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "keyClaims": {"type": "array", "items": {"type": "string"}},
    "sourceReputation": {"type": "string"},
    "misinformationRisk": ` + riskEnum + `,
    "riskReasoning": {"type": "string"}
  }
}`

	imageSchema = `{
  "type": "object",
  "required": ["description", "manipulationAssessment", "manipulationDetected", "reverseImageSearchKeywords", "misinformationRisk", "riskReasoning"],
  "properties": {
    "description": {"type": "string", "minLength": 1},
    "manipulationAssessment": {"type": "string"},
    "manipulationDetected": {"type": "boolean"},
    "reverseImageSearchKeywords": {"type": "array", "items": {"type": "string"}, "maxItems": 5},
    "misinformationRisk": ` + riskEnum + `,
    "riskReasoning": {"type": "string"}
  }
}`

	aiDetectionSchema = `{
  "type": "object",
  "required": ["aiProbability", "reasoning", "artifactsFound"],
  "properties": {
    "aiProbability": ` + score + `,
    "anatomyScore": ` + score + `,
    "physicsScore": ` + score + `,
    "textureScore": ` + score + `,
    "reasoning": {"type": "string"},
    "artifactsFound": {"type": "array", "items": {"type": "string"}}
  }
}`

	recycledSchema = `{
  "type": "object",
  "required": ["perceptualHash", "extractedKeywords", "gdeltResults"],
  "properties": {
    "perceptualHash": {"type": "string"},
    "extractedKeywords": {"type": "array", "items": {"type": "string"}},
    "gdeltResults": {"type": "string"},
    "newsCoverage": {"type": "boolean"}
  }
}`

	crisisSchema = `{
  "type": "object",
  "required": ["solarAzimuth", "solarAltitude", "weatherMatch"],
  "properties": {
    "solarAzimuth": {"type": "number", "minimum": 0, "maximum": 360},
    "solarAltitude": {"type": "number", "minimum": -90, "maximum": 90},
    "weatherMatch": {"type": "boolean"},
    "mismatchReason": {"type": "string"}
  }
}`

	translateSchema = `{
  "type": "object",
  "required": ["translatedSummary"],
  "properties": {
    "translatedSummary": {"type": "string", "minLength": 1}
  }
}`
)

var (
	textOutput        = mustSchema("text", textSchema)
	urlOutput         = mustSchema("url", urlSchema)
	imageOutput       = mustSchema("image", imageSchema)
	aiDetectionOutput = mustSchema("aiDetection", aiDetectionSchema)
	recycledOutput    = mustSchema("recycledFootage", recycledSchema)
	crisisOutput      = mustSchema("crisisContext", crisisSchema)
	translateOutput   = mustSchema("translate", translateSchema)
)

// outputSchema is a compiled flow output schema
type outputSchema struct {
	name   string
	schema *gojsonschema.Schema
}

func mustSchema(name, src string) outputSchema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return outputSchema{name: name, schema: s}
}

// SchemaError lists every violation found in a model reply
type SchemaError struct {
	Flow       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s output does not match schema: %s", e.Flow, strings.Join(e.Violations, "; "))
}

// validate checks raw JSON against the schema
func (s outputSchema) validate(raw []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate %s output: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, re.String())
	}
	return &SchemaError{Flow: s.name, Violations: violations}
}
