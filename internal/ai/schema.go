package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spec-kit/supportpilot/internal/domain"
)

// AnalysisSchema is the strict JSON schema every analysis must satisfy. It is
// sent upstream as the structured output format and checked on receipt.
const AnalysisSchema = `{
  "type": "object",
  "properties": {
    "customerReply": {"type": "string"},
    "qaSummary": {"type": "string"},
    "followUpQuestions": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["customerReply", "qaSummary", "followUpQuestions"],
  "additionalProperties": false
}`

// ErrUnparsable is returned when the analysis text is not JSON.
var ErrUnparsable = errors.New("analysis is not valid JSON")

// ShapeError lists schema violations of an otherwise valid JSON document.
type ShapeError struct {
	Problems []string
}

func (e *ShapeError) Error() string {
	return "analysis does not match schema: " + strings.Join(e.Problems, "; ")
}

var analysisSchema = mustSchema(AnalysisSchema)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("ai: invalid analysis schema: %v", err))
	}
	return schema
}

// DecodeAnalysis parses and validates raw against AnalysisSchema.
func DecodeAnalysis(raw []byte) (domain.AnalysisResult, error) {
	if !json.Valid(raw) {
		return domain.AnalysisResult{}, ErrUnparsable
	}

	result, err := analysisSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("validating analysis: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return domain.AnalysisResult{}, &ShapeError{Problems: problems}
	}

	var analysis domain.AnalysisResult
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return domain.AnalysisResult{}, ErrUnparsable
	}
	if analysis.FollowUpQuestions == nil {
		analysis.FollowUpQuestions = []string{}
	}
	return analysis, nil
}
