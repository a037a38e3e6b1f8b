// Package llm - extractor.go builds structured-output prompts for each inference kind.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure the model is asked to return.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "CVAnalysis")
	Description string        // Prompt preamble describing the task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "int", "[]string", "object"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// An empty inputText means the input travels as an attachment.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Scores are whole numbers between 0 and 100.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	if inputText == "" {
		sb.WriteString("The input document is attached.\n")
		return sb.String()
	}
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

func scoreFields() []SchemaField {
	return []SchemaField{
		{Name: "overall_score", Type: "int", Description: "Overall fit 0-100", Required: true},
		{Name: "cultural_fit_score", Type: "int", Description: "Cultural fit 0-100", Required: true},
		{Name: "skills_match_score", Type: "int", Description: "Skills match 0-100", Required: true},
		{Name: "communication_score", Type: "int", Description: "Communication 0-100", Required: true},
		{Name: "recommendation", Type: "string", Description: "One of proceed, review, reject", Required: true},
	}
}

// CVAnalysisSchema returns the output structure for CV analyses.
func CVAnalysisSchema(preamble string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "CVAnalysis",
		Description: preamble,
		Fields: []SchemaField{
			{Name: "years_of_experience", Type: "int", Description: "Total years of professional experience", Required: true},
			{Name: "skills", Type: "[]string", Description: "Concrete skills stated in the CV", Required: true},
			{Name: "education", Type: "[]string", Description: "Degrees and certifications"},
			{Name: "work_history", Type: "[]{company, role, duration}", Description: "Positions held, most recent first"},
			{Name: "strengths", Type: "[]string"},
			{Name: "gaps", Type: "[]string", Description: "Points a hiring manager should dig into"},
			{Name: "summary", Type: "string", Description: "Two or three sentences", Required: true},
		},
	}
}

// DISCAnalysisSchema returns the output structure for DISC profile analyses.
func DISCAnalysisSchema(preamble string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "DISCAnalysis",
		Description: preamble,
		Fields: []SchemaField{
			{Name: "dominance", Type: "int", Required: true},
			{Name: "influence", Type: "int", Required: true},
			{Name: "steadiness", Type: "int", Required: true},
			{Name: "conscientiousness", Type: "int", Required: true},
			{Name: "primary_style", Type: "string", Description: "D, I, S, C or a blend such as DI", Required: true},
			{Name: "work_style", Type: "string"},
			{Name: "communication_preferences", Type: "[]string"},
			{Name: "strengths", Type: "[]string"},
			{Name: "potential_challenges", Type: "[]string"},
			{Name: "summary", Type: "string", Required: true},
		},
	}
}

// InterviewAnalysisSchema returns the output structure for interview analyses.
func InterviewAnalysisSchema(preamble string) ExtractionSchema {
	fields := scoreFields()
	fields = append(fields,
		SchemaField{Name: "strengths", Type: "[]string"},
		SchemaField{Name: "concerns", Type: "[]string"},
		SchemaField{Name: "key_moments", Type: "[]string", Description: "Moments that moved the assessment"},
		SchemaField{Name: "score_change_explanation", Type: "{previous_score, new_score, change, reasons_for_change}"},
		SchemaField{Name: "summary", Type: "string", Required: true},
	)
	return ExtractionSchema{Name: "InterviewAnalysis", Description: preamble, Fields: fields}
}

// CandidateEvaluationSchema returns the output structure for first-pass evaluations.
func CandidateEvaluationSchema(preamble string) ExtractionSchema {
	fields := scoreFields()
	fields = append(fields,
		SchemaField{Name: "summary", Type: "string"},
		SchemaField{Name: "strengths", Type: "[]string"},
		SchemaField{Name: "concerns", Type: "[]string"},
	)
	return ExtractionSchema{Name: "CandidateEvaluation", Description: preamble, Fields: fields}
}
