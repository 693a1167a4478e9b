package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResponse(t *testing.T) {
	result, err := parseAnalysisResponse(`{"issues":[{"type":"logic","description":"  compares floats with == "}]}`)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "logic", result.Issues[0].Type)
	require.Equal(t, "compares floats with ==", result.Issues[0].Description)
}

func TestParseAnalysisResponseSkipsUntypedIssues(t *testing.T) {
	result, err := parseAnalysisResponse(`{"issues":[{"type":"  ","description":"noise"},{"type":"syntax","description":"d"}]}`)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "syntax", result.Issues[0].Type)
}

func TestParseAnalysisResponseEmptyIssues(t *testing.T) {
	result, err := parseAnalysisResponse(`{"issues":[]}`)
	require.NoError(t, err)
	require.Empty(t, result.Issues)
}

func TestParseAnalysisResponseInvalidJSON(t *testing.T) {
	_, err := parseAnalysisResponse("not json")
	require.Error(t, err)
}

func TestBuildUserPromptIncludesKnownIssues(t *testing.T) {
	prompt := buildUserPrompt(AnalysisInput{
		CourseTitle:      "Intro",
		ExerciseTitle:    "Sum",
		Language:         "71",
		SubmissionSource: "print(1)",
		KnownIssues:      []KnownIssue{{Type: "logic", Description: "d", Frequency: 2}},
	})
	require.True(t, strings.Contains(prompt, "## Known Issues"))
	require.True(t, strings.Contains(prompt, `"logic"`))
	require.True(t, strings.Contains(prompt, "print(1)"))
}

func TestNewOpenAIAnalyzerRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIAnalyzer(OpenAIConfig{})
	require.Error(t, err)
}
