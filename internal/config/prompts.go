package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResumePlaceholder marks where the resume text goes in the question prompt.
const ResumePlaceholder = "{{resume}}"

// PromptConfig holds the prompt templates sent to the model.
type PromptConfig struct {
	Questions        string `yaml:"questions"`
	FeedbackPreamble string `yaml:"feedback_preamble"`
	FeedbackFormat   string `yaml:"feedback_format"`
}

// DefaultPromptConfig returns the built-in prompts.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Questions: "Based on the following resume, generate exactly 5 technical interview questions. " +
			"Questions should be specific to the candidate's skills and experience. " +
			"Return only the questions, numbered 1-5, one per line.\n\nResume:\n" + ResumePlaceholder,
		FeedbackPreamble: "You are an honest technical interviewer. Analyze the following interview answers and provide:\n" +
			"1. Overall score (0-100)\n" +
			"2. Technical accuracy assessment\n" +
			"3. Individual feedback for each answer with score (0-20)\n" +
			"4. Areas for improvement\n" +
			"5. Strengths\n\n" +
			"Be honest and identify any incorrect, vague, or misleading answers.\n\n",
		FeedbackFormat: "\nProvide response in this exact format:\n" +
			"OVERALL_SCORE: [number]\n" +
			"TECHNICAL_ACCURACY: [assessment]\n" +
			"QUESTION_1_SCORE: [number]\n" +
			"QUESTION_1_FEEDBACK: [feedback]\n" +
			"QUESTION_1_ACCURATE: [true/false]\n" +
			"[repeat for all 5 questions]\n" +
			"IMPROVEMENTS: [point 1] | [point 2] | [point 3]\n" +
			"STRENGTHS: [point 1] | [point 2]",
	}
}

// LoadPromptConfig reads prompt overrides from a YAML file. Fields left empty
// keep their defaults; an empty path returns the defaults unchanged.
func LoadPromptConfig(path string) (PromptConfig, error) {
	pc := DefaultPromptConfig()
	if strings.TrimSpace(path) == "" {
		return pc, nil
	}
	// #nosec G304 -- operator supplied configuration path
	b, err := os.ReadFile(path)
	if err != nil {
		return PromptConfig{}, fmt.Errorf("op=config.LoadPromptConfig: %w", err)
	}
	var override PromptConfig
	if err := yaml.Unmarshal(b, &override); err != nil {
		return PromptConfig{}, fmt.Errorf("op=config.LoadPromptConfig: parse yaml: %w", err)
	}
	if strings.TrimSpace(override.Questions) != "" {
		if !strings.Contains(override.Questions, ResumePlaceholder) {
			return PromptConfig{}, fmt.Errorf("op=config.LoadPromptConfig: questions prompt must contain %s", ResumePlaceholder)
		}
		pc.Questions = override.Questions
	}
	if strings.TrimSpace(override.FeedbackPreamble) != "" {
		pc.FeedbackPreamble = override.FeedbackPreamble
	}
	if strings.TrimSpace(override.FeedbackFormat) != "" {
		pc.FeedbackFormat = override.FeedbackFormat
	}
	return pc, nil
}
