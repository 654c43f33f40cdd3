package summary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/llm"
)

// Summarizer condenses one day's transcript into a string sized for
// reinjection into the next day's seed message. Its prompt is composed from
// the experiment's summarizer sections rendered for the current
// combination, wrapped by the configured preamble and instruction.
type Summarizer struct {
	LLM      llm.Client
	Sections []*model.Section
	Prompts  config.SummaryConfig
	logger   *zap.Logger
}

func NewSummarizer(client llm.Client, sections []*model.Section, prompts config.SummaryConfig, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		LLM:      client,
		Sections: sections,
		Prompts:  prompts,
		logger:   logger.With(zap.String("component", "summarizer")),
	}
}

// Summarize condenses a day's transcript. values must contain every
// placeholder the summarizer sections reference for this combination.
func (s *Summarizer) Summarize(ctx context.Context, values map[string]string, transcript []model.Message, day int) (string, error) {
	prompt, err := s.buildPrompt(values, transcript, day)
	if err != nil {
		return "", err
	}

	response, err := s.LLM.Chat(ctx, "", []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	s.logger.Debug("summary generated", zap.Int("day", day), zap.Int("turns", len(transcript)))
	return strings.TrimSpace(response), nil
}

func (s *Summarizer) buildPrompt(values map[string]string, transcript []model.Message, day int) (string, error) {
	var b strings.Builder
	if s.Prompts.Preamble != "" {
		b.WriteString(s.Prompts.Preamble)
		b.WriteString("\n\n")
	}
	for _, section := range s.Sections {
		if section.Content == "" {
			continue
		}
		rendered, err := section.Render(values)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Day %d conversation:\n", day)
	for _, m := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Content)
	}
	if s.Prompts.Instruction != "" {
		b.WriteString("\n")
		b.WriteString(s.Prompts.Instruction)
	}
	return b.String(), nil
}
