package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core/model"
)

func TestSummarize(t *testing.T) {
	mock := &MockClient{Response: "  The guards asserted control early.  "}
	sections, err := model.NewSectionList([]string{"context"}, model.SectionSummarizer, "")
	require.NoError(t, err)
	sections[1].SetContent("The population is <GUARD_NUM> and <PRISONER_NUM>.")

	s := NewSummarizer(mock, sections, config.SummaryConfig{
		Preamble:    "You observe a role-play experiment.",
		Instruction: "Summarize the day.",
	}, nil)

	transcript := []model.Message{
		{Sender: "Guard_1", Content: "Line up."},
		{Sender: "Prisoner_1", Content: "Fine."},
	}
	values := map[string]string{
		"<GUARD_NUM>":    "1 guard",
		"<PRISONER_NUM>": "2 prisoners",
	}

	out, err := s.Summarize(context.Background(), values, transcript, 1)
	require.NoError(t, err)
	assert.Equal(t, "The guards asserted control early.", out)

	require.Len(t, mock.Prompts, 1)
	prompt := mock.Prompts[0]
	assert.Contains(t, prompt, "You observe a role-play experiment.")
	assert.Contains(t, prompt, "The population is 1 guard and 2 prisoners.")
	assert.Contains(t, prompt, "Day 1 conversation:")
	assert.Contains(t, prompt, "Guard_1: Line up.")
	assert.Contains(t, prompt, "Summarize the day.")
}

func TestSummarize_MissingValue(t *testing.T) {
	sections, err := model.NewSectionList([]string{"context"}, model.SectionSummarizer, "")
	require.NoError(t, err)
	sections[1].SetContent("There are <GUARD_NUM>.")

	s := NewSummarizer(&MockClient{Response: "ok"}, sections, config.SummaryConfig{}, nil)

	_, err = s.Summarize(context.Background(), map[string]string{}, nil, 1)
	var merr *model.MissingPlaceholderError
	assert.ErrorAs(t, err, &merr)
}

func TestSummarize_ClientError(t *testing.T) {
	boom := errors.New("provider down")
	s := NewSummarizer(&MockClient{Err: boom}, nil, config.SummaryConfig{}, nil)

	_, err := s.Summarize(context.Background(), nil, nil, 1)
	assert.ErrorIs(t, err, boom)
}
