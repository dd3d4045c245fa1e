package planner

import (
	"testing"

	"pair-date-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateSetKeepsSortedUnique(t *testing.T) {
	set, err := NewDateSet("2024-06-05", "2024-06-01", "2024-06-03", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01", "2024-06-03", "2024-06-05"}, set.Dates())

	require.NoError(t, set.Add("2024-06-02"))
	assert.Equal(t, []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-05"}, set.Dates())

	require.NoError(t, set.Add("2024-06-02"))
	assert.Equal(t, 4, set.Len())
}

func TestDateSetRejectsMalformedDates(t *testing.T) {
	var set DateSet
	for _, bad := range []string{"", "2024-6-1", "2024-02-30", "tomorrow"} {
		assert.ErrorIs(t, set.Add(bad), ErrInvalidDate, bad)
	}
	assert.Zero(t, set.Len())
}

func TestCommonDates(t *testing.T) {
	selected := []string{"2024-06-01", "2024-06-03"}
	partner := []string{"2024-06-03", "2024-06-05"}
	assert.Equal(t, []string{"2024-06-03"}, CommonDates(selected, partner))

	// order follows the first list
	assert.Equal(t,
		[]string{"2024-06-09", "2024-06-02"},
		CommonDates([]string{"2024-06-09", "2024-06-02"}, []string{"2024-06-02", "2024-06-09"}),
	)
	assert.Empty(t, CommonDates([]string{"2024-06-01"}, nil))
	assert.NotNil(t, CommonDates(nil, nil))
}

func TestCanConfirm(t *testing.T) {
	date := "2024-06-03"
	tm := "19:30"
	blank := "  "

	assert.ErrorIs(t, CanConfirm(nil, &tm), ErrMissingFinalDate)
	assert.ErrorIs(t, CanConfirm(&date, nil), ErrMissingFinalTime)
	assert.ErrorIs(t, CanConfirm(&date, &blank), ErrMissingFinalTime)
	assert.NoError(t, CanConfirm(&date, &tm))
}

func TestDraftFlow(t *testing.T) {
	plan := &models.Plan{
		Title:       "Weekend",
		ProposalIDs: []string{"p1"},
		CandidateSlots: []models.CandidateSlot{
			{Date: "2024-06-03"},
			{Date: "2024-06-01"},
		},
	}
	draft, err := DraftFromPlan(plan, []string{"2024-06-03", "2024-06-05"})
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-06-03"}, draft.CommonDates())
	assert.ErrorIs(t, draft.Confirm(), ErrMissingFinalDate)

	require.NoError(t, draft.SetFinal("2024-06-03", "", "Cafe"))
	assert.ErrorIs(t, draft.Confirm(), ErrMissingFinalTime)

	require.NoError(t, draft.SetFinal("2024-06-03", "19:00", ""))
	assert.NoError(t, draft.Confirm())
	assert.Nil(t, draft.MeetingPlace)

	assert.Equal(t, []models.CandidateSlot{{Date: "2024-06-01"}, {Date: "2024-06-03"}}, draft.Slots())
	assert.ErrorIs(t, draft.SetFinal("03/06/2024", "19:00", ""), ErrInvalidDate)
}
