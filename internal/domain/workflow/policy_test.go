package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/domain/workflow"
)

func TestNewDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := workflow.NewDefaultPolicy()

	assert.Equal(t, 3, p.MaxAssigned)

	// Draft, submitted, in-review and on-hold bills occupy slots.
	assert.True(t, p.IsActive(domain.StageDraft))
	assert.True(t, p.IsActive(domain.StageSubmitted))
	assert.True(t, p.IsActive(domain.StageInReview))
	assert.True(t, p.IsActive(domain.StageOnHold))
	assert.False(t, p.IsActive(domain.StageApproved))
	assert.False(t, p.IsActive(domain.StagePaid))
	assert.False(t, p.IsActive(domain.StageRejected))

	// Only the two earliest stages are assignable.
	assert.True(t, p.IsAssignable(domain.StageDraft))
	assert.True(t, p.IsAssignable(domain.StageSubmitted))
	assert.False(t, p.IsAssignable(domain.StageInReview))
	assert.False(t, p.IsAssignable(domain.StageOnHold))
}

func TestNewPolicy_Overrides(t *testing.T) {
	t.Parallel()

	p, err := workflow.NewPolicy(workflow.PolicyConfig{
		MaxAssigned:      5,
		ActiveStages:     []domain.BillStage{domain.StageDraft, domain.StageSubmitted},
		AssignableStages: []domain.BillStage{domain.StageDraft},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, p.MaxAssigned)
	assert.False(t, p.IsActive(domain.StageOnHold))
	assert.False(t, p.IsAssignable(domain.StageSubmitted))
}

func TestNewPolicy_ValidationFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  workflow.PolicyConfig
	}{
		{
			name: "negative cap",
			cfg:  workflow.PolicyConfig{MaxAssigned: -1},
		},
		{
			name: "unknown active stage",
			cfg: workflow.PolicyConfig{
				ActiveStages: []domain.BillStage{"bogus"},
			},
		},
		{
			name: "assignable stage outside active set",
			cfg: workflow.PolicyConfig{
				ActiveStages:     []domain.BillStage{domain.StageDraft},
				AssignableStages: []domain.BillStage{domain.StageSubmitted},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := workflow.NewPolicy(tc.cfg)
			assert.Error(t, err)
		})
	}
}
