package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venohr/stepflow/pkg/engine"
	"github.com/venohr/stepflow/pkg/models"
)

func step(id string, stepType models.StepType, status models.StepStatus, createdAt time.Time) *models.ProcessStep {
	return &models.ProcessStep{
		ID:        id,
		ProcessID: "process-1",
		Type:      stepType,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestNextStep_NoPendingSteps(t *testing.T) {
	t.Parallel()

	now := time.Now()

	selected, err := engine.NextStep("Offers", "entity-1", []*models.ProcessStep{
		step("s1", models.StepClientCreation, models.StepStatusDone, now),
		step("s2", models.StepTechnicalUserCreation, models.StepStatusSkipped, now.Add(time.Second)),
	})
	require.NoError(t, err)
	assert.Nil(t, selected)
}

func TestNextStep_SingleTodo(t *testing.T) {
	t.Parallel()

	now := time.Now()

	selected, err := engine.NextStep("Offers", "entity-1", []*models.ProcessStep{
		step("s1", models.StepClientCreation, models.StepStatusDone, now),
		step("s2", models.StepTechnicalUserCreation, models.StepStatusTodo, now.Add(time.Second)),
	})
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "s2", selected.ID)
}

func TestNextStep_OldestOfSameType(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// Duplicate TODO rows of one type are legal; the oldest wins.
	selected, err := engine.NextStep("Offers", "entity-1", []*models.ProcessStep{
		step("s2", models.StepClientCreation, models.StepStatusTodo, now.Add(time.Second)),
		step("s1", models.StepClientCreation, models.StepStatusTodo, now),
	})
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "s1", selected.ID)
}

func TestNextStep_AmbiguousTodo(t *testing.T) {
	t.Parallel()

	now := time.Now()

	_, err := engine.NextStep("Offers", "entity-1", []*models.ProcessStep{
		step("s1", models.StepClientCreation, models.StepStatusTodo, now),
		step("s2", models.StepTechnicalUserCreation, models.StepStatusTodo, now.Add(time.Second)),
	})
	require.Error(t, err)

	var ambiguous *engine.AmbiguousTodoError

	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.StepTypes, 2)
	assert.Equal(t, "Offers: entity-1 contains more than one process step in todo", err.Error())
}

func TestNextStep_DuplicateStatusIgnored(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// A DUPLICATE row of another type must not trip the ambiguity check.
	selected, err := engine.NextStep("IdentityProviders", "entity-2", []*models.ProcessStep{
		step("s1", models.StepEnableCentralIdp, models.StepStatusTodo, now),
		step("s2", models.StepCreateDatabaseIdp, models.StepStatusDuplicate, now),
	})
	require.NoError(t, err)
	require.NotNil(t, selected)
	assert.Equal(t, "s1", selected.ID)
}
