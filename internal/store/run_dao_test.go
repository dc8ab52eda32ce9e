package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-bridge/clinbridge/internal/agent"
	"github.com/clinical-bridge/clinbridge/internal/pipeline"
)

func newTestDAO(t *testing.T) RunDAO {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "clinbridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunDAO(db)
}

func sampleSummary(status pipeline.WorkflowStatus) pipeline.WorkflowSummary {
	started := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	completed := time.Now().UTC().Truncate(time.Second)
	return pipeline.WorkflowSummary{
		WorkflowID: uuid.NewString(),
		Status:     status,
		PatientID:  "P42",
		Payer:      "Medicare",
		Procedure:  "99214",
		Phases: []pipeline.PhaseSummary{
			{
				Phase:   pipeline.PhaseDocumentation,
				Agent:   "clinical_documentation",
				Status:  pipeline.PhaseStatusCompleted,
				Content: "structured documentation",
				Usage:   &agent.TokenUsage{InputTokens: 100, OutputTokens: 200},
			},
			{
				Phase:  pipeline.PhasePriorAuth,
				Agent:  "prior_authorization",
				Status: pipeline.PhaseStatusSkipped,
			},
		},
		TotalDurationMS: 60000,
		TotalTokens:     agent.TokenUsage{InputTokens: 100, OutputTokens: 200},
		StartedAt:       &started,
		CompletedAt:     &completed,
	}
}

func TestRunDAOSaveAndGet(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	summary := sampleSummary(pipeline.WorkflowStatusCompleted)
	require.NoError(t, dao.Save(ctx, summary))

	run, err := dao.GetByID(ctx, summary.WorkflowID)
	require.NoError(t, err)

	assert.Equal(t, summary.WorkflowID, run.Summary.WorkflowID)
	assert.Equal(t, pipeline.WorkflowStatusCompleted, run.Summary.Status)
	assert.Equal(t, "P42", run.Summary.PatientID)
	assert.Equal(t, summary.TotalTokens, run.Summary.TotalTokens)
	require.Len(t, run.Summary.Phases, 2)
	assert.Equal(t, "structured documentation", run.Summary.Phases[0].Content)
	assert.Equal(t, pipeline.PhaseStatusSkipped, run.Summary.Phases[1].Status)
	require.NotNil(t, run.Summary.StartedAt)
	assert.True(t, summary.StartedAt.Equal(*run.Summary.StartedAt))
	assert.False(t, run.CreatedAt.IsZero())
}

func TestRunDAOSaveRequiresID(t *testing.T) {
	dao := newTestDAO(t)

	err := dao.Save(context.Background(), pipeline.WorkflowSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow id")
}

func TestRunDAOSaveReplacesExisting(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	summary := sampleSummary(pipeline.WorkflowStatusInProgress)
	require.NoError(t, dao.Save(ctx, summary))

	summary.Status = pipeline.WorkflowStatusCompleted
	require.NoError(t, dao.Save(ctx, summary))

	run, err := dao.GetByID(ctx, summary.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.WorkflowStatusCompleted, run.Summary.Status)

	runs, err := dao.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunDAOGetNotFound(t *testing.T) {
	dao := newTestDAO(t)

	_, err := dao.GetByID(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunDAOListFiltersAndLimits(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, dao.Save(ctx, sampleSummary(pipeline.WorkflowStatusCompleted)))
	}
	require.NoError(t, dao.Save(ctx, sampleSummary(pipeline.WorkflowStatusNeedsReview)))

	all, err := dao.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	completed, err := dao.List(ctx, pipeline.WorkflowStatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 3)
	for _, run := range completed {
		assert.Equal(t, pipeline.WorkflowStatusCompleted, run.Summary.Status)
	}

	limited, err := dao.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	review, err := dao.List(ctx, pipeline.WorkflowStatusNeedsReview, 0)
	require.NoError(t, err)
	require.Len(t, review, 1)
}

func TestRunDAODelete(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	summary := sampleSummary(pipeline.WorkflowStatusFailed)
	require.NoError(t, dao.Save(ctx, summary))

	require.NoError(t, dao.Delete(ctx, summary.WorkflowID))

	_, err := dao.GetByID(ctx, summary.WorkflowID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, dao.Delete(ctx, summary.WorkflowID), ErrNotFound)
}

func TestRunDAOPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clinbridge.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	summary := sampleSummary(pipeline.WorkflowStatusCompleted)
	require.NoError(t, NewRunDAO(db).Save(ctx, summary))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	run, err := NewRunDAO(db).GetByID(ctx, summary.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, summary.WorkflowID, run.Summary.WorkflowID)
}
