package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cdp-analytics/etl"
	"cdp-analytics/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePipeline struct {
	result *etl.Result
	err    error
	calls  int
}

func (f *fakePipeline) Run(context.Context) (*etl.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeVerifier struct {
	report *etl.IntegrityReport
	err    error
}

func (f *fakeVerifier) Verify(context.Context) (*etl.IntegrityReport, error) {
	return f.report, f.err
}

type fakeRunStore struct {
	mu       sync.Mutex
	started  []models.TransformRun
	finished []models.TransformRun
}

func (f *fakeRunStore) Start(_ context.Context, run *models.TransformRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, *run)
	return nil
}

func (f *fakeRunStore) Finish(_ context.Context, run *models.TransformRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, *run)
	return nil
}

func (f *fakeRunStore) Recent(_ context.Context, limit int) ([]models.TransformRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.finished) {
		limit = len(f.finished)
	}
	return f.finished[:limit], nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

type fakeArchiver struct {
	runs []string
	err  error
}

func (f *fakeArchiver) Archive(_ context.Context, run *models.TransformRun) (string, error) {
	f.runs = append(f.runs, run.ID.String())
	return "customer_360/" + run.ID.String() + ".xlsx", f.err
}

type transformFixture struct {
	pipeline *fakePipeline
	verifier *fakeVerifier
	runs     *fakeRunStore
	notifier *fakeNotifier
	cache    *fakeInvalidator
	archiver *fakeArchiver
	svc      *TransformService
}

func newTransformFixture(verify bool) *transformFixture {
	f := &transformFixture{
		pipeline: &fakePipeline{result: &etl.Result{RowsWritten: 42}},
		verifier: &fakeVerifier{report: &etl.IntegrityReport{Checks: []etl.CheckResult{
			etl.ParityCheck(etl.CheckCustomerCount, 42, 42, 0),
		}}},
		runs:     &fakeRunStore{},
		notifier: &fakeNotifier{},
		cache:    &fakeInvalidator{},
		archiver: &fakeArchiver{},
	}
	f.svc = NewTransformService(TransformDeps{
		Pipeline: f.pipeline,
		Verifier: f.verifier,
		Runs:     f.runs,
		Notifier: f.notifier,
		Cache:    f.cache,
		Archiver: f.archiver,
		Logger:   zap.NewNop(),
	}, verify)
	fixed := time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	return f
}

func TestTransformServiceRunSucceeds(t *testing.T) {
	f := newTransformFixture(true)

	run, report, err := f.svc.Run(context.Background(), TriggerAPI)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, int64(42), run.RowsWritten)
	assert.Equal(t, TriggerAPI, run.Trigger)
	require.NotNil(t, run.IntegrityPassed)
	assert.True(t, *run.IntegrityPassed)
	require.NotNil(t, run.FinishedAt)

	require.Len(t, f.runs.started, 1)
	assert.Equal(t, models.RunStatusRunning, f.runs.started[0].Status)
	require.Len(t, f.runs.finished, 1)
	assert.Equal(t, run.ID, f.runs.finished[0].ID)

	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, []string{run.ID.String()}, f.archiver.runs)
	assert.Empty(t, f.notifier.messages)
}

func TestTransformServiceRunFailureAlerts(t *testing.T) {
	f := newTransformFixture(true)
	f.pipeline.err = &etl.StageError{Stage: etl.StageMaterialize, Err: errors.New("disk full")}

	run, report, err := f.svc.Run(context.Background(), TriggerSchedule)
	require.Error(t, err)
	assert.Nil(t, report)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "disk full")
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "failed")
	assert.Contains(t, f.notifier.messages[0], "schedule")

	assert.Zero(t, f.cache.calls, "cache survives a failed run")
	assert.Empty(t, f.archiver.runs)
}

func TestTransformServiceRunInProgressIsSkippedNotFailed(t *testing.T) {
	f := newTransformFixture(true)
	f.pipeline.err = etl.ErrRunInProgress

	run, _, err := f.svc.Run(context.Background(), TriggerAPI)
	assert.ErrorIs(t, err, etl.ErrRunInProgress)
	assert.Equal(t, models.RunStatusSkipped, run.Status)
	require.Len(t, f.runs.finished, 1)
	assert.Equal(t, models.RunStatusSkipped, f.runs.finished[0].Status)
	assert.NotNil(t, f.runs.finished[0].FinishedAt)
	assert.Empty(t, f.notifier.messages)
}

func TestTransformServiceIntegrityFailureAlerts(t *testing.T) {
	f := newTransformFixture(true)
	f.verifier.report = &etl.IntegrityReport{Checks: []etl.CheckResult{
		etl.ParityCheck(etl.CheckPurchaseCount, 100, 99, 0),
	}}

	run, report, err := f.svc.Run(context.Background(), TriggerCLI)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.IntegrityPassed)
	assert.False(t, *run.IntegrityPassed)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "purchase_count")
}

func TestTransformServiceSkipsVerification(t *testing.T) {
	f := newTransformFixture(false)

	run, report, err := f.svc.Run(context.Background(), TriggerAPI)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Nil(t, run.IntegrityPassed)
}

func TestTransformServiceArchiveFailureIsNotFatal(t *testing.T) {
	f := newTransformFixture(false)
	f.archiver.err = errors.New("bucket missing")

	run, _, err := f.svc.Run(context.Background(), TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
}

func TestTransformServiceRecentRunsClampsLimit(t *testing.T) {
	f := newTransformFixture(false)
	for i := 0; i < 3; i++ {
		_, _, err := f.svc.Run(context.Background(), TriggerAPI)
		require.NoError(t, err)
	}

	runs, err := f.svc.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	runs, err = f.svc.RecentRuns(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
