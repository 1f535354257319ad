package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cdp-analytics/etl"
	"cdp-analytics/models"
	"cdp-analytics/services"
	"cdp-analytics/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransform struct {
	err      error
	report   *etl.IntegrityReport
	triggers []string
	runs     []models.TransformRun
	limit    int
}

func (f *fakeTransform) Run(_ context.Context, trigger string) (*models.TransformRun, *etl.IntegrityReport, error) {
	f.triggers = append(f.triggers, trigger)
	run := &models.TransformRun{ID: uuid.New(), Trigger: trigger, Status: models.RunStatusSucceeded, RowsWritten: 3}
	if f.err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = f.err.Error()
		return run, nil, f.err
	}
	return run, f.report, nil
}

func (f *fakeTransform) Verify(context.Context) (*etl.IntegrityReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeTransform) RecentRuns(_ context.Context, limit int) ([]models.TransformRun, error) {
	f.limit = limit
	return f.runs, f.err
}

func etlRouter(transform *fakeTransform) *gin.Engine {
	ec := NewETLController(transform, zap.NewNop())
	rc := NewReportController(transform, zap.NewNop())

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api")
	api.POST("/etl/run", ec.RunTransform)
	api.GET("/etl/runs", rc.GetRuns)
	api.GET("/etl/integrity", rc.GetIntegrityReport)
	return r
}

func passingReport() *etl.IntegrityReport {
	return &etl.IntegrityReport{
		CheckedAt: time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC),
		Checks: []etl.CheckResult{
			etl.ParityCheck(etl.CheckCustomerCount, 3, 3, 0),
			etl.MismatchCheck(etl.CheckPerCustomerSpend, nil),
		},
	}
}

func TestRunTransformSucceeds(t *testing.T) {
	transform := &fakeTransform{report: passingReport()}
	r := etlRouter(transform)

	w := testutil.DoRequest(r, http.MethodPost, "/api/etl/run", nil, testutil.TestToken(RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{services.TriggerAPI}, transform.triggers)
	body := testutil.ParseResponse(w)
	run := body["run"].(map[string]interface{})
	assert.Equal(t, models.RunStatusSucceeded, run["status"])
	assert.Equal(t, 3.0, run["rows_written"])
	assert.NotNil(t, body["integrity"])
}

func TestRunTransformErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"in progress", etl.ErrRunInProgress, http.StatusConflict},
		{"store down", fmt.Errorf("%w: dial tcp: connection refused", etl.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"stage failure", &etl.StageError{Stage: etl.StageMaterialize, Err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := etlRouter(&fakeTransform{err: tc.err})
			w := testutil.DoRequest(r, http.MethodPost, "/api/etl/run", nil, testutil.TestToken(RoleAdmin))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestRunTransformFailureIncludesRun(t *testing.T) {
	r := etlRouter(&fakeTransform{err: &etl.StageError{Stage: etl.StageWebSummary, Err: errors.New("relation missing")}})

	w := testutil.DoRequest(r, http.MethodPost, "/api/etl/run", nil, testutil.TestToken(RoleAdmin))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	run := testutil.ParseResponse(w)["run"].(map[string]interface{})
	assert.Equal(t, models.RunStatusFailed, run["status"])
	assert.Contains(t, run["error_message"], etl.StageWebSummary)
}

func TestGetIntegrityReport(t *testing.T) {
	report := passingReport()
	report.Checks = append(report.Checks, etl.ParityCheck(etl.CheckTotalSpend, 1000, 1100, etl.DefaultSpendTolerance))
	r := etlRouter(&fakeTransform{report: report})

	w := testutil.DoRequest(r, http.MethodGet, "/api/etl/integrity", nil, testutil.TestToken(RoleAnalyst))
	require.Equal(t, http.StatusOK, w.Code)

	body := testutil.ParseResponse(w)
	assert.Equal(t, false, body["passed"])
	assert.Len(t, body["checks"], 3)
}

func TestGetIntegrityReportCannotRun(t *testing.T) {
	r := etlRouter(&fakeTransform{err: etl.ErrStoreUnavailable})

	w := testutil.DoRequest(r, http.MethodGet, "/api/etl/integrity", nil, testutil.TestToken(RoleAnalyst))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRuns(t *testing.T) {
	transform := &fakeTransform{runs: []models.TransformRun{
		{ID: uuid.New(), Trigger: services.TriggerSchedule, Status: models.RunStatusSucceeded},
	}}
	r := etlRouter(transform)
	token := testutil.TestToken(RoleAnalyst)

	w := testutil.DoRequest(r, http.MethodGet, "/api/etl/runs?limit=5", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, transform.limit)
	assert.Len(t, testutil.ParseResponse(w)["runs"], 1)

	w = testutil.DoRequest(r, http.MethodGet, "/api/etl/runs?limit=ten", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
