package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleApp() application.Application {
	return application.Application{
		Name: "Alice", Income: 120000, LoanAmount: 250000, ExistingLoans: 1,
		RepaymentScore: 0.95, EmploymentYears: 8, CompanyName: "Microsoft", CollateralValue: 350000,
	}
}

func TestApplicationStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	id := core.ApplicationID("APP-20260101-AAAAAAAA")

	require.NoError(t, store.Create(ctx, application.NewRecord(id, sampleApp())))

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stage.StatusPending, rec.Status)
	assert.Equal(t, stage.PhaseInitiated, rec.CurrentStage)

	require.NoError(t, store.UpdateStage(ctx, id, stage.PhaseVerification))
	result, err := stage.NewStageResult(id, stage.StageCredit, map[string]int{"credit_score": 780}, 1)
	require.NoError(t, err)
	require.NoError(t, store.SaveStageResult(ctx, result))
	require.NoError(t, store.SaveStageResult(ctx, stage.NewFailedStageResult(id, stage.StageEmployment, fmt.Errorf("boom"))))

	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stage.PhaseVerification, rec.CurrentStage)
	assert.JSONEq(t, `{"credit_score":780}`, string(rec.StageResults[stage.StageCredit]))
	_, hasFailed := rec.StageResults[stage.StageEmployment]
	assert.False(t, hasFailed, "failed rows are logged but not merged")

	require.NoError(t, store.SaveDecision(ctx, id, verdict.Decision{Outcome: verdict.Approved, RiskScore: 0.2}))
	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.IsDecided())
	assert.Equal(t, stage.PhaseCompleted, rec.CurrentStage)

	log, err := store.StageLog(ctx, id)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, stage.StageCredit, log[0].StageName)
	assert.False(t, log[1].Success)
	assert.Equal(t, "boom", log[1].Error)
}

func TestApplicationStoreMissingID(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()

	_, err := store.Get(ctx, "APP-missing")
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	assert.Error(t, store.UpdateStage(ctx, "APP-missing", stage.PhasePlanning))
	assert.Error(t, store.MarkFailed(ctx, "APP-missing"))
	_, err = store.StageLog(ctx, "APP-missing")
	assert.True(t, core.IsNotFoundError(err))
}

func TestApplicationStoreRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	rec := application.NewRecord("APP-1", sampleApp())

	require.NoError(t, store.Create(ctx, rec))
	err := store.Create(ctx, rec)
	assert.True(t, core.IsConflictError(err))
}

func TestApplicationStoreListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, application.NewRecord(core.ApplicationID(fmt.Sprintf("APP-%d", i)), sampleApp())))
	}

	recs, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, core.ApplicationID("APP-4"), recs[0].ID)
	assert.Equal(t, core.ApplicationID("APP-2"), recs[2].ID)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestApplicationStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewApplicationStore()
	require.NoError(t, store.Create(ctx, application.NewRecord("APP-1", sampleApp())))

	rec, err := store.Get(ctx, "APP-1")
	require.NoError(t, err)
	rec.StageResults[stage.StageCredit] = []byte(`{}`)
	rec.Status = stage.StatusFailed

	again, err := store.Get(ctx, "APP-1")
	require.NoError(t, err)
	assert.Empty(t, again.StageResults)
	assert.Equal(t, stage.StatusPending, again.Status)
}

func TestAuditHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	h := NewAuditHistory()

	for i := 0; i < 25; i++ {
		_, err := h.Append(ctx, audit.Entry{Income: float64(i)})
		require.NoError(t, err)
	}

	recent, err := h.Recent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, 5.0, recent[0].Income)
	assert.Equal(t, int64(25), recent[19].Seq)

	all, err := h.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 25)

	few, err := h.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, few, 25)
}

func TestAuditHistoryWithLockSerializesReadThenAppend(t *testing.T) {
	ctx := context.Background()
	h := NewAuditHistory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.WithLock(ctx, func(ctx context.Context) error {
				prior, err := h.All(ctx)
				if err != nil {
					return err
				}
				_, err = h.Append(ctx, audit.Entry{Income: float64(len(prior))})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := h.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 50)
	for i, e := range all {
		assert.Equal(t, float64(i), e.Income, "entry %d saw an interleaved history", i)
		assert.Equal(t, int64(i+1), e.Seq)
	}
}
