package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"localpro/internal/database"
	"localpro/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	mu            sync.Mutex
	upserts       []int64
	statusUpdates map[int64]string
	failures      int
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets unavailable")
	}
	f.upserts = append(f.upserts, b.ID)
	return nil
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets unavailable")
	}
	if f.statusUpdates == nil {
		f.statusUpdates = map[int64]string{}
	}
	f.statusUpdates[bookingID] = status
	return nil
}

func newWorkerEnv(t *testing.T, sheets SheetsClient, redisClient *redis.Client) (*SyncWorker, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	w := NewSyncWorker(db, sheets, redisClient, RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}, &logger)
	return w, db
}

func syncTestBooking(id int64) *models.Booking {
	return &models.Booking{
		ID:         id,
		ProviderID: 1,
		CustomerID: 2,
		Date:       time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Start:      540,
		End:        600,
		Status:     models.StatusPending,
	}
}

func TestEnqueueTask_PersistsBeforeScheduling(t *testing.T) {
	w, db := newWorkerEnv(t, &fakeSheets{}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsertBooking, syncTestBooking(7), models.StatusPending))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskUpsertBooking, tasks[0].TaskType)
	assert.Equal(t, int64(7), tasks[0].BookingID)
	assert.Equal(t, models.SyncPending, tasks[0].Status)
}

func TestEnqueueTask_Validation(t *testing.T) {
	w, _ := newWorkerEnv(t, &fakeSheets{}, nil)
	ctx := context.Background()

	assert.Error(t, w.EnqueueTask(ctx, "", syncTestBooking(1), ""))
	assert.Error(t, w.EnqueueTask(ctx, TaskUpsertBooking, nil, ""))
	assert.Error(t, w.EnqueueTask(ctx, TaskUpsertBooking, &models.Booking{}, ""))
}

func TestEnqueueTask_RedisFastPath(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	w, _ := newWorkerEnv(t, &fakeSheets{}, client)

	require.NoError(t, w.EnqueueTask(context.Background(), TaskUpsertBooking, syncTestBooking(7), models.StatusPending))

	queued, err := mr.List(w.redisQueueKey)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0], `"upsert_booking"`)
}

func TestProcessTask_UpsertCompletes(t *testing.T) {
	sheets := &fakeSheets{}
	w, db := newWorkerEnv(t, sheets, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsertBooking, syncTestBooking(7), models.StatusPending))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])

	assert.Equal(t, []int64{7}, sheets.upserts)
	remaining, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestProcessTask_UpdateStatus(t *testing.T) {
	sheets := &fakeSheets{}
	w, db := newWorkerEnv(t, sheets, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpdateStatus, syncTestBooking(7), models.StatusConfirmed))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])

	assert.Equal(t, models.StatusConfirmed, sheets.statusUpdates[7])
}

func TestProcessTask_FailureSchedulesRetry(t *testing.T) {
	sheets := &fakeSheets{failures: 1}
	w, db := newWorkerEnv(t, sheets, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsertBooking, syncTestBooking(7), models.StatusPending))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	w.processTask(ctx, &tasks[0])
	assert.Empty(t, sheets.upserts)

	// The task is parked until its retry time.
	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed, "one failure is a retry, not a dead task")
}

func TestProcessTask_ExhaustedRetriesFail(t *testing.T) {
	sheets := &fakeSheets{failures: 100}
	w, db := newWorkerEnv(t, sheets, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueTask(ctx, TaskUpsertBooking, syncTestBooking(7), models.StatusPending))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	task.RetryCount = w.retryPolicy.MaxRetries - 1
	w.retryOrFail(ctx, &task, errors.New("sheets unavailable"))

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.SyncFailed, failed[0].Status)
}

func TestProcessTask_SkipsTaskNotYetDue(t *testing.T) {
	sheets := &fakeSheets{}
	w, _ := newWorkerEnv(t, sheets, nil)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	task := models.SyncTask{
		ID:          1,
		TaskType:    TaskUpsertBooking,
		BookingID:   7,
		Payload:     `{"booking_id":7}`,
		Status:      models.SyncRetry,
		NextRetryAt: &future,
	}
	w.processTask(ctx, &task)
	assert.Empty(t, sheets.upserts)
}
