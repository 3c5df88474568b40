package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state", "bot.sqlite")
	svc, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	return svc, path
}

func countRows(t *testing.T, svc *Service, threadKey string) int {
	t.Helper()

	var n int
	require.NoError(t, svc.db.QueryRow("SELECT COUNT(*) FROM conversations WHERE thread_key = ?", threadKey).Scan(&n))

	return n
}

func TestMissingThread(t *testing.T) {
	svc, _ := openTemp(t)
	ctx := context.Background()

	id, err := svc.LastResponseID(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, id)

	record, err := svc.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestUpsertReplacesAndKeepsOneRow(t *testing.T) {
	svc, _ := openTemp(t)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Unix(1000, 0) }
	require.NoError(t, svc.Upsert(ctx, "109", "resp_a"))

	svc.now = func() time.Time { return time.Unix(2000, 0) }
	require.NoError(t, svc.Upsert(ctx, "109", "resp_b"))
	require.NoError(t, svc.Upsert(ctx, "109", "resp_b"))

	record, err := svc.Get(ctx, "109")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "resp_b", record.LastResponseID)
	assert.Equal(t, int64(2000), record.UpdatedAt.Unix())
	assert.Equal(t, 1, countRows(t, svc, "109"))
}

func TestConcurrentUpserts(t *testing.T) {
	svc, _ := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Upsert(ctx, "shared", fmt.Sprintf("resp_%d", i)))
			assert.NoError(t, svc.Upsert(ctx, fmt.Sprintf("own_%d", i), "resp"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, countRows(t, svc, "shared"))

	id, err := svc.LastResponseID(ctx, "shared")
	require.NoError(t, err)
	assert.Regexp(t, `^resp_\d+$`, id)
}

func TestRecordsSurviveReopen(t *testing.T) {
	svc, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, "thread", "resp_1"))
	require.NoError(t, svc.Shutdown())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Shutdown()

	id, err := reopened.LastResponseID(ctx, "thread")
	require.NoError(t, err)
	assert.Equal(t, "resp_1", id)
}
