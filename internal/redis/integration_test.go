//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var testRedisURL string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()
	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()
	client, err := NewClient(ctx, testRedisURL)
	require.NoError(t, err)
	require.NoError(t, client.FlushAll(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestDebounceTable_TouchResetsDeadline(t *testing.T) {
	ctx := context.Background()
	table := NewDebounceTable(setupTestClient(t))

	require.NoError(t, table.Touch(ctx, 42, base.Add(5*time.Second)))
	require.NoError(t, table.Touch(ctx, 42, base.Add(9*time.Second)))

	pending, err := table.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	ids, err := table.ClaimDue(ctx, base.Add(6*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "second touch moved the deadline")

	ids, err = table.ClaimDue(ctx, base.Add(9*time.Second), 10)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, ids)
}

func TestDebounceTable_ClaimDueOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	table := NewDebounceTable(setupTestClient(t))

	require.NoError(t, table.Touch(ctx, 3, base.Add(3*time.Second)))
	require.NoError(t, table.Touch(ctx, 1, base.Add(1*time.Second)))
	require.NoError(t, table.Touch(ctx, 2, base.Add(2*time.Second)))

	ids, err := table.ClaimDue(ctx, base.Add(time.Minute), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	pending, err := table.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestDebounceTable_ConcurrentClaimsHandOutOnce(t *testing.T) {
	ctx := context.Background()
	client := setupTestClient(t)
	for id := 1; id <= 300; id++ {
		require.NoError(t, NewDebounceTable(client).Touch(ctx, id, base))
	}

	var (
		mu      sync.Mutex
		claimed = make(map[int]int)
		wg      sync.WaitGroup
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table := NewDebounceTable(client)
			for {
				ids, err := table.ClaimDue(ctx, base, 11)
				if err != nil || len(ids) == 0 {
					return
				}
				mu.Lock()
				for _, id := range ids {
					claimed[id]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, 300)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "post %d claimed twice", id)
	}
}

func TestDebounceTable_WithKeyIsolates(t *testing.T) {
	ctx := context.Background()
	table := NewDebounceTable(setupTestClient(t))
	other := table.WithKey("forum:trending:due:other")

	require.NoError(t, table.Touch(ctx, 1, base))
	pending, err := other.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
