package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()

	if _, ok := store.Get(ctx, "missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}

	store.Set(ctx, "k", "v")
	value, ok := store.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", value)

	store.Delete(ctx, "k")
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestStore_EntriesExpire(t *testing.T) {
	t.Parallel()

	store := NewStore(20 * time.Millisecond)
	ctx := t.Context()

	store.Set(ctx, "k", "v")
	time.Sleep(40 * time.Millisecond)

	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("expired entry still present")
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	ctx := t.Context()

	store.Set(ctx, "k", "v")
	time.Sleep(10 * time.Millisecond)

	_, ok := store.Get(ctx, "k")
	require.True(t, ok)
}

func TestStore_GetOrFill_FillsOnce(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()

	var fills atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := store.GetOrFill(ctx, "k", func() (any, error) {
				fills.Add(1)
				time.Sleep(5 * time.Millisecond)
				return "filled", nil
			})
			if err != nil || value != "filled" {
				t.Errorf("unexpected fill result: %v %v", value, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), fills.Load())
}

func TestStore_GetOrFill_ErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()

	_, err := store.GetOrFill(ctx, "k", func() (any, error) {
		return nil, errors.New("upstream down")
	})
	require.Error(t, err)

	value, err := store.GetOrFill(ctx, "k", func() (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", value)
}
