package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/model-engine/engine"
	"github.com/warp/model-engine/store/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fm(id, fingerprint string, at time.Time) *engine.FinancialModel {
	return &engine.FinancialModel{ID: id, TemplateID: "saas", InputsFingerprint: fingerprint, Periods: 12, GeneratedAt: at}
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.SaveModel(ctx, fm("a", "saas:1", t0)))

	got, err := s.GetModel(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = s.GetModel(ctx, "missing")
	assert.True(t, engine.IsNotFound(err))
}

func TestStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.SaveModel(ctx, fm("a", "saas:1", t0)))
	err := s.SaveModel(ctx, fm("a", "saas:2", t0))

	assert.ErrorIs(t, err, engine.ErrDuplicateModel)
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SaveModel(ctx, fm("old", "x", t0)))
	require.NoError(t, s.SaveModel(ctx, fm("new", "y", t0.Add(time.Hour))))
	require.NoError(t, s.SaveModel(ctx, fm("tie", "z", t0)))

	all, err := s.ListModels(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "tie", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := s.ListModels(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)
}

func TestStore_FindByFingerprint(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SaveModel(ctx, fm("first", "saas:abc", t0)))
	require.NoError(t, s.SaveModel(ctx, fm("second", "saas:abc", t0.Add(time.Minute))))

	got, err := s.FindByFingerprint(ctx, "saas:abc")
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)

	_, err = s.FindByFingerprint(ctx, "saas:zzz")
	assert.True(t, engine.IsNotFound(err))
}

func TestStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SaveModel(ctx, fm(fmt.Sprintf("m%d", i), "f", t0)))
		}(i)
	}
	wg.Wait()

	all, err := s.ListModels(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
