package topics

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clonerp/internal/app"
	"clonerp/internal/models"
	"clonerp/internal/store"
	"clonerp/internal/testutil"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st, _ := testutil.OpenStore(t)
	return NewRegistry(st.Topics, zerolog.Nop(), testutil.NewClock().Now), st
}

func TestCreate_AssignsIncreasingIDs(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	t1, err := r.Create(ctx, "T1", "body", "alice")
	require.NoError(t, err)
	t2, err := r.Create(ctx, "T2", "body", "bob")
	require.NoError(t, err)

	assert.Equal(t, 1, t1.ID)
	assert.Equal(t, 2, t2.ID)
	assert.Equal(t, "bob", t2.Author)
	assert.Equal(t, "14.11.25", t1.Date)
	assert.Zero(t, t1.VisitCount)
}

func TestCreate_UsesMaxExistingID(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, st.Topics.Update(ctx, func(doc *[]models.Topic) error {
		*doc = append(*doc, models.Topic{ID: 7, Title: "old"}, models.Topic{ID: 3, Title: "older"})
		return nil
	}))

	created, err := r.Create(ctx, "new", "body", "alice")
	require.NoError(t, err)
	assert.Equal(t, 8, created.ID)
}

func TestCreate_ConcurrentIDsAreUnique(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(ctx, "t", "c", "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list := r.List().Topics
	require.Len(t, list, n)
	for i, topic := range list {
		assert.Equal(t, i+1, topic.ID)
	}
}

func TestCreate_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "", "body", "alice")
	assert.ErrorIs(t, err, app.ErrValidation)
	_, err = r.Create(ctx, "title", "", "alice")
	assert.ErrorIs(t, err, app.ErrValidation)
	assert.Empty(t, r.List().Topics)
}

func TestView_IncrementsAndPersists(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := r.Create(ctx, "T1", "body", "alice")
	require.NoError(t, err)
	_, err = r.Create(ctx, "T2", "body", "bob")
	require.NoError(t, err)

	var last models.Topic
	for i := 0; i < 3; i++ {
		last, err = r.View(ctx, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, last.VisitCount)

	list := r.List().Topics
	assert.Equal(t, 3, list[0].VisitCount)
	assert.Equal(t, 0, list[1].VisitCount)
}

func TestView_SurvivesReopen(t *testing.T) {
	st, b := testutil.OpenStore(t)
	ctx := context.Background()
	r := NewRegistry(st.Topics, zerolog.Nop(), nil)
	_, err := r.Create(ctx, "T1", "body", "alice")
	require.NoError(t, err)
	_, err = r.View(ctx, 1)
	require.NoError(t, err)

	reopened, err := store.Open(ctx, b, zerolog.Nop())
	require.NoError(t, err)
	r2 := NewRegistry(reopened.Topics, zerolog.Nop(), nil)
	got, err := r2.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VisitCount)
}

func TestView_NotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.View(context.Background(), 42)
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestPopular_StableDescending(t *testing.T) {
	in := []models.Topic{
		{ID: 1, VisitCount: 2},
		{ID: 2, VisitCount: 5},
		{ID: 3, VisitCount: 2},
		{ID: 4, VisitCount: 0},
		{ID: 5, VisitCount: 5},
	}
	got := Popular(in, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 5, 1}, []int{got[0].ID, got[1].ID, got[2].ID})
	// input untouched
	assert.Equal(t, 1, in[0].ID)

	assert.Len(t, Popular(in[:2], 3), 2)
	assert.Empty(t, Popular(nil, 3))
}

func TestList_IncludesPopular(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c", "d"} {
		_, err := r.Create(ctx, title, "body", "alice")
		require.NoError(t, err)
	}
	_, err := r.View(ctx, 4)
	require.NoError(t, err)

	l := r.List()
	assert.Len(t, l.Topics, 4)
	require.Len(t, l.Popular, PopularCount)
	assert.Equal(t, 4, l.Popular[0].ID)
	assert.Equal(t, 1, l.Popular[1].ID)
	assert.Equal(t, 2, l.Popular[2].ID)
}
