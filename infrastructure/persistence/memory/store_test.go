package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entstore/application/ports"
	pkgerrors "entstore/pkg/errors"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	return New(Options{Namespace: "test"})
}

func TestCreateAndGet(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	proj, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "p1", proj["$id"])
	assert.Equal(t, "Post", proj["$type"])
	assert.Equal(t, "hello", proj["title"])

	got, err := p.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got["title"])

	missing, err := p.Get(ctx, "Post", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateAssignsUUID(t *testing.T) {
	p := newTestProvider(t)
	proj, err := p.Create(context.Background(), "Post", "", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, proj["$id"])
}

func TestCreateDuplicateID(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", nil)
	require.NoError(t, err)
	_, err = p.Create(ctx, "Post", "p1", nil)
	assert.True(t, pkgerrors.IsAlreadyExists(err))
}

func TestCreateEmitsTypedBeforeGlobal(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)

	log, err := p.ListEvents(ctx, ports.EventFilter{})
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "Post.created", log[0].Event)
	assert.Equal(t, "entity:created", log[1].Event)
	assert.Equal(t, "Post/p1", log[0].Object)
}

func TestUpdateMergesPatch(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "old", "views": 1})
	require.NoError(t, err)

	proj, err := p.Update(ctx, "Post", "p1", map[string]interface{}{"title": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", proj["title"])
	assert.Equal(t, 1, proj["views"])

	_, err = p.Update(ctx, "Post", "nope", map[string]interface{}{})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestConcurrentUpdatesSingleRecord(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"n": 0})
	require.NoError(t, err)

	// Hammer one record from several writers while readers list and get.
	// Run with -race: the returned projections must never alias fields a
	// concurrent merge is writing.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := p.Update(ctx, "Post", "p1", map[string]interface{}{"n": i, "j": j}); err != nil {
					t.Error(err)
					return
				}
				if _, err := p.List(ctx, "Post", ports.ListOptions{}); err != nil {
					t.Error(err)
					return
				}
				if _, err := p.Get(ctx, "Post", "p1"); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	got, err := p.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.Contains(t, got, "n")
	assert.Contains(t, got, "j")
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	p := newTestProvider(t)
	existed, err := p.Delete(context.Background(), "Post", "nope")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDeleteCleansRelationsAndArtifacts(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Author", "a1", map[string]interface{}{"name": "y"})
	require.NoError(t, err)

	post := ports.EntityRef{Type: "Post", ID: "p1"}
	author := ports.EntityRef{Type: "Author", ID: "a1"}
	require.NoError(t, p.Relate(ctx, post, "author", author, nil))
	require.NoError(t, p.Relate(ctx, author, "posts", post, nil))
	_, err = p.SetArtifact(ctx, "Post/p1", "summary", "a summary", nil)
	require.NoError(t, err)

	existed, err := p.Delete(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.True(t, existed)

	// Outgoing and incoming edges are both gone.
	targets, err := p.Related(ctx, author, "posts")
	require.NoError(t, err)
	assert.Empty(t, targets)

	arts, err := p.ListArtifacts(ctx, "Post/p1")
	require.NoError(t, err)
	assert.Empty(t, arts)
}

func TestRelatedReturnsTargetRecords(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Author", "a1", map[string]interface{}{"name": "ann"})
	require.NoError(t, err)

	post := ports.EntityRef{Type: "Post", ID: "p1"}
	require.NoError(t, p.Relate(ctx, post, "author", ports.EntityRef{Type: "Author", ID: "a1"}, nil))

	targets, err := p.Related(ctx, post, "author")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "a1", targets[0]["$id"])
	assert.Equal(t, "Author", targets[0]["$type"])
	assert.Equal(t, "ann", targets[0]["name"])

	// An edge created against an entity that never existed resolves to
	// nothing rather than a bare ref.
	require.NoError(t, p.Relate(ctx, post, "author", ports.EntityRef{Type: "Author", ID: "ghost"}, nil))
	targets, err = p.Related(ctx, post, "author")
	require.NoError(t, err)
	require.Len(t, targets, 1)
}

func TestListWhereOrderPaging(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	for _, item := range []struct {
		id     string
		fields map[string]interface{}
	}{
		{"p1", map[string]interface{}{"status": "draft", "rank": 3}},
		{"p2", map[string]interface{}{"status": "published", "rank": 1}},
		{"p3", map[string]interface{}{"status": "draft"}}, // no rank
		{"p4", map[string]interface{}{"status": "draft", "rank": 2}},
	} {
		_, err := p.Create(ctx, "Post", item.id, item.fields)
		require.NoError(t, err)
	}

	drafts, err := p.List(ctx, "Post", ports.ListOptions{
		Where:   map[string]interface{}{"status": "draft"},
		OrderBy: "rank",
	})
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	// Ascending: missing rank sorts last.
	assert.Equal(t, "p4", drafts[0]["$id"])
	assert.Equal(t, "p1", drafts[1]["$id"])
	assert.Equal(t, "p3", drafts[2]["$id"])

	desc, err := p.List(ctx, "Post", ports.ListOptions{
		Where:     map[string]interface{}{"status": "draft"},
		OrderBy:   "rank",
		Direction: ports.SortDesc,
	})
	require.NoError(t, err)
	// Descending: missing rank sorts first.
	assert.Equal(t, "p3", desc[0]["$id"])
	assert.Equal(t, "p1", desc[1]["$id"])

	page, err := p.List(ctx, "Post", ports.ListOptions{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p2", page[0]["$id"])
	assert.Equal(t, "p3", page[1]["$id"])
}

func TestListRejectsDangerousFieldNames(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.List(ctx, "Post", ports.ListOptions{
		Where: map[string]interface{}{"__proto__": "x"},
	})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = p.List(ctx, "Post", ports.ListOptions{OrderBy: "a.b"})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSearchScoring(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "hello world"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d2", map[string]interface{}{"title": "say hello"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d3", map[string]interface{}{"title": "goodbye"})
	require.NoError(t, err)

	hits, err := p.Search(ctx, "Doc", "HELLO", ports.SearchOptions{Fields: []string{"title"}})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Earlier first-hit index scores higher.
	assert.Equal(t, "d1", hits[0]["$id"])
	assert.Equal(t, 1.0, hits[0]["$score"])
	assert.Equal(t, "d2", hits[1]["$id"])
	assert.InDelta(t, 1.0-4.0/9.0, hits[1]["$score"].(float64), 1e-9)

	strict, err := p.Search(ctx, "Doc", "hello", ports.SearchOptions{
		Fields:   []string{"title"},
		MinScore: 0.9,
	})
	require.NoError(t, err)
	require.Len(t, strict, 1)
}

func TestSearchWildcardCharactersAreLiteral(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	for id, status := range map[string]string{
		"d1": "100% Complete",
		"d2": "100 Items",
		"d3": "100 Dollars",
	} {
		_, err := p.Create(ctx, "Doc", id, map[string]interface{}{"status": status})
		require.NoError(t, err)
	}

	hits, err := p.Search(ctx, "Doc", "100%", ports.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0]["$id"])
}

func TestBatchSizeRejectedBeforeWork(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	items := make([]ports.BatchItem, 1001)
	_, err := p.CreateMany(ctx, "Post", items)
	assert.True(t, pkgerrors.IsBatchTooLarge(err))

	ids := make([]string, 1001)
	_, err = p.DeleteMany(ctx, "Post", ids)
	assert.True(t, pkgerrors.IsBatchTooLarge(err))

	// Nothing was created.
	all, err := p.List(ctx, "Post", ports.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateManyAndPerformMany(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	created, err := p.CreateMany(ctx, "Post", []ports.BatchItem{
		{ID: "p1", Data: map[string]interface{}{"n": 1}},
		{ID: "p2", Data: map[string]interface{}{"n": 2}},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	results, err := p.PerformMany(ctx, []ports.BatchOp{
		{Op: ports.BatchOpUpdate, Type: "Post", ID: "p1", Data: map[string]interface{}{"n": 10}},
		{Op: ports.BatchOpUpdate, Type: "Post", ID: "missing", Data: map[string]interface{}{}},
		{Op: ports.BatchOpDelete, Type: "Post", ID: "p2"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, true, results[2].Result["deleted"])
}

func TestStats(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	require.NoError(t, p.Relate(ctx,
		ports.EntityRef{Type: "Post", ID: "p1"}, "tag",
		ports.EntityRef{Type: "Tag", ID: "t1"}, nil))

	s, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", s.Namespace)
	assert.Equal(t, 1, s.Entities["Post"])
	assert.Equal(t, 1, s.Relations)
	assert.GreaterOrEqual(t, s.Events, 2)
}
