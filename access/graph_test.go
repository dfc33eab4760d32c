package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage/badger"
)

func newTestTagRepo(t *testing.T) *badger.TagRepository {
	t.Helper()
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return badger.NewTagRepository(backend)
}

func putTag(t *testing.T, repo *badger.TagRepository, tagID, parent string) {
	t.Helper()
	require.NoError(t, repo.Put(context.Background(), &core.OrganizationTag{
		TagID:     tagID,
		ParentTag: parent,
		Name:      tagID,
		CreatedAt: time.Now(),
	}))
}

func TestResolveAncestorsChain(t *testing.T) {
	repo := newTestTagRepo(t)
	putTag(t, repo, "company", "")
	putTag(t, repo, "engineering", "company")
	putTag(t, repo, "backend", "engineering")

	graph := NewTagGraph(repo)

	chain, err := graph.ResolveAncestors(context.Background(), "backend")
	require.NoError(t, err)
	assert.Equal(t, []string{"backend", "engineering", "company"}, chain)
}

func TestResolveAncestorsRootTag(t *testing.T) {
	repo := newTestTagRepo(t)
	putTag(t, repo, "company", "")

	graph := NewTagGraph(repo)

	chain, err := graph.ResolveAncestors(context.Background(), "company")
	require.NoError(t, err)
	assert.Equal(t, []string{"company"}, chain)
}

func TestResolveAncestorsUnknownTag(t *testing.T) {
	graph := NewTagGraph(newTestTagRepo(t))

	_, err := graph.ResolveAncestors(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolveAncestorsCycle(t *testing.T) {
	repo := newTestTagRepo(t)
	putTag(t, repo, "a", "b")
	putTag(t, repo, "b", "a")

	graph := NewTagGraph(repo)

	_, err := graph.ResolveAncestors(context.Background(), "a")
	assert.ErrorIs(t, err, core.ErrCycleDetected)
}

func TestResolveAncestorsDanglingParent(t *testing.T) {
	repo := newTestTagRepo(t)
	putTag(t, repo, "orphan", "deleted-parent")

	graph := NewTagGraph(repo)

	_, err := graph.ResolveAncestors(context.Background(), "orphan")
	assert.ErrorIs(t, err, core.ErrDanglingParent)
}

func TestResolveEffectiveTagsUnion(t *testing.T) {
	repo := newTestTagRepo(t)
	putTag(t, repo, "company", "")
	putTag(t, repo, "engineering", "company")
	putTag(t, repo, "backend", "engineering")
	putTag(t, repo, "sales", "company")

	graph := NewTagGraph(repo)

	tags, err := graph.ResolveEffectiveTags(context.Background(), []string{"backend", "sales"})
	require.NoError(t, err)
	assert.Equal(t, []string{"backend", "company", "engineering", "sales"}, tags)
}

func TestResolveEffectiveTagsEmpty(t *testing.T) {
	graph := NewTagGraph(newTestTagRepo(t))

	tags, err := graph.ResolveEffectiveTags(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
