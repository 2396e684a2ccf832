package proxy

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

func TestNewContextRejectsInvalidSchema(t *testing.T) {
	s := testSchema()
	s.Types[1].Properties[1].Inverse = "Name"

	ctx, err := NewContext(s)
	assert.Nil(t, ctx)
	assert.ErrorIs(t, err, types.ErrInvalidInversePair)
}

func TestNewContextCopiesSchema(t *testing.T) {
	s := testSchema()
	ctx, err := NewContext(s)
	require.NoError(t, err)

	s.Types[0].Properties[0].Name = "Renamed"
	company := mustCreate(t, ctx, "Company")
	assert.NoError(t, company.Set("Name", "Glaxo"))
	assert.Equal(t, "Name", ctx.Schema().Types[0].Properties[0].Name)
}

func TestCreate(t *testing.T) {
	ctx := newTestContext(t)

	company := mustCreate(t, ctx, "Company")
	assert.Equal(t, "e-1", company.ID())
	assert.Equal(t, "Company", company.Type())

	for _, prop := range []string{"Name", "TickerSymbol", "Revenue", "ListedOn"} {
		v, err := company.Get(prop)
		require.NoError(t, err)
		assert.Nil(t, v, "%s starts unset", prop)
	}
	v, err := company.Get("HeadCount")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "non-nullable integers start at zero")

	_, err = ctx.Create("Robot")
	assert.ErrorIs(t, err, types.ErrUnknownEntityType)
}

func TestCreateGeneratesUUIDs(t *testing.T) {
	ctx, err := NewContext(testSchema())
	require.NoError(t, err)

	a := mustCreate(t, ctx, "Market")
	b := mustCreate(t, ctx, "Market")
	assert.Len(t, a.ID(), 36)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestCreateRejectsDuplicateIDs(t *testing.T) {
	ctx, err := NewContext(testSchema(), WithIDGenerator(func() string { return "same" }))
	require.NoError(t, err)

	mustCreate(t, ctx, "Market")
	_, err = ctx.Create("Market")
	assert.ErrorIs(t, err, types.ErrDuplicateEntity)
}

func TestGetAndEntities(t *testing.T) {
	ctx := newTestContext(t)
	a := mustCreate(t, ctx, "Market")
	b := mustCreate(t, ctx, "Company")

	got, err := ctx.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = ctx.Get("missing")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)

	all := ctx.Entities()
	require.Len(t, all, 2)
	assert.Same(t, a, all[0])
	assert.Same(t, b, all[1])
}

func TestSnapshot(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	nyse := mustCreate(t, ctx, "Market")
	person := mustCreate(t, ctx, "FoafPerson")
	born := time.Date(1980, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, company.Set("Name", "Glaxo"))
	require.NoError(t, company.Set("HeadCount", 20000))
	require.NoError(t, company.Set("ListedOn", nyse))
	require.NoError(t, person.Set("Born", born))
	_, err := mustCollection(t, person, "MboxSums").Add("sum")
	require.NoError(t, err)

	snap := company.Snapshot()
	assert.Equal(t, company.ID(), snap.ID)
	assert.Equal(t, "Company", snap.Type)
	assert.Equal(t, map[string]any{
		"Name":      "Glaxo",
		"HeadCount": int64(20000),
		"ListedOn":  types.Ref{ID: nyse.ID()},
	}, snap.Scalars)
	assert.Empty(t, snap.Collections)

	marketSnap := nyse.Snapshot()
	assert.Equal(t, []any{types.Ref{ID: company.ID()}}, marketSnap.Collections["ListedCompanies"])

	personSnap := person.Snapshot()
	assert.Equal(t, born, personSnap.Scalars["Born"])
	assert.Equal(t, []any{"sum"}, personSnap.Collections["MboxSums"])
	assert.Equal(t, []any{}, personSnap.Collections["Knows"])

	// Mutating a snapshot never reaches the entity.
	personSnap.Collections["MboxSums"][0] = "changed"
	assert.True(t, mustCollection(t, person, "MboxSums").Contains("sum"))
}

func TestSaveChanges(t *testing.T) {
	ctx := newTestContext(t)
	a := mustCreate(t, ctx, "Market")
	b := mustCreate(t, ctx, "Market")
	assert.Len(t, ctx.Modified(), 2, "new entities count as modified")

	committer := &fakeCommitter{}
	require.NoError(t, ctx.SaveChanges(committer))
	require.Len(t, committer.commits, 1)
	assert.Len(t, committer.commits[0], 2)
	assert.Empty(t, ctx.Modified())

	require.NoError(t, ctx.SaveChanges(committer))
	assert.Len(t, committer.commits, 1, "nothing to commit")

	require.NoError(t, b.Set("Name", "NYSE"))
	require.NoError(t, b.Set("Name", "NYSE"))
	modified := ctx.Modified()
	require.Len(t, modified, 1)
	assert.Same(t, b, modified[0])

	require.NoError(t, a.Set("Name", nil), "setting an unset slot to nil is a no-op")
	assert.Len(t, ctx.Modified(), 1)

	failing := &fakeCommitter{err: errors.New("disk full")}
	err := ctx.SaveChanges(failing)
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, ctx.Modified(), 1, "failed commit keeps modified flags")

	require.NoError(t, ctx.SaveChanges(committer))
	require.Len(t, committer.commits, 2)
	assert.Equal(t, "NYSE", committer.commits[1][0].Scalars["Name"])
}

func TestMirroredChangesMarkBothEndsModified(t *testing.T) {
	ctx := newTestContext(t)
	a := mustCreate(t, ctx, "FoafPerson")
	b := mustCreate(t, ctx, "FoafPerson")
	require.NoError(t, ctx.SaveChanges(&fakeCommitter{}))

	_, err := mustCollection(t, a, "Knows").Add(b)
	require.NoError(t, err)
	assert.Len(t, ctx.Modified(), 2)
}

func TestDispose(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	person := mustCreate(t, ctx, "FoafPerson")
	require.NoError(t, company.Set("Name", "Glaxo"))
	sums := mustCollection(t, person, "MboxSums")

	rec := &recorder{}
	company.Subscribe(rec.handle)
	sums.Subscribe(rec.handle)

	require.NoError(t, ctx.Dispose())
	require.NoError(t, ctx.Dispose(), "Dispose is idempotent")

	assert.ErrorIs(t, company.Set("Name", "GSK"), types.ErrContextDisposed)
	_, err := sums.Add("x")
	assert.ErrorIs(t, err, types.ErrContextDisposed)
	_, err = sums.Remove("x")
	assert.ErrorIs(t, err, types.ErrContextDisposed)
	assert.ErrorIs(t, sums.Clear(), types.ErrContextDisposed)
	_, err = ctx.Create("Company")
	assert.ErrorIs(t, err, types.ErrContextDisposed)
	assert.ErrorIs(t, ctx.SaveChanges(&fakeCommitter{}), types.ErrContextDisposed)
	assert.ErrorIs(t, ctx.Load(nil), types.ErrContextDisposed)
	assert.Equal(t, types.Handle(0), company.Subscribe(rec.handle))

	v, err := company.Get("Name")
	require.NoError(t, err)
	assert.Equal(t, "Glaxo", v)
	assert.Empty(t, rec.got)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, err := NewContext(testSchema(), WithLogger(logger), WithIDGenerator(sequentialIDs("p")))
	require.NoError(t, err)

	a := mustCreate(t, ctx, "FoafPerson")
	b := mustCreate(t, ctx, "FoafPerson")
	_, err = mustCollection(t, a, "Knows").Add(b)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "entity created")
	assert.Contains(t, out, "mirror link")
	assert.Contains(t, out, "inverse=KnownBy")
}
