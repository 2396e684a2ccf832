package proxy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// step is one assignment and the property name expected to be reported,
// or "" when no notification may fire.
type step struct {
	value any
	want  string
}

func runSteps(t *testing.T, e types.Entity, property string, steps []step) {
	t.Helper()
	rec := &recorder{}
	h := e.Subscribe(rec.handle)
	defer e.Unsubscribe(h)

	for i, s := range steps {
		rec.reset()
		require.NoError(t, e.Set(property, s.value), "step %d", i)
		if s.want == "" {
			assert.Empty(t, rec.got, "step %d: no notification expected", i)
			continue
		}
		require.Len(t, rec.got, 1, "step %d", i)
		assert.Equal(t, types.PropertyChanged, rec.got[0].Kind)
		assert.Equal(t, s.want, rec.got[0].Property)
		assert.Same(t, e, rec.got[0].Subject)
	}
}

func TestStringPropertySetAndChanged(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	require.NoError(t, company.Set("Name", "Glaxo"))

	runSteps(t, company, "TickerSymbol", []step{
		{"GLX", "TickerSymbol"},
		{"GLX", ""},
		{"GLXO", "TickerSymbol"},
		{"GLXO", ""},
		{nil, "TickerSymbol"},
		{nil, ""},
	})

	v, err := company.Get("TickerSymbol")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIntegerPropertyChanged(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	require.NoError(t, company.Set("HeadCount", 20000))

	runSteps(t, company, "HeadCount", []step{
		{25000, "HeadCount"},
		{25000, ""},
		{int64(25000), ""},
		{0, "HeadCount"},
		{0, ""},
		{15000, "HeadCount"},
	})

	v, err := company.Get("HeadCount")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), v)
}

func TestRelatedEntityChanged(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	ftse := mustCreate(t, ctx, "Market")
	nyse := mustCreate(t, ctx, "Market")

	runSteps(t, company, "ListedOn", []step{
		{nyse, "ListedOn"},
		{nyse, ""},
		{ftse, "ListedOn"},
		{nil, "ListedOn"},
		{nil, ""},
	})
}

func TestPropertyChangedPayload(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	rec := &recorder{}
	company.Subscribe(rec.handle)

	require.NoError(t, company.Set("TickerSymbol", "GLX"))
	require.NoError(t, company.Set("TickerSymbol", "GSK"))

	require.Len(t, rec.got, 2)
	assert.Nil(t, rec.got[0].Old)
	assert.Equal(t, "GLX", rec.got[0].New)
	assert.Equal(t, "GLX", rec.got[1].Old)
	assert.Equal(t, "GSK", rec.got[1].New)
	assert.Nil(t, rec.got[1].Item)
}

func TestSetTypeMismatchLeavesStateUntouched(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	person := mustCreate(t, ctx, "FoafPerson")
	require.NoError(t, company.Set("HeadCount", 10))

	rec := &recorder{}
	company.Subscribe(rec.handle)

	tests := []struct {
		name     string
		property string
		value    any
	}{
		{"string into integer", "HeadCount", "lots"},
		{"nil into non-nullable integer", "HeadCount", nil},
		{"integer into string", "TickerSymbol", 7},
		{"wrong entity type", "ListedOn", person},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := company.Set(tt.property, tt.value)
			assert.ErrorIs(t, err, types.ErrTypeMismatch)
		})
	}

	assert.Empty(t, rec.got)
	v, err := company.Get("HeadCount")
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)
}

func TestScalarLookupErrors(t *testing.T) {
	ctx := newTestContext(t)
	person := mustCreate(t, ctx, "FoafPerson")

	_, err := person.Get("Nope")
	assert.ErrorIs(t, err, types.ErrPropertyNotFound)
	assert.ErrorIs(t, person.Set("Nope", "x"), types.ErrPropertyNotFound)

	_, err = person.Get("MboxSums")
	assert.ErrorIs(t, err, types.ErrNotScalar)
	assert.ErrorIs(t, person.Set("MboxSums", "x"), types.ErrNotScalar)

	_, err = person.Collection("Name")
	assert.ErrorIs(t, err, types.ErrNotCollection)
	_, err = person.Collection("Nope")
	assert.ErrorIs(t, err, types.ErrPropertyNotFound)
}

func TestEntitySubscribersInOrder(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")

	var order []string
	company.Subscribe(func(types.Notification) { order = append(order, "first") })
	second := company.Subscribe(func(types.Notification) { order = append(order, "second") })
	company.Subscribe(func(types.Notification) { order = append(order, "third") })

	require.NoError(t, company.Set("Name", "Glaxo"))
	assert.Equal(t, []string{"first", "second", "third"}, order)

	assert.True(t, company.Unsubscribe(second))
	assert.False(t, company.Unsubscribe(second))

	order = nil
	require.NoError(t, company.Set("Name", "GSK"))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")

	calls := 0
	var h types.Handle
	h = company.Subscribe(func(types.Notification) {
		calls++
		company.Unsubscribe(h)
	})
	other := &recorder{}
	company.Subscribe(other.handle)

	require.NoError(t, company.Set("Name", "A"))
	require.NoError(t, company.Set("Name", "B"))

	assert.Equal(t, 1, calls)
	assert.Len(t, other.got, 2)
}

func TestScalarDefaults(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	person := mustCreate(t, ctx, "FoafPerson")

	tests := []struct {
		entity   types.Entity
		property string
		want     any
	}{
		{company, "Name", nil},
		{company, "HeadCount", int64(0)},
		{company, "Revenue", nil},
		{company, "ListedOn", nil},
		{person, "Born", nil},
		{person, "Active", false},
		{person, "Spouse", nil},
	}
	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			v, err := tt.entity.Get(tt.property)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestAssigningZeroToFreshSlotIsSilent(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")
	person := mustCreate(t, ctx, "FoafPerson")
	require.NoError(t, ctx.SaveChanges(&fakeCommitter{}))

	runSteps(t, company, "HeadCount", []step{
		{0, ""},
		{int64(0), ""},
		{1, "HeadCount"},
	})
	runSteps(t, person, "Active", []step{
		{false, ""},
		{true, "Active"},
	})
	assert.Len(t, ctx.Modified(), 2)
}

func TestNaNAssignmentIsSilent(t *testing.T) {
	ctx := newTestContext(t)
	company := mustCreate(t, ctx, "Company")

	runSteps(t, company, "Revenue", []step{
		{math.NaN(), "Revenue"},
		{math.NaN(), ""},
		{1.5, "Revenue"},
	})
}

func TestRemoveNaNFromCollection(t *testing.T) {
	ctx := newTestContext(t)
	person := mustCreate(t, ctx, "FoafPerson")
	scores := mustCollection(t, person, "Scores")

	_, err := scores.Add(math.NaN())
	require.NoError(t, err)
	assert.True(t, scores.Contains(math.NaN()))

	removed, err := scores.Remove(math.NaN())
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, scores.Len())
}
