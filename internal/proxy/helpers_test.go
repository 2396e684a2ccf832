package proxy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// testSchema mirrors the company/market/FOAF model used throughout the
// tests: a scalar-to-collection pair (ListedOn/ListedCompanies), a
// collection pair (Knows/KnownBy) and a symmetric scalar (Spouse).
func testSchema() types.Schema {
	return types.Schema{Types: []types.EntityType{
		{
			Name: "Company",
			Properties: []types.PropertyDef{
				{Name: "Name", Kind: types.KindScalar, ValueType: types.ValueTypeString},
				{Name: "TickerSymbol", Kind: types.KindScalar, ValueType: types.ValueTypeString},
				{Name: "HeadCount", Kind: types.KindScalar, ValueType: types.ValueTypeInteger},
				{Name: "Revenue", Kind: types.KindScalar, ValueType: types.ValueTypeFloat, Nullable: true},
				{Name: "ListedOn", Kind: types.KindScalar, ValueType: types.ValueTypeEntity, Target: "Market", Inverse: "ListedCompanies"},
			},
		},
		{
			Name: "Market",
			Properties: []types.PropertyDef{
				{Name: "Name", Kind: types.KindScalar, ValueType: types.ValueTypeString},
				{Name: "ListedCompanies", Kind: types.KindCollection, ValueType: types.ValueTypeEntity, Target: "Company", Inverse: "ListedOn"},
			},
		},
		{
			Name: "FoafPerson",
			Properties: []types.PropertyDef{
				{Name: "Name", Kind: types.KindScalar, ValueType: types.ValueTypeString},
				{Name: "Born", Kind: types.KindScalar, ValueType: types.ValueTypeTime, Nullable: true},
				{Name: "Active", Kind: types.KindScalar, ValueType: types.ValueTypeBoolean},
				{Name: "MboxSums", Kind: types.KindCollection, ValueType: types.ValueTypeString},
				{Name: "Nicknames", Kind: types.KindCollection, ValueType: types.ValueTypeString, Unique: true},
				{Name: "Scores", Kind: types.KindCollection, ValueType: types.ValueTypeFloat},
				{Name: "Knows", Kind: types.KindCollection, ValueType: types.ValueTypeEntity, Target: "FoafPerson", Inverse: "KnownBy"},
				{Name: "KnownBy", Kind: types.KindCollection, ValueType: types.ValueTypeEntity, Target: "FoafPerson", Inverse: "Knows"},
				{Name: "Spouse", Kind: types.KindScalar, ValueType: types.ValueTypeEntity, Target: "FoafPerson", Inverse: "Spouse"},
				{Name: "Employer", Kind: types.KindScalar, ValueType: types.ValueTypeEntity, Target: "Company"},
			},
		},
	}}
}

// sequentialIDs returns an ID generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(testSchema(), WithIDGenerator(sequentialIDs("e")))
	require.NoError(t, err)
	return ctx
}

func mustCreate(t *testing.T, ctx *Context, typeName string) types.Entity {
	t.Helper()
	e, err := ctx.Create(typeName)
	require.NoError(t, err)
	return e
}

func mustCollection(t *testing.T, e types.Entity, name string) types.Collection {
	t.Helper()
	c, err := e.Collection(name)
	require.NoError(t, err)
	return c
}

// recorder collects every notification delivered to it.
type recorder struct {
	got []types.Notification
}

func (r *recorder) handle(n types.Notification) {
	r.got = append(r.got, n)
}

func (r *recorder) last() (types.Notification, bool) {
	if len(r.got) == 0 {
		return types.Notification{}, false
	}
	return r.got[len(r.got)-1], true
}

func (r *recorder) properties() []string {
	out := make([]string, len(r.got))
	for i, n := range r.got {
		out[i] = n.Property
	}
	return out
}

func (r *recorder) reset() {
	r.got = nil
}

// fakeCommitter records commits and optionally fails them.
type fakeCommitter struct {
	commits [][]types.Snapshot
	err     error
}

func (f *fakeCommitter) Commit(snaps []types.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, snaps)
	return nil
}
