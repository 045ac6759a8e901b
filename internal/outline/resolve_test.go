package outline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticLookup(hits map[string][]Candidate) LookupFunc {
	return func(_ context.Context, name string) ([]Candidate, error) {
		return hits[name], nil
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		entity     string
		candidates []Candidate
		want       Candidate
		wantOK     bool
	}{
		{
			name:   "no candidates",
			entity: "Jan",
		},
		{
			name:       "single candidate taken even on mismatch",
			entity:     "Jan",
			candidates: []Candidate{{Name: "February", UniqueName: "[Feb]"}},
			want:       Candidate{Name: "February", UniqueName: "[Feb]"},
			wantOK:     true,
		},
		{
			name:   "unique name match beats position",
			entity: "Qry",
			candidates: []Candidate{
				{Name: "X", UniqueName: "Y"},
				{Name: "Q", UniqueName: "Qry"},
			},
			want:   Candidate{Name: "Q", UniqueName: "Qry"},
			wantOK: true,
		},
		{
			name:   "unique name match beats earlier name match",
			entity: "Qry",
			candidates: []Candidate{
				{Name: "Qry", UniqueName: "Z1"},
				{Name: "Other", UniqueName: "Qry"},
			},
			want:   Candidate{Name: "Other", UniqueName: "Qry"},
			wantOK: true,
		},
		{
			name:   "name match when no unique name matches",
			entity: "Qry",
			candidates: []Candidate{
				{Name: "Qry", UniqueName: "Z1"},
				{Name: "Other", UniqueName: "Z2"},
			},
			want:   Candidate{Name: "Qry", UniqueName: "Z1"},
			wantOK: true,
		},
		{
			name:   "name match not in first position",
			entity: "Qry",
			candidates: []Candidate{
				{Name: "Other", UniqueName: "Z2"},
				{Name: "Qry", UniqueName: "Z1"},
			},
			want:   Candidate{Name: "Qry", UniqueName: "Z1"},
			wantOK: true,
		},
		{
			name:   "positional fallback",
			entity: "Qry",
			candidates: []Candidate{
				{Name: "A", UniqueName: "[A]"},
				{Name: "B", UniqueName: "[B]"},
			},
			want:   Candidate{Name: "A", UniqueName: "[A]"},
			wantOK: true,
		},
		{
			name:   "matching is case sensitive",
			entity: "qry",
			candidates: []Candidate{
				{Name: "A", UniqueName: "[A]"},
				{Name: "Qry", UniqueName: "QRY"},
			},
			want:   Candidate{Name: "A", UniqueName: "[A]"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(tt.entity, tt.candidates)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateMember(t *testing.T) {
	m, ok := Candidate{Name: "Jan", UniqueName: "[Year].[Jan]", DimensionName: dim("Year")}.Member()
	require.True(t, ok)
	assert.Equal(t, Member{Dimension: "Year", Name: "Jan", UniqueName: "[Year].[Jan]"}, m)

	m, ok = Candidate{Name: "Year", UniqueName: "[Year]"}.Member()
	require.True(t, ok)
	assert.Equal(t, "Year", m.Dimension, "dimension should default to the member name")

	m, ok = Candidate{UniqueName: "[X]"}.Member()
	require.True(t, ok)
	assert.Empty(t, m.Name)
	assert.Empty(t, m.Dimension)

	m, ok = Candidate{Name: "Jan", UniqueName: "[Jan]", DimensionName: dim("")}.Member()
	require.True(t, ok)
	assert.Empty(t, m.Dimension, "an empty dimension name is kept")

	_, ok = Candidate{Name: "Jan", DimensionName: dim("Year")}.Member()
	assert.False(t, ok, "a candidate without a unique name is unusable")
}

func TestCandidateDecode_DimensionPresence(t *testing.T) {
	var hits []Candidate
	require.NoError(t, json.Unmarshal([]byte(`[
		{"name": "Jan", "uniqueName": "[Jan]"},
		{"name": "Feb", "uniqueName": "[Feb]", "dimensionName": ""},
		{"name": "Mar", "uniqueName": "[Mar]", "dimensionName": "Year"}
	]`), &hits))
	require.Len(t, hits, 3)

	var dims []string
	for _, h := range hits {
		m, ok := h.Member()
		require.True(t, ok)
		dims = append(dims, m.Dimension)
	}
	assert.Equal(t, []string{"Jan", "", "Year"}, dims)
}

func dim(s string) *string { return &s }

func TestResolve_OrderAndDuplicates(t *testing.T) {
	var calls []string
	lookup := func(_ context.Context, name string) ([]Candidate, error) {
		calls = append(calls, name)
		return []Candidate{{Name: name, UniqueName: "[" + name + "]"}}, nil
	}

	names := []string{"Jan", "Sales", "Jan", "East"}
	got := Resolve(context.Background(), names, lookup)

	require.Len(t, got, len(names))
	for i, name := range names {
		assert.Equal(t, name, got[i].Name)
		require.NotNil(t, got[i].Member)
		assert.Equal(t, "["+name+"]", got[i].Member.UniqueName)
	}
	assert.Equal(t, names, calls, "each occurrence should be looked up once, in order")
}

func TestResolve_FailuresAreIsolated(t *testing.T) {
	lookup := func(_ context.Context, name string) ([]Candidate, error) {
		if name == "Broken" {
			return nil, errors.New("HTTP 500")
		}
		return []Candidate{{Name: name, UniqueName: "[" + name + "]", DimensionName: dim("Market")}}, nil
	}

	got := Resolve(context.Background(), []string{"East", "Broken", "West"}, lookup)

	require.Len(t, got, 3)
	assert.Nil(t, got[1].Member)
	require.NotNil(t, got[0].Member)
	require.NotNil(t, got[2].Member)
	assert.Equal(t, Member{Dimension: "Market", Name: "East", UniqueName: "[East]"}, *got[0].Member)
	assert.Equal(t, Member{Dimension: "Market", Name: "West", UniqueName: "[West]"}, *got[2].Member)
}

func TestResolve_NoCandidatesAndMissingUniqueName(t *testing.T) {
	lookup := staticLookup(map[string][]Candidate{
		"Ghost": nil,
		"Bad": {
			{Name: "Bad"},
			{Name: "Bad2", UniqueName: "[Bad2]"},
		},
	})

	got := Resolve(context.Background(), []string{"Ghost", "Bad"}, lookup)

	require.Len(t, got, 2)
	assert.Nil(t, got[0].Member)
	assert.Nil(t, got[1].Member, "a selected candidate without unique name must not fall through to another hit")
}

func TestResolve_Empty(t *testing.T) {
	got := Resolve(context.Background(), nil, staticLookup(nil))
	assert.Empty(t, got)
}

func TestResolver_ResolveMembersPreservesOrder(t *testing.T) {
	var inFlight, maxInFlight int32
	var mu sync.Mutex
	lookup := func(_ context.Context, name string) ([]Candidate, error) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > maxInFlight {
			maxInFlight = n
		}
		mu.Unlock()
		defer atomic.AddInt32(&inFlight, -1)

		if name == "fail" {
			return nil, errors.New("unauthorized")
		}
		return []Candidate{{Name: name, UniqueName: "[" + name + "]"}}, nil
	}

	names := []string{"a", "b", "fail", "c", "a", "d", "e", "f"}
	r := NewResolver(lookup, WithConcurrency(2))
	got := r.ResolveMembers(context.Background(), names)

	require.Len(t, got, len(names))
	for i, name := range names {
		assert.Equal(t, name, got[i].Name)
		if name == "fail" {
			assert.Nil(t, got[i].Member)
			continue
		}
		require.NotNil(t, got[i].Member)
		assert.Equal(t, "["+name+"]", got[i].Member.UniqueName)
	}
	assert.LessOrEqual(t, maxInFlight, int32(2))
}

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(staticLookup(nil), WithConcurrency(0))
	assert.Equal(t, DefaultConcurrency, r.concurrency)
	assert.NotNil(t, r.logger)
}
