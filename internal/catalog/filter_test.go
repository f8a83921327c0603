package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowList_IsEligible(t *testing.T) {
	allow := NewAllowList(DefaultCategoryIDs...)

	tests := []struct {
		name string
		raw  RawRecord
		want bool
	}{
		{"allowed", RawRecord{"category": map[string]any{"id": "74035"}}, true},
		{"other category", RawRecord{"category": map[string]any{"id": "1"}}, false},
		{"missing category", RawRecord{"id": "p"}, false},
		{"null category", RawRecord{"category": nil}, false},
		{"category not object", RawRecord{"category": "74035"}, false},
		{"missing id", RawRecord{"category": map[string]any{"name": "Coffee"}}, false},
		{"numeric id", RawRecord{"category": map[string]any{"id": 74035}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allow.IsEligible(tt.raw))
		})
	}
}

func TestAllowList_IDs(t *testing.T) {
	allow := NewAllowList("b", "", "a", "b")
	assert.Equal(t, []string{"a", "b"}, allow.IDs())
	assert.False(t, allow.Contains(""))
}

func TestParseCategories(t *testing.T) {
	cats, err := ParseCategories(strings.NewReader(`{"categories": [
		{"id": "74035", "name": "Beans", "parent": {"id": "74030"}},
		{"id": "74030", "name": "Coffee", "parent": {"id": "1"}},
		{"id": "1", "name": "Food"}
	]}`))
	require.NoError(t, err)
	require.Len(t, cats, 3)

	beans := cats[0]
	require.NotNil(t, beans.Parent)
	assert.Equal(t, "74030", beans.Parent.ID)
	require.NotNil(t, beans.Parent.Parent)
	assert.Equal(t, "1", beans.Parent.Parent.ID)
	assert.Nil(t, cats[2].ParentID())
	assert.Equal(t, "74030", *beans.ParentID())
}

func TestParseCategories_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown parent", `{"categories": [{"id": "a", "parent": {"id": "zz"}}]}`, "unknown parent"},
		{"cycle", `{"categories": [{"id": "a", "parent": {"id": "b"}}, {"id": "b", "parent": {"id": "a"}}]}`, "cycle"},
		{"missing id", `{"categories": [{"name": "x"}]}`, "missing id"},
		{"bad json", `{"categories": [`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCategories(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
