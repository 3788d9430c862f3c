package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterEntries() []Entry {
	orders := &File{Path: "scenarios/orders.yaml", Scenarios: []Scenario{
		{Name: "creates order", Request: RequestSpec{Method: "post", Path: "/orders"}},
		{Name: "lists orders", Request: RequestSpec{Method: "GET", Path: "/orders"}},
	}}
	users := &File{Path: "scenarios/users.yaml", Scenarios: []Scenario{
		{Name: "creates user, with profile", Request: RequestSpec{Method: "POST", Path: "/users"}},
	}}
	return Entries([]*File{orders, users})
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Scenario.Name)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"empty keeps all", "", []string{"creates order", "lists orders", "creates user, with profile"}},
		{"bare pattern matches name", "^creates", []string{"creates order", "creates user, with profile"}},
		{"method is upper cased", "method=^POST$", []string{"creates order", "creates user, with profile"}},
		{"fields are ANDed", "file=orders,m=POST", []string{"creates order"}},
		{"quoted value keeps commas", `name="user, with"`, []string{"creates user, with profile"}},
		{"path", "p=^/users$", []string{"creates user, with profile"}},
		{"no match", "name=deletes", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(filterEntries(), tt.pattern)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestFilter_Errors(t *testing.T) {
	_, err := Filter(filterEntries(), "status=200")
	assert.EqualError(t, err, "unknown filter field: status")

	_, err = Filter(filterEntries(), "name=(")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex for name")

	_, err = Filter(filterEntries(), "name=a,=b")
	assert.EqualError(t, err, `invalid filter token: "=b" (expected key=value)`)
}
