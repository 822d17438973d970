package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFact(t *testing.T) {
	tests := []struct {
		line    string
		want    Fact
		wantErr bool
	}{
		{line: "type(Flight1, flight)", want: Fact{"type", "Flight1", "flight"}},
		{line: "price(Flight1, 6500).", want: Fact{"price", "Flight1", "6500"}},
		{line: `provider(Flight2, "Air India")`, want: Fact{"provider", "Flight2", "Air India"}},
		{line: "type Flight1 flight", wantErr: true},
		{line: "(Flight1, flight)", wantErr: true},
		{line: "type(Flight1)", wantErr: true},
		{line: "type(Flight1, )", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFact(tt.line)
		if tt.wantErr {
			assert.Error(t, err, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoad(t *testing.T) {
	e := New()
	err := e.Load(`
# flights
type(Flight1, flight).
departure(Flight1, Chennai)   % inline comment
type(Hotel1, hotel)
type(Flight2, flight)
type(Flight1, flight)
`)
	require.NoError(t, err)

	assert.Equal(t, 4, e.Len(), "duplicates are ignored")
	assert.True(t, e.Query("departure", "Flight1", "Chennai"))
	assert.False(t, e.Query("departure", "Flight1", "Delhi"))
	assert.Equal(t, []string{"Flight1", "Flight2"}, e.Subjects("type", "flight"))

	city, ok := e.First("departure", "Flight1")
	assert.True(t, ok)
	assert.Equal(t, "Chennai", city)
	_, ok = e.First("arrival", "Flight1")
	assert.False(t, ok)
}

func TestLoadReportsLine(t *testing.T) {
	err := New().Load("type(A, flight)\nbroken line\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestObjectsIsACopy(t *testing.T) {
	e := New()
	e.AddFact("location", "Taxi1", "Delhi")
	objs := e.Objects("location", "Taxi1")
	objs[0] = "Mumbai"
	assert.True(t, e.Query("location", "Taxi1", "Delhi"))
}
