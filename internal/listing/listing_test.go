package listing

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

type listerFunc func(ctx context.Context) ([]model.Patient, error)

func (f listerFunc) List(ctx context.Context) ([]model.Patient, error) { return f(ctx) }

func ids(ps []model.Patient) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func sample() []model.Patient {
	return []model.Patient{
		{ID: 3, FullName: "carol", Age: 50, Gender: model.GenderFemale, Email: "c@x.io", Phone: "300"},
		{ID: 1, FullName: "Alice", Age: 30, Gender: model.GenderFemale, Email: "a@x.io", Phone: "100"},
		{ID: 2, FullName: "bob", Age: 30, Gender: model.GenderMale, Email: "b@x.io", Phone: "200"},
		{ID: 4, FullName: "Alicia", Age: 9, Gender: model.GenderFemale, Email: "d@x.io", Phone: "400"},
	}
}

func TestViewKeepsBackendOrderWithoutSort(t *testing.T) {
	l := New(nil)
	l.Set(sample())
	assert.Equal(t, []int{3, 1, 2, 4}, ids(l.View()))
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	l := New(nil)
	l.Set(sample())

	l.SetSearch("ALI")
	assert.Equal(t, []int{1, 4}, ids(l.View()))

	l.SetSearch("")
	assert.Len(t, l.View(), 4)

	l.SetSearch("zed")
	assert.Empty(t, l.View())
}

func TestSortToggle(t *testing.T) {
	l := New(nil)
	l.Set(sample())

	s := l.SortBy(FieldID)
	assert.Equal(t, Ascending, s.Direction)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(l.View()))

	s = l.SortBy(FieldID)
	assert.Equal(t, Descending, s.Direction)
	assert.Equal(t, []int{4, 3, 2, 1}, ids(l.View()))

	s = l.SortBy(FieldFullName)
	assert.Equal(t, Sort{Field: FieldFullName, Direction: Ascending}, s)
	assert.Equal(t, []int{1, 4, 2, 3}, ids(l.View()))
}

func TestSortIsStable(t *testing.T) {
	l := New(nil)
	l.Set(sample())

	l.SortBy(FieldAge)
	assert.Equal(t, []int{4, 1, 2, 3}, ids(l.View()))

	l.SortBy(FieldAge)
	assert.Equal(t, []int{3, 1, 2, 4}, ids(l.View()))

	l.SortBy(FieldGender)
	assert.Equal(t, []int{3, 1, 4, 2}, ids(l.View()))
}

func TestSortIsPermutationOfFiltered(t *testing.T) {
	l := New(nil)
	l.Set(sample())
	l.SetSearch("a")
	before := ids(l.View())

	for _, f := range Fields {
		l.SortBy(f)
		assert.ElementsMatch(t, before, ids(l.View()), "field %s", f)
	}
}

func TestLimit(t *testing.T) {
	var records []model.Patient
	for i := 1; i <= 25; i++ {
		records = append(records, model.Patient{ID: i, FullName: fmt.Sprintf("p%02d", i)})
	}
	l := New(nil)
	l.Set(records)

	assert.Len(t, l.View(), DefaultLimit)

	l.SetLimit(20)
	assert.Len(t, l.View(), 20)

	l.ShowAll()
	assert.Len(t, l.View(), 25)

	l.SetLimit(10)
	l.SortBy(FieldID)
	l.SortBy(FieldID)
	assert.Equal(t, []int{25, 24, 23, 22, 21, 20, 19, 18, 17, 16}, ids(l.View()))
}

func TestRefreshDegradesToEmpty(t *testing.T) {
	l := New(nil)
	ctx := context.Background()

	require.NoError(t, l.Refresh(ctx, listerFunc(func(context.Context) ([]model.Patient, error) {
		return sample(), nil
	})))
	assert.Equal(t, 4, l.Len())

	boom := stderrors.New("boom")
	err := l.Refresh(ctx, listerFunc(func(context.Context) ([]model.Patient, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, l.View())
}

func TestRemove(t *testing.T) {
	l := New(nil)
	l.Set(sample())

	assert.True(t, l.Remove(2))
	assert.False(t, l.Remove(2))
	assert.Equal(t, []int{3, 1, 4}, ids(l.View()))
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" FullName ")
	require.NoError(t, err)
	assert.Equal(t, FieldFullName, f)

	_, err = ParseField("blood_type")
	assert.Error(t, err)
}
