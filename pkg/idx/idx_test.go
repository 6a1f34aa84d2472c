package idx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(in)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", in)
	}
}

func TestIDsAreSortableByTime(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())
	require.Less(t, a.String(), b.String())
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
	require.True(t, idx.ID("garbage").Time().IsZero())
}

func TestNewIsUniqueUnderConcurrency(t *testing.T) {
	const n = 200
	ch := make(chan idx.ID, n)
	for range n {
		go func() { ch <- idx.New() }()
	}

	seen := make(map[idx.ID]struct{}, n)
	for range n {
		id := <-ch
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
