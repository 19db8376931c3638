package circular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueWrapsAndRetrievesOldestFirst(t *testing.T) {
	b := CreateBuffer[int](4)
	b.Enqueue(1, 2, 3)
	assert.False(t, b.Full())
	assert.Equal(t, 3, b.Count())

	b.Enqueue(4, 5)
	require.True(t, b.Full())

	out := make([]int, 4)
	require.NoError(t, b.Retrieve(out))
	assert.Equal(t, []int{2, 3, 4, 5}, out)
}

func TestEnqueueLongerThanCapacityKeepsTail(t *testing.T) {
	b := CreateBuffer[int](3)
	b.Enqueue(1, 2, 3, 4, 5, 6, 7)

	out := make([]int, 3)
	require.NoError(t, b.Retrieve(out))
	assert.Equal(t, []int{5, 6, 7}, out)
}

func TestRetrieveRejectsWrongSize(t *testing.T) {
	b := CreateBuffer[float32](8)
	assert.Error(t, b.Retrieve(make([]float32, 4)))
}

func TestValuesOnPartialBuffer(t *testing.T) {
	b := CreateBuffer[int](5)
	assert.Empty(t, b.Values(nil))

	b.Enqueue(7)
	b.Enqueue(8)
	assert.Equal(t, []int{7, 8}, b.Values(nil))

	for i := 0; i < 6; i++ {
		b.Enqueue(i)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, b.Values(nil))
}

func TestNewestOldestAndReset(t *testing.T) {
	b := CreateBuffer[string](2)
	_, ok := b.Newest()
	assert.False(t, ok)

	b.Enqueue("a", "b", "c")
	newest, ok := b.Newest()
	require.True(t, ok)
	assert.Equal(t, "c", newest)
	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, "b", oldest)

	b.Reset()
	assert.Equal(t, 0, b.Count())
	_, ok = b.Oldest()
	assert.False(t, ok)
	assert.Equal(t, 2, b.Length())
}
