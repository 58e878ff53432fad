package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageBufferFIFOOrder(t *testing.T) {
	var b MessageBuffer
	b.Enqueue(Message{Type: Insert, Key: []byte("a")})
	b.Enqueue(Message{Type: Insert, Key: []byte("b")})
	b.Enqueue(Message{Type: Delete, Key: []byte("a")})

	require.Equal(t, 3, b.Len())

	m, ok := b.Dequeue()
	require.True(t, ok)
	require.Equal(t, "a", string(m.Key))
	require.Equal(t, Insert, m.Type)

	m, ok = b.Dequeue()
	require.True(t, ok)
	require.Equal(t, "b", string(m.Key))

	m, ok = b.Dequeue()
	require.True(t, ok)
	require.Equal(t, Delete, m.Type)

	_, ok = b.Dequeue()
	require.False(t, ok)
	require.Equal(t, 0, b.Len())
}

func TestMessageBufferBytesAccounting(t *testing.T) {
	var b MessageBuffer
	require.Equal(t, 0, b.Bytes())

	m := Message{Type: Insert, Key: []byte("key"), Val: []byte("value")}
	b.Enqueue(m)
	require.Equal(t, messageSize(m), b.Bytes())

	b.Dequeue()
	require.Equal(t, 0, b.Bytes())
}

func TestMessageBufferCompacts(t *testing.T) {
	var b MessageBuffer
	for i := 0; i < 100; i++ {
		b.Enqueue(Message{Type: Insert, Key: []byte{byte(i)}})
	}
	for i := 0; i < 60; i++ {
		b.Dequeue()
	}
	require.Equal(t, 40, b.Len())
	require.Equal(t, 10, b.head, "compact reset head at the 50th dequeue; 10 dequeues followed")
}

func TestMessageBufferItems(t *testing.T) {
	var b MessageBuffer
	b.Enqueue(Message{Key: []byte("x")})
	b.Enqueue(Message{Key: []byte("y")})
	b.Dequeue()

	var seen []string
	b.Items(func(m Message) bool {
		seen = append(seen, string(m.Key))
		return true
	})
	require.Equal(t, []string{"y"}, seen)
}
