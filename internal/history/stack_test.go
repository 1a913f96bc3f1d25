package history

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/hermes-bot/internal/telegram"
)

type recordedCall struct {
	method string
	params any
}

type fakeInvoker struct {
	calls []recordedCall
}

func (f *fakeInvoker) Invoke(_ context.Context, method string, params any) (json.RawMessage, error) {
	f.calls = append(f.calls, recordedCall{method: method, params: params})
	return json.RawMessage(`true`), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStack_PushBackPair(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 0, testLogger())

	payload := telegram.SendMessageParams{ChatID: 10, Text: "again"}
	stack.Push(7, Entry{Method: "sendMessage", Payload: payload})

	replayed, err := stack.Back(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, replayed)

	require.Len(t, invoker.calls, 1)
	assert.Equal(t, "sendMessage", invoker.calls[0].method)
	assert.Equal(t, payload, invoker.calls[0].params)

	assert.Equal(t, 0, stack.Depth(7))
}

func TestStack_BackOnEmptyStackIsNoop(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 0, testLogger())

	replayed, err := stack.Back(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Empty(t, invoker.calls)
}

func TestStack_UnrecognizedMethodIsSilentlySkipped(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 0, testLogger())

	stack.Push(1, Entry{Method: "launchMissiles", Payload: nil})

	replayed, err := stack.Back(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Empty(t, invoker.calls)
	// The entry is still consumed.
	assert.Equal(t, 0, stack.Depth(1))
}

func TestStack_LIFOOrder(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 0, testLogger())

	stack.Push(1, Entry{Method: "sendMessage", Payload: "first"})
	stack.Push(1, Entry{Method: "sendPhoto", Payload: "second"})

	_, err := stack.Back(context.Background(), 1)
	require.NoError(t, err)
	_, err = stack.Back(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, invoker.calls, 2)
	assert.Equal(t, "sendPhoto", invoker.calls[0].method)
	assert.Equal(t, "sendMessage", invoker.calls[1].method)
}

func TestStack_DepthCapDropsOldest(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 2, testLogger())

	stack.Push(1, Entry{Method: "sendMessage", Payload: "a"})
	stack.Push(1, Entry{Method: "sendMessage", Payload: "b"})
	stack.Push(1, Entry{Method: "sendMessage", Payload: "c"})

	assert.Equal(t, 2, stack.Depth(1))

	_, err := stack.Back(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, invoker.calls, 1)
	assert.Equal(t, "c", invoker.calls[0].params)
}

func TestStack_DeleteClearsUser(t *testing.T) {
	invoker := &fakeInvoker{}
	stack := NewStack(invoker, 0, testLogger())

	stack.Push(1, Entry{Method: "sendMessage", Payload: "a"})
	stack.Push(2, Entry{Method: "sendMessage", Payload: "b"})

	stack.Delete(1)

	assert.Equal(t, 0, stack.Depth(1))
	assert.Equal(t, 1, stack.Depth(2))
}
