package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	err := p.PublishEvent(context.Background(), TopicUserEvents, "user-1", map[string]any{
		"type":   UserLoggedIn,
		"userID": "user-1",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, TopicUserEvents, msg.Topic)
	assert.Equal(t, "user-1", string(msg.Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, UserLoggedIn, body["type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishEvent_Errors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
	assert.Error(t, p.PublishEvent(context.Background(), TopicUserEvents, "k", map[string]string{}))

	assert.Error(t, p.PublishEvent(context.Background(), TopicUserEvents, "k", func() {}))
}

func TestNew_WithoutBrokersIsNop(t *testing.T) {
	p := New(nil)
	_, ok := p.(Nop)
	assert.True(t, ok)
	assert.NoError(t, p.PublishEvent(context.Background(), TopicUserEvents, "k", nil))
	assert.NoError(t, p.Close())
}

func TestNewProducer_FlushesPromptly(t *testing.T) {
	p := NewProducer([]string{"k1:9092", "k2:9092"})
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)

	assert.NotNil(t, w.Addr)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.False(t, w.Async)
	assert.Positive(t, w.BatchTimeout)
	assert.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond)
	assert.Equal(t, 5*time.Second, w.WriteTimeout)

	require.NoError(t, p.Close())
}
