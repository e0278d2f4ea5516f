package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}
	event := &model.Event{ID: "e1", Type: model.EventVoteAccepted, ArticleID: "7", User: "bob", At: time.Unix(1000, 0).UTC()}

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("7"), w.msgs[0].Key)
	assert.Equal(t, "vote_accepted", string(w.msgs[0].Headers[0].Value))

	var decoded model.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, *event, decoded)
}

func TestProducerPublish_Error(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), &model.Event{ArticleID: "1"})
	assert.Error(t, err)
}

func TestConsumerDeliversAndCommits(t *testing.T) {
	valid, err := json.Marshal(model.Event{ID: "e1", Type: model.EventArticlePosted, ArticleID: "1"})
	require.NoError(t, err)

	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: valid},
		{Offset: 2, Value: []byte("not json")},
	}}
	c := newConsumer(reader)

	var mu sync.Mutex
	var handled []string
	c.StartConsuming(func(ctx context.Context, event *model.Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, event.ID)
		return nil
	})

	assert.Eventually(t, func() bool {
		return len(reader.committedOffsets()) == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.True(t, reader.closed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e1"}, handled)
}
