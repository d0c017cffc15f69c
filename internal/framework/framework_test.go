package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"basketwatch/pkg/lmstfyx"
	"basketwatch/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource 内存消息源
type fakeSource struct {
	msgs    chan *Message
	failing bool

	mu    sync.Mutex
	acked []string
}

func newFakeSource(ids ...string) *fakeSource {
	s := &fakeSource{msgs: make(chan *Message, len(ids))}
	for _, id := range ids {
		s.msgs <- &Message{ID: id, Queue: "q", Data: []byte(`{}`)}
	}
	return s
}

func (s *fakeSource) Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error) {
	if s.failing {
		return nil, errors.New("connection reset")
	}
	select {
	case msg := <-s.msgs:
		return msg, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func (s *fakeSource) Ack(queue string, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, jobID)
	return nil
}

func (s *fakeSource) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

func testSubscriberConfig() *SubscriberConfig {
	return &SubscriberConfig{
		QueueName:    "q",
		Concurrency:  2,
		Timeout:      10 * time.Millisecond,
		TTR:          time.Second,
		ErrorBackoff: 10 * time.Millisecond,
	}
}

func TestSubscriberProcessorAckOnSuccess(t *testing.T) {
	source := newFakeSource("ok-1", "bury-1", "ok-2")
	log := logger.NewNopLogger()

	var mu sync.Mutex
	seen := map[string]bool{}
	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		if job.ID == "bury-1" {
			return lmstfyx.Bury()
		}
		return lmstfyx.Ack(nil)
	}

	inputChan := make(chan *Message, 4)
	sub := NewSubscriber(testSubscriberConfig(), source, log)
	processor := NewProcessor(&ProcessorConfig{Concurrency: 2, BufferSize: 4, Timeout: time.Second}, proc, source, log)

	ctx := context.Background()
	require.NoError(t, processor.Start(ctx, inputChan))
	require.NoError(t, sub.Start(ctx, inputChan))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 5*time.Millisecond)

	sub.Stop()
	sub.Wait()
	processor.SignalShutdown()
	processor.Wait()

	assert.ElementsMatch(t, []string{"ok-1", "ok-2"}, source.ackedIDs())
}

func TestProcessorDrainsBufferedMessages(t *testing.T) {
	source := newFakeSource()
	var handled sync.Map
	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp {
		handled.Store(job.ID, true)
		return lmstfyx.Ack(nil)
	}

	inputChan := make(chan *Message, 3)
	for _, id := range []string{"a", "b", "c"} {
		inputChan <- &Message{ID: id, Queue: "q"}
	}

	processor := NewProcessor(&ProcessorConfig{Concurrency: 1, BufferSize: 3, Timeout: time.Second}, proc, source, logger.NewNopLogger())
	processor.SignalShutdown()
	require.NoError(t, processor.Start(context.Background(), inputChan))
	processor.Wait()

	for _, id := range []string{"a", "b", "c"} {
		_, ok := handled.Load(id)
		assert.True(t, ok, id)
	}
	assert.Len(t, source.ackedIDs(), 3)
}

func TestProcessorNilRespIsBuried(t *testing.T) {
	source := newFakeSource()
	inputChan := make(chan *Message, 1)
	inputChan <- &Message{ID: "x", Queue: "q"}

	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp { return nil }
	processor := NewProcessor(&ProcessorConfig{Concurrency: 1, Timeout: time.Second}, proc, source, logger.NewNopLogger())
	processor.SignalShutdown()
	require.NoError(t, processor.Start(context.Background(), inputChan))
	processor.Wait()

	assert.Empty(t, source.ackedIDs())
}

func TestSubscriberStopsDuringErrorBackoff(t *testing.T) {
	source := &fakeSource{failing: true}
	cfg := testSubscriberConfig()
	cfg.ErrorBackoff = time.Hour

	sub := NewSubscriber(cfg, source, logger.NewNopLogger())
	require.NoError(t, sub.Start(context.Background(), make(chan *Message)))

	time.Sleep(20 * time.Millisecond)
	sub.Stop()

	done := make(chan struct{})
	go func() {
		sub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not exit during backoff")
	}
}

func TestPreProcessorStopsOnError(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Fn: func(ctx context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	err := NewPreProcessor(step("decode", nil), step("detect", errors.New("boom")), step("notify", nil)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step detect failed")
	assert.Equal(t, []string{"decode", "detect"}, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran = nil
	err = NewPreProcessor(step("decode", nil)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestParseJob(t *testing.T) {
	raw := []byte(`{"payload":{"data":{"request_id":"r-1","action_type":"basket_anomaly_detect","org_id":"org","id":"d-1","data":{"threshold":450}}}}`)

	b, err := ParseJob(raw)
	require.NoError(t, err)
	assert.Equal(t, &JobMeta{RequestID: "r-1", ActionType: "basket_anomaly_detect", OrgID: "org", ID: "d-1"}, b.Meta())

	var biz struct {
		Threshold float64 `json:"threshold"`
	}
	require.NoError(t, b.DecodePayload(&biz))
	assert.Equal(t, 450.0, biz.Threshold)

	data, err := b.WrapResponse(context.Background(), map[string]int{"anomalies": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":null,"result":{"anomalies":1},"processed":true,
		"meta":{"request_id":"r-1","action_type":"basket_anomaly_detect","org_id":"org","id":"d-1"}}`, string(data))

	data, err = b.WrapErrorResponse(context.Background(), errors.New("bad"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"bad"`)
	assert.Contains(t, string(data), `"processed":false`)
}

func TestParseJobInvalid(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"payload":{}}`,
		`{"payload":{"data":{"request_id":"r"}}}`,
	} {
		_, err := ParseJob([]byte(raw))
		assert.Error(t, err, raw)
	}

	b, err := ParseJob([]byte(`{"payload":{"data":{"action_type":"x"}}}`))
	require.NoError(t, err)
	var v map[string]any
	assert.Error(t, b.DecodePayload(&v))
}
