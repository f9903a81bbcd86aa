package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody/internal/logging"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return r.err
}

type countingObserver struct {
	mu       sync.Mutex
	ok, fail int
}

func (o *countingObserver) NotificationSent(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.fail++
		return
	}
	o.ok++
}

func TestDispatchWaitSkipsEmptyDestinations(t *testing.T) {
	rec := &recordingNotifier{}
	obs := &countingObserver{}
	d := NewDispatcher(rec, logging.Discard(), obs)

	d.DispatchWait(
		Message{Kind: KindTransferSent, Destination: "+2348000000001", Body: "debited"},
		Message{Kind: KindTransferReceived, Destination: "", Body: "credited"},
		Message{Kind: KindTransferReceived, Destination: "+2348000000002", Body: "credited"},
	)

	assert.Len(t, rec.sent, 2)
	assert.Equal(t, 2, obs.ok)
}

func TestDispatchWaitSwallowsFailures(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("gateway down")}
	obs := &countingObserver{}
	d := NewDispatcher(rec, logging.Discard(), obs)

	d.DispatchWait(Message{Kind: KindWalletFunded, Destination: "+2348000000001"})

	assert.Equal(t, 1, obs.fail)
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Message{Destination: "x"})
	d.DispatchWait(Message{Destination: "x"})

	NewDispatcher(nil, nil, nil).Dispatch(Message{Destination: "x"})
}

func TestKafkaNotifierPublishesJSON(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var m Message
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		if m.Kind != KindOwnershipReceived || m.Destination != "+2348000000003" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	n := NewKafkaNotifier(producer, "custody.notifications", logging.Discard())
	err := n.Send(context.Background(), Message{Kind: KindOwnershipReceived, Destination: "+2348000000003", Body: "resource transferred"})
	require.NoError(t, err)
	require.NoError(t, n.Close())
}

func TestKafkaNotifierReportsPublishFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewKafkaNotifier(producer, "custody.notifications", logging.Discard())
	err := n.Send(context.Background(), Message{Kind: KindWalletFunded, Destination: "+2348000000001"})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, n.Close())
}

func TestKafkaNotifierHonoursCancelledContext(t *testing.T) {
	cfg := mocks.NewTestConfig()
	producer := mocks.NewSyncProducer(t, cfg)
	n := NewKafkaNotifier(producer, "custody.notifications", logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, Message{Destination: "x"}), context.Canceled)
	require.NoError(t, n.Close())
}
