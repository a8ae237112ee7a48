package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
	"joblens-agent/pkg/utils"
)

// fakeTransport scripts one error per attempt; nil means success.
type fakeTransport struct {
	errs     []error
	attempts int
	inbox    chan models.Message
}

func (f *fakeTransport) Deliver(ctx context.Context, msg models.Message) error {
	f.attempts++
	if f.attempts <= len(f.errs) {
		return f.errs[f.attempts-1]
	}
	return nil
}

func (f *fakeTransport) Messages() <-chan models.Message { return f.inbox }
func (f *fakeTransport) Close() error                    { return nil }

func newTestBridge(transport Transport, policy RetryPolicy) (*Bridge, *[]time.Duration) {
	b := New(transport, policy)
	var slept []time.Duration
	b.sleep = func(d time.Duration) { slept = append(slept, d) }
	return b, &slept
}

func invalidated() error {
	return fmt.Errorf("%w: simulated teardown", ErrChannelInvalidated)
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	transport := &fakeTransport{}
	b, slept := newTestBridge(transport, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second})

	err := b.Send(context.Background(), models.Message{Type: models.MsgListingObserved})

	require.NoError(t, err)
	assert.Equal(t, 1, transport.attempts)
	assert.Empty(t, *slept)
}

func TestSendRetriesTransientThenSucceeds(t *testing.T) {
	transport := &fakeTransport{errs: []error{invalidated()}}
	b, slept := newTestBridge(transport, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second})

	err := b.Send(context.Background(), models.Message{Type: models.MsgListingObserved})

	require.NoError(t, err)
	assert.Equal(t, 2, transport.attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestSendExhaustsAttemptsThenFatal(t *testing.T) {
	transport := &fakeTransport{errs: []error{invalidated(), invalidated(), invalidated()}}
	b, slept := newTestBridge(transport, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second})

	err := b.Send(context.Background(), models.Message{Type: models.MsgListingObserved})

	require.Error(t, err)
	assert.Equal(t, 3, transport.attempts, "exactly the attempt budget, no more")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *slept,
		"fixed delay between attempts, none after the last")

	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindChannelInvalidated, kind)

	cerr, _ := utils.AsClassified(err)
	assert.Contains(t, cerr.Hint, "Reload the page")
}

func TestSendPermanentFailureDoesNotRetry(t *testing.T) {
	transport := &fakeTransport{errs: []error{errors.New("malformed payload"), nil, nil}}
	b, slept := newTestBridge(transport, RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second})

	err := b.Send(context.Background(), models.Message{Type: models.MsgListingObserved})

	require.Error(t, err)
	assert.Equal(t, 1, transport.attempts)
	assert.Empty(t, *slept)

	_, ok := utils.KindOf(err)
	assert.False(t, ok, "permanent transport failures carry no pipeline classification")
}

func TestLocalPairDelivers(t *testing.T) {
	page, background := NewLocalPair(4)

	msg, err := models.NewMessage(models.MsgListingObserved, models.ListingObservedEvent{
		OriginContextID: "ctx-1",
	})
	require.NoError(t, err)

	require.NoError(t, page.Deliver(context.Background(), msg))

	select {
	case got := <-background.Messages():
		assert.Equal(t, models.MsgListingObserved, got.Type)
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestLocalPairTeardownSignature(t *testing.T) {
	page, background := NewLocalPair(4)
	require.NoError(t, background.Close())

	err := page.Deliver(context.Background(), models.Message{Type: models.MsgListingObserved})
	assert.ErrorIs(t, err, ErrChannelInvalidated)

	// A recreated context accepts deliveries again
	background.Reopen()
	assert.NoError(t, page.Deliver(context.Background(), models.Message{Type: models.MsgListingObserved}))
}

func TestBridgeOverLocalPairRecoversFromTeardown(t *testing.T) {
	page, background := NewLocalPair(4)
	b, slept := newTestBridge(page, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})

	require.NoError(t, background.Close())

	// Reopen between attempts, as a recreated page context would
	b.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
		background.Reopen()
	}

	err := b.Send(context.Background(), models.Message{Type: models.MsgAnalysisResult})
	require.NoError(t, err)
	assert.Len(t, *slept, 1)
}

func TestRedisForwardStopsWhenContextEnds(t *testing.T) {
	transport := &RedisTransport{
		out:    make(chan models.Message, 1),
		logger: logging.GetGlobalLogger(),
	}

	payload, err := json.Marshal(models.Message{Type: models.MsgAnalysisResult})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, transport.forward(ctx, string(payload)))

	// Inbox is now full and nobody is draining it
	cancel()
	done := make(chan bool, 1)
	go func() {
		done <- transport.forward(ctx, string(payload))
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("forward blocked after context cancellation")
	}
}

func TestRedisForwardDropsUndecodablePayload(t *testing.T) {
	transport := &RedisTransport{
		out:    make(chan models.Message, 1),
		logger: logging.GetGlobalLogger(),
	}

	assert.True(t, transport.forward(context.Background(), "not json"))
	assert.Empty(t, transport.out)
}
