package msh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
	"github.com/sirosfoundation/go-as4-reliability/pkg/reliability"
	"github.com/sirosfoundation/go-as4-reliability/pkg/transport"
)

const (
	testService = "urn:example:service"
	testAction  = "Deliver"
)

func testPMode(address string) *pmode.PMode {
	pm := profile.ESENS().NewPMode(
		pmode.Party{ID: "sender", Role: message.DefaultRole},
		pmode.Party{ID: "receiver", Role: message.DefaultRole},
		address,
	)
	pm.Leg1.BusinessInfo.Service = testService
	pm.Leg1.BusinessInfo.Action = testAction
	return pm
}

func testUserMessage(t *testing.T) *message.UserMessage {
	t.Helper()
	um, err := message.NewUserMessage(
		message.WithFrom("sender", ""),
		message.WithTo("receiver", ""),
		message.WithService(testService),
		message.WithAction(testAction),
	).AddPartInfo("cid:payload@example.com", "application/xml").Build()
	require.NoError(t, err)
	return um
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

// exchange wires a sending MSH to a receiving MSH over a TLS test server
type exchange struct {
	sender    *MSH
	receiver  *MSH
	server    *httptest.Server
	pm        *pmode.PMode
	delivered atomic.Int32
	clock     *fakeClock
	sleeps    *sleepRecorder
	// failNext makes the front of the receiver answer 503 that many times
	failNext atomic.Int32
	mu sync.Mutex
	// handlerErr is returned by the business callback when set
	handlerErr error
}

func (x *exchange) setHandlerErr(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.handlerErr = err
}

type exchangeOptions struct {
	replay       bool
	window       time.Duration
	noProfile    bool
	configure    func(pm *pmode.PMode)
	eventHandler EventHandler
	errorHandler ErrorHandler
}

func newExchange(t *testing.T, opts exchangeOptions) *exchange {
	t.Helper()
	x := &exchange{
		clock:  &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		sleeps: &sleepRecorder{},
	}
	if opts.window == 0 {
		opts.window = time.Hour
	}
	var prof *profile.Profile
	if !opts.noProfile {
		prof = profile.ESENS()
	}

	receiverPModes := pmode.NewMemoryManager()
	receiver, err := NewMSH(MSHConfig{
		PModes:  receiverPModes,
		Profile: prof,
		DuplicateStore: reliability.NewDuplicateStore(
			reliability.WithDisposalWindow(opts.window),
			reliability.WithClock(x.clock.Now),
			reliability.WithStoreLogger(quietLogger()),
		),
		ReplayReceipts: opts.replay,
		Logger:         quietLogger(),
		MessageHandler: func(ctx context.Context, msg *InboundMessage) error {
			x.mu.Lock()
			err := x.handlerErr
			x.mu.Unlock()
			if err != nil {
				return err
			}
			x.delivered.Add(1)
			return nil
		},
	})
	require.NoError(t, err)
	x.receiver = receiver

	endpoint := transport.NewHTTPSServer(":0", nil, receiver)
	x.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if x.failNext.Load() > 0 {
			x.failNext.Add(-1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		endpoint.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(x.server.Close)

	x.pm = testPMode(x.server.URL + transport.DefaultPath)
	if opts.configure != nil {
		opts.configure(x.pm)
	}
	require.NoError(t, receiverPModes.Create(context.Background(), x.pm))

	senderPModes := pmode.NewMemoryManager()
	require.NoError(t, senderPModes.Create(context.Background(), x.pm))
	sender, err := NewMSH(MSHConfig{
		PModes:       senderPModes,
		Profile:      prof,
		HTTPClient:   x.server.Client(),
		Sleep:        x.sleeps.sleep,
		Logger:       quietLogger(),
		EventHandler: opts.eventHandler,
		ErrorHandler: opts.errorHandler,
	})
	require.NoError(t, err)
	x.sender = sender

	return x
}

func (x *exchange) send(t *testing.T, um *message.UserMessage) (*SendResult, error) {
	t.Helper()
	return x.sender.Send(context.Background(), &OutboundMessage{UserMessage: um})
}

func TestIntegration_SendReceivesReceipt(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	um := testUserMessage(t)

	result, err := x.send(t, um)
	require.NoError(t, err)
	require.NotNil(t, result.Signal)
	require.NotNil(t, result.Signal.Receipt)
	assert.Equal(t, um.ID(), result.Signal.RefToMessageID())
	assert.Equal(t, x.pm.ID, result.PModeID)
	assert.Equal(t, int32(1), x.delivered.Load())

	status, err := x.sender.GetMessageStatus(um.ID())
	require.NoError(t, err)
	assert.Equal(t, MessageStatusAcknowledged, status.Status)
	assert.Equal(t, MessageDirectionOutbound, status.Direction)
	assert.Equal(t, x.pm.Leg1.Protocol.Address, status.Endpoint)

	tracked, ok := x.sender.Tracker().GetMessage(um.ID())
	require.True(t, ok)
	assert.Equal(t, reliability.StateReceived, tracked.State)
	assert.Equal(t, 1, tracked.AttemptCount)

	inbound, err := x.receiver.GetMessageStatus(um.ID())
	require.NoError(t, err)
	assert.Equal(t, MessageStatusReceived, inbound.Status)
	assert.Equal(t, x.pm.ID, inbound.PModeID)
	assert.Equal(t, "sender", inbound.FromPartyID)
}

func TestIntegration_DuplicateDeliveredOnce(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	um := testUserMessage(t)

	_, err := x.send(t, um)
	require.NoError(t, err)

	result, err := x.send(t, um)
	var serr *SignalError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{message.ErrorOther.Code}, serr.Codes())
	require.NotNil(t, result)
	assert.Equal(t, um.ID(), result.Signal.Errors[0].RefToMessageInError)

	assert.Equal(t, int32(1), x.delivered.Load())
	assert.Equal(t, 1, x.receiver.DuplicateStore().Len())
}

func TestIntegration_DuplicateReplaysReceipt(t *testing.T) {
	x := newExchange(t, exchangeOptions{replay: true})
	um := testUserMessage(t)

	first, err := x.send(t, um)
	require.NoError(t, err)

	second, err := x.send(t, um)
	require.NoError(t, err)
	require.NotNil(t, second.Signal.Receipt)
	assert.Equal(t, first.Signal.ID(), second.Signal.ID())
	assert.Equal(t, int32(1), x.delivered.Load())
}

func TestIntegration_DuplicateWindowElapses(t *testing.T) {
	x := newExchange(t, exchangeOptions{window: time.Minute})
	um := testUserMessage(t)

	_, err := x.send(t, um)
	require.NoError(t, err)

	x.clock.Advance(30 * time.Second)
	_, err = x.send(t, um)
	require.Error(t, err)
	assert.Equal(t, int32(1), x.delivered.Load())

	x.clock.Advance(time.Minute)
	result, err := x.send(t, um)
	require.NoError(t, err)
	assert.NotNil(t, result.Signal.Receipt)
	assert.Equal(t, int32(2), x.delivered.Load())
}

func TestIntegration_DuplicateDetectionDisabled(t *testing.T) {
	x := newExchange(t, exchangeOptions{configure: func(pm *pmode.PMode) {
		pm.ReceptionAwareness.DuplicateDetection = pmode.False
	}})
	um := testUserMessage(t)

	for i := 0; i < 2; i++ {
		_, err := x.send(t, um)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), x.delivered.Load())
	assert.Equal(t, 0, x.receiver.DuplicateStore().Len())
}

func TestIntegration_RetryAfterTransportFailure(t *testing.T) {
	x := newExchange(t, exchangeOptions{configure: func(pm *pmode.PMode) {
		pm.ReceptionAwareness.RetryInterval = 5 * time.Second
	}})
	x.failNext.Store(2)
	um := testUserMessage(t)

	result, err := x.send(t, um)
	require.NoError(t, err)
	assert.NotNil(t, result.Signal.Receipt)
	assert.Equal(t, int32(1), x.delivered.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, x.sleeps.waits)

	tracked, _ := x.sender.Tracker().GetMessage(um.ID())
	assert.Equal(t, 3, tracked.AttemptCount)
	assert.Len(t, tracked.Errors, 2)
}

func TestIntegration_RetriesExhausted(t *testing.T) {
	x := newExchange(t, exchangeOptions{configure: func(pm *pmode.PMode) {
		pm.ReceptionAwareness.MaxRetries = 1
	}})
	x.failNext.Store(10)
	um := testUserMessage(t)

	_, err := x.send(t, um)
	var statusErr *reliability.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(8), x.failNext.Load())

	status, _ := x.sender.GetMessageStatus(um.ID())
	assert.Equal(t, MessageStatusFailed, status.Status)
	assert.NotEmpty(t, status.LastError)
}

func TestIntegration_RetryDisabled(t *testing.T) {
	x := newExchange(t, exchangeOptions{configure: func(pm *pmode.PMode) {
		pm.ReceptionAwareness.Retry = pmode.False
	}})
	x.failNext.Store(1)

	_, err := x.send(t, testUserMessage(t))
	require.Error(t, err)
	assert.Empty(t, x.sleeps.waits)
}

func TestIntegration_OutboundProfileViolation(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	bad := x.pm.Clone()
	bad.ID = "plain-http"
	bad.Leg1.Protocol.Address = "http://insecure.example.com/as4"
	require.NoError(t, x.sender.pmodes.Create(context.Background(), bad))

	_, err := x.sender.Send(context.Background(), &OutboundMessage{UserMessage: testUserMessage(t), PModeID: bad.ID})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, profile.ESENSID, verr.ProfileID)
	assert.True(t, verr.Findings.Any(profile.MessageContains("AddressProtocol")), verr.Findings.String())
	assert.Equal(t, int32(0), x.delivered.Load())
}

func TestIntegration_NoPMode(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	um := testUserMessage(t)
	um.CollaborationInfo.Action = "Unknown"

	_, err := x.send(t, um)
	assert.ErrorIs(t, err, ErrNoPMode)
}

func TestIntegration_DeliveryFailureAllowsResend(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	x.setHandlerErr(errors.New("backend down"))
	um := testUserMessage(t)

	_, err := x.send(t, um)
	var serr *SignalError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{message.ErrorDeliveryFailure.Code}, serr.Codes())

	x.setHandlerErr(nil)
	_, err = x.send(t, um)
	require.NoError(t, err)
	assert.Equal(t, int32(1), x.delivered.Load())
}

func TestIntegration_NoReceiptRequested(t *testing.T) {
	x := newExchange(t, exchangeOptions{noProfile: true, configure: func(pm *pmode.PMode) {
		pm.Leg1.Security = pm.Leg1.Security.WithSendReceipt(pmode.False)
	}})
	um := testUserMessage(t)

	result, err := x.send(t, um)
	require.NoError(t, err)
	assert.Nil(t, result.Signal)
	assert.Empty(t, result.Raw)

	status, _ := x.sender.GetMessageStatus(um.ID())
	assert.Equal(t, MessageStatusSent, status.Status)
	assert.Equal(t, int32(1), x.delivered.Load())

	// without a recorded receipt a duplicate is answered with an error
	x.receiver.replayReceipts = true
	_, err = x.send(t, um)
	var serr *SignalError
	require.ErrorAs(t, err, &serr)
}

func TestIntegration_AsyncSend(t *testing.T) {
	events := make(chan MessageEvent, 16)
	failures := make(chan string, 4)
	x := newExchange(t, exchangeOptions{
		eventHandler: func(e MessageEvent) { events <- e },
		errorHandler: func(id string, err error) { failures <- id },
	})
	require.NoError(t, x.sender.Start(context.Background()))
	defer x.sender.Stop()

	um := testUserMessage(t)
	require.NoError(t, x.sender.SendMessage(context.Background(), &OutboundMessage{UserMessage: um}))

	assert.Eventually(t, func() bool {
		status, err := x.sender.GetMessageStatus(um.ID())
		return err == nil && status.Status == MessageStatusAcknowledged
	}, 5*time.Second, 5*time.Millisecond)

	seen := map[string]bool{}
	timeout := time.After(5 * time.Second)
	for !seen["message.acknowledged"] || !seen["message.queued"] {
		select {
		case e := <-events:
			seen[e.Type] = true
		case <-timeout:
			t.Fatalf("missing events, got %v", seen)
		}
	}

	bad := testUserMessage(t)
	bad.CollaborationInfo.Action = "Unknown"
	require.NoError(t, x.sender.SendMessage(context.Background(), &OutboundMessage{UserMessage: bad}))
	select {
	case id := <-failures:
		assert.Equal(t, bad.ID(), id)
	case <-time.After(5 * time.Second):
		t.Fatal("error handler not called")
	}
}

func TestIntegration_ResolverFallback(t *testing.T) {
	x := newExchange(t, exchangeOptions{})
	resolver := NewStaticEndpointResolver()
	resolver.RegisterEndpoint("receiver", &EndpointInfo{URL: x.pm.Leg1.Protocol.Address})
	x.sender.resolver = resolver

	noAddress := x.pm.Clone()
	noAddress.Leg1.Protocol.Address = ""
	require.NoError(t, x.sender.pmodes.Update(context.Background(), noAddress))

	// the empty address also fails the profile, so check without it
	x.sender.profile = nil
	result, err := x.send(t, testUserMessage(t))
	require.NoError(t, err)
	assert.Equal(t, x.pm.Leg1.Protocol.Address, result.Endpoint)

	resolver.RemoveEndpoint("receiver")
	_, err = x.send(t, testUserMessage(t))
	assert.ErrorIs(t, err, ErrEndpointNotFound)
}
