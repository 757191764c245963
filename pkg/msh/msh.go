package msh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
	"github.com/sirosfoundation/go-as4-reliability/pkg/reliability"
	"github.com/sirosfoundation/go-as4-reliability/pkg/transport"
)

// MSH (Message Service Handler) sends user messages reliably and receives
// them with duplicate detection, validating both against a profile.
type MSH struct {
	pmodes         pmode.Manager
	profile        *profile.Profile
	sender         *reliability.Sender
	tracker        *reliability.MessageTracker
	store          *reliability.DuplicateStore
	resolver       EndpointResolver
	dumper         reliability.Dumper
	increaseFactor float64
	replayReceipts bool
	sweepInterval  time.Duration
	retention      time.Duration
	logger         *slog.Logger
	now            func() time.Time

	messageHandler MessageHandler
	eventHandler   EventHandler
	errorHandler   ErrorHandler

	outboundQueue chan *OutboundMessage
	eventQueue    chan MessageEvent

	mu       sync.RWMutex
	running  bool
	messages map[string]*MessageMetadata

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	workerCount int
}

// MSHConfig holds configuration for the MSH
type MSHConfig struct {
	// PModes is required
	PModes pmode.Manager
	// Profile validates outbound P-Modes and inbound messages; nil skips
	// profile checks
	Profile *profile.Profile

	// HTTPClient defaults to a transport.HTTPSClient
	HTTPClient reliability.HTTPClient
	Resolver   EndpointResolver
	Dumper     reliability.Dumper
	// Sleep replaces the wait between send attempts
	Sleep func(ctx context.Context, d time.Duration) error

	// DuplicateStore defaults to an in-memory store with the default window
	DuplicateStore *reliability.DuplicateStore
	Tracker        *reliability.MessageTracker
	IncreaseFactor float64
	// ReplayReceipts answers a duplicate with the receipt of the first
	// reception instead of an EBMS:0004 error
	ReplayReceipts bool
	SweepInterval  time.Duration
	// StatusRetention is how long finished message metadata is kept
	StatusRetention time.Duration

	MessageHandler MessageHandler
	EventHandler   EventHandler
	ErrorHandler   ErrorHandler

	Logger       *slog.Logger
	WorkerCount  int
	MaxQueueSize int
}

// NewMSH creates a new Message Service Handler with the provided configuration
func NewMSH(config MSHConfig) (*MSH, error) {
	if config.PModes == nil {
		return nil, errors.New("pmode manager is required")
	}

	// Set defaults
	if config.WorkerCount == 0 {
		config.WorkerCount = 4
	}
	if config.MaxQueueSize == 0 {
		config.MaxQueueSize = 100
	}
	if config.IncreaseFactor == 0 {
		config.IncreaseFactor = reliability.DefaultIncreaseFactor
	}
	if config.SweepInterval == 0 {
		config.SweepInterval = time.Minute
	}
	if config.StatusRetention == 0 {
		config.StatusRetention = 24 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = transport.NewHTTPSClient(nil)
	}
	if config.Tracker == nil {
		config.Tracker = reliability.NewMessageTracker()
	}
	if config.DuplicateStore == nil {
		config.DuplicateStore = reliability.NewDuplicateStore(reliability.WithStoreLogger(config.Logger))
	}

	senderOpts := []reliability.SenderOption{
		reliability.WithLogger(config.Logger),
		reliability.WithTracker(config.Tracker),
	}
	if config.Sleep != nil {
		senderOpts = append(senderOpts, reliability.WithSleep(config.Sleep))
	}

	return &MSH{
		pmodes:         config.PModes,
		profile:        config.Profile,
		sender:         reliability.NewSender(config.HTTPClient, senderOpts...),
		tracker:        config.Tracker,
		store:          config.DuplicateStore,
		resolver:       config.Resolver,
		dumper:         config.Dumper,
		increaseFactor: config.IncreaseFactor,
		replayReceipts: config.ReplayReceipts,
		sweepInterval:  config.SweepInterval,
		retention:      config.StatusRetention,
		logger:         config.Logger,
		now:            time.Now,
		messageHandler: config.MessageHandler,
		eventHandler:   config.EventHandler,
		errorHandler:   config.ErrorHandler,
		outboundQueue:  make(chan *OutboundMessage, config.MaxQueueSize),
		eventQueue:     make(chan MessageEvent, config.MaxQueueSize),
		messages:       make(map[string]*MessageMetadata),
		workerCount:    config.WorkerCount,
	}, nil
}

// Start begins async message processing and housekeeping
func (m *MSH) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrMSHAlreadyStarted
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.outboundWorker(i)
	}

	m.wg.Add(3)
	go m.eventDispatcher()
	go func() {
		defer m.wg.Done()
		m.store.Run(m.ctx, m.sweepInterval)
	}()
	go m.housekeeping()

	m.logger.Info("MSH started", "workers", m.workerCount, "duplicate_window", m.store.Window())
	return nil
}

// Stop gracefully shuts down the MSH
func (m *MSH) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrMSHNotStarted
	}

	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("MSH stopped")
	return nil
}

// Tracker returns the outbound message tracker
func (m *MSH) Tracker() *reliability.MessageTracker {
	return m.tracker
}

// DuplicateStore returns the inbound duplicate detection store
func (m *MSH) DuplicateStore() *reliability.DuplicateStore {
	return m.store
}

// SendMessage queues an outbound message for async processing. Failures
// are reported to the ErrorHandler.
func (m *MSH) SendMessage(ctx context.Context, msg *OutboundMessage) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()

	if !running {
		return ErrMSHNotStarted
	}

	if err := validateOutboundMessage(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	m.setStatus(newOutboundMetadata(msg, m.now()), MessageStatusPending)

	select {
	case m.outboundQueue <- msg:
		m.emitEvent(MessageEvent{
			Type:      "message.queued",
			MessageID: msg.MessageID(),
			Direction: MessageDirectionOutbound,
			Status:    MessageStatusPending,
		})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetMessageStatus retrieves the current status of a message
func (m *MSH) GetMessageStatus(messageID string) (*MessageMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metadata, ok := m.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message not found: %s", messageID)
	}

	c := *metadata
	return &c, nil
}

// outboundWorker processes outbound messages from the queue
func (m *MSH) outboundWorker(id int) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case msg := <-m.outboundQueue:
			if _, err := m.Send(m.ctx, msg); err != nil {
				m.handleError(msg.MessageID(), err)
			}
		}
	}
}

// eventDispatcher sends events to the event handler
func (m *MSH) eventDispatcher() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.eventQueue:
			if m.eventHandler != nil {
				m.eventHandler(event)
			}
		}
	}
}

// housekeeping drops finished metadata and tracked messages past the
// retention period
func (m *MSH) housekeeping() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			cutoff := m.now().Add(-m.retention)
			n := m.pruneStatus(cutoff) + m.tracker.Prune(cutoff)
			if n > 0 {
				m.logger.Debug("pruned finished messages", "count", n)
			}
		}
	}
}

func (m *MSH) pruneStatus(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, md := range m.messages {
		if md.Status.Finished() && md.UpdatedAt.Before(before) {
			delete(m.messages, id)
			removed++
		}
	}
	return removed
}

// setStatus stores md, or updates the stored copy, with the given status
func (m *MSH) setStatus(md *MessageMetadata, status MessageStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.messages[md.MessageID]; ok && existing.Direction == md.Direction {
		existing.Status = status
		existing.UpdatedAt = md.UpdatedAt
		if md.PModeID != "" {
			existing.PModeID = md.PModeID
		}
		if md.Endpoint != "" {
			existing.Endpoint = md.Endpoint
		}
		existing.LastError = md.LastError
		return
	}
	md.Status = status
	m.messages[md.MessageID] = md
}

func (m *MSH) updateStatus(messageID string, status MessageStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metadata, ok := m.messages[messageID]; ok {
		metadata.Status = status
		metadata.UpdatedAt = m.now()
		if err != nil {
			metadata.LastError = err.Error()
		}
	}
}

// emitEvent sends an event to the event queue
func (m *MSH) emitEvent(event MessageEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	select {
	case m.eventQueue <- event:
	default:
		// Event queue full, drop event
	}
}

// handleError invokes the error handler if configured
func (m *MSH) handleError(messageID string, err error) {
	if m.errorHandler != nil {
		m.errorHandler(messageID, err)
	}

	m.emitEvent(MessageEvent{
		Type:      "message.error",
		MessageID: messageID,
		Direction: MessageDirectionOutbound,
		Status:    MessageStatusFailed,
		Error:     err,
		Data:      map[string]interface{}{"error": err.Error()},
	})
}

func validateOutboundMessage(msg *OutboundMessage) error {
	if msg == nil || msg.UserMessage == nil {
		return errors.New("user message is required")
	}
	if msg.UserMessage.ID() == "" {
		return errors.New("message ID is required")
	}
	return nil
}
