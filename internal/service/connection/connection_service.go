package connection

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/kafka"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/google/uuid"
)

type ConnectionUseCase interface {
	SendRequest(ctx context.Context, senderID, receiverID string, planID *string) (*domain.ConnectionRequest, error)
	Respond(ctx context.Context, requestID, responderID string, decision domain.Decision) (*domain.ConnectionRequest, error)
	Cancel(ctx context.Context, requestID, senderID string) (*domain.ConnectionRequest, error)
	RemoveConnection(ctx context.Context, connectionID, actingUserID string) error
	GetActiveConnection(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID string, status *domain.ConnectionStatus) ([]domain.ConnectionRequest, error)
}

// Notifier is the part of the notification bus the store publishes to.
type Notifier interface {
	Publish(userID string, event domain.NotificationEvent)
	PublishRemoval(userA, userB, connectionID string)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ConnectionService struct {
	connections repository.ConnectionRepository
	plans       repository.PlanRepository
	notifier    Notifier
	locker      PairLocker
	producer    Producer
	eventsTopic string
	now         func() time.Time
}

type ConnectionServiceOption func(*ConnectionService)

// WithEventProducer publishes lifecycle events to topic in addition to the bus.
func WithEventProducer(producer Producer, topic string) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithPairLocker(locker PairLocker) ConnectionServiceOption {
	return func(s *ConnectionService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func WithClock(now func() time.Time) ConnectionServiceOption {
	return func(s *ConnectionService) {
		s.now = now
	}
}

func NewConnectionService(
	connections repository.ConnectionRepository,
	plans repository.PlanRepository,
	notifier Notifier,
	opts ...ConnectionServiceOption,
) *ConnectionService {
	service := &ConnectionService{
		connections: connections,
		plans:       plans,
		notifier:    notifier,
		locker:      NewLockArena(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID string, planID *string) (*domain.ConnectionRequest, error) {
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return nil, domain.Validationf("sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, domain.Validationf("cannot connect with yourself")
	}

	var relatedPlanID *string
	if planID != nil && strings.TrimSpace(*planID) != "" {
		id := strings.TrimSpace(*planID)
		if _, err := s.plans.GetByID(ctx, id); err != nil {
			return nil, err
		}
		relatedPlanID = &id
	}

	req := &domain.ConnectionRequest{
		ID:             uuid.NewString(),
		SenderUserID:   senderID,
		ReceiverUserID: receiverID,
		RelatedPlanID:  relatedPlanID,
		Status:         domain.ConnectionStatusPending,
	}
	err := s.withPairLock(ctx, senderID, receiverID, func() error {
		existing, err := s.connections.FindActive(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflictf("an active connection request already exists between %s and %s", senderID, receiverID)
		}
		if err := s.connections.Create(ctx, req); err != nil {
			return err
		}
		s.notifyBoth(*req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "connection_requested", req)
	return req, nil
}

func (s *ConnectionService) Respond(ctx context.Context, requestID, responderID string, decision domain.Decision) (*domain.ConnectionRequest, error) {
	to, ok := decision.Status()
	if !ok {
		return nil, domain.Validationf("unknown decision %q", decision)
	}

	current, err := s.connections.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.ReceiverUserID != responderID {
		return nil, domain.Forbiddenf("only the receiver may respond to connection %s", requestID)
	}

	updated, err := s.transition(ctx, current, to)
	if err != nil {
		return nil, err
	}

	eventType := "connection_accepted"
	if to == domain.ConnectionStatusRejected {
		eventType = "connection_rejected"
	}
	s.publish(ctx, eventType, updated)
	return updated, nil
}

// Cancel lets the sender withdraw a pending request. The request ends REJECTED.
func (s *ConnectionService) Cancel(ctx context.Context, requestID, senderID string) (*domain.ConnectionRequest, error) {
	current, err := s.connections.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.SenderUserID != senderID {
		return nil, domain.Forbiddenf("only the sender may cancel connection %s", requestID)
	}

	updated, err := s.transition(ctx, current, domain.ConnectionStatusRejected)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "connection_cancelled", updated)
	return updated, nil
}

// RemoveConnection ends an active connection without changing its status and
// tells both parties through removal events.
func (s *ConnectionService) RemoveConnection(ctx context.Context, connectionID, actingUserID string) error {
	current, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if !current.Involves(actingUserID) {
		return domain.Forbiddenf("user %s is not a party of connection %s", actingUserID, connectionID)
	}

	var removed *domain.ConnectionRequest
	err = s.withPairLock(ctx, current.SenderUserID, current.ReceiverUserID, func() error {
		removed, err = s.connections.MarkRemoved(ctx, connectionID, s.now().UTC())
		if err != nil {
			return err
		}
		if s.notifier != nil {
			s.notifier.PublishRemoval(actingUserID, removed.Counterparty(actingUserID), removed.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, "connection_removed", removed)
	return nil
}

func (s *ConnectionService) GetActiveConnection(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, nil
	}
	return s.connections.FindActive(ctx, userA, userB)
}

func (s *ConnectionService) ListConnections(ctx context.Context, userID string, status *domain.ConnectionStatus) ([]domain.ConnectionRequest, error) {
	return s.connections.ListByUser(ctx, userID, status)
}

func (s *ConnectionService) transition(ctx context.Context, current *domain.ConnectionRequest, to domain.ConnectionStatus) (*domain.ConnectionRequest, error) {
	if !current.Active() || !domain.CanTransition(current.Status, to) {
		return nil, domain.InvalidStatef("connection %s is %s", current.ID, describe(current))
	}

	var updated *domain.ConnectionRequest
	err := s.withPairLock(ctx, current.SenderUserID, current.ReceiverUserID, func() error {
		var err error
		updated, err = s.connections.CompareAndSetStatus(ctx, current.ID, domain.ConnectionStatusPending, to)
		if err != nil {
			return err
		}
		s.notifyBoth(*updated)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			log.Printf("connection %s changed concurrently: %v", current.ID, err)
		}
		return nil, err
	}
	return updated, nil
}

// withPairLock runs fn while holding the pair's lock. Bus notifications go out
// inside fn; kafka publishes only after it returns.
func (s *ConnectionService) withPairLock(ctx context.Context, userA, userB string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, domain.PairKey(userA, userB))
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (s *ConnectionService) notifyBoth(req domain.ConnectionRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(req.ReceiverUserID, domain.EventFor(req.ReceiverUserID, req))
	s.notifier.Publish(req.SenderUserID, domain.EventFor(req.SenderUserID, req))
}

func (s *ConnectionService) publish(ctx context.Context, eventType string, req *domain.ConnectionRequest) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.ConnectionEvent{
		Type:           eventType,
		ConnectionID:   req.ID,
		SenderUserID:   req.SenderUserID,
		ReceiverUserID: req.ReceiverUserID,
		Status:         string(req.Status),
		OccurredAt:     req.UpdatedAt,
	}
	if req.RelatedPlanID != nil {
		event.RelatedPlanID = *req.RelatedPlanID
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, req.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for connection %s: %v", eventType, req.ID, err)
	}
}

func describe(req *domain.ConnectionRequest) string {
	if req.RemovedAt != nil {
		return "removed"
	}
	return string(req.Status)
}

var _ ConnectionUseCase = (*ConnectionService)(nil)
