package connections_service_api

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/api/apierr"
	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/notify"
	"github.com/Domenick1991/tripmates/internal/service/connection"
	"github.com/Domenick1991/tripmates/internal/service/reviews"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	UserIDHeader    = "x-user-id"
	SessionIDHeader = "x-session-id"

	streamBuffer = 64
)

type Subscriber interface {
	Subscribe(userID string, handler notify.Handler) func()
}

// Server implements ConnectionsServer. The caller's identity comes from the
// x-user-id metadata set by the gateway in front of it.
type Server struct {
	connections connection.ConnectionUseCase
	obligations reviews.ObligationUseCase
	bus         Subscriber
}

func NewServer(connections connection.ConnectionUseCase, obligations reviews.ObligationUseCase, bus Subscriber) *Server {
	return &Server{connections: connections, obligations: obligations, bus: bus}
}

func (s *Server) SendRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	var planID *string
	if id := field(req, "related_plan_id"); id != "" {
		planID = &id
	}

	created, err := s.connections.SendRequest(ctx, user, field(req, "receiver_user_id"), planID)
	if err != nil {
		return nil, apierr.GRPC(err)
	}
	return toStruct(connectionFields(created))
}

func (s *Server) Respond(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	decision := domain.Decision(strings.ToUpper(field(req, "decision")))

	updated, err := s.connections.Respond(ctx, field(req, "request_id"), user, decision)
	if err != nil {
		return nil, apierr.GRPC(err)
	}
	return toStruct(connectionFields(updated))
}

func (s *Server) RemoveConnection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.connections.RemoveConnection(ctx, field(req, "connection_id"), user); err != nil {
		return nil, apierr.GRPC(err)
	}
	return &structpb.Struct{}, nil
}

func (s *Server) GetActiveConnection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	found, err := s.connections.GetActiveConnection(ctx, user, field(req, "user_id"))
	if err != nil {
		return nil, apierr.GRPC(err)
	}
	var conn interface{}
	if found != nil {
		conn = connectionFields(found)
	}
	return toStruct(map[string]interface{}{"connection": conn})
}

func (s *Server) NextObligation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	session := field(req, "session_id")
	if session == "" {
		session = incoming(ctx, SessionIDHeader)
	}

	plan, err := s.obligations.GetNextObligation(ctx, session, user)
	if err != nil {
		return nil, apierr.GRPC(err)
	}
	var out interface{}
	if plan != nil {
		out = planFields(plan)
	}
	return toStruct(map[string]interface{}{"plan": out})
}

// Subscribe streams the caller's notification events until the client goes away.
func (s *Server) Subscribe(_ *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	user, err := callerID(ctx)
	if err != nil {
		return err
	}

	events := make(chan domain.NotificationEvent, streamBuffer)
	unsubscribe := s.bus.Subscribe(user, func(_ context.Context, event domain.NotificationEvent) error {
		select {
		case events <- event:
		case <-ctx.Done():
		default:
			log.Printf("WARNING: grpc stream for %s is full, dropping %s", user, event.ConnectionID)
		}
		return nil
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			msg, err := toStruct(eventFields(event))
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func callerID(ctx context.Context) (string, error) {
	user := incoming(ctx, UserIDHeader)
	if user == "" {
		return "", status.Error(codes.Unauthenticated, "missing "+UserIDHeader)
	}
	return user, nil
}

func incoming(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func field(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func toStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func connectionFields(r *domain.ConnectionRequest) map[string]interface{} {
	fields := map[string]interface{}{
		"id":               r.ID,
		"sender_user_id":   r.SenderUserID,
		"receiver_user_id": r.ReceiverUserID,
		"status":           string(r.Status),
		"created_at":       r.CreatedAt.Format(time.RFC3339),
		"updated_at":       r.UpdatedAt.Format(time.RFC3339),
	}
	if r.RelatedPlanID != nil {
		fields["related_plan_id"] = *r.RelatedPlanID
	}
	if r.RemovedAt != nil {
		fields["removed_at"] = r.RemovedAt.Format(time.RFC3339)
	}
	return fields
}

func planFields(p *domain.TravelPlan) map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"owner_user_id": p.OwnerUserID,
		"title":         p.Title,
		"destination":   p.Destination,
		"start_date":    p.StartDate.Format("2006-01-02"),
		"end_date":      p.EndDate.Format("2006-01-02"),
		"status":        string(p.Status),
	}
}

func eventFields(e domain.NotificationEvent) map[string]interface{} {
	var st interface{}
	if e.Status != nil {
		st = string(*e.Status)
	}
	return map[string]interface{}{
		"kind":                 string(e.Kind),
		"user_id":              e.UserID,
		"counterparty_user_id": e.CounterpartyUserID,
		"status":               st,
		"direction":            string(e.Direction),
		"connection_id":        e.ConnectionID,
		"occurred_at":          e.OccurredAt.Format(time.RFC3339Nano),
	}
}

var _ ConnectionsServer = (*Server)(nil)
