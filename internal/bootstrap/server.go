package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/tripmates/api"
	"github.com/Domenick1991/tripmates/config"
	connectionsapi "github.com/Domenick1991/tripmates/internal/api/connections_service_api"
	"github.com/Domenick1991/tripmates/internal/match"
	"github.com/Domenick1991/tripmates/internal/notify"
	"github.com/Domenick1991/tripmates/internal/service/connection"
	"github.com/Domenick1991/tripmates/internal/service/plans"
	"github.com/Domenick1991/tripmates/internal/service/reviews"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const swaggerSpec = "tripmates.swagger.json"

type Services struct {
	Plans       plans.PlanUseCase
	Matcher     match.MatchUseCase
	Connections connection.ConnectionUseCase
	Reviews     reviews.ReviewUseCase
	Obligations reviews.ObligationUseCase
	Bus         *notify.Bus
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
}

// Run starts the gRPC and HTTP (gin + swagger) servers and blocks until context is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services) error {
	s := newServers(cfg, svc)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Printf("http listening on %s, grpc on %s", cfg.HTTP.Address, cfg.GRPC.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.health.Shutdown()
		// SSE streams never finish on their own, so close HTTP before draining gRPC.
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.httpServer.Close()
		}
		s.grpcServer.GracefulStop()
		return nil
	}
}

func newServers(cfg *config.Config, svc Services) *Servers {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(logErrors))

	connectionsapi.RegisterConnectionsServer(grpcSrv, connectionsapi.NewServer(svc.Connections, svc.Obligations, svc.Bus))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(connectionsapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	router := api.NewRouter(cfg.Auth.JWTSecret, api.Handlers{
		Plans:         api.NewPlanHandler(svc.Plans, svc.Matcher),
		Connections:   api.NewConnectionHandler(svc.Connections),
		Reviews:       api.NewReviewHandler(svc.Reviews, svc.Obligations),
		Notifications: api.NewNotificationHandler(svc.Bus),
	})

	router.GET("/healthz", func(c *gin.Context) {
		resp, err := healthSrv.Check(c.Request.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger-files", cfg.HTTP.SwaggerDir)
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger-files/"+swaggerSpec),
		)))
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		health:     healthSrv,
	}
}

func logErrors(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		log.Printf("grpc %s: %s", info.FullMethod, status.Convert(err).Code())
	}
	return resp, err
}
