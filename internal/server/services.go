package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// GRPCService serves a gRPC server on a TCP address.
type GRPCService struct {
	addr        string
	server      *grpc.Server
	gracePeriod time.Duration
	logger      *zap.Logger

	mu  sync.Mutex
	lis net.Listener
}

// NewGRPCService returns a Service that listens on addr and serves srv.
// Stop waits up to gracePeriod for in-flight calls before forcing the server
// down.
//
// Precondition: srv and logger must be non-nil.
func NewGRPCService(addr string, srv *grpc.Server, gracePeriod time.Duration, logger *zap.Logger) *GRPCService {
	return &GRPCService{
		addr:        addr,
		server:      srv,
		gracePeriod: gracePeriod,
		logger:      logger,
	}
}

// Start listens and serves until Stop is called.
func (g *GRPCService) Start() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	g.mu.Lock()
	g.lis = lis
	g.mu.Unlock()

	g.logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving grpc: %w", err)
	}
	return nil
}

// Addr returns the bound listener address, or "" before Start has listened.
func (g *GRPCService) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lis == nil {
		return ""
	}
	return g.lis.Addr().String()
}

// Stop drains in-flight calls, forcing a stop after the grace period.
func (g *GRPCService) Stop() {
	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(g.gracePeriod):
		g.logger.Warn("grpc graceful stop timed out", zap.Duration("grace_period", g.gracePeriod))
		g.server.Stop()
		<-done
	}
}

// ContextService runs a function that starts background work bound to a
// context, such as the idle-game reaper, and cancels that context on Stop.
type ContextService struct {
	run    func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
}

// NewContextService wraps run.
//
// Precondition: run must be non-nil and must return once ctx is cancelled.
func NewContextService(run func(ctx context.Context)) *ContextService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ContextService{run: run, ctx: ctx, cancel: cancel}
}

// Start invokes run and blocks until Stop.
func (c *ContextService) Start() error {
	c.run(c.ctx)
	<-c.ctx.Done()
	return nil
}

// Stop cancels the context passed to run.
func (c *ContextService) Stop() {
	c.cancel()
}
