package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"github.com/milad/octosync/internal/config"
	httpserver "github.com/milad/octosync/internal/transport/http"
	"github.com/rs/cors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	var (
		addr     = flag.String("addr", cfg.HTTPAddr, "listen address")
		grpcAddr = flag.String("grpc", cfg.GRPCTarget, "gRPC target host:port")
		origins  = flag.String("cors-origins", envOr("CORS_ORIGINS", "*"), "comma separated allowed CORS origins")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial gRPC %q: %v", *grpcAddr, err)
	}
	defer conn.Close()

	// Reduce docker-compose race: wait a bit for gRPC to be ready.
	waitForGRPC(ctx, conn, cfg.GRPCWaitTimeout)

	client := readingsv1.NewReadingServiceClient(conn)
	srv := httpserver.New(client)

	c := cors.New(cors.Options{
		AllowedOrigins: strings.Split(*origins, ","),
		AllowedMethods: []string{http.MethodGet},
		MaxAge:         300,
	})

	h := &http.Server{
		Addr:              *addr,
		Handler:           c.Handler(srv),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen %q: %v", *addr, err)
	}
	log.Printf("HTTP listening on %s (gRPC target %s)", *addr, *grpcAddr)

	go func() {
		<-ctx.Done()
		log.Printf("shutting down HTTP")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Shutdown(shutdownCtx)
	}()

	if err := h.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}

func envOr(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func waitForGRPC(ctx context.Context, conn *grpc.ClientConn, maxWait time.Duration) {
	if maxWait <= 0 {
		return
	}

	hc := healthpb.NewHealthClient(conn)
	deadline := time.Now().Add(maxWait)

	backoff := 100 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		_, err := hc.Check(reqCtx, &healthpb.HealthCheckRequest{})
		cancel()
		if err == nil {
			log.Printf("gRPC is ready")
			return
		}

		if time.Now().After(deadline) {
			log.Printf("warning: gRPC not ready after %s; continuing anyway (%v)", maxWait, err)
			return
		}

		time.Sleep(backoff)
		backoff = min(backoff*2, time.Second)
	}
}
