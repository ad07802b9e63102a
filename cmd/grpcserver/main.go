package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"github.com/milad/octosync/internal/cache/backend"
	"github.com/milad/octosync/internal/config"
	"github.com/milad/octosync/internal/logger"
	"github.com/milad/octosync/internal/repo/cacherepo"
	"github.com/milad/octosync/internal/scheduler"
	"github.com/milad/octosync/internal/service"
	grpcserver "github.com/milad/octosync/internal/transport/grpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	var (
		addr         = flag.String("addr", cfg.GRPCAddr, "listen address")
		cacheBackend = flag.String("cache-backend", cfg.Cache.Backend, "cache backend: file, sqlite or redis")
		cachePath    = flag.String("cache", cfg.Cache.Path, "cache path for the file and sqlite backends")
		reload       = flag.Duration("reload", cfg.ReloadInterval, "how often to reload the cache")
		metricsAddr  = flag.String("metrics-addr", "", "serve Prometheus metrics on this address (disabled if empty)")
	)
	flag.Parse()
	cfg.Cache.Backend, cfg.Cache.Path = *cacheBackend, *cachePath

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	l := logger.Init("grpcserver", level)

	source, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer closeCache()

	repo, err := cacherepo.Open(source, l)
	if err != nil {
		log.Fatalf("load cache from %s: %v", source.Location(), err)
	}

	svc := service.NewReadingService(repo)
	api := grpcserver.New(svc)

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen %q: %v", *addr, err)
	}
	log.Printf("gRPC listening on %s (cache %s)", *addr, source.Location())

	g := grpc.NewServer()
	readingsv1.RegisterReadingServiceServer(g, api)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(g, hs)

	// The first run fires immediately and repeats the initial load.
	reloader := scheduler.New("reload-cache", *reload, repo.Reload, l)
	if err := reloader.Start(); err != nil {
		log.Fatalf("start reload: %v", err)
	}
	defer reloader.Stop()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Printf("shutting down gRPC")
		hs.Shutdown()
		ch := make(chan struct{})
		go func() {
			g.GracefulStop()
			close(ch)
		}()
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			g.Stop()
		}
	}()

	if err := g.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("warning: metrics server: %v", err)
	}
}
