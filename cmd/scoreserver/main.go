// Command scoreserver exposes the locally resolved classifier over gRPC so
// API instances can share one model process (SCORER_ADDR on the API side).
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/ai-check/internal/classifier"
	"github.com/example/ai-check/internal/config"
	"github.com/example/ai-check/internal/grpcserver"
	"github.com/example/ai-check/internal/logging"
)

func main() {
	addr := flag.String("addr", envOr("SCORER_LISTEN_ADDR", ":50051"), "gRPC listen address")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadModel(*configPath)
	if err != nil {
		panic(err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	clf := classifier.Load(classifier.OptionsFromConfig(cfg.Classifier), logger)
	defer clf.Close() //nolint:errcheck

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", *addr), zap.Error(err))
	}

	server := grpc.NewServer()
	grpcserver.Register(server, clf, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		server.GracefulStop()
	}()

	logger.Info("scorer listening", zap.String("addr", *addr), zap.Stringer("model_source", clf.Source()))
	if err := server.Serve(listener); err != nil {
		logger.Fatal("scorer failed", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
