// Command server exposes backtest and optimize operations over HTTP and gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	pb "chandelier-backtest/proto"
	"chandelier-backtest/services/config"
	"chandelier-backtest/services/marketdata"
)

func newGRPCServer(service pb.OptimizerServiceServer) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(pb.JSONCodec{}))
	pb.RegisterOptimizerServiceServer(grpcServer, service)
	reflection.Register(grpcServer)
	return grpcServer
}

func newHTTPRouter(service *OptimizerService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	service.setupHTTPRoutes(r)
	return r
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	verbose := flag.Bool("verbose", false, "Enable development logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if *verbose {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting optimizer service",
		zap.String("environment", cfg.Environment),
		zap.String("data_source", cfg.Data.Source),
	)

	ctx := context.Background()
	source, closeSource, err := marketdata.Open(ctx, cfg.Data.Source, cfg.Data.CSVDir, cfg.ClickHouse, logger)
	if err != nil {
		logger.Fatal("Failed to open data source", zap.Error(err))
	}
	defer closeSource()

	service := NewOptimizerService(cfg, source, logger)
	grpcServer := newGRPCServer(service)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: newHTTPRouter(service),
	}

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			logger.Fatal("Failed to listen on gRPC port", zap.Error(err))
		}
		logger.Info("Starting gRPC server", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	logger.Info("Servers stopped")
}
