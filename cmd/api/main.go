package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/gemini-relay/backend/internal/config"
	"github.com/zhouzirui/gemini-relay/backend/internal/handler"
	"github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	backend := newBackend(ctx, cfg)
	if !backend.Configured() {
		log.Printf("warning: %s is not configured, every relay request will fail until it is set", backend.Credential())
	}

	router := handler.NewRouter(relay.NewService(backend))

	startServer(ctx, cfg.Server, router)
}

func newBackend(ctx context.Context, cfg *config.Config) relay.Backend {
	if cfg.Upstream.Provider != config.ProviderArk {
		log.Printf("relay upstream: %s", cfg.Upstream.URL)
		return relay.NewHTTPBackend(cfg.Upstream, nil)
	}

	var chatModel model.BaseChatModel
	if cfg.AI.Enabled() {
		cm, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize Ark chat model: %v", err)
		} else {
			chatModel = cm
			log.Printf("relay upstream: ark model=%s", cfg.AI.Model)
		}
	} else {
		log.Println("Ark 凭证未配置，中继请求将返回配置错误")
	}

	return relay.NewChatModelBackend(chatModel)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Proxy server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
