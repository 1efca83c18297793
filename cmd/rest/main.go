package main

import (
	"context"
	"log"
	"time"

	"ai-assistant-be/internal/bootstrap"
	"ai-assistant-be/internal/config"
	"ai-assistant-be/internal/server"
	"ai-assistant-be/internal/tracer"
)

func main() {
	// 1. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 4. Build the retrieval index. Failure here disables retrieval but
	// not the process: chat keeps working without knowledge-base context.
	if err := container.Retriever.Initialize(context.Background()); err != nil {
		log.Printf("[WARN] Retrieval initialization failed, serving without RAG: %v", err)
	}

	// 5. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// Periodic sweep for the memory backend; Redis reclaims via TTL.
	go func() {
		ticker := time.NewTicker(cfg.Session.CleanupEvery)
		defer ticker.Stop()
		for range ticker.C {
			n, err := container.Sessions.Cleanup(context.Background(), cfg.Session.TTL)
			if err != nil {
				log.Printf("Session cleanup error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Session cleanup reclaimed %d sessions", n)
			}
		}
	}()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run Server
	log.Fatal(srv.Run())
}
