package main

import (
	"context"
	"log"
	"os"

	"ontology-chat/internal/bootstrap"
	"ontology-chat/internal/config"
	"ontology-chat/internal/server"
	"ontology-chat/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Ensure working directories
	for _, dir := range []string{cfg.Upload.Dir, cfg.Ontology.GeneratedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Panicf("Unable to create directory %s: %v", dir, err)
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 4. Start Background Worker
	go func() {
		log.Println("Background: Starting ontology build worker...")
		if err := container.OntologyService.RunWorker(context.Background()); err != nil {
			log.Printf("Background worker error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
