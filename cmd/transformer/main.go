package main

import (
	"log"
	"net/http"
	"time"

	"server/config"
	"server/transformer"
)

func main() {
	server := &http.Server{
		Addr:    config.TRANSFORMER_BIND_ADDRESS,
		Handler: transformer.NewRouter(),
		// Decode cost grows with pixel count; bound the worst case
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Printf("Transformer listening on %s", config.TRANSFORMER_BIND_ADDRESS)
	log.Fatalf("Transformer stopped: %v", server.ListenAndServe())
}
