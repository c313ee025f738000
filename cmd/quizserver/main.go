// Command quizserver runs the backgammon mistake-quiz REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yourusername/bgquiz/pkg/analyzer"
	"github.com/yourusername/bgquiz/pkg/api"
	"github.com/yourusername/bgquiz/pkg/crawl"
	"github.com/yourusername/bgquiz/pkg/engine"
	"github.com/yourusername/bgquiz/pkg/quiz"
)

const version = "0.1.0"

func main() {
	// Command line flags
	host := flag.String("host", "localhost", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", 8080, "Port to listen on")
	dbPath := flag.String("db", "quiz.db", "Path to the SQLite quiz database")
	gnubgPath := flag.String("gnubg", os.Getenv("GNUBG_PATH"), "Path to the gnubg executable (defaults to $GNUBG_PATH)")
	threshold := flag.Float64("threshold", analyzer.DefaultThreshold, "Equity loss above which a ply becomes a quiz")
	days := flag.Int("days", 30, "Default lookback window for match crawls")
	siteURL := flag.String("site", "", "Override the match source site base URL")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("bgquiz server v%s\n", version)
		os.Exit(0)
	}

	log.Printf("bgquiz server v%s", version)

	store, err := quiz.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open quiz store: %v", err)
	}
	defer store.Close()

	eng := engine.NewEngine(*gnubgPath)
	if eng.Available() {
		log.Printf("gnubg configured at %s", *gnubgPath)
	} else {
		log.Printf("gnubg not configured, crawls will record matches without analysis")
	}

	siteConfig := crawl.DefaultSiteConfig()
	if *siteURL != "" {
		siteConfig.BaseURL = *siteURL
	}
	site, err := crawl.NewClient(siteConfig)
	if err != nil {
		log.Fatalf("Failed to create site client: %v", err)
	}

	pipeline := crawl.NewPipeline(site, store, analyzer.New(eng, *threshold))
	queue := crawl.NewQueue(pipeline.Run)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	config := api.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.ReadTimeout = *readTimeout

	handlers := api.NewHandlers(eng, store, queue, version, *days)
	server := api.NewServer(handlers, config)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
