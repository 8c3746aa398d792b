package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"second-chance-agents/internal/agent"
	"second-chance-agents/internal/api"
	"second-chance-agents/internal/archive"
	"second-chance-agents/internal/config"
	"second-chance-agents/internal/eligibility"
	"second-chance-agents/internal/feed"
	"second-chance-agents/internal/handoff"
	"second-chance-agents/internal/ledger"
	"second-chance-agents/internal/mail"
	"second-chance-agents/internal/models"
	"second-chance-agents/internal/publish"
	"second-chance-agents/internal/ratelimit"
	"second-chance-agents/internal/schedule"
	"second-chance-agents/internal/telemetry"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: secondchance <command> [flags]

commands:
  scout        run the discovery agent loop
  caseworker   run the enrichment agent loop
  watchdog     run the daily reporting agent loop
  api          serve the read-only status API
  process      enrich a single event synchronously (-url required)
  stats        print ledger aggregates and exit
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	led, err := ledger.NewFileLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}

	switch os.Args[1] {
	case "scout":
		runScout(ctx, cfg, led)
	case "caseworker":
		runCaseworker(ctx, cfg, led)
	case "watchdog":
		runWatchdog(ctx, cfg, led)
	case "api":
		runAPI(ctx, cfg, led)
	case "process":
		runProcess(ctx, cfg, led, os.Args[2:])
	case "stats":
		runStats(ctx, led)
	default:
		usage()
	}
}

func redisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func loadEngine(cfg config.Config) *eligibility.Engine {
	rules := eligibility.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := eligibility.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatalf("load eligibility rules: %v", err)
		}
		rules = loaded
	}
	if len(cfg.TriggerPhrases) > 0 {
		rules.TriggerPhrases = cfg.TriggerPhrases
	}
	return eligibility.NewEngine(rules)
}

func serveMetrics(cfg config.Config) {
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}

func runScout(ctx context.Context, cfg config.Config, led ledger.Ledger) {
	serveMetrics(cfg)

	scout := &agent.Scout{
		Fetcher:    feed.NewRSSFetcher(cfg.FeedURL, cfg.FetchLimit, cfg.FetchTimeout),
		Ledger:     led,
		Sender:     handoff.NewRedisQueue(redisClient(cfg), cfg.HandoffList),
		StaleAfter: cfg.StaleAfter,
		SweepLimit: cfg.MaxSweepBatch,
	}
	runner := &schedule.Runner{
		Name:     "scout",
		Interval: cfg.ScoutInterval,
		Tick:     scout.Tick,
	}
	log.Printf("[scout] monitoring %s every %s", cfg.FeedURL, cfg.ScoutInterval)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("scout stopped: %v", err)
	}
}

func runCaseworker(ctx context.Context, cfg config.Config, led ledger.Ledger) {
	serveMetrics(cfg)

	worker := &agent.Caseworker{
		Ledger:        led,
		Engine:        loadEngine(cfg),
		Receiver:      handoff.NewRedisQueue(redisClient(cfg), cfg.HandoffList),
		Wait:          cfg.CaseworkerWait,
		Archiver:      newArchiver(ctx, cfg),
		Drafter:       newDrafter(cfg),
		Contact:       cfg.ContactEmail,
		StaleAfter:    cfg.StaleAfter,
		SweepInterval: cfg.SweepInterval,
		SweepLimit:    cfg.MaxSweepBatch,
	}
	log.Printf("[caseworker] waiting for handoffs on %s", cfg.HandoffList)
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("caseworker stopped: %v", err)
	}
}

func runWatchdog(ctx context.Context, cfg config.Config, led ledger.Ledger) {
	serveMetrics(cfg)

	publishers := []publish.Publisher{publish.NewLogPublisher(cfg.PublishMaxLen)}
	if cfg.PublishBearerToken != "" {
		publishers = append(publishers,
			publish.NewTwitterPublisher(cfg.PublishAPIURL, cfg.PublishBearerToken, cfg.PublishMaxLen, cfg.PublishTimeout))
	}
	watchdog := &agent.Watchdog{
		Ledger:     led,
		Publishers: publishers,
		Limiter:    ratelimit.NewTokenBucket(redisClient(cfg), cfg.PublishRateCap, cfg.PublishRateRefill, 24*time.Hour),
		MaxLen:     cfg.PublishMaxLen,
	}
	runner := &schedule.Runner{
		Name:     "watchdog",
		Interval: cfg.ReportInterval,
		Tick:     watchdog.Tick,
	}
	log.Printf("[watchdog] reporting every %s", cfg.ReportInterval)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("watchdog stopped: %v", err)
	}
}

func runAPI(ctx context.Context, cfg config.Config, led ledger.Ledger) {
	server := api.New(led)
	httpServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: server.Router(),
	}

	log.Printf("status api listening on :%s", cfg.APIPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}

// runProcess is the one-shot mode: insert (if absent) and enrich a single
// named event synchronously, without touching Redis.
func runProcess(ctx context.Context, cfg config.Config, led ledger.Ledger, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	rawURL := fs.String("url", "", "event URL to process")
	region := fs.String("region", "", "two-letter region code (extracted from text when empty)")
	text := fs.String("text", "", "narrative text for the event")
	_ = fs.Parse(args)
	if *rawURL == "" {
		log.Fatalf("process: -url is required")
	}

	key := feed.CanonicalKey(*rawURL)
	regionCode := *region
	if regionCode == "" {
		regionCode = feed.ExtractRegion(*text)
	}

	inserted, _, err := led.AppendIfAbsent(ctx, key, models.RecordFields{
		RegionCode: regionCode,
		Narrative:  *text,
	})
	if err != nil {
		log.Fatalf("process: append: %v", err)
	}
	if inserted {
		log.Printf("[process] inserted new pending case %s", key)
	}

	worker := &agent.Caseworker{
		Ledger:   led,
		Engine:   loadEngine(cfg),
		Archiver: newArchiver(ctx, cfg),
		Drafter:  newDrafter(cfg),
		Contact:  cfg.ContactEmail,
	}
	if err := worker.Process(ctx, key); err != nil {
		log.Fatalf("process: %v", err)
	}

	rec, err := led.Get(ctx, key)
	if err != nil {
		log.Fatalf("process: read back: %v", err)
	}
	fmt.Printf("%s: status=%s", rec.IdentityKey, rec.Status)
	if rec.Outcome != nil {
		fmt.Printf(" programs=%v amount=$%.2f", rec.Outcome.Programs, rec.Outcome.Amount)
	}
	fmt.Println()
}

func runStats(ctx context.Context, led ledger.Ledger) {
	stats, err := led.Aggregate(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("records: %d\n", stats.TotalRecords)
	fmt.Printf("unlocked: $%.2f\n", stats.TotalAmount)
	for status, n := range stats.ByStatus {
		fmt.Printf("  %s: %d\n", status, n)
	}
}

func newArchiver(ctx context.Context, cfg config.Config) *archive.Archiver {
	if cfg.ArchiveS3Bucket != "" {
		client, err := archive.NewS3Client(ctx)
		if err != nil {
			log.Fatalf("init s3 archive: %v", err)
		}
		return archive.NewArchiver(archive.NewS3Uploader(client, cfg.ArchiveS3Bucket))
	}
	if cfg.ArchiveDir != "" {
		return archive.NewArchiver(archive.NewLocalUploader(cfg.ArchiveDir))
	}
	return nil
}

func newDrafter(cfg config.Config) mail.Drafter {
	if cfg.OutboxDir == "" {
		return nil
	}
	return mail.NewOutboxDrafter(cfg.OutboxDir)
}
