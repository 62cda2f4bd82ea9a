package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/jagalabs/scamguard/pkg/classifier"
	"github.com/jagalabs/scamguard/pkg/cloud"
	"github.com/jagalabs/scamguard/pkg/config"
	"github.com/jagalabs/scamguard/pkg/dedupe"
	"github.com/jagalabs/scamguard/pkg/exemplars"
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/store"
	"github.com/jagalabs/scamguard/pkg/store/memstore"
	"github.com/jagalabs/scamguard/pkg/store/pgstore"
	"github.com/jagalabs/scamguard/pkg/telemetry"
	"github.com/jagalabs/scamguard/pkg/triage"
)

const Version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServer()
	case "triage":
		if len(os.Args) < 3 {
			fmt.Println("Usage: scamguard triage <text>")
			os.Exit(1)
		}
		runCLITriage(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("ScamGuard v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("ScamGuard v%s - multi-stage scam triage gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  scamguard serve           Start the HTTP gateway")
	fmt.Println("  scamguard triage <text>   Triage one message from the command line")
	fmt.Println("  scamguard version         Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  SCAMGUARD_MODEL_DIR        Directory with the on-device model artifacts")
	fmt.Println("  SCAMGUARD_LLM_API_KEY      API key for cloud confirmation")
	fmt.Println("  SCAMGUARD_LLM_PROVIDER     Provider: ollama, openrouter, groq, cerebras")
	fmt.Println("  SCAMGUARD_DATABASE_URL     PostgreSQL URL (default: in-memory store)")
	fmt.Println("  SCAMGUARD_REDIS_ADDR       Redis address for shared dedup (default: local LRU)")
}

// buildService wires the pipeline from configuration. Every optional stage
// degrades with a logged reason instead of failing startup.
func buildService(ctx context.Context, cfg *config.Config) (*triage.Service, store.Store, error) {
	// Persistent store: PostgreSQL when configured, memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		st = pg
		log.Println("✓ Alert store: PostgreSQL")
	} else {
		st = memstore.New()
		log.Println("○ Alert store: in-memory (set SCAMGUARD_DATABASE_URL for persistence)")
	}

	// Dedup cache: Redis when configured, in-process LRU otherwise.
	var cache dedupe.Cache
	if cfg.RedisAddr != "" {
		rc, err := dedupe.NewRedisCache(cfg.RedisAddr, cfg.DedupWindow)
		if err != nil {
			log.Printf("○ Dedup cache: Redis unreachable, falling back to LRU: %v", err)
			cache = dedupe.NewLRUCache(cfg.DedupCapacity, cfg.DedupWindow)
		} else {
			cache = rc
			log.Println("✓ Dedup cache: Redis")
		}
	} else {
		cache = dedupe.NewLRUCache(cfg.DedupCapacity, cfg.DedupWindow)
		log.Println("✓ Dedup cache: in-process LRU")
	}

	// On-device classifier, heuristic-only on failure.
	neural := classifier.NewClassifierWithFallback(classifier.Options{
		ModelDir:        cfg.ModelDir,
		OnnxLibraryPath: cfg.OnnxLibraryPath,
	})
	if neural.IsReady() {
		log.Println("✓ Neural classifier enabled (ONNX)")
	} else {
		log.Println("○ Neural classifier disabled (heuristic-only scoring)")
	}

	// Optional exemplar index for confirmation context.
	var index triage.SimilarityIndex
	if idx := exemplars.NewIndexWithFallback(ctx, cfg.EmbedURL, cfg.EmbedModel); idx != nil {
		index = idx
		log.Printf("✓ Exemplar index enabled (%d known scams)", idx.Count())
	} else {
		log.Println("○ Exemplar index disabled (no embedding endpoint)")
	}

	// Cloud confirmation, optional.
	var confirmer triage.Confirmer
	if cfg.Stage3Enabled() {
		client, err := cloud.NewClient(cloud.ClientConfig{
			Provider:      cloud.Provider(cfg.LLMProvider),
			APIKey:        cfg.LLMAPIKey,
			Model:         cfg.LLMModel,
			BaseURL:       cfg.LLMBaseURL,
			Timeout:       cfg.LLMTimeout,
			MaxConcurrent: cfg.MaxConcurrent,
		})
		if err != nil {
			log.Printf("○ Cloud confirmation disabled: %v", err)
		} else {
			confirmer = client
			log.Printf("✓ Cloud confirmation enabled (provider: %s)", cfg.LLMProvider)
		}
	} else {
		log.Println("○ Cloud confirmation disabled (no API key)")
	}

	policy, err := fusion.PolicyFromName(cfg.FusionPolicy)
	if err != nil {
		return nil, nil, err
	}
	gate, err := fusion.NewGate(cfg.AlertThreshold, cfg.HighThreshold)
	if err != nil {
		return nil, nil, err
	}
	failurePolicy, err := cloud.PolicyFromName(cfg.Stage3Policy)
	if err != nil {
		return nil, nil, err
	}

	engine := triage.NewEngine(triage.Options{
		Neural:        neural,
		Policy:        policy,
		Gate:          gate,
		Confirmer:     confirmer,
		FailurePolicy: failurePolicy,
		Exemplars:     index,
		Dedupe:        cache,
		Language:      cfg.Language,
		ExemplarK:     cfg.ExemplarK,
	})

	notifier := triage.NotifierFunc(func(_ context.Context, alertID, headline string) {
		// Presenter integration point: log-only in the OSS gateway.
		log.Printf("[ALERT] %s: %s", alertID, headline)
		telemetry.GlobalClient.Track("alert_created", map[string]interface{}{"id": alertID})
	})

	return triage.NewService(engine, st, notifier), st, nil
}

func runServer() {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	ctx := context.Background()
	svc, st, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "ScamGuard",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	// Full pipeline: dedupe, both stages, confirmation, alert persistence.
	app.Post("/v1/triage", func(c fiber.Ctx) error {
		var req struct {
			Text         string `json:"text"`
			Origin       string `json:"origin"`
			Sender       string `json:"sender"`
			KeepFullText bool   `json:"keep_full_text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}

		out, err := svc.Process(c.Context(), triage.Input{
			Text:         req.Text,
			Origin:       parseOrigin(req.Origin),
			SenderLabel:  req.Sender,
			KeepFullText: req.KeepFullText,
		})
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"result":   out.Result,
			"alert_id": out.AlertID,
		})
	})

	// Score-only preview: no dedup insert, no confirmation, no alert.
	app.Post("/v1/scan", func(c fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		r, err := svc.Engine().Scan(c.Context(), req.Text)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(r)
	})

	app.Get("/v1/alerts/:id", func(c fiber.Ctx) error {
		a, err := st.Get(c.Context(), c.Params("id"))
		if err != nil {
			if err == store.ErrNotFound {
				return c.Status(404).JSON(fiber.Map{"error": "alert not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(a)
	})

	app.Delete("/v1/alerts/:id", func(c fiber.Ctx) error {
		if err := st.Delete(c.Context(), c.Params("id")); err != nil {
			if err == store.ErrNotFound {
				return c.Status(404).JSON(fiber.Map{"error": "alert not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Get("/v1/stats", func(c fiber.Ctx) error {
		since := time.Now().Add(-24 * time.Hour)
		if s := c.Query("since"); s != "" {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "since must be RFC3339"})
			}
			since = parsed
		}

		total, err := st.CountSince(c.Context(), since)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		categories, err := st.CategoryCounts(c.Context(), since)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		tactics, err := st.TacticCounts(c.Context(), since)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"since":      since,
			"total":      total,
			"categories": categories,
			"tactics":    tactics,
		})
	})

	log.Printf("ScamGuard gateway starting on %s", cfg.ListenAddr)
	log.Printf("Endpoints:")
	log.Printf("  GET    /health          - Health check")
	log.Printf("  POST   /v1/triage       - Full triage (may create an alert)")
	log.Printf("  POST   /v1/scan         - Score-only preview")
	log.Printf("  GET    /v1/alerts/:id   - Fetch an alert")
	log.Printf("  DELETE /v1/alerts/:id   - Delete an alert")
	log.Printf("  GET    /v1/stats        - Aggregates since a timestamp")

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

func parseOrigin(s string) store.Origin {
	switch s {
	case string(store.OriginMessageListener):
		return store.OriginMessageListener
	case string(store.OriginImageScan):
		return store.OriginImageScan
	default:
		return store.OriginManual
	}
}

func runCLITriage(text string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	ctx := context.Background()
	svc, _, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	out, err := svc.Process(ctx, triage.Input{Text: text, Origin: store.OriginManual})
	if err != nil {
		log.Fatalf("triage failed: %v", err)
	}

	pretty, _ := json.MarshalIndent(fiber.Map{
		"result":   out.Result,
		"alert_id": out.AlertID,
	}, "", "  ")
	fmt.Println(string(pretty))
}
