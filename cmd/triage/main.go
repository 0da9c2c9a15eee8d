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
	"github.com/google/uuid"

	"github.com/fraud165/triage/pkg/config"
	"github.com/fraud165/triage/pkg/geo"
	"github.com/fraud165/triage/pkg/keywords"
	"github.com/fraud165/triage/pkg/linebot"
	"github.com/fraud165/triage/pkg/oracle"
	"github.com/fraud165/triage/pkg/retrieval"
	"github.com/fraud165/triage/pkg/session"
	"github.com/fraud165/triage/pkg/stats"
	"github.com/fraud165/triage/pkg/storage"
	"github.com/fraud165/triage/pkg/triage"
)

const Version = "0.1.0"

const userAgent = "fraud165-triage/" + Version

// Service holds the assembled pipeline and its collaborators. Optional
// pieces (sinks, retrieval, LINE) degrade to nil when unconfigured.
type Service struct {
	cfg       *config.Config
	engine    *triage.Engine
	store     session.Store
	sinks     storage.Fanout
	line      *linebot.Handler
	retriever *retrieval.Store
	csvPath   string
}

// NewService wires every component from the configuration.
func NewService(cfg *config.Config) *Service {
	tables := keywords.Load(cfg.KeywordsPath)
	client := oracle.NewOllamaClient(cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleTimeout)
	store := session.NewStore(context.Background(), cfg)

	var sinks storage.Fanout
	if cfg.CSVLogPath != "" {
		if sink, err := storage.NewCSVSink(cfg.CSVLogPath); err != nil {
			log.Printf("○ CSV sink disabled (init failed: %v)", err)
		} else {
			sinks = append(sinks, sink)
			log.Println("✓ CSV sink enabled")
		}
	} else {
		log.Println("○ CSV sink disabled (no path configured)")
	}
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sink, err := storage.NewPostgresSink(ctx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			log.Printf("○ Postgres sink disabled (init failed: %v)", err)
		} else {
			sinks = append(sinks, sink)
			log.Println("✓ Postgres sink enabled")
		}
	} else {
		log.Println("○ Postgres sink disabled (no DSN configured)")
	}

	var retriever *retrieval.Store
	if cfg.CaseDataPath != "" {
		r, err := retrieval.NewStore(cfg.OracleBaseURL, cfg.EmbedModel)
		if err != nil {
			log.Printf("○ Case retrieval disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := r.LoadCases(ctx, cfg.CaseDataPath); err != nil {
				log.Printf("○ Case retrieval disabled (load failed: %v)", err)
			} else {
				retriever = r
				log.Println("✓ Case retrieval enabled (chromem-go + Ollama embeddings)")
			}
			cancel()
		}
	} else {
		log.Println("○ Case retrieval disabled (no case data configured)")
	}

	var sinkIface storage.Sink
	if len(sinks) > 0 {
		sinkIface = sinks
	}
	engine := triage.NewEngine(cfg, tables, client, store, triage.EngineOptions{
		Sinks:     sinkIface,
		Geocoder:  geo.NewNominatimReverser(userAgent),
		Retriever: retriever,
	})

	var line *linebot.Handler
	if cfg.LineChannelSecret != "" && cfg.LineChannelToken != "" {
		line = linebot.NewHandler(cfg.LineChannelSecret, cfg.LineChannelToken, cfg.LineVerifyUserID, client, retriever)
		log.Println("✓ LINE webhook enabled")
	} else {
		log.Println("○ LINE webhook disabled (no channel credentials)")
	}

	return &Service{
		cfg:       cfg,
		engine:    engine,
		store:     store,
		sinks:     sinks,
		line:      line,
		retriever: retriever,
		csvPath:   cfg.CSVLogPath,
	}
}

// Close releases the service's external connections.
func (s *Service) Close() {
	if err := s.store.Close(); err != nil {
		log.Printf("[Shutdown] session store close: %v", err)
	}
	if err := s.sinks.Close(); err != nil {
		log.Printf("[Shutdown] sink close: %v", err)
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		addr := config.GetEnv("TRIAGE_LISTEN_ADDR", ":8080")
		if len(os.Args) > 2 {
			addr = ":" + strings.TrimPrefix(os.Args[2], ":")
		}
		runHTTPServer(addr)
	case "ask":
		if len(os.Args) < 3 {
			fmt.Println("Usage: triage ask <text>")
			os.Exit(1)
		}
		runCLIAsk(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("triage v%s\n", Version)
		fmt.Println("Conversational fraud-triage assistant")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("triage v%s - conversational fraud-triage assistant\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  triage serve [port]   Start the HTTP server (default: 8080)")
	fmt.Println("  triage ask <text>     Analyze one report from the command line")
	fmt.Println("  triage version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  triage serve 8080")
	fmt.Println("  triage ask \"有人自稱檢察官要我把錢轉到監管帳戶\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  TRIAGE_ORACLE_URL        Ollama server URL (default: http://localhost:11434)")
	fmt.Println("  TRIAGE_ORACLE_MODEL      Chat/classification model")
	fmt.Println("  TRIAGE_SESSION_BACKEND   memory | redis")
	fmt.Println("  TRIAGE_CASE_DATA         JSONL fraud case file for retrieval")
	fmt.Println("  LINE_CHANNEL_SECRET      LINE webhook channel secret")
}

func runHTTPServer(addr string) {
	cfg := config.NewDefaultConfig()
	svc := NewService(cfg)
	defer svc.Close()

	app := fiber.New(fiber.Config{
		AppName: "triage",
	})

	app.Get("/api/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":           "healthy",
			"version":          Version,
			"collection_ready": svc.retriever != nil && svc.retriever.IsReady(),
			"timestamp":        time.Now().Format("2006-01-02 15:04:05"),
		})
	})

	app.Post("/api/ask", func(c fiber.Ctx) error {
		var req struct {
			Question  string   `json:"question"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"answer": "⚠️ 請輸入問題。"})
		}

		reqID := uuid.NewString()
		sessionID := sessionIDFrom(c)
		log.Printf("[Ask] request=%s session=%s input=%.50s", reqID, sessionID, req.Question)

		result, err := svc.engine.Ask(c.Context(), triage.Request{
			SessionID: sessionID,
			Question:  req.Question,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"answer": result.Answer})
		}
		return c.JSON(result)
	})

	app.Get("/api/memory", func(c fiber.Ctx) error {
		mem := svc.engine.Memory(c.Context(), sessionIDFrom(c))
		if mem.History == nil {
			mem.History = []oracle.Turn{}
		}
		return c.JSON(mem)
	})

	app.Post("/api/memory/clear", func(c fiber.Ctx) error {
		msg, ok := svc.engine.ClearMemory(c.Context(), sessionIDFrom(c))
		if !ok {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": msg})
		}
		return c.JSON(fiber.Map{"message": msg})
	})

	app.Get("/api/fraud-stats", func(c fiber.Ctx) error {
		report, err := stats.Aggregate(svc.csvPath)
		if err != nil {
			log.Printf("[Stats] aggregate failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats unavailable"})
		}
		return c.JSON(report)
	})

	lineWebhook := func(c fiber.Ctx) error {
		if svc.line == nil {
			return c.Status(fiber.StatusNotFound).SendString("LINE webhook not configured")
		}
		if svc.line.HandleWebhook(c.Context(), c.Body(), c.Get("X-Line-Signature")) {
			return c.SendString("OK")
		}
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request")
	}
	app.Post("/line/webhook", lineWebhook)
	// alias kept for channels configured with the bare path
	app.Post("/webhook", lineWebhook)

	log.Printf("[STARTUP] triage v%s listening on %s", Version, addr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /api/health        - Health check")
	log.Printf("  POST /api/ask           - Analyze a report")
	log.Printf("  GET  /api/memory        - Read session memory")
	log.Printf("  POST /api/memory/clear  - Clear session memory")
	log.Printf("  GET  /api/fraud-stats   - Dashboard statistics")
	log.Printf("  POST /line/webhook      - LINE messaging webhook")

	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// sessionIDFrom resolves the session key: an explicit header when the
// caller provides one, the peer address otherwise.
func sessionIDFrom(c fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get("X-Session-Id")); id != "" {
		return id
	}
	return c.IP()
}

func runCLIAsk(text string) {
	cfg := config.NewLocalConfig()
	svc := NewService(cfg)
	defer svc.Close()

	result, err := svc.engine.Ask(context.Background(), triage.Request{
		SessionID: "cli",
		Question:  text,
	})
	if err != nil {
		fmt.Println(result.Answer)
		os.Exit(1)
	}
	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}
