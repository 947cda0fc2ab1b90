package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/config"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/gemini"
	"persona-studio-server/modules/common/httpx"
	"persona-studio-server/modules/common/logger"
	"persona-studio-server/modules/common/pgstore"
	redisClient "persona-studio-server/modules/common/redis"
	"persona-studio-server/modules/common/vertexai"
	"persona-studio-server/modules/content"
	"persona-studio-server/modules/ideas"
	"persona-studio-server/modules/notify"
	"persona-studio-server/modules/persona"
	"persona-studio-server/modules/realtime"
	"persona-studio-server/modules/reminder"
	"persona-studio-server/modules/video"
	"persona-studio-server/modules/worker"
)

var startTime = time.Now()

// openStore - STORE_DRIVER 에 맞는 Store 생성
func openStore(cfg *config.Config) (database.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := pgstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		log.Println("⚠️  Using in-memory store (data is lost on restart)")
		return database.NewMemoryStore(), nil
	default:
		c, err := database.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// textGenerator - VERTEXAI_PROJECT 가 있으면 Vertex AI, 아니면 Gemini API 키
func textGenerator(ctx context.Context, cfg *config.Config) ideas.TextGenerator {
	if cfg.VertexAIProject != "" {
		client, err := vertexai.NewClient(ctx, cfg.VertexAIProject, cfg.VertexAILocation, cfg.GeminiModel)
		if err == nil {
			return client
		}
		log.Printf("⚠️  Vertex AI unavailable, falling back to Gemini API keys: %v", err)
	}
	return gemini.NewClient(cfg.GeminiAPIKeys, cfg.GeminiModel)
}

// healthCheck - 헬스체크 엔드포인트
func healthCheck(cfg *config.Config, queueEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"service":   "persona-studio-server",
			"store":     cfg.StoreDriver,
			"queue":     queueEnabled,
			"uptime":    time.Since(startTime).Round(time.Second).String(),
			"timestamp": time.Now().UTC(),
		})
	}
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize store: %v", err)
	}

	personas := persona.LoadRegistry(os.Getenv)

	var email *notify.EmailChannel
	if cfg.SMTPEnabled() {
		email = notify.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		log.Printf("📧 Email notifications enabled via %s", cfg.SMTPHost)
	}
	dispatcher := notify.NewDispatcher(store, notify.Options{
		AdminWebhook: cfg.AdminNotifyWebhook,
		TeamWebhook:  cfg.TeamNotifyWebhook,
		Timeout:      cfg.NotifyTimeout,
		Email:        email,
	})

	// 캘린더 실시간 알림
	hub := realtime.NewHub()
	hub.StartCleanupRoutine(ctx.Done())

	contentService := content.NewService(store, dispatcher, personas, hub)
	videoService := video.NewService(store, personas, hub, video.Options{
		VendorURL:   cfg.VideoVendorURL,
		APIKey:      cfg.VideoVendorAPIKey,
		Timeout:     cfg.VideoVendorTimeout,
		CallbackURL: cfg.VideoCallbackURL,
	})
	reminderService := reminder.NewService(store, dispatcher)
	ideasService := ideas.NewService(personas, contentService, textGenerator(ctx, cfg), ideas.Options{
		IdeasTimeout:  cfg.IdeasTimeout,
		ScriptTimeout: cfg.ScriptTimeout,
	})

	// 라우터 설정
	r := mux.NewRouter()

	// 인증 없는 라우트
	var queue worker.Queue
	if cfg.RedisEnabled {
		if rdb := redisClient.Connect(ctx, cfg); rdb != nil {
			queue = worker.NewRedisQueue(rdb)
		} else {
			log.Println("⚠️  Redis unavailable, /api/reminders/run disabled (use /api/reminders/run-now)")
		}
	}

	r.HandleFunc("/", healthCheck(cfg, queue != nil)).Methods("GET")
	r.HandleFunc("/health", healthCheck(cfg, queue != nil)).Methods("GET")
	r.HandleFunc("/metrics", hub.MetricsHandler).Methods("GET")

	videoHandler := video.NewHandler(videoService, cfg.VideoCallbackSecret)
	videoHandler.RegisterCallback(r)

	// 인증이 필요한 라우트
	api := r.NewRoute().Subrouter()
	api.Use(auth.Middleware(cfg.SupabaseJWTSecret, cfg.AuthDisabled, httpx.WriteError))

	// 브라우저 WebSocket 은 ?access_token= 으로 인증
	api.HandleFunc("/ws", hub.ServeWS)
	content.NewContentHandler(contentService).Register(api)
	videoHandler.RegisterRoutes(api)
	reminder.NewHandler(reminderService).RegisterRoutes(api)
	ideas.NewHandler(ideasService).RegisterRoutes(api)
	personas.RegisterRoutes(api)

	// Redis Queue Worker 시작 (백그라운드)
	if queue != nil {
		w := worker.NewWorker(queue)
		w.Handle(worker.KindReminder, func(ctx context.Context, jobID string) error {
			_, err := reminderService.SendReminders(ctx)
			return err
		})
		worker.NewEnqueueHandler(queue, w).RegisterRoutes(api)
		worker.NewCancelHandler(queue).RegisterRoutes(api)
		go w.Run(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.CORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️ Graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("🚀 Persona Studio Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws?influencer=<key>&access_token=<jwt>", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	// 서버 시작
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
	log.Println("👋 Server stopped")
}
