package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/studyquiz/internal/api"
	"github.com/example/studyquiz/internal/bot"
	"github.com/example/studyquiz/internal/config"
	"github.com/example/studyquiz/internal/content"
	"github.com/example/studyquiz/internal/database"
	"github.com/example/studyquiz/internal/importer"
	"github.com/example/studyquiz/internal/quiz"
	"github.com/example/studyquiz/internal/scheduler"
	"github.com/example/studyquiz/internal/storage"
	"github.com/example/studyquiz/internal/summary"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	importPath := flag.String("import", "", "import questions from a .csv or .xlsx file and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBURL}); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	categories := database.NewCategoryRepository()
	questions := database.NewQuestionRepository()
	learningLog := database.NewLearningLogRepository()

	// images are served from imageDir only when stored locally
	var images content.ImageUploader
	var imageDir string
	if cfg.UseSupabase() {
		images, err = storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.ImageBucket)
	} else {
		var local *storage.Local
		if local, err = storage.NewLocal(cfg.ImageDir, cfg.ImageBaseURL); err == nil {
			images, imageDir = local, local.Dir()
		}
	}
	if err != nil {
		log.Fatalf("Failed to set up image storage: %v", err)
	}

	contentSvc := content.NewService(categories, questions, images)
	imp := importer.New(categories, questions)

	if *importPath != "" {
		res, err := imp.ImportFile(ctx, *importPath, importer.DefaultConfig())
		if err != nil {
			log.Fatalf("Failed to import %s: %v", *importPath, err)
		}
		for _, e := range res.Errors {
			log.Printf("Skipped %s", e)
		}
		return
	}

	summaries := summary.NewService(learningLog)
	dispatcher := quiz.NewDispatcher(learningLog, cfg.OutcomeTimeout)

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		h := api.NewHandler(contentSvc, questions, imp, summaries, learningLog, database.DB, cfg.UserID)
		srv = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: api.NewRouter(h, imageDir),
		}

		go func() {
			log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("listen: %s\n", err)
			}
		}()
	}

	var b *bot.Bot
	botDone := make(chan struct{})
	if cfg.BotToken != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		log.Printf("Authorized on account %s", botAPI.Self.UserName)

		b = bot.New(botAPI, bot.NewRouter(), bot.Services{
			Study:      quiz.NewModule(questions),
			Dispatcher: dispatcher,
			Content:    contentSvc,
			Importer:   imp,
			Summaries:  summaries,
			Reviews:    questions,
		}, cfg.UserID, cfg.NotifyChatID)

		go func() {
			b.Start(ctx)
			close(botDone)
		}()
	} else {
		close(botDone)
	}

	var sched *scheduler.Scheduler
	if cfg.EnableScheduler && b != nil {
		sched = scheduler.New(b, summaries, questions, cfg.UserID, cfg.SummaryHour, time.Local)
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	log.Println("Started. Press Ctrl+C to stop.")
	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	cancel()

	if b != nil {
		b.Stop()
	}
	<-botDone
	if sched != nil {
		sched.Stop()
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}

	// pending outcome writes finish before the database closes
	dispatcher.Close()
	log.Println("Stopped successfully")
}
