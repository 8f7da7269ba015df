package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/thecloudcode/newsletter/internal/collector"
	"github.com/thecloudcode/newsletter/internal/composer"
	"github.com/thecloudcode/newsletter/internal/config"
	"github.com/thecloudcode/newsletter/internal/curation"
	"github.com/thecloudcode/newsletter/internal/delivery"
	"github.com/thecloudcode/newsletter/internal/newsletter"
	"github.com/thecloudcode/newsletter/internal/reporter"
	"github.com/thecloudcode/newsletter/internal/scheduler"
	"github.com/thecloudcode/newsletter/internal/storage"
	"github.com/thecloudcode/newsletter/internal/textgen"
)

func main() {
	cfg := config.Get()

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		log.Printf("[ERROR] failed to connect to db: %v", err)
		return
	}
	defer db.Close()

	var (
		articleStorage    = storage.NewArticleStorage(db)
		subscriberStorage = storage.NewSubscriberStorage(db)
	)

	var generator textgen.Generator
	switch cfg.AIType {
	case "ollama":
		if cfg.AIBaseURL == "" {
			log.Printf("[ERROR] ai_base_url is required when ai_type is \"ollama\"")
			return
		}
		generator = textgen.NewOllamaClient(cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
		log.Printf("[INFO] using Ollama text generator (model: %s)", cfg.AIModel)
	default:
		if cfg.AIKey == "" {
			log.Printf("[ERROR] ai_key is required when ai_type is \"openai\"")
			return
		}
		generator = textgen.NewOpenAIClient(cfg.AIBaseURL, cfg.AIKey, cfg.AIModel, cfg.AITimeout)
		log.Printf("[INFO] using OpenAI-compatible text generator (model: %s)", cfg.AIModel)
	}

	var sender delivery.Sender
	switch cfg.MailProvider {
	case "smtp":
		sender, err = delivery.NewSMTPSender(delivery.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		})
		if err != nil {
			log.Printf("[ERROR] failed to create smtp sender: %v", err)
			return
		}
		log.Printf("[INFO] using SMTP mail transport (%s:%d)", cfg.SMTPHost, cfg.SMTPPort)
	default:
		sender = delivery.NewMailerSendSender(delivery.MailerSendConfig{
			Token:     cfg.MailerSendToken,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
			Enabled:   cfg.MailerSendEnabled,
		})
		log.Printf("[INFO] using MailerSend mail transport (enabled: %t)", cfg.MailerSendEnabled)
	}

	var rep *reporter.Reporter
	if cfg.TelegramBotToken != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("[WARN] failed to create telegram reporter: %v", err)
		} else {
			rep = reporter.New(botAPI, cfg.TelegramAdminChatID)
		}
	}

	var (
		coll = collector.New(articleStorage, collector.Config{
			Sources:     cfg.SourceList(),
			PageTimeout: cfg.PageFetchTimeout,
			UserAgent:   cfg.UserAgent,
		})
		curator = curation.New(articleStorage, generator, curation.DefaultConfig(cfg.CurationDelay))
		comp    = composer.New(generator)
		news    = newsletter.New(articleStorage, subscriberStorage, curator, comp, sender, rep, newsletter.Config{
			BatchSize:   cfg.BatchSize,
			SendDelay:   cfg.SendDelay,
			BatchPause:  cfg.BatchPause,
			SiteBaseURL: cfg.SiteBaseURL,
		})
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New()
	jobs := []scheduler.Job{
		{Name: "collect", Spec: cfg.CollectSpec, Run: func(ctx context.Context) {
			n := coll.CollectFromAllSources(ctx)
			rep.Notify(fmt.Sprintf("collection run finished: %d new articles", n))
		}},
		{Name: "daily-digest", Spec: cfg.DailySpec, Run: func(ctx context.Context) {
			if _, err := news.RunDigestSend(ctx, 24*time.Hour, cfg.DailySubject); err != nil {
				log.Printf("[ERROR] daily digest run: %v", err)
			}
		}},
		{Name: "weekly-digest", Spec: cfg.WeeklySpec, Run: func(ctx context.Context) {
			if _, err := news.RunDigestSend(ctx, 7*24*time.Hour, cfg.WeeklySubject); err != nil {
				log.Printf("[ERROR] weekly digest run: %v", err)
			}
		}},
	}
	for _, job := range jobs {
		if err := sched.Add(ctx, job); err != nil {
			log.Printf("[ERROR] %v", err)
			return
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collect", func(w http.ResponseWriter, r *http.Request) {
		n := coll.CollectFromAllSources(r.Context())
		fmt.Fprintf(w, "collected %d new articles\n", n)
	})
	mux.HandleFunc("POST /send", func(w http.ResponseWriter, r *http.Request) {
		sent, err := news.RunDigestSend(r.Context(), 24*time.Hour, cfg.DailySubject)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "sent %d emails\n", sent)
	})

	go func() {
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("[ERROR] failed to run http server: %v", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] failed to run scheduler: %v", err)
			return
		}
		log.Printf("[INFO] scheduler stopped")
	}
}
