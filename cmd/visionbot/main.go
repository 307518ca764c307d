// Command visionbot serves image analysis, classification and background removal over Telegram.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vision-lab/internal/app"
	"vision-lab/internal/customvision"
	"vision-lab/internal/httpserver"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/store"
	"vision-lab/internal/telegram"
)

const banner = "vision bot"

func main() {
	retention := flag.Duration("journal-retention", 30*24*time.Hour, "drop journal rows older than this at startup; 0 keeps everything")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, "visionbot")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	defer a.Close()
	cfg := a.Config

	if err := cfg.Telegram.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("authorized as @%s", bot.Self.UserName)

	r := &telegram.Router{
		Bot:         bot,
		HTTP:        &http.Client{Timeout: cfg.HTTPTimeout},
		MaxImageDim: cfg.MaxImageDim,
	}
	if err := cfg.Vision.Validate(); err == nil {
		r.Analyzer = imageanalysis.NewAnalyzer(a.Invoker, cfg.Vision.Endpoint, cfg.Vision.Key)
		r.Segmenter = imageanalysis.NewSegmenter(a.Invoker, cfg.Vision.Endpoint, cfg.Vision.Key)
	} else {
		log.Printf("analysis disabled: %v", err)
	}
	if cv := cfg.CustomVision; cv.Validate() == nil {
		r.Classifier = customvision.NewPredictor(a.Invoker, cv.PredictionEndpoint, cv.PredictionKey, cv.ProjectID, cv.PublishedModelName)
	} else {
		log.Printf("classification disabled: %v", cv.Validate())
	}

	var health httpserver.HealthFunc
	if a.DB != nil {
		health = a.DB.PingContext
		repo := store.NewInvocationRepo(a.DB)
		r.Journal = repo
		if *retention > 0 {
			n, err := repo.PurgeOlderThan(ctx, *retention)
			if err != nil {
				log.Printf("journal purge: %v", err)
			} else if n > 0 {
				log.Printf("journal purge: %d rows older than %v", n, *retention)
			}
		}
	}
	mux := httpserver.NewMux(banner, health)
	addr := net.JoinHostPort("0.0.0.0", cfg.Telegram.Port)

	if webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL); webhookURL != "" {
		err = startWebhookMode(ctx, addr, mux, bot, r, webhookURL)
	} else {
		err = startPollingMode(ctx, addr, mux, bot, r)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func startWebhookMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) error {
	// the path is derived from the token so it is not guessable
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// answer Telegram at once; the vision calls can outlast its webhook timeout
		go r.HandleUpdate(ctx, *upd)
	})
	log.Printf("webhook listening on %s%s", addr, path)
	return httpserver.Serve(ctx, addr, mux)
}

func startPollingMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router) error {
	// the health server is optional in polling mode
	go func() {
		if err := httpserver.Serve(ctx, addr, mux); err != nil {
			log.Printf("health server: %v", err)
		}
	}()
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("delete webhook: %v", err)
	}
	runPolling(ctx, bot, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
	return nil
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return time.Second
}

// updateSource is the part of *tgbotapi.BotAPI the polling loop needs.
type updateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

func runPolling(ctx context.Context, bot updateSource, handle func(tgbotapi.Update)) {
	offset := 0
	const (
		baseDelay = time.Second
		maxDelay  = 15 * time.Second
	)
	for {
		if ctx.Err() != nil {
			log.Printf("polling: stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Printf("polling error: %v; retry in %v", err, d)
			sleep(ctx, d)
			continue
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash is the token's 64-bit FNV-1a as 16 hex digits.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
