// Package telegram serves the vision services to Telegram chats.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vision-lab/internal/customvision"
	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/report"
	"vision-lab/internal/store"
	"vision-lab/internal/util"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Analyzer interface {
	AnalyzeImage(ctx context.Context, img []byte, opts imageanalysis.Options) (*imageanalysis.Result, error)
	AnalyzeURL(ctx context.Context, imageURL string, opts imageanalysis.Options) (*imageanalysis.Result, error)
}

type Classifier interface {
	ClassifyImage(ctx context.Context, img []byte) ([]customvision.Prediction, error)
	ClassifyURL(ctx context.Context, imageURL string) ([]customvision.Prediction, error)
}

type Segmenter interface {
	SegmentImage(ctx context.Context, img []byte, mode imageanalysis.Mode) ([]byte, error)
	SegmentURL(ctx context.Context, imageURL string, mode imageanalysis.Mode) ([]byte, error)
}

// Journal lists recently journaled calls.
type Journal interface {
	Recent(ctx context.Context, n int) ([]store.Entry, error)
}

// Router dispatches updates. Services left nil are reported as not configured.
type Router struct {
	Bot        Bot
	Analyzer   Analyzer
	Classifier Classifier
	Segmenter  Segmenter
	Journal    Journal // nil unless the journal is enabled

	// HTTP downloads photos from Telegram; http.DefaultClient when nil.
	HTTP        *http.Client
	MaxImageDim int

	modes sync.Map // chatID -> Mode
}

const maxReplyLen = 3900

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(ctx, msg)
		return
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		r.acceptFile(ctx, cid, msg.Document.FileID)
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if urls := findImageURLs(text); len(urls) > 0 {
		for _, u := range urls {
			r.runURL(ctx, cid, u)
		}
		return
	}
	if text != "" {
		r.send(cid, "Send a photo or an image link. /start shows the commands.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo or an image link and I will run it through the current mode.\n"+
			"Commands: /health, /journal [n], /mode "+strings.Join(modeNames(), "|"))
	case "health":
		r.send(cid, "✅ OK")
	case "journal":
		r.journal(ctx, cid, strings.TrimSpace(msg.CommandArguments()))
	case "mode":
		arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
		if arg == "" {
			r.send(cid, "Current mode: "+string(r.mode(cid))+"\nUsage: /mode "+strings.Join(modeNames(), "|"))
			return
		}
		m, err := ParseMode(arg)
		if err != nil {
			r.send(cid, err.Error())
			return
		}
		r.modes.Store(cid, m)
		r.send(cid, "✅ Mode: "+string(m))
	default:
		r.send(cid, "Unknown command")
	}
}

const journalMax = 50

func (r *Router) journal(ctx context.Context, cid int64, arg string) {
	if r.Journal == nil {
		r.send(cid, notConfigured("journal"))
		return
	}
	n := 10
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			r.send(cid, "Usage: /journal [n]")
			return
		}
		n = min(v, journalMax)
	}
	entries, err := r.Journal.Recent(ctx, n)
	if err != nil {
		log.Printf("journal chat=%d: %v", cid, err)
		r.send(cid, "Error: journal is unavailable")
		return
	}
	var b bytes.Buffer
	report.Journal(&b, entries)
	r.sendResult(cid, b.String())
}

func (r *Router) mode(chatID int64) Mode {
	if v, ok := r.modes.Load(chatID); ok {
		if m, _ := v.(Mode); m != "" {
			return m
		}
	}
	return ModeAnalyze
}

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptFile(ctx, msg.Chat.ID, ph.FileID)
}

func (r *Router) acceptFile(ctx context.Context, cid int64, fileID string) {
	link, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendFault(cid, "telegram file", err)
		return
	}
	img, _, err := util.Download(ctx, r.HTTP, link)
	if err != nil {
		// The link embeds the bot token; never echo it.
		log.Printf("telegram download chat=%d: %v", cid, err)
		r.send(cid, "Error: could not download the photo from Telegram")
		return
	}
	if small, err := util.DownscaleBytes(img, r.MaxImageDim); err == nil {
		img = small
	} else {
		log.Printf("downscale chat=%d: %v", cid, err)
	}
	r.run(ctx, cid, source{img: img})
}

func (r *Router) runURL(ctx context.Context, cid int64, u string) {
	r.run(ctx, cid, source{url: u})
}

// source is either uploaded bytes or a link the service fetches itself.
type source struct {
	img []byte
	url string
}

func (s source) label() string {
	if s.url != "" {
		return s.url
	}
	return "photo"
}

func (r *Router) run(ctx context.Context, cid int64, src source) {
	switch m := r.mode(cid); m {
	case ModeAnalyze:
		r.analyze(ctx, cid, src)
	case ModeClassify:
		r.classify(ctx, cid, src)
	case ModeBackground, ModeMatte:
		r.segment(ctx, cid, src, m)
	}
}

var analyzeOptions = imageanalysis.Options{
	Features: []imageanalysis.Feature{
		imageanalysis.FeatureCaption, imageanalysis.FeatureTags,
		imageanalysis.FeatureObjects, imageanalysis.FeaturePeople,
	},
	GenderNeutralCaption: true,
}

func (r *Router) analyze(ctx context.Context, cid int64, src source) {
	if r.Analyzer == nil {
		r.send(cid, notConfigured("image analysis"))
		return
	}
	var (
		res *imageanalysis.Result
		err error
	)
	if src.url != "" {
		res, err = r.Analyzer.AnalyzeURL(ctx, src.url, analyzeOptions)
	} else {
		res, err = r.Analyzer.AnalyzeImage(ctx, src.img, analyzeOptions)
	}
	if err != nil {
		r.sendFault(cid, src.label(), err)
		return
	}
	var b bytes.Buffer
	report.Analysis(&b, res)
	if b.Len() == 0 {
		b.WriteString("Nothing recognised.")
	}
	r.sendResult(cid, b.String())
}

func (r *Router) classify(ctx context.Context, cid int64, src source) {
	if r.Classifier == nil {
		r.send(cid, notConfigured("custom vision"))
		return
	}
	var (
		preds []customvision.Prediction
		err   error
	)
	if src.url != "" {
		preds, err = r.Classifier.ClassifyURL(ctx, src.url)
	} else {
		preds, err = r.Classifier.ClassifyImage(ctx, src.img)
	}
	if err != nil {
		r.sendFault(cid, src.label(), err)
		return
	}
	var b bytes.Buffer
	report.Predictions(&b, preds)
	if b.Len() == 0 {
		b.WriteString("No predictions.")
	}
	r.sendResult(cid, b.String())
}

func (r *Router) segment(ctx context.Context, cid int64, src source, m Mode) {
	if r.Segmenter == nil {
		r.send(cid, notConfigured("image analysis"))
		return
	}
	mode := imageanalysis.ModeBackgroundRemoval
	if m == ModeMatte {
		mode = imageanalysis.ModeForegroundMatting
	}
	name := mode.OutputName()
	var (
		png []byte
		err error
	)
	if src.url != "" {
		png, err = r.Segmenter.SegmentURL(ctx, src.url, mode)
	} else {
		png, err = r.Segmenter.SegmentImage(ctx, src.img, mode)
	}
	if err != nil {
		r.sendFault(cid, src.label(), err)
		return
	}
	doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{Name: name, Bytes: png})
	if _, err := r.Bot.Send(doc); err != nil {
		log.Printf("send document chat=%d: %v", cid, err)
	}
}

func notConfigured(service string) string {
	return fmt.Sprintf("Error: %s is not configured on this bot", service)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("send chat=%d: %v", chatID, err)
	}
}

func (r *Router) sendResult(chatID int64, text string) {
	r.send(chatID, util.Truncate(text, maxReplyLen))
}

func (r *Router) sendFault(chatID int64, what string, err error) {
	log.Printf("chat=%d %s: %v", chatID, what, err)
	var b bytes.Buffer
	report.Fault(&b, what, err)
	r.send(chatID, strings.TrimSpace(b.String()))
}
