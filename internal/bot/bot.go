package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"doctorai/internal/core"
	"doctorai/pkg"
)

// Consultant is the slice of the pipeline the bot depends on.
type Consultant interface {
	Run(ctx context.Context, req core.Request) (*pkg.ConsultResult, error)
}

// Bot is the Telegram front end. Each incoming message or photo is forwarded
// to the consult pipeline with the chat's rolling history, and the verified
// payload is formatted back as markdown.
type Bot struct {
	api          *tgbotapi.BotAPI
	consult      Consultant
	store        Store
	defaultAgent string
	logger       *zap.Logger
	httpClient   *http.Client
}

// New constructs a Bot talking to the Telegram API with the given token.
func New(token string, consult Consultant, store Store, defaultAgent string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:          api,
		consult:      consult,
		store:        store,
		defaultAgent: defaultAgent,
		logger:       logger,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))
	for update := range updates {
		if update.Message == nil {
			continue
		}
		b.dispatch(ctx, update.Message)
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "mode":
			b.handleMode(ctx, msg)
		default:
			b.reply(msg.Chat.ID, "Unknown command. Try /start or /mode.")
		}
		return
	}
	b.handleMessage(ctx, msg)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	agent, err := b.store.Agent(ctx, msg.Chat.ID)
	if err != nil || agent == "" {
		agent = b.defaultAgent
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Hi! I am DoctorAI.\nDefault mode: %s.\nSend a photo + description, or use /mode to switch experts.", agent))
}

func (b *Bot) handleMode(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: /mode <"+strings.Join(core.AgentKeys(), "|")+">")
		return
	}
	if !core.KnownAgent(arg) {
		b.reply(msg.Chat.ID, "Unknown agent. Use "+strings.Join(core.AgentKeys(), " or ")+".")
		return
	}
	if err := b.store.SetAgent(ctx, msg.Chat.ID, arg); err != nil {
		b.logger.Error("failed to set agent", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Sorry, I could not switch modes right now.")
		return
	}
	b.reply(msg.Chat.ID, "Mode set to "+arg+".")
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" && len(msg.Photo) == 0 {
		b.reply(msg.Chat.ID, "Send a short description, optionally with a photo.")
		return
	}

	image, err := b.downloadPhoto(msg)
	if err != nil {
		b.logger.Error("failed to fetch photo", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Sorry, I could not read that photo. Please try again.")
		return
	}

	agent, err := b.store.Agent(ctx, msg.Chat.ID)
	if err != nil || agent == "" {
		agent = b.defaultAgent
	}
	history, err := b.store.History(ctx, msg.Chat.ID, historyWindow)
	if err != nil {
		b.logger.Warn("failed to load history", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}

	question := strings.TrimSpace(text)
	if question == "" {
		question = "Photo attached"
	}

	result, err := b.consult.Run(ctx, core.Request{
		Question: question,
		Agent:    agent,
		Image:    image,
		History:  history,
	})
	if err != nil {
		b.logger.Error("consult failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Sorry, I could not process that right now.")
		return
	}

	replyText := FormatReply(result.Verified)
	reply := tgbotapi.NewMessage(msg.Chat.ID, replyText)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		return
	}

	if err := b.store.Append(ctx, msg.Chat.ID,
		pkg.HistoryEntry{Role: "user", Content: question},
		pkg.HistoryEntry{Role: "assistant", Content: replyText},
	); err != nil {
		b.logger.Warn("failed to append history", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// downloadPhoto fetches the largest rendition of an attached photo. Telegram
// photos are always JPEG re-encodes, hence the fixed extension.
func (b *Bot) downloadPhoto(msg *tgbotapi.Message) (*core.Image, error) {
	if len(msg.Photo) == 0 {
		return nil, nil
	}
	photo := msg.Photo[len(msg.Photo)-1]
	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &core.Image{Name: photo.FileUniqueID + ".jpg", Data: data}, nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
