package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/example/studyquiz/internal/content"
	"github.com/example/studyquiz/internal/importer"
	"github.com/example/studyquiz/internal/quiz"
	"github.com/example/studyquiz/internal/summary"
	"github.com/example/studyquiz/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxDownloadSize caps files fetched from Telegram
const maxDownloadSize = 20 << 20

// Sender is the part of the Telegram API the bot talks to.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StudyModule starts study sessions
type StudyModule interface {
	StartQuiz(ctx context.Context, userID, categoryID string, count int, sink quiz.Sink) (*quiz.Session, error)
	StartFlashcards(ctx context.Context, userID, categoryID string, sink quiz.Sink) (*quiz.Session, error)
	StartIncorrectReview(ctx context.Context, userID string, sink quiz.Sink) (*quiz.Session, error)
}

// OutcomeDispatcher persists answer outcomes in the background
type OutcomeDispatcher interface {
	SinkFor(origin int64) quiz.Sink
	Errors() <-chan *quiz.OutcomeError
}

// ContentService manages the question bank
type ContentService interface {
	AddQuestion(ctx context.Context, form content.QuestionForm, image *content.Image) (models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context) ([]models.Question, error)
	ListCategories(ctx context.Context, populatedOnly bool) ([]models.Category, error)
}

// Importer loads questions from spreadsheet files
type Importer interface {
	Import(ctx context.Context, r io.Reader, filename string, cfg importer.Config) (*importer.Result, error)
}

// SummaryService builds today's summary
type SummaryService interface {
	Today(ctx context.Context, userID string) (summary.Summary, error)
}

// ReviewCounter counts questions waiting for review
type ReviewCounter interface {
	CountIncorrect(ctx context.Context, userID string) (int, error)
}

// Services are the application services the bot drives
type Services struct {
	Study      StudyModule
	Dispatcher OutcomeDispatcher
	Content    ContentService
	Importer   Importer
	Summaries  SummaryService
	Reviews    ReviewCounter
}

// Bot represents the Telegram bot application
type Bot struct {
	api          Sender
	router       *Router
	svc          Services
	userID       string
	notifyChatID int64
	httpClient   *http.Client
}

// New creates a new bot instance. notifyChatID receives the daily summary;
// when 0 the most recently active chat is used.
func New(api Sender, router *Router, svc Services, userID string, notifyChatID int64) *Bot {
	if router == nil {
		router = NewRouter()
	}
	return &Bot{
		api:          api,
		router:       router,
		svc:          svc,
		userID:       userID,
		notifyChatID: notifyChatID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Start processes updates one at a time until ctx is cancelled. Failed
// outcome writes are reported to the chat that produced them.
func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	var outcomeErrs <-chan *quiz.OutcomeError
	if b.svc.Dispatcher != nil {
		outcomeErrs = b.svc.Dispatcher.Errors()
	}

	log.Printf("Bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		case oe, ok := <-outcomeErrs:
			if !ok {
				outcomeErrs = nil
				continue
			}
			b.reportOutcomeError(oe)
		}
	}
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var chatID int64
	var err error

	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message == nil {
			return
		}
		chatID = update.CallbackQuery.Message.Chat.ID
		b.router.Touch(chatID)
		err = b.HandleCallback(ctx, update.CallbackQuery)

	case update.Message != nil:
		message := update.Message
		chatID = message.Chat.ID
		b.router.Touch(chatID)

		switch {
		case message.IsCommand():
			err = b.HandleCommand(ctx, message)
		case message.Document != nil:
			err = b.handleDocument(ctx, message)
		case len(message.Photo) > 0:
			err = b.handlePhoto(ctx, message)
		case message.Text != "":
			err = b.handleText(ctx, message)
		}

	default:
		return
	}

	if err != nil {
		log.Printf("Error handling update from chat %d: %v", chatID, err)
		b.sendText(chatID, "⚠️ Something went wrong: "+err.Error())
	}
}

func (b *Bot) reportOutcomeError(oe *quiz.OutcomeError) {
	log.Printf("Outcome write failed for chat %d: %v", oe.Origin, oe)
	if oe.Origin == 0 {
		return
	}
	b.sendText(oe.Origin, "⚠️ Your answer could not be saved to the learning log. The session continues.")
}

// SendDailySummary implements scheduler.Notifier
func (b *Bot) SendDailySummary(s summary.Summary, incorrect int) error {
	chatID := b.notifyChatID
	if chatID == 0 {
		chatID = b.router.LastActive()
	}
	if chatID == 0 {
		return errors.New("no chat to send the daily summary to")
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, renderDailySummary(s, incorrect))); err != nil {
		return fmt.Errorf("failed to send daily summary: %w", err)
	}
	return nil
}

// show sends a rendered view. Questions with an image are sent as a photo,
// falling back to a text message when Telegram cannot fetch it.
func (b *Bot) show(chatID int64, sc screen) error {
	var markup interface{}
	if len(sc.Buttons) > 0 {
		markup = createKeyboard(sc.Buttons)
	}

	if sc.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(sc.ImageURL))
		photo.Caption = sc.Text
		photo.ReplyMarkup = markup
		_, err := b.api.Send(photo)
		if err == nil {
			return nil
		}
		log.Printf("Failed to send image %s: %v", sc.ImageURL, err)
		sc.Text += "\n\n🖼 " + sc.ImageURL
	}

	msg := tgbotapi.NewMessage(chatID, sc.Text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

// download fetches a file a user sent to the bot
func (b *Bot) download(ctx context.Context, fileID string) ([]byte, string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, "", errors.New("file is too large")
	}
	return data, url, nil
}
