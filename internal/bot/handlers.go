package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strconv"
	"strings"

	"github.com/example/studyquiz/internal/content"
	"github.com/example/studyquiz/internal/database"
	"github.com/example/studyquiz/internal/importer"
	"github.com/example/studyquiz/internal/quiz"
	"github.com/example/studyquiz/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxImportErrors is how many row errors are echoed back after an import
const maxImportErrors = 5

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "menu":
		return b.showHome(chatID)
	case "quiz":
		return b.showCategories(ctx, chatID, quiz.ModeQuiz)
	case "flashcards":
		return b.showCategories(ctx, chatID, quiz.ModeFlashcard)
	case "incorrect":
		return b.showIncorrect(ctx, chatID)
	case "summary":
		return b.showSummary(ctx, chatID)
	case "questions":
		return b.showQuestions(ctx, chatID)
	case "add":
		b.router.Navigate(chatID, ViewManage)
		b.router.Await(chatID, inputAdd)
		return b.show(chatID, screen{Text: addInstructions})
	case "import":
		b.router.Navigate(chatID, ViewManage)
		b.router.Await(chatID, inputImport)
		return b.show(chatID, screen{Text: importInstructions})
	case "delete":
		return b.handleDelete(ctx, chatID, message.CommandArguments())
	case "cancel":
		return b.showHome(chatID)
	default:
		b.sendText(chatID, "Unknown command. Use /menu to see what I can do.")
		return nil
	}
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always send an answer to the callback query to remove the loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.api.Request(answer); err != nil {
		log.Printf("Warning: Failed to answer callback: %v", err)
	}

	chatID := callback.Message.Chat.ID
	data := callback.Data

	switch {
	case data == cbHome:
		return b.showHome(chatID)
	case data == cbMenuQuiz:
		return b.showCategories(ctx, chatID, quiz.ModeQuiz)
	case data == cbMenuCards:
		return b.showCategories(ctx, chatID, quiz.ModeFlashcard)
	case data == cbMenuIncorrect:
		return b.showIncorrect(ctx, chatID)
	case data == cbMenuSummary:
		return b.showSummary(ctx, chatID)
	case data == cbMenuQuestions:
		return b.showQuestions(ctx, chatID)
	case data == cbReview:
		return b.startReview(ctx, chatID)
	case data == cbResultsNew:
		return b.showCategories(ctx, chatID, b.router.LastMode(chatID))

	case strings.HasPrefix(data, cbQuizCategory):
		b.router.SelectCategory(chatID, strings.TrimPrefix(data, cbQuizCategory))
		return b.show(chatID, renderCountChoice())
	case strings.HasPrefix(data, cbCardCategory):
		return b.startFlashcards(ctx, chatID, strings.TrimPrefix(data, cbCardCategory))
	case strings.HasPrefix(data, cbCount):
		n, err := strconv.Atoi(strings.TrimPrefix(data, cbCount))
		if err != nil {
			return fmt.Errorf("invalid question count in callback data: %w", err)
		}
		return b.startQuiz(ctx, chatID, n)
	case strings.HasPrefix(data, cbOption):
		st, arg, err := parseStepData(data, cbOption)
		if err != nil {
			return fmt.Errorf("invalid option in callback data: %w", err)
		}
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid option in callback data: %w", err)
		}
		return b.handleOption(chatID, st, i)
	case strings.HasPrefix(data, cbGrade):
		st, arg, err := parseStepData(data, cbGrade)
		if err != nil {
			return fmt.Errorf("invalid grade in callback data: %w", err)
		}
		return b.handleGrade(chatID, st, arg == "1")
	case strings.HasPrefix(data, cbFlip):
		st, _, err := parseStepData(data, cbFlip)
		if err != nil {
			return fmt.Errorf("invalid flip in callback data: %w", err)
		}
		return b.handleFlip(chatID, st)
	case strings.HasPrefix(data, cbNext):
		st, _, err := parseStepData(data, cbNext)
		if err != nil {
			return fmt.Errorf("invalid next in callback data: %w", err)
		}
		return b.handleNext(chatID, st)

	default:
		b.sendText(chatID, "⚠️ Unknown action")
		return nil
	}
}

func (b *Bot) showHome(chatID int64) error {
	b.router.Navigate(chatID, ViewHome)
	return b.show(chatID, renderHome())
}

func (b *Bot) showCategories(ctx context.Context, chatID int64, mode quiz.Mode) error {
	view := ViewQuizSetup
	if mode == quiz.ModeFlashcard {
		view = ViewFlashcardSetup
	}
	b.router.Navigate(chatID, view)

	categories, err := b.svc.Content.ListCategories(ctx, true)
	if err != nil {
		return err
	}
	return b.show(chatID, renderCategories(mode, categories))
}

func (b *Bot) showIncorrect(ctx context.Context, chatID int64) error {
	b.router.Navigate(chatID, ViewIncorrect)

	count, err := b.svc.Reviews.CountIncorrect(ctx, b.userID)
	if err != nil {
		return err
	}
	return b.show(chatID, renderIncorrect(count))
}

func (b *Bot) showSummary(ctx context.Context, chatID int64) error {
	b.router.Navigate(chatID, ViewSummary)

	today, err := b.svc.Summaries.Today(ctx, b.userID)
	if err != nil {
		return err
	}
	return b.show(chatID, renderSummary(today))
}

func (b *Bot) showQuestions(ctx context.Context, chatID int64) error {
	b.router.Navigate(chatID, ViewManage)

	questions, err := b.svc.Content.ListQuestions(ctx)
	if err != nil {
		return err
	}
	categories, err := b.svc.Content.ListCategories(ctx, false)
	if err != nil {
		return err
	}
	return b.show(chatID, renderQuestionList(questions, categories))
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, count int) error {
	categoryID := b.router.SelectedCategory(chatID)
	if categoryID == "" {
		return b.showCategories(ctx, chatID, quiz.ModeQuiz)
	}
	if count < 1 || count > quiz.MaxQuestionCount {
		b.sendText(chatID, fmt.Sprintf("Please pick a number from 1 to %d.", quiz.MaxQuestionCount))
		return nil
	}

	s, err := b.svc.Study.StartQuiz(ctx, b.userID, categoryID, count, b.svc.Dispatcher.SinkFor(chatID))
	return b.begin(chatID, ViewQuiz, s, err)
}

func (b *Bot) startFlashcards(ctx context.Context, chatID int64, categoryID string) error {
	s, err := b.svc.Study.StartFlashcards(ctx, b.userID, categoryID, b.svc.Dispatcher.SinkFor(chatID))
	return b.begin(chatID, ViewFlashcards, s, err)
}

func (b *Bot) startReview(ctx context.Context, chatID int64) error {
	s, err := b.svc.Study.StartIncorrectReview(ctx, b.userID, b.svc.Dispatcher.SinkFor(chatID))
	return b.begin(chatID, ViewQuiz, s, err)
}

func (b *Bot) begin(chatID int64, view View, s *quiz.Session, err error) error {
	if errors.Is(err, quiz.ErrNoQuestions) {
		if view == ViewFlashcards {
			b.sendText(chatID, "This category has no short-answer questions for flashcards.")
		} else {
			b.sendText(chatID, "There are no questions to study here.")
		}
		return nil
	}
	if err != nil {
		return err
	}

	b.router.Begin(chatID, view, s)
	return b.showSession(chatID, s)
}

func (b *Bot) showSession(chatID int64, s *quiz.Session) error {
	snap := s.Snapshot()
	if snap.Mode == quiz.ModeFlashcard {
		return b.show(chatID, renderCard(snap, b.router.Run(chatID)))
	}
	return b.show(chatID, renderQuestion(snap, b.router.Run(chatID)))
}

// activeSession returns the session owned by the chat's current view
func (b *Bot) activeSession(chatID int64) *quiz.Session {
	s := b.router.Session(chatID)
	if s == nil {
		b.sendText(chatID, "This session has ended. Use /menu to start a new one.")
	}
	return s
}

// sessionAt returns the active session only while st is its current
// question. Buttons left on earlier questions or sessions get nil.
func (b *Bot) sessionAt(chatID int64, st step) *quiz.Session {
	s := b.activeSession(chatID)
	if s == nil {
		return nil
	}
	if st.Run != b.router.Run(chatID) || st.Index != s.Snapshot().Index {
		log.Printf("Ignoring stale button %s in chat %d", st, chatID)
		b.sendText(chatID, "That button belongs to an earlier question.")
		return nil
	}
	return s
}

func (b *Bot) handleOption(chatID int64, st step, index int) error {
	s := b.sessionAt(chatID, st)
	if s == nil {
		return nil
	}

	options := s.Options()
	if index < 0 || index >= len(options) {
		return fmt.Errorf("option %d out of range", index)
	}
	if _, err := s.SubmitAnswer(options[index]); err != nil {
		return ignoreSessionError(err)
	}
	return b.showSession(chatID, s)
}

func (b *Bot) handleFlip(chatID int64, st step) error {
	s := b.sessionAt(chatID, st)
	if s == nil {
		return nil
	}
	if _, err := s.Flip(); err != nil {
		return ignoreSessionError(err)
	}
	return b.showSession(chatID, s)
}

func (b *Bot) handleGrade(chatID int64, st step, correct bool) error {
	s := b.sessionAt(chatID, st)
	if s == nil {
		return nil
	}
	if _, err := s.SelfGrade(correct); err != nil {
		if errors.Is(err, quiz.ErrNotRevealed) {
			b.sendText(chatID, "Flip the card before grading it.")
			return nil
		}
		return ignoreSessionError(err)
	}
	return b.showSession(chatID, s)
}

func (b *Bot) handleNext(chatID int64, st step) error {
	s := b.sessionAt(chatID, st)
	if s == nil {
		return nil
	}

	finished, err := s.Advance()
	if errors.Is(err, quiz.ErrNotAnswered) {
		b.sendText(chatID, "Answer the current question first.")
		return nil
	}
	if err != nil {
		return ignoreSessionError(err)
	}
	if !finished {
		return b.showSession(chatID, s)
	}

	res, err := s.Result()
	if err != nil {
		return err
	}
	b.router.Finish(chatID, res)
	return b.show(chatID, renderResults(res, s.Mode()))
}

// ignoreSessionError swallows errors caused by repeated or stale button presses
func ignoreSessionError(err error) error {
	switch {
	case errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrFinished),
		errors.Is(err, quiz.ErrOutOfRange),
		errors.Is(err, quiz.ErrWrongMode):
		log.Printf("Ignoring stale action: %v", err)
		return nil
	}
	return err
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	if b.router.Pending(chatID) == inputAdd {
		return b.addQuestion(ctx, chatID, message.Text, nil)
	}

	switch b.router.View(chatID) {
	case ViewQuiz:
		s := b.router.Session(chatID)
		if s == nil {
			break
		}
		q, err := s.CurrentQuestion()
		if err != nil || q.Type != models.ShortAnswer {
			b.sendText(chatID, "Use the buttons to answer.")
			return nil
		}
		if _, err := s.SubmitAnswer(message.Text); err != nil {
			if errors.Is(err, quiz.ErrEmptyAnswer) {
				b.sendText(chatID, "Please type an answer.")
				return nil
			}
			return ignoreSessionError(err)
		}
		return b.showSession(chatID, s)

	case ViewQuizSetup:
		if b.router.SelectedCategory(chatID) == "" {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(message.Text))
		if err != nil {
			b.sendText(chatID, fmt.Sprintf("Please type a number from 1 to %d.", quiz.MaxQuestionCount))
			return nil
		}
		return b.startQuiz(ctx, chatID, n)
	}

	b.sendText(chatID, "Use /menu to see what I can do.")
	return nil
}

func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if b.router.Pending(chatID) != inputAdd && message.Caption == "" {
		b.sendText(chatID, "To add a question with an image, use /add and send the photo with the question as its caption.")
		return nil
	}

	// the last size is the largest
	photo := message.Photo[len(message.Photo)-1]
	data, url, err := b.download(ctx, photo.FileID)
	if err != nil {
		return err
	}
	image := &content.Image{Data: data, Filename: path.Base(url)}
	return b.addQuestion(ctx, chatID, message.Caption, image)
}

func (b *Bot) addQuestion(ctx context.Context, chatID int64, text string, image *content.Image) error {
	form, err := ParseQuestionMessage(text)
	if err != nil {
		b.sendText(chatID, "⚠️ "+err.Error()+"\n\n"+addInstructions)
		return nil
	}

	q, err := b.svc.Content.AddQuestion(ctx, form, image)
	if errors.Is(err, content.ErrMissingField) || errors.Is(err, content.ErrInvalidType) {
		b.sendText(chatID, "⚠️ "+err.Error())
		return nil
	}
	if err != nil {
		return err
	}

	b.router.Await(chatID, inputNone)
	b.sendText(chatID, fmt.Sprintf("✅ Question added (id: %s). Send /add to add another.", q.ID))
	return nil
}

// ParseQuestionMessage parses "category | type | question | answer | options".
// type is mc or sa, or the full type name. Options are separated by semicolons
// and may be left out.
func ParseQuestionMessage(text string) (content.QuestionForm, error) {
	parts := strings.Split(text, "|")
	if len(parts) < 4 || len(parts) > 5 {
		return content.QuestionForm{}, errors.New("expected 4 or 5 fields separated by |")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var qType models.QuestionType
	switch strings.ToLower(parts[1]) {
	case "mc", string(models.MultipleChoice):
		qType = models.MultipleChoice
	case "sa", string(models.ShortAnswer):
		qType = models.ShortAnswer
	default:
		return content.QuestionForm{}, fmt.Errorf("unknown question type %q", parts[1])
	}

	form := content.QuestionForm{
		CategoryName:  parts[0],
		Type:          qType,
		Text:          parts[2],
		CorrectAnswer: parts[3],
	}
	if len(parts) == 5 {
		form.Options = importer.SplitOptions(parts[4])
	}
	return form, nil
}

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	doc := message.Document

	ext := strings.ToLower(path.Ext(doc.FileName))
	if b.router.Pending(chatID) != inputImport && ext != ".csv" && ext != ".xlsx" {
		b.sendText(chatID, "Use /import and send a .csv or .xlsx file to import questions.")
		return nil
	}

	data, _, err := b.download(ctx, doc.FileID)
	if err != nil {
		return err
	}

	res, err := b.svc.Importer.Import(ctx, bytes.NewReader(data), doc.FileName, importer.DefaultConfig())
	if errors.Is(err, importer.ErrUnsupportedFormat) {
		b.sendText(chatID, "⚠️ Only .csv and .xlsx files can be imported.")
		return nil
	}
	if err != nil {
		return err
	}

	b.router.Await(chatID, inputNone)
	return b.show(chatID, screen{Text: importReport(res), Buttons: [][]MenuButton{homeButton()}})
}

func importReport(res *importer.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Import finished\n\nRows: %d\nImported: %d\nSkipped: %d", res.Processed, res.Imported, res.Skipped)
	for i, e := range res.Errors {
		if i == maxImportErrors {
			fmt.Fprintf(&sb, "\n…and %d more", len(res.Errors)-i)
			break
		}
		sb.WriteString("\n• " + e)
	}
	return sb.String()
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	id := strings.TrimSpace(args)
	if id == "" {
		b.sendText(chatID, "Please give the id of the question to delete: /delete <id>")
		return nil
	}

	err := b.svc.Content.DeleteQuestion(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		b.sendText(chatID, "Question not found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	b.sendText(chatID, "🗑 Question deleted.")
	return nil
}
