package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/studyquiz/internal/quiz"
	"github.com/example/studyquiz/internal/summary"
	"github.com/example/studyquiz/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data
const (
	cbHome          = "menu:home"
	cbMenuQuiz      = "menu:quiz"
	cbMenuCards     = "menu:flashcards"
	cbMenuIncorrect = "menu:incorrect"
	cbMenuSummary   = "menu:summary"
	cbMenuQuestions = "menu:questions"

	cbQuizCategory = "qcat:"
	cbCardCategory = "fcat:"
	cbCount        = "count:"
	cbOption       = "opt:"
	cbFlip         = "flip:"
	cbGrade        = "grade:"
	cbNext         = "next:"
	cbReview       = "review"
	cbResultsNew   = "results:new"
)

// maxMessageLength is Telegram's limit for a text message
const maxMessageLength = 4096

var countChoices = []int{5, 10, 15, 20}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// screen is a rendered view ready to be sent
type screen struct {
	Text     string
	ImageURL string
	Buttons  [][]MenuButton
}

// Band classifies a percentage for display
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor returns the display band of a score percentage
func BandFor(percentage int) Band {
	switch {
	case percentage > 70:
		return BandHigh
	case percentage > 40:
		return BandMedium
	default:
		return BandLow
	}
}

func (b Band) emoji() string {
	switch b {
	case BandHigh:
		return "🟢"
	case BandMedium:
		return "🟡"
	default:
		return "🔴"
	}
}

func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📝 Quiz", CallbackData: cbMenuQuiz}, {Text: "🃏 Flashcards", CallbackData: cbMenuCards}},
		{{Text: "❌ Incorrect notes", CallbackData: cbMenuIncorrect}, {Text: "📊 Today", CallbackData: cbMenuSummary}},
		{{Text: "🗂 Questions", CallbackData: cbMenuQuestions}},
	}
}

func homeButton() []MenuButton {
	return []MenuButton{{Text: "🏠 Home", CallbackData: cbHome}}
}

func renderHome() screen {
	return screen{
		Text: "👋 Welcome to StudyQuiz!\n\n" +
			"Pick a category and test yourself with a quiz or flashcards. " +
			"Wrong answers are collected in your incorrect notes for later review.\n\n" +
			"/quiz - start a quiz\n" +
			"/flashcards - study with flashcards\n" +
			"/incorrect - review incorrect answers\n" +
			"/summary - today's progress\n" +
			"/questions - list questions\n" +
			"/add - add a question\n" +
			"/import - import questions from a CSV or XLSX file\n" +
			"/delete <id> - delete a question",
		Buttons: mainMenuButtons(),
	}
}

func renderCategories(mode quiz.Mode, categories []models.Category) screen {
	if len(categories) == 0 {
		return screen{
			Text:    "There are no questions yet. Add some with /add or /import.",
			Buttons: [][]MenuButton{homeButton()},
		}
	}

	prefix, title := cbQuizCategory, "📝 Choose a category for the quiz:"
	if mode == quiz.ModeFlashcard {
		prefix, title = cbCardCategory, "🃏 Choose a category for flashcards:"
	}

	buttons := make([][]MenuButton, 0, len(categories)+1)
	for _, c := range categories {
		buttons = append(buttons, []MenuButton{{Text: c.Name, CallbackData: prefix + c.ID}})
	}
	buttons = append(buttons, homeButton())
	return screen{Text: title, Buttons: buttons}
}

func renderCountChoice() screen {
	row := make([]MenuButton, 0, len(countChoices))
	for _, n := range countChoices {
		row = append(row, MenuButton{Text: fmt.Sprint(n), CallbackData: fmt.Sprintf("%s%d", cbCount, n)})
	}
	return screen{
		Text:    fmt.Sprintf("How many questions? Pick one or type a number from 1 to %d.", quiz.MaxQuestionCount),
		Buttons: [][]MenuButton{row, homeButton()},
	}
}

// step pins a session button to one question of one run, e.g. "opt:3.1:2"
// is option 2 of the second question in the chat's third session.
type step struct {
	Run   int
	Index int
}

func (st step) String() string { return fmt.Sprintf("%d.%d", st.Run, st.Index) }

func stepData(prefix string, st step) string {
	return prefix + st.String()
}

func stepArg(prefix string, st step, arg int) string {
	return fmt.Sprintf("%s%s:%d", prefix, st, arg)
}

// parseStepData splits callback data built by stepData or stepArg
func parseStepData(data, prefix string) (step, string, error) {
	raw, arg, _ := strings.Cut(strings.TrimPrefix(data, prefix), ":")
	runPart, indexPart, ok := strings.Cut(raw, ".")
	if !ok {
		return step{}, "", fmt.Errorf("malformed step %q", raw)
	}
	run, err := strconv.Atoi(runPart)
	if err != nil {
		return step{}, "", fmt.Errorf("malformed run %q: %w", runPart, err)
	}
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return step{}, "", fmt.Errorf("malformed index %q: %w", indexPart, err)
	}
	return step{Run: run, Index: index}, arg, nil
}

func nextButton(snap quiz.Snapshot, st step) MenuButton {
	if snap.Index == snap.Total-1 {
		return MenuButton{Text: "🏁 Finish", CallbackData: stepData(cbNext, st)}
	}
	return MenuButton{Text: "➡️ Next", CallbackData: stepData(cbNext, st)}
}

// renderQuestion draws the current quiz question, with feedback once answered
func renderQuestion(snap quiz.Snapshot, run int) screen {
	st := step{Run: run, Index: snap.Index}
	q := snap.Question
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d / %d\n\n%s", snap.Index+1, snap.Total, q.Text)

	var buttons [][]MenuButton
	switch {
	case snap.IsAnswered:
		if snap.LastCorrect {
			sb.WriteString("\n\n✅ Correct!")
		} else {
			fmt.Fprintf(&sb, "\n\n❌ Wrong. Your answer: %s\nCorrect answer: %s", snap.SelectedAnswer, q.CorrectAnswer)
		}
		buttons = append(buttons, []MenuButton{nextButton(snap, st)})
	case q.Type == models.ShortAnswer:
		sb.WriteString("\n\n✍️ Type your answer.")
	default:
		for i, o := range snap.Options {
			buttons = append(buttons, []MenuButton{{Text: o, CallbackData: stepArg(cbOption, st, i)}})
		}
	}
	buttons = append(buttons, homeButton())

	return screen{Text: sb.String(), ImageURL: q.ImageURL, Buttons: buttons}
}

// renderCard draws the current flashcard, front or back
func renderCard(snap quiz.Snapshot, run int) screen {
	st := step{Run: run, Index: snap.Index}
	q := snap.Question
	var sb strings.Builder
	fmt.Fprintf(&sb, "Card %d / %d\n\n%s", snap.Index+1, snap.Total, q.Text)

	var buttons [][]MenuButton
	switch {
	case snap.IsAnswered:
		fmt.Fprintf(&sb, "\n\n💡 %s", q.CorrectAnswer)
		if snap.LastCorrect {
			sb.WriteString("\n\n✅ Marked as known")
		} else {
			sb.WriteString("\n\n❌ Marked for review")
		}
		buttons = append(buttons, []MenuButton{nextButton(snap, st)})
	case snap.Revealed:
		fmt.Fprintf(&sb, "\n\n💡 %s", q.CorrectAnswer)
		buttons = append(buttons,
			[]MenuButton{{Text: "🔄 Flip", CallbackData: stepData(cbFlip, st)}},
			[]MenuButton{
				{Text: "✅ I knew it", CallbackData: stepArg(cbGrade, st, 1)},
				{Text: "❌ I didn't", CallbackData: stepArg(cbGrade, st, 0)},
			},
		)
	default:
		buttons = append(buttons, []MenuButton{{Text: "🔄 Flip", CallbackData: stepData(cbFlip, st)}})
	}
	buttons = append(buttons, homeButton())

	return screen{Text: sb.String(), ImageURL: q.ImageURL, Buttons: buttons}
}

func renderResults(res quiz.Result, mode quiz.Mode) screen {
	pct := res.Percentage()
	band := BandFor(pct)

	title := "🎯 Quiz finished!"
	again := "📝 New quiz"
	if mode == quiz.ModeFlashcard {
		title = "🃏 Flashcards finished!"
		again = "🃏 New flashcards"
	}

	text := fmt.Sprintf("%s\n\n%s Score: %d / %d (%d%%)", title, band.emoji(), res.Score, res.Total, pct)
	if wrong := res.Total - res.Score; wrong > 0 {
		text += fmt.Sprintf("\nIncorrect: %d", wrong)
	}

	buttons := [][]MenuButton{{{Text: again, CallbackData: cbResultsNew}}}
	if res.HasIncorrect() {
		buttons = append(buttons, []MenuButton{{Text: "❌ Review incorrect", CallbackData: cbMenuIncorrect}})
	}
	buttons = append(buttons, homeButton())
	return screen{Text: text, Buttons: buttons}
}

func renderIncorrect(count int) screen {
	if count == 0 {
		return screen{
			Text:    "🎉 No incorrect answers to review.",
			Buttons: [][]MenuButton{homeButton()},
		}
	}
	return screen{
		Text: fmt.Sprintf("❌ You have %d question(s) to review.", count),
		Buttons: [][]MenuButton{
			{{Text: "▶️ Start review", CallbackData: cbReview}},
			homeButton(),
		},
	}
}

func summaryText(s summary.Summary) string {
	if s.Empty() {
		return "📊 Nothing studied today yet."
	}
	var sb strings.Builder
	sb.WriteString("📊 Today's study\n\n")
	fmt.Fprintf(&sb, "Answered: %d\n", s.Total)
	fmt.Fprintf(&sb, "%s Correct: %d (%d%%)\n", BandFor(s.Accuracy).emoji(), s.Correct, s.Accuracy)
	fmt.Fprintf(&sb, "Study time: ~%d min", s.EstimatedMinutes)
	if len(s.Categories) > 0 {
		fmt.Fprintf(&sb, "\nCategories: %s", strings.Join(s.Categories, ", "))
	}
	return sb.String()
}

func renderSummary(s summary.Summary) screen {
	return screen{Text: summaryText(s), Buttons: [][]MenuButton{homeButton()}}
}

func renderDailySummary(s summary.Summary, incorrect int) string {
	text := "🔔 Daily report\n\n" + summaryText(s)
	if incorrect > 0 {
		text += fmt.Sprintf("\n\n❌ %d question(s) waiting for review. Use /incorrect.", incorrect)
	}
	return text
}

func renderQuestionList(questions []models.Question, categories []models.Category) screen {
	if len(questions) == 0 {
		return screen{
			Text:    "There are no questions yet. Add some with /add or /import.",
			Buttons: [][]MenuButton{homeButton()},
		}
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂 %d question(s), newest first:\n", len(questions))
	for i, q := range questions {
		line := fmt.Sprintf("\n%s [%s] %s\nid: %s\n", typeIcon(q.Type), names[q.CategoryID], q.Text, q.ID)
		if sb.Len()+len(line) > maxMessageLength-64 {
			fmt.Fprintf(&sb, "\n…and %d more", len(questions)-i)
			break
		}
		sb.WriteString(line)
	}
	sb.WriteString("\nDelete with /delete <id>")
	return screen{Text: sb.String(), Buttons: [][]MenuButton{homeButton()}}
}

func typeIcon(t models.QuestionType) string {
	if t == models.ShortAnswer {
		return "✍️"
	}
	return "🔘"
}

const addInstructions = "✏️ Send the question in this format:\n\n" +
	"category | type | question | answer | options\n\n" +
	"type is mc (multiple choice) or sa (short answer). " +
	"Options are the wrong choices separated by ; and only needed for mc.\n" +
	"Attach a photo and put the text in its caption to add an image.\n\n" +
	"Example:\nGeography | mc | Capital of France? | Paris | London; Berlin; Rome\n\n" +
	"/cancel to stop."

const importInstructions = "📥 Send a .csv or .xlsx file with the columns:\n\n" +
	"category, type, question, answer, options\n\n" +
	"The first row is treated as a header. /cancel to stop."
