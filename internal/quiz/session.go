package quiz

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/example/studyquiz/internal/shuffle"
	"github.com/example/studyquiz/pkg/models"
)

// Mode selects how answers are graded
type Mode string

const (
	// ModeQuiz grades submitted answers against the stored correct answer
	ModeQuiz Mode = "quiz"
	// ModeFlashcard takes correctness from the user's self-assessment
	ModeFlashcard Mode = "flashcard"
)

// Phase is the lifecycle stage of a session
type Phase int

const (
	// NotStarted is only the zero value. NewSession never returns it.
	NotStarted Phase = iota
	// InProgress sessions accept answers
	InProgress
	// Finished sessions have a result and accept nothing else
	Finished
)

func (p Phase) String() string {
	switch p {
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

var (
	ErrNoQuestions     = errors.New("no questions available")
	ErrOutOfRange      = errors.New("question index out of range")
	ErrInvalidState    = errors.New("session is not finished")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotAnswered     = errors.New("current question has not been answered")
	ErrEmptyAnswer     = errors.New("answer is empty")
	ErrWrongMode       = errors.New("operation not supported in this mode")
	ErrNotRevealed     = errors.New("card must be flipped before grading")
	ErrFinished        = errors.New("session already finished")
)

// Answer is the single recorded response for one question
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"answer"`
	IsCorrect  bool   `json:"is_correct"`
}

// Outcome is what gets persisted to the learning log
type Outcome struct {
	UserID     string
	QuestionID string
	IsCorrect  bool
}

// Sink receives outcomes as they are graded. It must not block.
type Sink func(Outcome)

// Snapshot is a read-only view of the session for rendering
type Snapshot struct {
	Mode           Mode
	Phase          Phase
	Question       models.Question
	Index          int
	Total          int
	IsAnswered     bool
	SelectedAnswer string
	LastCorrect    bool
	Options        []string
	Revealed       bool
}

// Session drives one quiz or flashcard run. It is owned by a single view
// and is not safe for concurrent use.
type Session struct {
	mode      Mode
	userID    string
	questions []models.Question
	index     int
	answers   []Answer
	phase     Phase
	result    *Result

	answered bool
	flipped  bool
	revealed bool
	options  []string

	sink Sink
	rnd  *rand.Rand
}

// NewSession starts a session over questions. The slice is copied.
func NewSession(mode Mode, userID string, questions []models.Question, sink Sink) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	qs := make([]models.Question, len(questions))
	copy(qs, questions)

	s := &Session{
		mode:      mode,
		userID:    userID,
		questions: qs,
		answers:   make([]Answer, 0, len(qs)),
		phase:     InProgress,
		sink:      sink,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.prepareQuestion()
	return s, nil
}

// Mode returns the grading mode
func (s *Session) Mode() Mode { return s.mode }

// Phase returns the lifecycle stage
func (s *Session) Phase() Phase { return s.phase }

// CurrentQuestion returns the question at the current index
func (s *Session) CurrentQuestion() (models.Question, error) {
	if s.phase == Finished || s.index >= len(s.questions) {
		return models.Question{}, ErrOutOfRange
	}
	return s.questions[s.index], nil
}

// Options returns the cached option order for the current question
func (s *Session) Options() []string {
	out := make([]string, len(s.options))
	copy(out, s.options)
	return out
}

// SubmitAnswer grades a typed or selected answer in quiz mode
func (s *Session) SubmitAnswer(text string) (Answer, error) {
	if s.mode != ModeQuiz {
		return Answer{}, ErrWrongMode
	}
	q, err := s.CurrentQuestion()
	if err != nil {
		return Answer{}, err
	}
	if s.answered {
		return Answer{}, ErrAlreadyAnswered
	}

	var correct bool
	switch q.Type {
	case models.ShortAnswer:
		text = strings.TrimSpace(text)
		if text == "" {
			return Answer{}, ErrEmptyAnswer
		}
		correct = GradeShortAnswer(text, q.CorrectAnswer)
	default:
		correct = GradeMultipleChoice(text, q.CorrectAnswer)
	}

	return s.record(q, text, correct), nil
}

// Flip toggles the revealed side of the current flashcard
func (s *Session) Flip() (bool, error) {
	if s.mode != ModeFlashcard {
		return false, ErrWrongMode
	}
	if _, err := s.CurrentQuestion(); err != nil {
		return false, err
	}
	if s.answered {
		return s.flipped, ErrAlreadyAnswered
	}
	s.flipped = !s.flipped
	if s.flipped {
		s.revealed = true
	}
	return s.flipped, nil
}

// SelfGrade records the user's own verdict for the current flashcard
func (s *Session) SelfGrade(correct bool) (Answer, error) {
	if s.mode != ModeFlashcard {
		return Answer{}, ErrWrongMode
	}
	q, err := s.CurrentQuestion()
	if err != nil {
		return Answer{}, err
	}
	if s.answered {
		return Answer{}, ErrAlreadyAnswered
	}
	if !s.revealed {
		return Answer{}, ErrNotRevealed
	}
	return s.record(q, "", correct), nil
}

func (s *Session) record(q models.Question, text string, correct bool) Answer {
	a := Answer{QuestionID: q.ID, Text: text, IsCorrect: correct}
	s.answers = append(s.answers, a)
	s.answered = true

	if s.sink != nil {
		s.sink(Outcome{UserID: s.userID, QuestionID: q.ID, IsCorrect: correct})
	}
	return a
}

// Advance moves to the next question, or finishes the session when the
// current question is the last one.
func (s *Session) Advance() (bool, error) {
	if s.phase == Finished {
		return true, ErrFinished
	}
	if !s.answered {
		return false, ErrNotAnswered
	}

	if s.index == len(s.questions)-1 {
		s.finish()
		return true, nil
	}

	s.index++
	s.prepareQuestion()
	return false, nil
}

func (s *Session) finish() {
	s.phase = Finished
	answers := make([]Answer, len(s.answers))
	copy(answers, s.answers)
	score := 0
	for _, a := range answers {
		if a.IsCorrect {
			score++
		}
	}
	s.result = &Result{Score: score, Total: len(s.questions), Answers: answers}
}

// prepareQuestion resets per-question state. Options are shuffled here
// and only here, so re-rendering never reorders them.
func (s *Session) prepareQuestion() {
	s.answered = false
	s.flipped = false
	s.revealed = false
	s.options = nil

	q := s.questions[s.index]
	if s.mode == ModeQuiz && q.Type == models.MultipleChoice {
		s.options = shuffle.ShuffleWith(s.rnd, OptionSet(q))
	}
}

// Result returns the final result once the session has finished
func (s *Session) Result() (Result, error) {
	if s.phase != Finished || s.result == nil {
		return Result{}, ErrInvalidState
	}
	return *s.result, nil
}

// Answers returns a copy of the answers recorded so far
func (s *Session) Answers() []Answer {
	out := make([]Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// Snapshot captures everything the view needs to render the session
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:       s.mode,
		Phase:      s.phase,
		Index:      s.index,
		Total:      len(s.questions),
		IsAnswered: s.answered,
		Options:    s.Options(),
		Revealed:   s.flipped,
	}
	if s.index < len(s.questions) {
		snap.Question = s.questions[s.index]
	}
	if s.answered && len(s.answers) > 0 {
		last := s.answers[len(s.answers)-1]
		snap.SelectedAnswer = last.Text
		snap.LastCorrect = last.IsCorrect
	}
	return snap
}
