package bot

import (
	"sync"

	"github.com/example/studyquiz/internal/quiz"
)

// View is the screen a chat is currently looking at
type View string

const (
	ViewHome           View = "home"
	ViewQuizSetup      View = "quiz_setup"
	ViewFlashcardSetup View = "flashcard_setup"
	ViewQuiz           View = "quiz"
	ViewFlashcards     View = "flashcards"
	ViewResults        View = "results"
	ViewIncorrect      View = "incorrect"
	ViewManage         View = "manage"
	ViewSummary        View = "summary"
)

// pendingInput is free-form input the chat has been asked for
type pendingInput int

const (
	inputNone pendingInput = iota
	inputAdd
	inputImport
)

// chatState is everything the bot remembers about one chat
type chatState struct {
	View       View
	Session    *quiz.Session
	Result     *quiz.Result
	LastMode   quiz.Mode
	CategoryID string
	Pending    pendingInput
	Run        int // bumped by every Begin, never reset
}

// Router keeps per-chat view state. Sessions are owned by the view that
// started them and are dropped as soon as the chat navigates elsewhere.
type Router struct {
	mu         sync.Mutex
	chats      map[int64]*chatState
	lastActive int64
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{chats: make(map[int64]*chatState)}
}

func (r *Router) state(chatID int64) *chatState {
	st, ok := r.chats[chatID]
	if !ok {
		st = &chatState{View: ViewHome}
		r.chats[chatID] = st
	}
	return st
}

// View returns the chat's current view
func (r *Router) View(chatID int64) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(chatID).View
}

// Navigate moves the chat to v, discarding any session, result and
// pending input that belonged to the previous view.
func (r *Router) Navigate(chatID int64, v View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(chatID)
	st.View = v
	st.Session = nil
	st.Result = nil
	st.CategoryID = ""
	st.Pending = inputNone
}

// Begin navigates to a study view that owns s
func (r *Router) Begin(chatID int64, v View, s *quiz.Session) {
	r.Navigate(chatID, v)

	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(chatID)
	st.Session = s
	st.LastMode = s.Mode()
	st.Run++
}

// Run numbers the sessions started in the chat
func (r *Router) Run(chatID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(chatID).Run
}

// Session returns the session owned by the chat's current view, if any
func (r *Router) Session(chatID int64) *quiz.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(chatID).Session
}

// Finish moves the chat to the results view holding res
func (r *Router) Finish(chatID int64, res quiz.Result) {
	r.Navigate(chatID, ViewResults)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(chatID).Result = &res
}

// Result returns the last finished result shown in the results view
func (r *Router) Result(chatID int64) (quiz.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(chatID)
	if st.Result == nil {
		return quiz.Result{}, false
	}
	return *st.Result, true
}

// LastMode returns the mode of the most recent session in the chat
func (r *Router) LastMode(chatID int64) quiz.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(chatID).LastMode
}

// SelectCategory remembers the category picked in the quiz setup view
func (r *Router) SelectCategory(chatID int64, categoryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(chatID)
	st.View = ViewQuizSetup
	st.CategoryID = categoryID
}

// SelectedCategory returns the category picked in the quiz setup view
func (r *Router) SelectedCategory(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(chatID)
	if st.View != ViewQuizSetup {
		return ""
	}
	return st.CategoryID
}

// Await marks the chat as waiting for free-form input
func (r *Router) Await(chatID int64, in pendingInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(chatID).Pending = in
}

// Pending returns the input the chat is waiting for
func (r *Router) Pending(chatID int64) pendingInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state(chatID).Pending
}

// Touch records chatID as the most recently active chat
func (r *Router) Touch(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = chatID
}

// LastActive returns the most recently active chat, or 0
func (r *Router) LastActive() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}
