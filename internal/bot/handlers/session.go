package handlers

import (
	"sync"

	"github.com/Spok95/face-rating-bot/internal/assign"
)

// chatState — всё, что бот помнит о чате между апдейтами. Живёт в памяти процесса:
// после рестарта участник заново представляется, а журнал в БД не теряется.
type chatState struct {
	participant  string
	awaitingName bool
	session      *assign.Session
	// сообщение с текущей картинкой — чтобы погасить у него кнопки
	photoMsgID int
	unlocked   bool
}

// Sessions — состояния чатов по chatID.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*chatState
	// newSession — фабрика сессий выбора (в тестах — с фиксированным seed)
	newSession func() *assign.Session
}

func NewSessions(opts ...assign.Option) *Sessions {
	return &Sessions{
		m:          make(map[int64]*chatState),
		newSession: func() *assign.Session { return assign.NewSession(opts...) },
	}
}

func (s *Sessions) get(chatID int64) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[chatID]
	if !ok {
		st = &chatState{}
		s.m[chatID] = st
	}
	return st
}

// begin — участник представился: новая сессия выбора.
func (s *Sessions) begin(chatID int64, participant string) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[chatID]
	if !ok {
		st = &chatState{}
		s.m[chatID] = st
	}
	st.participant = participant
	st.awaitingName = false
	st.session = s.newSession()
	st.photoMsgID = 0
	return st
}

func (s *Sessions) reset(chatID int64) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.m[chatID]
	st := &chatState{awaitingName: true}
	if prev != nil {
		st.unlocked = prev.unlocked
	}
	s.m[chatID] = st
	return st
}

// Cancel — сбросить участника и сессию чата; разблокировка панели сохраняется.
func (s *Sessions) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.m[chatID]
	st := &chatState{}
	if prev != nil {
		st.unlocked = prev.unlocked
	}
	s.m[chatID] = st
}
