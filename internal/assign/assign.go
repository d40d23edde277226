// Package assign выбирает, какую картинку показать участнику следующей.
//
// Состояние сессии явное: каталог и множество уже оценённых картинок
// передаются в каждый вызов, глобальных переменных нет.
package assign

import (
	"math/rand/v2"
	"sync"
)

type State int

const (
	AwaitingSelection State = iota
	Presenting
	Exhausted
)

func (s State) String() string {
	switch s {
	case AwaitingSelection:
		return "awaiting"
	case Presenting:
		return "presenting"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Unrated — каталог без уже оценённых картинок, порядок каталога сохраняется.
func Unrated(catalog, rated []string) []string {
	seen := make(map[string]struct{}, len(rated))
	for _, id := range rated {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(catalog))
	for _, id := range catalog {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Session — выбор картинки для одного участника.
type Session struct {
	mu      sync.Mutex
	state   State
	current string
	acted   map[string]struct{}
	intn    func(n int) int
}

type Option func(*Session)

// WithRand — источник случайности (для тестов).
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.intn = r.IntN }
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		state: AwaitingSelection,
		acted: make(map[string]struct{}),
		intn:  rand.IntN,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next — текущая картинка. Пока по ней не было действия и она всё ещё
// не оценена, повторные вызовы возвращают её же. ok == false — участник всё оценил.
func (s *Session) Next(catalog, rated []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unrated := s.candidates(catalog, rated)
	if len(unrated) == 0 {
		s.state = Exhausted
		s.current = ""
		return "", false
	}
	if s.state == Presenting && contains(unrated, s.current) {
		return s.current, true
	}
	s.current = unrated[s.intn(len(unrated))]
	s.state = Presenting
	return s.current, true
}

// Acted — по картинке было действие (оценка, пропуск, жалоба): убираем её из кандидатов.
func (s *Session) Acted(imageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acted[imageID] = struct{}{}
	if s.current == imageID {
		s.current = ""
	}
	if s.state != Exhausted {
		s.state = AwaitingSelection
	}
}

// Restore — после отмены последней оценки возвращаем картинку в показ.
func (s *Session) Restore(imageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.acted, imageID)
	s.current = imageID
	s.state = Presenting
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.state == Presenting
}

func (s *Session) candidates(catalog, rated []string) []string {
	unrated := Unrated(catalog, rated)
	if len(s.acted) == 0 {
		return unrated
	}
	out := unrated[:0]
	for _, id := range unrated {
		if _, ok := s.acted[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
