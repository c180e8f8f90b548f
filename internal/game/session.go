package game

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
	PhasePodium   Phase = "podium"
)

// Player is a participant identified by name. The name doubles as the
// reconnection identity, so score and streak survive a dropped connection.
type Player struct {
	Name      string
	Avatar    string
	Score     int
	Streak    int
	Connected bool
}

// Answer records one player's submission for the current question. There is
// at most one per player per question and it is never mutated after creation.
type Answer struct {
	Choice  int
	Correct bool
	Points  int
}

// Option and Question form the catalog snapshot the session plays through.
// The core treats them as read-only.
type Option struct {
	Text string
}

type Question struct {
	Text      string
	TimeLimit int
	Media     string
	Options   []Option
	Correct   int
}

// Session is the single authoritative in-memory record of one game. It is
// only ever mutated from the Controller's command loop.
type Session struct {
	Pin             string
	Phase           Phase
	CurrentQuestion int
	TimeLeft        int
	HostConnID      string
	Players         map[string]*Player
	Answers         map[string]Answer
}

func NewSession() *Session {
	return &Session{
		Pin:             NewPin(),
		Phase:           PhaseWaiting,
		CurrentQuestion: -1,
		Players:         make(map[string]*Player),
		Answers:         make(map[string]Answer),
	}
}

// FindPlayerByName looks up a player by exact (case-sensitive) name and
// returns the connection id it is currently keyed under.
func (s *Session) FindPlayerByName(name string) (string, *Player, bool) {
	for id, p := range s.Players {
		if p.Name == name {
			return id, p, true
		}
	}
	return "", nil, false
}

// MigratePlayer moves a player record, and any pending answer, from a stale
// connection id to a freshly connected one. Score and streak travel with it.
func (s *Session) MigratePlayer(oldID, newID string) *Player {
	p := s.Players[oldID]
	delete(s.Players, oldID)
	p.Connected = true
	s.Players[newID] = p

	if a, ok := s.Answers[oldID]; ok {
		delete(s.Answers, oldID)
		s.Answers[newID] = a
	}
	return p
}

func (s *Session) ConnectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every connected player has submitted an answer
// for the current question. False when nobody is connected.
func (s *Session) AllAnswered() bool {
	if s.ConnectedCount() == 0 {
		return false
	}
	for id, p := range s.Players {
		if !p.Connected {
			continue
		}
		if _, ok := s.Answers[id]; !ok {
			return false
		}
	}
	return true
}
