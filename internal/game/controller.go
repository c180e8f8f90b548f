package game

import (
	"context"
	"encoding/json"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans session events out to the host room, the players room, or
// a single connection. Implemented by the websocket hub; faked in tests.
// Implementations must not block: a slow client never delays the game.
type Broadcaster interface {
	JoinHostRoom(connID string)
	JoinPlayersRoom(connID string)
	ToHost(event string, data any)
	ToPlayers(event string, data any)
	ToConn(connID string, event string, data any)
}

// CatalogProvider supplies the ordered question sequence the session plays.
// The controller snapshots it when a game starts, so catalog edits are only
// observed at waiting-phase boundaries.
type CatalogProvider interface {
	Snapshot() ([]Question, error)
}

type cmdKind int

const (
	cmdHostJoin cmdKind = iota
	cmdPlayerJoin
	cmdStartGame
	cmdNextQuestion
	cmdSubmitAnswer
	cmdResetGame
	cmdDisconnect
	cmdTick
	cmdCatalogChanged
	cmdUpdateSettings
)

type command struct {
	kind     cmdKind
	connID   string
	name     string
	avatar   string
	pin      string
	choice   int
	timer    *countdown
	settings json.RawMessage
}

// Controller owns the session state machine. Every incoming event (join,
// host command, answer, timer tick) is a command processed to completion by
// a single goroutine, so session state never sees interleaved mutation.
type Controller struct {
	broadcaster Broadcaster
	catalog     CatalogProvider
	clock       clockwork.Clock

	cmds      chan command
	session   *Session
	questions []Question
	settings  json.RawMessage
	timer     *countdown
}

func NewController(broadcaster Broadcaster, catalog CatalogProvider, clock clockwork.Clock) *Controller {
	return &Controller{
		broadcaster: broadcaster,
		catalog:     catalog,
		clock:       clock,
		cmds:        make(chan command, 256),
		session:     NewSession(),
	}
}

// Run consumes commands until the context ends. It is the only goroutine
// that touches the session.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.cancelTimer()
			return
		case cmd := <-c.cmds:
			c.handle(cmd)
		}
	}
}

// Inbound command surface, one method per transport message. All of these
// just enqueue; ordering is whatever order they arrive in.

func (c *Controller) HostJoin(connID string) {
	c.cmds <- command{kind: cmdHostJoin, connID: connID}
}

func (c *Controller) PlayerJoin(connID, pin, name, avatar string) {
	c.cmds <- command{kind: cmdPlayerJoin, connID: connID, pin: pin, name: name, avatar: avatar}
}

func (c *Controller) StartGame(connID string) {
	c.cmds <- command{kind: cmdStartGame, connID: connID}
}

func (c *Controller) NextQuestion(connID string) {
	c.cmds <- command{kind: cmdNextQuestion, connID: connID}
}

func (c *Controller) SubmitAnswer(connID string, choice int) {
	c.cmds <- command{kind: cmdSubmitAnswer, connID: connID, choice: choice}
}

func (c *Controller) ResetGame(connID string) {
	c.cmds <- command{kind: cmdResetGame, connID: connID}
}

func (c *Controller) Disconnect(connID string) {
	c.cmds <- command{kind: cmdDisconnect, connID: connID}
}

// CatalogChanged forces the session back to waiting after a catalog save, so
// a reload is never observed mid-game.
func (c *Controller) CatalogChanged() {
	c.cmds <- command{kind: cmdCatalogChanged}
}

// UpdateSettings replaces the shared client settings blob and pushes it to
// every connection.
func (c *Controller) UpdateSettings(settings json.RawMessage) {
	c.cmds <- command{kind: cmdUpdateSettings, settings: settings}
}

func (c *Controller) handle(cmd command) {
	switch cmd.kind {
	case cmdHostJoin:
		c.handleHostJoin(cmd.connID)
	case cmdPlayerJoin:
		c.handlePlayerJoin(cmd.connID, cmd.pin, cmd.name, cmd.avatar)
	case cmdStartGame:
		c.handleStartGame(cmd.connID)
	case cmdNextQuestion:
		c.handleNextQuestion(cmd.connID)
	case cmdSubmitAnswer:
		c.handleSubmitAnswer(cmd.connID, cmd.choice)
	case cmdResetGame:
		c.handleResetGame(cmd.connID)
	case cmdDisconnect:
		c.handleDisconnect(cmd.connID)
	case cmdTick:
		c.handleTick(cmd.timer)
	case cmdCatalogChanged:
		c.handleCatalogChanged()
	case cmdUpdateSettings:
		c.settings = cmd.settings
		c.broadcaster.ToHost(EventGameSettings, cmd.settings)
		c.broadcaster.ToPlayers(EventGameSettings, cmd.settings)
	}
}

// handleHostJoin is idempotent but destructive: a new host connection always
// supersedes the previous one and restarts the session from scratch.
func (c *Controller) handleHostJoin(connID string) {
	s := c.session
	c.cancelTimer()

	s.HostConnID = connID
	s.Pin = NewPin()
	s.Phase = PhaseWaiting
	s.CurrentQuestion = -1
	s.Players = make(map[string]*Player)
	s.Answers = make(map[string]Answer)
	c.questions = nil

	c.broadcaster.JoinHostRoom(connID)
	c.broadcaster.ToConn(connID, EventGamePin, PinPayload{Pin: s.Pin})
	if c.settings != nil {
		c.broadcaster.ToConn(connID, EventGameSettings, c.settings)
	}
	c.broadcaster.ToConn(connID, EventPlayerList, []RankEntry{})
	c.broadcaster.ToPlayers(EventGameReset, nil)

	log.Info().Str("pin", s.Pin).Msg("host started a new session")
}

func (c *Controller) handlePlayerJoin(connID, pin, name, avatar string) {
	s := c.session

	if oldID, _, ok := s.FindPlayerByName(name); ok {
		c.reconnectPlayer(oldID, connID)
		return
	}

	if pin != s.Pin {
		c.broadcaster.ToConn(connID, EventJoinError, JoinErrorPayload{Message: "invalid PIN"})
		return
	}
	if s.Phase != PhaseWaiting {
		c.broadcaster.ToConn(connID, EventJoinError, JoinErrorPayload{Message: "the game has already started"})
		return
	}

	s.Players[connID] = &Player{Name: name, Avatar: avatar, Connected: true}

	c.broadcaster.JoinPlayersRoom(connID)
	c.broadcaster.ToConn(connID, EventJoinSuccess, JoinSuccessPayload{Name: name, Avatar: avatar})
	if c.settings != nil {
		c.broadcaster.ToConn(connID, EventGameSettings, c.settings)
	}
	c.broadcaster.ToHost(EventPlayerList, s.PlayerList())

	log.Info().Str("name", name).Str("conn", connID).Msg("player joined")
}

// reconnectPlayer migrates an existing identity to a new connection and
// resyncs it to the current phase instead of parking it in the lobby. This
// path deliberately skips the pin and waiting-phase checks: a known name may
// rejoin mid-question, mid-results, or at the podium.
func (c *Controller) reconnectPlayer(oldID, connID string) {
	s := c.session
	p := s.MigratePlayer(oldID, connID)

	c.broadcaster.JoinPlayersRoom(connID)
	c.broadcaster.ToConn(connID, EventJoinSuccess, JoinSuccessPayload{Name: p.Name, Avatar: p.Avatar})
	if c.settings != nil {
		c.broadcaster.ToConn(connID, EventGameSettings, c.settings)
	}

	log.Info().Str("name", p.Name).Str("conn", connID).Msg("player reconnected")

	switch s.Phase {
	case PhaseQuestion:
		if q, ok := c.currentQuestion(); ok {
			c.broadcaster.ToConn(connID, EventShowOptions, c.playerQuestionPayload(q))
		}
	case PhaseResults:
		// Only the player's own outcome; the shared tally stays on the host
		// screen that already received it.
		a := s.Answers[connID]
		c.broadcaster.ToConn(connID, EventAnswerResult, AnswerResultPayload{
			Correct: a.Correct,
			Points:  a.Points,
			Streak:  p.Streak,
		})
	case PhasePodium:
		c.broadcaster.ToConn(connID, EventShowFinalRank, PodiumPayload{Ranking: s.Ranking()})
	default:
		c.broadcaster.ToHost(EventPlayerList, s.PlayerList())
	}
}

func (c *Controller) handleStartGame(connID string) {
	s := c.session
	if connID != s.HostConnID || s.Phase != PhaseWaiting {
		return
	}

	questions, err := c.catalog.Snapshot()
	if err != nil {
		log.Error().Err(err).Msg("could not load question catalog")
		return
	}
	c.questions = questions
	s.CurrentQuestion = -1

	log.Info().Int("questions", len(questions)).Int("players", len(s.Players)).Msg("game started")
	c.advance()
}

func (c *Controller) handleNextQuestion(connID string) {
	s := c.session
	if connID != s.HostConnID {
		return
	}
	// Podium is terminal until reset; next from the lobby is meaningless.
	if s.Phase != PhaseQuestion && s.Phase != PhaseResults {
		return
	}
	c.advance()
}

// advance moves to the next question, or to the podium when the catalog is
// exhausted (or empty). It always cancels any in-flight timer first.
func (c *Controller) advance() {
	s := c.session
	c.cancelTimer()

	s.CurrentQuestion++
	if s.CurrentQuestion >= len(c.questions) {
		s.Phase = PhasePodium
		ranking := s.Ranking()
		c.broadcaster.ToHost(EventShowPodium, PodiumPayload{Ranking: ranking})
		c.broadcaster.ToPlayers(EventShowFinalRank, PodiumPayload{Ranking: ranking})
		return
	}

	q := c.questions[s.CurrentQuestion]
	s.Phase = PhaseQuestion
	s.Answers = make(map[string]Answer)
	s.TimeLeft = q.TimeLimit

	c.broadcaster.ToHost(EventShowQuestion, HostQuestionPayload{
		Index:        s.CurrentQuestion,
		Total:        len(c.questions),
		Question:     q.Text,
		Media:        q.Media,
		Options:      activeOptions(q),
		TimeLimit:    q.TimeLimit,
		CorrectIndex: q.Correct,
	})
	c.broadcaster.ToPlayers(EventShowOptions, c.playerQuestionPayload(q))

	c.armTimer()
}

func (c *Controller) handleSubmitAnswer(connID string, choice int) {
	s := c.session
	if s.Phase != PhaseQuestion {
		return
	}
	p, ok := s.Players[connID]
	if !ok || !p.Connected {
		return
	}
	if _, answered := s.Answers[connID]; answered {
		return
	}
	q, ok := c.currentQuestion()
	if !ok || choice < 0 || choice >= len(q.Options) {
		return
	}

	correct := choice == q.Correct
	points := 0
	if correct {
		p.Streak++
		points = CalculateScore(s.TimeLeft, q.TimeLimit, p.Streak)
		p.Score += points
	} else {
		p.Streak = 0
	}
	s.Answers[connID] = Answer{Choice: choice, Correct: correct, Points: points}

	c.broadcaster.ToConn(connID, EventAnswerResult, AnswerResultPayload{
		Correct: correct,
		Points:  points,
		Streak:  p.Streak,
	})
	c.broadcaster.ToHost(EventAnswerCount, AnswerCountPayload{
		Count: len(s.Answers),
		Total: s.ConnectedCount(),
	})

	if s.AllAnswered() {
		c.cancelTimer()
		c.endQuestion()
	}
}

func (c *Controller) handleTick(timer *countdown) {
	if timer != c.timer {
		return // stale tick from a cancelled countdown
	}
	s := c.session
	s.TimeLeft--

	tick := TickPayload{TimeLeft: s.TimeLeft}
	c.broadcaster.ToHost(EventTimerTick, tick)
	c.broadcaster.ToPlayers(EventTimerTick, tick)

	if s.TimeLeft <= 0 {
		c.cancelTimer()
		c.endQuestion()
	}
}

// endQuestion enters the results phase: tally per-option counts, show the
// host the full breakdown plus the top of the leaderboard, and tell players
// the question is over. Players already learned their own outcome from
// answer-result, so their signal stays terse.
func (c *Controller) endQuestion() {
	s := c.session
	q, ok := c.currentQuestion()
	if !ok {
		return
	}
	s.Phase = PhaseResults

	var counts [4]int
	for _, a := range s.Answers {
		if a.Choice >= 0 && a.Choice < len(q.Options) && a.Choice < len(counts) {
			counts[a.Choice]++
		}
	}

	correctText := ""
	if q.Correct >= 0 && q.Correct < len(q.Options) {
		correctText = q.Options[q.Correct].Text
	}

	c.broadcaster.ToHost(EventShowResults, ResultsPayload{
		CorrectIndex: q.Correct,
		CorrectText:  correctText,
		AnswerCounts: counts,
		Ranking:      TopN(s.Ranking(), 5),
		IsLast:       s.CurrentQuestion >= len(c.questions)-1,
	})
	c.broadcaster.ToPlayers(EventQuestionEnded, QuestionEndedPayload{Correct: q.Correct})
}

func (c *Controller) handleResetGame(connID string) {
	s := c.session
	if connID != s.HostConnID {
		return
	}

	c.cancelTimer()
	s.Phase = PhaseWaiting
	s.CurrentQuestion = -1
	s.Pin = NewPin()
	s.Players = make(map[string]*Player)
	s.Answers = make(map[string]Answer)
	c.questions = nil

	c.broadcaster.ToHost(EventGamePin, PinPayload{Pin: s.Pin})
	c.broadcaster.ToHost(EventGameReset, nil)
	c.broadcaster.ToPlayers(EventGameReset, nil)

	log.Info().Str("pin", s.Pin).Msg("game reset")
}

// handleCatalogChanged pulls the session back to waiting after the question
// set was replaced. Players stay connected but their scores restart, since
// the old standings belong to questions that no longer exist.
func (c *Controller) handleCatalogChanged() {
	s := c.session
	c.cancelTimer()

	s.Phase = PhaseWaiting
	s.CurrentQuestion = -1
	s.Answers = make(map[string]Answer)
	c.questions = nil
	for _, p := range s.Players {
		p.Score = 0
		p.Streak = 0
	}

	c.broadcaster.ToHost(EventGameReset, nil)
	c.broadcaster.ToPlayers(EventGameReset, nil)
}

func (c *Controller) handleDisconnect(connID string) {
	s := c.session

	if p, ok := s.Players[connID]; ok {
		if s.Phase == PhaseWaiting {
			// Leaving the lobby is a real leave.
			delete(s.Players, connID)
			c.broadcaster.ToHost(EventPlayerList, s.PlayerList())
		} else {
			// Mid-game drops keep the record so a rejoin under the same name
			// recovers score and streak.
			p.Connected = false
		}
		log.Info().Str("name", p.Name).Msg("player disconnected")
	}

	if connID == s.HostConnID {
		// The game continues headless; host commands are rejected until a
		// new host connection takes over and resets the session.
		s.HostConnID = ""
		log.Info().Msg("host disconnected")
	}
}

func (c *Controller) currentQuestion() (Question, bool) {
	s := c.session
	if s.CurrentQuestion < 0 || s.CurrentQuestion >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[s.CurrentQuestion], true
}

func (c *Controller) playerQuestionPayload(q Question) PlayerQuestionPayload {
	return PlayerQuestionPayload{
		Index:     c.session.CurrentQuestion,
		Total:     len(c.questions),
		Question:  q.Text,
		Options:   activeOptions(q),
		TimeLimit: q.TimeLimit,
	}
}

// activeOptions drops empty-text options while keeping original indices, so
// answers still refer to positions in the catalog.
func activeOptions(q Question) []OptionView {
	views := make([]OptionView, 0, len(q.Options))
	for i, o := range q.Options {
		if o.Text == "" {
			continue
		}
		views = append(views, OptionView{Index: i, Text: o.Text})
	}
	return views
}
