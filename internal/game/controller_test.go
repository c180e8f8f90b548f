package game

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	event string
	data  any
}

// fakeBroadcaster records everything the controller fans out.
type fakeBroadcaster struct {
	mu         sync.Mutex
	host       []recordedEvent
	players    []recordedEvent
	conns      map[string][]recordedEvent
	hostRoom   []string
	playerRoom []string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{conns: make(map[string][]recordedEvent)}
}

func (f *fakeBroadcaster) JoinHostRoom(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hostRoom = append(f.hostRoom, connID)
}

func (f *fakeBroadcaster) JoinPlayersRoom(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playerRoom = append(f.playerRoom, connID)
}

func (f *fakeBroadcaster) ToHost(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.host = append(f.host, recordedEvent{event, data})
}

func (f *fakeBroadcaster) ToPlayers(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = append(f.players, recordedEvent{event, data})
}

func (f *fakeBroadcaster) ToConn(connID string, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[connID] = append(f.conns[connID], recordedEvent{event, data})
}

func (f *fakeBroadcaster) lastHost(event string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.host) - 1; i >= 0; i-- {
		if f.host[i].event == event {
			return f.host[i].data, true
		}
	}
	return nil, false
}

func (f *fakeBroadcaster) lastPlayers(event string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.players) - 1; i >= 0; i-- {
		if f.players[i].event == event {
			return f.players[i].data, true
		}
	}
	return nil, false
}

func (f *fakeBroadcaster) lastConn(connID, event string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.conns[connID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].event == event {
			return events[i].data, true
		}
	}
	return nil, false
}

func (f *fakeBroadcaster) countPlayers(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.players {
		if e.event == event {
			n++
		}
	}
	return n
}

type stubCatalog struct {
	questions []Question
	err       error
}

func (s *stubCatalog) Snapshot() ([]Question, error) {
	return s.questions, s.err
}

func twoQuestions() []Question {
	return []Question{
		{
			Text:      "capital of France?",
			TimeLimit: 20,
			Options:   []Option{{Text: "Paris"}, {Text: "Lyon"}, {Text: "Nice"}, {Text: ""}},
			Correct:   0,
		},
		{
			Text:      "2+2?",
			TimeLimit: 10,
			Options:   []Option{{Text: "3"}, {Text: "4"}},
			Correct:   1,
		},
	}
}

// newTestController wires a controller to fakes. Tests drive it synchronously
// by enqueueing commands and draining the channel themselves instead of
// running the loop goroutine.
func newTestController(questions []Question) (*Controller, *fakeBroadcaster, *clockwork.FakeClock) {
	fb := newFakeBroadcaster()
	clock := clockwork.NewFakeClock()
	c := NewController(fb, &stubCatalog{questions: questions}, clock)
	return c, fb, clock
}

func drain(c *Controller) {
	for {
		select {
		case cmd := <-c.cmds:
			c.handle(cmd)
		default:
			return
		}
	}
}

// handleNextTick blocks for the tick the countdown goroutine posts after a
// clock advance, then processes it.
func handleNextTick(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case cmd := <-c.cmds:
		require.Equal(t, cmdTick, cmd.kind)
		c.handle(cmd)
	case <-time.After(5 * time.Second):
		t.Fatal("no tick arrived on the command channel")
	}
}

func setupGame(t *testing.T, c *Controller, fb *fakeBroadcaster, playerNames ...string) {
	t.Helper()
	c.HostJoin("host")
	drain(c)

	pinData, ok := fb.lastConn("host", EventGamePin)
	require.True(t, ok)
	pin := pinData.(PinPayload).Pin

	for _, name := range playerNames {
		c.PlayerJoin("conn-"+name, pin, name, "")
	}
	drain(c)
}

func TestHostJoinStartsFreshSession(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())

	c.HostJoin("host")
	drain(c)

	assert.Equal(t, PhaseWaiting, c.session.Phase)
	assert.Equal(t, -1, c.session.CurrentQuestion)
	assert.Equal(t, "host", c.session.HostConnID)

	pinData, ok := fb.lastConn("host", EventGamePin)
	require.True(t, ok)
	assert.Equal(t, c.session.Pin, pinData.(PinPayload).Pin)

	_, reset := fb.lastPlayers(EventGameReset)
	assert.True(t, reset, "existing players are forced back to their start screen")
}

func TestNewHostSupersedesOldOne(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	oldPin := c.session.Pin

	c.HostJoin("host2")
	drain(c)

	assert.Equal(t, "host2", c.session.HostConnID)
	assert.NotEqual(t, oldPin, c.session.Pin)
	assert.Empty(t, c.session.Players, "host takeover resets the whole session")
}

func TestPlayerJoinHappyPath(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")

	require.Len(t, c.session.Players, 1)
	p := c.session.Players["conn-Ana"]
	require.NotNil(t, p)
	assert.Equal(t, "Ana", p.Name)
	assert.True(t, p.Connected)
	assert.Zero(t, p.Score)

	success, ok := fb.lastConn("conn-Ana", EventJoinSuccess)
	require.True(t, ok)
	assert.Equal(t, "Ana", success.(JoinSuccessPayload).Name)

	list, ok := fb.lastHost(EventPlayerList)
	require.True(t, ok)
	assert.Len(t, list.([]RankEntry), 1)
}

func TestPlayerJoinRejectedOnBadPin(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	c.HostJoin("host")
	drain(c)

	c.PlayerJoin("c1", "000000", "Ana", "")
	drain(c)

	assert.Empty(t, c.session.Players)
	data, ok := fb.lastConn("c1", EventJoinError)
	require.True(t, ok)
	assert.NotEmpty(t, data.(JoinErrorPayload).Message)
}

func TestLateJoinRejectedAfterStart(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	pin := c.session.Pin

	c.StartGame("host")
	drain(c)
	require.Equal(t, PhaseQuestion, c.session.Phase)

	c.PlayerJoin("c2", pin, "Bob", "")
	drain(c)

	assert.Len(t, c.session.Players, 1)
	_, rejected := fb.lastConn("c2", EventJoinError)
	assert.True(t, rejected)
}

func TestStartGameBroadcastsQuestion(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")

	c.StartGame("host")
	drain(c)

	assert.Equal(t, PhaseQuestion, c.session.Phase)
	assert.Equal(t, 0, c.session.CurrentQuestion)
	assert.Equal(t, 20, c.session.TimeLeft)
	require.NotNil(t, c.timer, "countdown must be armed")

	hostData, ok := fb.lastHost(EventShowQuestion)
	require.True(t, ok)
	hq := hostData.(HostQuestionPayload)
	assert.Equal(t, 0, hq.CorrectIndex, "host sees the correct answer")
	assert.Len(t, hq.Options, 3, "empty-text option is inactive")

	playerData, ok := fb.lastPlayers(EventShowOptions)
	require.True(t, ok)
	pq := playerData.(PlayerQuestionPayload)
	assert.Equal(t, "capital of France?", pq.Question)
	assert.Len(t, pq.Options, 3)
	assert.Equal(t, 2, pq.Options[2].Index, "catalog indices survive filtering")
}

func TestStartGameIgnoredFromNonHost(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")

	c.StartGame("conn-Ana")
	drain(c)

	assert.Equal(t, PhaseWaiting, c.session.Phase)
}

func TestAnswerScoringCorrectAndIncorrect(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana", "Bob")
	c.StartGame("host")
	drain(c)

	// Full time left: elapsed 0, first correct answer.
	c.SubmitAnswer("conn-Ana", 0)
	c.SubmitAnswer("conn-Bob", 1)
	drain(c)

	ana := c.session.Players["conn-Ana"]
	bob := c.session.Players["conn-Bob"]
	assert.Equal(t, 1500, ana.Score)
	assert.Equal(t, 1, ana.Streak)
	assert.Equal(t, 0, bob.Score)
	assert.Equal(t, 0, bob.Streak)

	result, ok := fb.lastConn("conn-Ana", EventAnswerResult)
	require.True(t, ok)
	assert.Equal(t, AnswerResultPayload{Correct: true, Points: 1500, Streak: 1}, result)

	result, ok = fb.lastConn("conn-Bob", EventAnswerResult)
	require.True(t, ok)
	assert.Equal(t, AnswerResultPayload{Correct: false, Points: 0, Streak: 0}, result)
}

func TestAllAnsweredShortCircuitsToResults(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana", "Bob")
	c.StartGame("host")
	drain(c)

	c.SubmitAnswer("conn-Ana", 0)
	drain(c)
	assert.Equal(t, PhaseQuestion, c.session.Phase, "one of two answers does not end the question")

	countData, ok := fb.lastHost(EventAnswerCount)
	require.True(t, ok)
	assert.Equal(t, AnswerCountPayload{Count: 1, Total: 2}, countData)

	c.SubmitAnswer("conn-Bob", 1)
	drain(c)

	assert.Equal(t, PhaseResults, c.session.Phase)
	assert.Nil(t, c.timer, "timer cancelled on short-circuit")

	resultsData, ok := fb.lastHost(EventShowResults)
	require.True(t, ok)
	results := resultsData.(ResultsPayload)
	assert.Equal(t, 0, results.CorrectIndex)
	assert.Equal(t, "Paris", results.CorrectText)
	assert.Equal(t, [4]int{1, 1, 0, 0}, results.AnswerCounts)
	assert.False(t, results.IsLast)
	assert.Equal(t, "Ana", results.Ranking[0].Name)

	ended, ok := fb.lastPlayers(EventQuestionEnded)
	require.True(t, ok)
	assert.Equal(t, QuestionEndedPayload{Correct: 0}, ended)
}

func TestSecondAnswerIsIgnored(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana", "Bob")
	c.StartGame("host")
	drain(c)

	c.SubmitAnswer("conn-Ana", 0)
	drain(c)
	c.SubmitAnswer("conn-Ana", 1)
	c.SubmitAnswer("conn-Ana", 0)
	drain(c)

	assert.Len(t, c.session.Answers, 1)
	ana := c.session.Players["conn-Ana"]
	assert.Equal(t, 1500, ana.Score)
	assert.Equal(t, 1, ana.Streak)
}

func TestAnswersOutsideQuestionPhaseIgnored(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")

	c.SubmitAnswer("conn-Ana", 0)
	drain(c)
	assert.Empty(t, c.session.Answers)

	c.SubmitAnswer("stranger", 0)
	drain(c)
	assert.Empty(t, c.session.Answers)

	assert.LessOrEqual(t, len(c.session.Answers), len(c.session.Players))
}

func TestTimerExpiryEntersResults(t *testing.T) {
	questions := []Question{{
		Text:      "q",
		TimeLimit: 2,
		Options:   []Option{{Text: "a"}, {Text: "b"}},
		Correct:   0,
	}}
	c, fb, clock := newTestController(questions)
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	require.Equal(t, 2, c.session.TimeLeft)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	handleNextTick(t, c)

	assert.Equal(t, 1, c.session.TimeLeft)
	assert.Equal(t, PhaseQuestion, c.session.Phase)
	tickData, ok := fb.lastPlayers(EventTimerTick)
	require.True(t, ok)
	assert.Equal(t, TickPayload{TimeLeft: 1}, tickData)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	handleNextTick(t, c)

	assert.Equal(t, PhaseResults, c.session.Phase)
	assert.Nil(t, c.timer)
}

func TestStaleTickIsDropped(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)

	stale := c.timer
	c.cancelTimer()
	c.handle(command{kind: cmdTick, timer: stale})

	assert.Equal(t, 20, c.session.TimeLeft, "tick from a cancelled countdown must not decrement")
}

func TestPodiumIsTerminalUntilReset(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	c.SubmitAnswer("conn-Ana", 0)
	drain(c)

	c.NextQuestion("host")
	drain(c)
	require.Equal(t, PhaseQuestion, c.session.Phase)
	require.Equal(t, 1, c.session.CurrentQuestion)
	assert.Empty(t, c.session.Answers, "answers cleared when a question starts")

	c.SubmitAnswer("conn-Ana", 1)
	drain(c)
	require.Equal(t, PhaseResults, c.session.Phase)

	resultsData, _ := fb.lastHost(EventShowResults)
	assert.True(t, resultsData.(ResultsPayload).IsLast)

	c.NextQuestion("host")
	drain(c)
	assert.Equal(t, PhasePodium, c.session.Phase)

	podium, ok := fb.lastHost(EventShowPodium)
	require.True(t, ok)
	assert.Equal(t, "Ana", podium.(PodiumPayload).Ranking[0].Name)
	finalRank, ok := fb.lastPlayers(EventShowFinalRank)
	require.True(t, ok)
	assert.NotEmpty(t, finalRank.(PodiumPayload).Ranking)

	c.NextQuestion("host")
	c.StartGame("host")
	drain(c)
	assert.Equal(t, PhasePodium, c.session.Phase, "no advance past podium without reset")

	c.ResetGame("host")
	drain(c)
	assert.Equal(t, PhaseWaiting, c.session.Phase)
	assert.Equal(t, -1, c.session.CurrentQuestion)
	assert.Empty(t, c.session.Players)
}

func TestEmptyCatalogGoesStraightToPodium(t *testing.T) {
	c, fb, _ := newTestController(nil)
	setupGame(t, c, fb, "Ana")

	c.StartGame("host")
	drain(c)

	assert.Equal(t, PhasePodium, c.session.Phase)
	podium, ok := fb.lastHost(EventShowPodium)
	require.True(t, ok)
	assert.Len(t, podium.(PodiumPayload).Ranking, 1)
}

func TestReconnectionPreservesIdentity(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)

	ana := c.session.Players["conn-Ana"]
	ana.Score = 1500
	ana.Streak = 2

	c.Disconnect("conn-Ana")
	drain(c)
	assert.False(t, c.session.Players["conn-Ana"].Connected, "mid-game drop keeps the record")

	// Rejoin mid-question bypasses the pin and waiting-phase checks.
	c.PlayerJoin("conn-new", "wrong-pin", "Ana", "")
	drain(c)

	require.NotContains(t, c.session.Players, "conn-Ana")
	p := c.session.Players["conn-new"]
	require.NotNil(t, p)
	assert.Equal(t, 1500, p.Score)
	assert.Equal(t, 2, p.Streak)
	assert.True(t, p.Connected)

	// Resync: current question without the answer.
	opts, ok := fb.lastConn("conn-new", EventShowOptions)
	require.True(t, ok)
	assert.Equal(t, "capital of France?", opts.(PlayerQuestionPayload).Question)
}

func TestReconnectDuringResultsGetsOwnOutcomeOnly(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	c.SubmitAnswer("conn-Ana", 0)
	drain(c)
	require.Equal(t, PhaseResults, c.session.Phase)

	c.Disconnect("conn-Ana")
	c.PlayerJoin("conn-new", "", "Ana", "")
	drain(c)

	result, ok := fb.lastConn("conn-new", EventAnswerResult)
	require.True(t, ok)
	assert.Equal(t, AnswerResultPayload{Correct: true, Points: 1500, Streak: 1}, result)

	_, gotResults := fb.lastConn("conn-new", EventShowResults)
	assert.False(t, gotResults, "the shared tally is host-only")
}

func TestReconnectAtPodiumGetsFinalRanking(t *testing.T) {
	c, fb, _ := newTestController(nil)
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	require.Equal(t, PhasePodium, c.session.Phase)

	c.Disconnect("conn-Ana")
	c.PlayerJoin("conn-new", "", "Ana", "")
	drain(c)

	rank, ok := fb.lastConn("conn-new", EventShowFinalRank)
	require.True(t, ok)
	assert.Equal(t, "Ana", rank.(PodiumPayload).Ranking[0].Name)
}

func TestLobbyDisconnectRemovesPlayer(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana", "Bob")

	c.Disconnect("conn-Ana")
	drain(c)

	assert.Len(t, c.session.Players, 1)
	list, ok := fb.lastHost(EventPlayerList)
	require.True(t, ok)
	assert.Equal(t, "Bob", list.([]RankEntry)[0].Name)
}

func TestHostDisconnectGameContinuesHeadless(t *testing.T) {
	c, fb, clock := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)

	c.Disconnect("host")
	drain(c)
	assert.Empty(t, c.session.HostConnID)
	assert.Equal(t, PhaseQuestion, c.session.Phase)

	// The timer still runs and players can still answer.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	handleNextTick(t, c)
	assert.Equal(t, 19, c.session.TimeLeft)

	// Commands from the stale host id no longer have authority.
	c.NextQuestion("host")
	drain(c)
	assert.Equal(t, PhaseQuestion, c.session.Phase)
}

func TestNextDuringQuestionSkipsAndCancelsTimer(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	first := c.timer

	c.NextQuestion("host")
	drain(c)

	assert.Equal(t, 1, c.session.CurrentQuestion)
	assert.Equal(t, PhaseQuestion, c.session.Phase)
	require.NotNil(t, c.timer)
	assert.NotSame(t, first, c.timer, "a fresh countdown replaces the old one")
}

func TestCatalogChangedForcesResetKeepingPlayers(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)
	c.session.Players["conn-Ana"].Score = 1200

	c.CatalogChanged()
	drain(c)

	assert.Equal(t, PhaseWaiting, c.session.Phase)
	assert.Equal(t, -1, c.session.CurrentQuestion)
	assert.Nil(t, c.timer)
	require.Len(t, c.session.Players, 1)
	assert.Zero(t, c.session.Players["conn-Ana"].Score)
	assert.GreaterOrEqual(t, fb.countPlayers(EventGameReset), 1)
}

func TestAnswersNeverExceedPlayers(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana", "Bob")
	c.StartGame("host")
	drain(c)

	for _, conn := range []string{"conn-Ana", "conn-Bob", "ghost", "conn-Ana"} {
		c.SubmitAnswer(conn, 0)
		drain(c)
		assert.LessOrEqual(t, len(c.session.Answers), len(c.session.Players))
	}
}

func TestStreakAccumulatesAcrossQuestions(t *testing.T) {
	c, fb, _ := newTestController(twoQuestions())
	setupGame(t, c, fb, "Ana")
	c.StartGame("host")
	drain(c)

	c.SubmitAnswer("conn-Ana", 0)
	drain(c)
	c.NextQuestion("host")
	drain(c)
	c.SubmitAnswer("conn-Ana", 1)
	drain(c)

	ana := c.session.Players["conn-Ana"]
	assert.Equal(t, 2, ana.Streak)
	// 1500 for the first, then (1000+500)*1.2 for the second at full time.
	assert.Equal(t, 1500+1800, ana.Score)
}
