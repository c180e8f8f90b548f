package game

// Outbound event names. Host and player payloads differ on purpose: the host
// screen sees the correct answer before results, players never do.
const (
	EventGamePin       = "game-pin"
	EventGameSettings  = "game-settings"
	EventPlayerList    = "player-list"
	EventShowQuestion  = "show-question"
	EventShowOptions   = "show-options"
	EventTimerTick     = "timer-tick"
	EventAnswerCount   = "answer-count"
	EventAnswerResult  = "answer-result"
	EventShowResults   = "show-results"
	EventQuestionEnded = "question-ended"
	EventShowPodium    = "show-podium"
	EventShowFinalRank = "show-final-rank"
	EventGameReset     = "game-reset"
	EventJoinSuccess   = "join-success"
	EventJoinError     = "join-error"
)

type PinPayload struct {
	Pin string `json:"pin"`
}

// OptionView carries the option's catalog index alongside its text so that
// filtering out inactive (empty-text) options does not renumber the rest.
type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// HostQuestionPayload goes to the host room only: it includes the correct
// answer index for the presenter screen.
type HostQuestionPayload struct {
	Index        int          `json:"index"`
	Total        int          `json:"total"`
	Question     string       `json:"question"`
	Media        string       `json:"media,omitempty"`
	Options      []OptionView `json:"options"`
	TimeLimit    int          `json:"timeLimit"`
	CorrectIndex int          `json:"correctIndex"`
}

type PlayerQuestionPayload struct {
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Question  string       `json:"question"`
	Options   []OptionView `json:"options"`
	TimeLimit int          `json:"timeLimit"`
}

type TickPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type AnswerCountPayload struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

type AnswerResultPayload struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
	Streak  int  `json:"streak"`
}

type ResultsPayload struct {
	CorrectIndex int         `json:"correctIndex"`
	CorrectText  string      `json:"correctText"`
	AnswerCounts [4]int      `json:"answerCounts"`
	Ranking      []RankEntry `json:"ranking"`
	IsLast       bool        `json:"isLast"`
}

type QuestionEndedPayload struct {
	Correct int `json:"correct"`
}

type PodiumPayload struct {
	Ranking []RankEntry `json:"ranking"`
}

type JoinSuccessPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
}
