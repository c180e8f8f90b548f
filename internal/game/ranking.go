package game

import "sort"

// RankEntry is one row of the leaderboard views sent to host and players.
type RankEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
	Avatar string `json:"avatar,omitempty"`
}

// PlayerList returns every player in the session, sorted by name so the
// lobby view is stable across broadcasts.
func (s *Session) PlayerList() []RankEntry {
	list := make([]RankEntry, 0, len(s.Players))
	for id, p := range s.Players {
		list = append(list, RankEntry{ID: id, Name: p.Name, Score: p.Score, Streak: p.Streak, Avatar: p.Avatar})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Ranking returns the leaderboard sorted by score descending, names breaking
// ties so the order is deterministic.
func (s *Session) Ranking() []RankEntry {
	list := s.PlayerList()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
	return list
}

// TopN returns at most n leading entries of a ranking.
func TopN(ranking []RankEntry, n int) []RankEntry {
	if len(ranking) > n {
		return ranking[:n]
	}
	return ranking
}
