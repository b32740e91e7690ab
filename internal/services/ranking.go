package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// BuildRankings orders completed attempts by score descending then time spent
// ascending. Equal keys keep their input order. Ranks are positional and ties
// do not share a rank. TotalParticipants counts every attempt passed in, while
// the score and time statistics cover completed attempts only. limit only
// trims the returned list.
func BuildRankings(attempts []*models.Attempt, names map[string]string, limit int) ([]RankingEntry, RankingStatistics) {
	completed := make([]*models.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.IsCompleted() {
			completed = append(completed, a)
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		if completed[i].Score != completed[j].Score {
			return completed[i].Score > completed[j].Score
		}
		return completed[i].TimeSpent < completed[j].TimeSpent
	})

	entries := make([]RankingEntry, 0, len(completed))
	for i, a := range completed {
		name := names[a.StudentID]
		if name == "" {
			name = a.StudentID
		}
		entries = append(entries, RankingEntry{
			Rank:           i + 1,
			StudentID:      a.StudentID,
			StudentName:    name,
			Score:          a.Score,
			MarksObtained:  a.MarksObtained,
			CorrectAnswers: a.CorrectAnswers,
			WrongAnswers:   a.WrongAnswers,
			TimeSpent:      a.TimeSpent,
			Accuracy:       accuracy(a.CorrectAnswers, a.TotalQuestions),
		})
	}

	stats := rankingStatistics(entries, len(attempts))
	return LimitRankings(entries, limit), stats
}

// LimitRankings returns at most limit entries; limit <= 0 means all.
func LimitRankings(entries []RankingEntry, limit int) []RankingEntry {
	if limit > 0 && limit < len(entries) {
		return entries[:limit]
	}
	return entries
}

func rankingStatistics(sorted []RankingEntry, participants int) RankingStatistics {
	stats := RankingStatistics{TotalParticipants: participants}
	if len(sorted) == 0 {
		return stats
	}

	var scoreSum, timeSum int
	for _, e := range sorted {
		scoreSum += e.Score
		timeSum += e.TimeSpent
	}
	n := float64(len(sorted))
	stats.AverageScore = math.Round(float64(scoreSum)/n*100) / 100
	stats.AverageTimeSpent = int(math.Round(float64(timeSum) / n))
	stats.HighestScore = sorted[0].Score
	stats.LowestScore = sorted[len(sorted)-1].Score
	return stats
}

func accuracy(correct, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(correct)/float64(total)*100)
}

// SortAttemptsView orders every ledger entry by score descending then
// completion time ascending. Entries that never completed go last.
func SortAttemptsView(attempts []*models.Attempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		a, b := attempts[i], attempts[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.CompletedAt == nil && b.CompletedAt == nil:
			return false
		case a.CompletedAt == nil:
			return false
		case b.CompletedAt == nil:
			return true
		default:
			return a.CompletedAt.Before(*b.CompletedAt)
		}
	})
}
