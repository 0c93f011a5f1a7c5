package standings

import (
	"sort"

	"github.com/pashagolub/flasharena/pkg/data"
)

// RankedStudent is a leaderboard row
type RankedStudent struct {
	Rank    int          `json:"rank"`
	Student data.Student `json:"student"`
}

// RankStudents orders students by rating, highest first. Equal ratings keep
// the order they arrived in. The input slice is not modified.
func RankStudents(students []data.Student) []RankedStudent {
	sorted := make([]data.Student, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EloRating > sorted[j].EloRating
	})

	ranked := make([]RankedStudent, len(sorted))
	for i, s := range sorted {
		ranked[i] = RankedStudent{Rank: i + 1, Student: s}
	}
	return ranked
}

// RankArena orders session participants the same way RankStudents does
func RankArena(stats []data.ArenaStudentStats) []data.ArenaStudentStats {
	sorted := make([]data.ArenaStudentStats, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EloRating > sorted[j].EloRating
	})
	return sorted
}
