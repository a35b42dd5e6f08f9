package aggregate

import (
	"sort"

	"dwhmon/internal/extract"
	"dwhmon/internal/reconcile"
)

// UserCount is one canonical user's query total.
type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// UserQueryTotals sums query counts per canonical identity after alias
// resolution, returning at most TopUsers entries, busiest first. A nil year
// counts all history; otherwise only queries logged in that year count.
func (s Settings) UserQueryTotals(users []extract.UserRecord, aliases reconcile.AliasMap, year *int) []UserCount {
	counts := make(map[string]int)
	for _, user := range users {
		canonical := aliases.Resolve(user.Username)
		for _, at := range user.QueryTimes {
			if year != nil && at.Year() != *year {
				continue
			}
			counts[canonical]++
		}
	}

	out := make([]UserCount, 0, len(counts))
	for user, count := range counts {
		out = append(out, UserCount{User: user, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].User < out[j].User
	})
	if len(out) > s.TopUsers {
		out = out[:s.TopUsers]
	}
	return out
}
