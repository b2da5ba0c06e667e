package attendance

import (
	"fmt"
	"sort"

	"github.com/KuramaMr/formation-platform/core"
)

// RosterEntry is one learner row of the report, as supplied by the caller
// from the reconciled enrollment facts.
type RosterEntry struct {
	LearnerID   string `json:"learner_id"`
	DisplayName string `json:"display_name"`
}

type (
	// Week sections the date columns for report headers.
	Week struct {
		Year   int    `json:"year"`
		Number int    `json:"number"`
		Label  string `json:"label"`
		Dates  []Date `json:"dates"`
	}

	// Row statuses align index-for-index with Matrix.Dates.
	Row struct {
		LearnerID   string   `json:"learner_id"`
		DisplayName string   `json:"display_name"`
		Statuses    []Status `json:"statuses"`
	}

	// Matrix is the plain grid handed to the rendering collaborator: no
	// pagination, fonts or image concerns, just ordered values.
	Matrix struct {
		Weeks []Week `json:"weeks"`
		Dates []Date `json:"dates"`
		Rows  []Row  `json:"rows"`
	}
)

// BuildMatrix assembles the (learner x date) grid for [start, end]. Dates run
// ascending Monday-Friday only, grouped under ISO week headers; rows are
// ordered by display name. "today" is explicit so the result is reproducible.
func (svc *Service) BuildMatrix(roster []RosterEntry, signaturesByDay map[Date][]Signature, start, end, today Date) Matrix {
	var dates []Date
	for day := start; !day.After(end); day = day.Next() {
		if day.IsWeekend() {
			continue
		}
		dates = append(dates, day)
	}

	var weeks []Week
	for _, day := range dates {
		year, num := day.ISOWeek()
		if n := len(weeks); n == 0 || weeks[n-1].Year != year || weeks[n-1].Number != num {
			weeks = append(weeks, Week{
				Year:   year,
				Number: num,
				Label:  fmt.Sprintf("Week %02d %d", num, year),
			})
		}
		weeks[len(weeks)-1].Dates = append(weeks[len(weeks)-1].Dates, day)
	}

	budget := core.Conf.GetInt("reportNameBudget")
	rows := make([]Row, 0, len(roster))
	sorted := make([]RosterEntry, len(roster))
	copy(sorted, roster)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DisplayName < sorted[j].DisplayName })

	for _, entry := range sorted {
		row := Row{
			LearnerID:   entry.LearnerID,
			DisplayName: truncateName(entry.DisplayName, budget),
			Statuses:    make([]Status, 0, len(dates)),
		}
		for _, day := range dates {
			row.Statuses = append(row.Statuses, Classify(entry.LearnerID, day, today, signaturesByDay[day]))
		}
		rows = append(rows, row)
	}

	return Matrix{Weeks: weeks, Dates: dates, Rows: rows}
}

// truncateName caps a display name to `budget` runes, spending the last one
// on an ellipsis. The renderer's fixed-width row cells depend on this cap.
func truncateName(name string, budget int) string {
	if budget <= 0 {
		return name
	}
	runes := []rune(name)
	if len(runes) <= budget {
		return name
	}
	return string(runes[:budget-1]) + "…"
}
