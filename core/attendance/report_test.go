package attendance

import (
	"strings"
	"testing"
	"time"
)

func TestService_BuildMatrix(t *testing.T) {
	svc := &Service{loc: time.UTC}

	// one full week: Mon 2024-03-04 .. Sun 2024-03-10; Tuesday signed by L1 only
	start := NewDate(2024, time.March, 4)
	end := NewDate(2024, time.March, 10)
	tuesday := NewDate(2024, time.March, 5)

	roster := []RosterEntry{
		{LearnerID: "l2", DisplayName: "Zoe"},
		{LearnerID: "l1", DisplayName: "Amadou"},
	}
	byDay := map[Date][]Signature{
		tuesday: {{LearnerID: "l1", ProgramID: "p1", SignedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)}},
	}

	t.Run("tuesday in the past", func(t *testing.T) {
		matrix := svc.BuildMatrix(roster, byDay, start, end, NewDate(2024, time.March, 8))

		// weekend columns are omitted entirely
		if len(matrix.Dates) != 5 {
			t.Fatalf("len(Dates) = %d, want 5 (Mon-Fri)", len(matrix.Dates))
		}
		for _, day := range matrix.Dates {
			if day.IsWeekend() {
				t.Errorf("weekend column %s present", day)
			}
		}
		if len(matrix.Weeks) != 1 {
			t.Fatalf("len(Weeks) = %d, want 1", len(matrix.Weeks))
		}
		if matrix.Weeks[0].Label != "Week 10 2024" {
			t.Errorf("week label = %q, want %q", matrix.Weeks[0].Label, "Week 10 2024")
		}

		// rows sorted by display name: Amadou (l1) first
		if matrix.Rows[0].LearnerID != "l1" || matrix.Rows[1].LearnerID != "l2" {
			t.Fatalf("row order = %s, %s; want l1, l2", matrix.Rows[0].LearnerID, matrix.Rows[1].LearnerID)
		}

		// Tuesday is index 1
		if got := matrix.Rows[0].Statuses[1]; got != StatusSigned {
			t.Errorf("l1 Tuesday = %v, want %v", got, StatusSigned)
		}
		if got := matrix.Rows[1].Statuses[1]; got != StatusAbsent {
			t.Errorf("l2 Tuesday = %v, want %v", got, StatusAbsent)
		}
		// Friday equals today (Mar 8), so it counts as absent, not upcoming
		if got := matrix.Rows[1].Statuses[4]; got != StatusAbsent {
			t.Errorf("l2 Friday = %v, want %v", got, StatusAbsent)
		}
	})

	t.Run("tuesday still ahead", func(t *testing.T) {
		matrix := svc.BuildMatrix(roster, byDay, start, end, NewDate(2024, time.March, 4))
		if got := matrix.Rows[0].Statuses[1]; got != StatusSigned {
			t.Errorf("l1 Tuesday = %v, want %v", got, StatusSigned)
		}
		if got := matrix.Rows[1].Statuses[1]; got != StatusUpcoming {
			t.Errorf("l2 Tuesday = %v, want %v", got, StatusUpcoming)
		}
	})
}

func TestService_BuildMatrix_weekSectioning(t *testing.T) {
	svc := &Service{loc: time.UTC}

	// Thu 2024-02-29 .. Tue 2024-03-05 spans ISO weeks 09 and 10
	matrix := svc.BuildMatrix(nil, nil, NewDate(2024, time.February, 29), NewDate(2024, time.March, 5), NewDate(2024, time.March, 1))
	if len(matrix.Weeks) != 2 {
		t.Fatalf("len(Weeks) = %d, want 2", len(matrix.Weeks))
	}
	if matrix.Weeks[0].Number != 9 || matrix.Weeks[1].Number != 10 {
		t.Errorf("week numbers = %d, %d; want 9, 10", matrix.Weeks[0].Number, matrix.Weeks[1].Number)
	}
	// Thu+Fri in week 09, Mon+Tue in week 10
	if len(matrix.Weeks[0].Dates) != 2 || len(matrix.Weeks[1].Dates) != 2 {
		t.Errorf("week date counts = %d, %d; want 2, 2", len(matrix.Weeks[0].Dates), len(matrix.Weeks[1].Dates))
	}
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		budget int
		want   string
	}{
		{name: "short name untouched", in: "Amadou", budget: 22, want: "Amadou"},
		{name: "exact budget untouched", in: strings.Repeat("a", 22), budget: 22, want: strings.Repeat("a", 22)},
		{name: "over budget gets ellipsis", in: strings.Repeat("a", 30), budget: 22, want: strings.Repeat("a", 21) + "…"},
		{name: "multibyte counted in runes", in: strings.Repeat("é", 30), budget: 10, want: strings.Repeat("é", 9) + "…"},
		{name: "zero budget disables", in: "Amadou", budget: 0, want: "Amadou"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateName(tt.in, tt.budget); got != tt.want {
				t.Errorf("truncateName() = %q, want %q", got, tt.want)
			}
		})
	}
}
