package postgres

import "testing"

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"leche", "%leche%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\`, `%c:\\%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProductRecord_Candidate(t *testing.T) {
	stock := 4
	c := productRecord{ID: "p1", Name: "Pan", Price: 2, Stock: &stock, Active: true}.candidate()
	if c.ID != "p1" || c.Stock == nil || *c.Stock != 4 {
		t.Errorf("unexpected candidate %+v", c)
	}
}
