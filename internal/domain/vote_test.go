package domain

import "testing"

func TestParseVoteOption(t *testing.T) {
	tests := []struct {
		in      string
		want    VoteOption
		wantErr bool
	}{
		{"yes", VoteYes, false},
		{"YES", VoteYes, false},
		{" No ", VoteNo, false},
		{"Abstain", VoteAbstain, false},
		{"maybe", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVoteOption(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVoteOption(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVoteOption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
