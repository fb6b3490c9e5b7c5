package mqttclient

import "testing"

func TestParseTopics(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "alignment/jobs", []string{"alignment/jobs"}},
		{"multiple_with_spaces", "alignment/jobs, batch/+/align", []string{"alignment/jobs", "batch/+/align"}},
		{"skips_empty_entries", "alignment/jobs,,", []string{"alignment/jobs"}},
		{"empty_defaults_to_job_feed", "", []string{"alignment/jobs/#"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTopics(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseTopics(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("topic %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
