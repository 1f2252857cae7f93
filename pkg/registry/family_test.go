package registry

import "testing"

func TestDetectFamily(t *testing.T) {
	cases := []struct {
		model string
		want  Family
	}{
		{"claude-sonnet-4-20250514", FamilyAnthropic},
		{"claude-opus-4-1", FamilyAnthropic},
		{"gpt-5.2-thinking", FamilyOpenAI},
		{"gpt-4o-mini", FamilyOpenAI},
		{"o3-mini", FamilyOpenAI},
		{"o4-mini", FamilyOpenAI},
		{"gemini-2.0-flash-001", FamilyGoogle},
		{"gemini-2.0-pro", FamilyGoogle},
		{"deepseek-chat", FamilyLocal},
		{"llama-3.3-70b", FamilyLocal},
		{"", FamilyLocal},
	}
	for _, tc := range cases {
		if got := DetectFamily(tc.model); got != tc.want {
			t.Errorf("DetectFamily(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}
