package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 11 91234-5678", "***5678"},
		{"(11) 98765-4321", "***4321"},
		{"123", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		if got := RedactPhone(tt.in); got != tt.want {
			t.Errorf("RedactPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
