package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Language
	}{
		{"ascii question", "What documents do I need for a ration card?", English},
		{"empty", "", English},
		{"malayalam", "റേഷൻ കാർഡിന് എന്ത് രേഖകൾ വേണം?", Malayalam},
		{"mixed single rune", "ration card ക", Malayalam},
		{"block start", "\u0D00", Malayalam},
		{"block end", "\u0D7F", Malayalam},
		{"just outside block", "\u0D80", English},
		{"other indic script", "राशन कार्ड", English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.in); got != tt.want {
				t.Fatalf("Detect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsDefault(t *testing.T) {
	if !English.IsDefault() || Malayalam.IsDefault() {
		t.Fatal("only English is the default language")
	}
}
