package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIndexRequiresService(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing service", []string{"index", "doc.txt"}, "--service is required"},
		{"unknown service", []string{"index", "--service", "passport", "doc.txt"}, "passport"},
		{"missing source", []string{"index", "--service", "ration_card"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run("--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("version output = %q", out)
	}
}
