package app

import (
	"bytes"
	"testing"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandServe, "serve"},
		{CommandWorker, "worker"},
		{CommandMigrate, "migrate"},
		{CommandBootstrap, "bootstrap"},
		{CommandHealthcheck, "healthcheck"},
	}

	for _, tt := range tests {
		if got := string(tt.cmd); got != tt.want {
			t.Errorf("Command(%q) string = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestNewRootCommand_ResolvesSubcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	tests := []struct {
		args []string
		want string
	}{
		{[]string{}, "think"},
		{[]string{"serve"}, "serve"},
		{[]string{"worker"}, "worker"},
		{[]string{"migrate"}, "migrate"},
		{[]string{"bootstrap"}, "bootstrap"},
		{[]string{"healthcheck"}, "healthcheck"},
	}

	for _, tt := range tests {
		cmd, _, err := root.Find(tt.args)
		if err != nil {
			t.Fatalf("Find(%v) error = %v", tt.args, err)
		}
		if cmd.Name() != tt.want {
			t.Errorf("Find(%v) = %q, want %q", tt.args, cmd.Name(), tt.want)
		}
	}
}

func TestNewRootCommand_RootRunsServe(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	if root.RunE == nil {
		t.Fatal("root command should run serve when no subcommand is given")
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"unknown"}); err == nil {
		t.Fatal("Run with an unknown command should return error")
	}
}

func TestRun_ExtraArgs_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate", "now"}); err == nil {
		t.Fatal("Run with unexpected arguments should return error")
	}
}
