package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tencorvids/stork/pkg/errutil"
)

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := buf.String()

	// Verify all expected flags are present
	expectedFlags := []string{
		"--listen-addr",
		"--metrics-addr",
		"--database-url",
		"--log-format",
		"--sweep-interval",
	}

	for _, flag := range expectedFlags {
		if !strings.Contains(output, flag) {
			t.Errorf("Help missing %q flag", flag)
		}
	}
}

func TestServeCommand_DefaultValues(t *testing.T) {
	cmd := NewServeCmd()

	listenAddr, err := cmd.Flags().GetString("listen-addr")
	if err != nil {
		t.Fatalf("Failed to get listen-addr flag: %v", err)
	}
	if listenAddr != "127.0.0.1:8080" {
		t.Errorf("listen-addr default = %q, want %q", listenAddr, "127.0.0.1:8080")
	}

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		t.Fatalf("Failed to get metrics-addr flag: %v", err)
	}
	if metricsAddr != "127.0.0.1:9100" {
		t.Errorf("metrics-addr default = %q, want %q", metricsAddr, "127.0.0.1:9100")
	}

	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		t.Fatalf("Failed to get log-format flag: %v", err)
	}
	if logFormat != "json" {
		t.Errorf("log-format default = %q, want %q", logFormat, "json")
	}

	sweepInterval, err := cmd.Flags().GetDuration("sweep-interval")
	if err != nil {
		t.Fatalf("Failed to get sweep-interval flag: %v", err)
	}
	if sweepInterval != 6*time.Hour {
		t.Errorf("sweep-interval default = %v, want %v", sweepInterval, 6*time.Hour)
	}

	databaseURL, err := cmd.Flags().GetString("database-url")
	if err != nil {
		t.Fatalf("Failed to get database-url flag: %v", err)
	}
	if databaseURL != "" {
		t.Errorf("database-url default = %q, want empty string", databaseURL)
	}
}

func TestServeCommand_Properties(t *testing.T) {
	cmd := NewServeCmd()

	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}

	if !strings.Contains(cmd.Short, "authentication") {
		t.Error("Short description should mention authentication")
	}

	if !strings.Contains(cmd.Long, "HTTP API") {
		t.Error("Long description should mention the HTTP API")
	}
}

func TestServeCommand_NoDatabaseURL(t *testing.T) {
	// Ensure DATABASE_URL is not set for this test
	t.Setenv("DATABASE_URL", "")
	configFile = ""

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is not set")
	}
	if code := errutil.ErrorCode(err); code != "CONFIG_INVALID" {
		t.Errorf("error code = %q, want %q", code, "CONFIG_INVALID")
	}
}
