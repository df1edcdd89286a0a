package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz-game-service/internal/auth"
	"quiz-game-service/internal/infra/memory"
)

func TestSampleBankIsPlayable(t *testing.T) {
	bank := sampleBank()
	if err := bank.Validate(); err != nil {
		t.Fatalf("sample bank invalid: %v", err)
	}
	for _, topic := range bank.Topics {
		if len(topic.Questions) < 7 {
			t.Fatalf("topic %q has %d questions, need at least 7", topic.Slug, len(topic.Questions))
		}
	}
	if _, err := memory.NewStoreFromBank(bank); err != nil {
		t.Fatalf("load sample bank: %v", err)
	}
}

func TestTokenCommandPrintsVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: cli-secret\n  issuer: quiz\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", path, "--user", "player-1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token command: %v", err)
	}

	userID, err := auth.NewVerifier("cli-secret", "quiz", time.Hour).Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if userID != "player-1" {
		t.Fatalf("expected player-1, got %q", userID)
	}
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", path, "--user", "player-1"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without a secret")
	}
}
