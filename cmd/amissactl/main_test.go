package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/amissa/backend/internal/model"
	"github.com/amissa/backend/pkg/auth"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCmd_IssuesParsableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-the-operator-cli-0001")

	out, err := runCLI(t, "token", "--subject", "staff-1", "--role", "parish_staff", "--parish", "parish-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actor, err := auth.ParseToken(auth.SecretBytes("test-secret-for-the-operator-cli-0001"), strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if actor.ID != "staff-1" || actor.Role != model.RoleParishStaff || actor.ParishID != "parish-1" {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestTokenCmd_Validation(t *testing.T) {
	tests := [][]string{
		{"token"},
		{"token", "--subject", "x", "--role", "pope"},
		{"token", "--subject", "x", "--role", "diocese_admin"},
		{"token", "--subject", "x", "--role", "parish_staff"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestGenerateCmd_RejectsInvalidDays(t *testing.T) {
	if _, err := runCLI(t, "generate-occurrences", "--days", "0"); err == nil {
		t.Fatal("expected error")
	}
}
