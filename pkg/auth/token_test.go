package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/amissa/backend/internal/model"
)

func TestIssueAndParseToken(t *testing.T) {
	actor := &model.Actor{ID: "admin-1", Role: model.RoleDioceseAdmin, DioceseID: "dio-1"}
	token, err := IssueToken(testSecret, actor, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *actor {
		t.Errorf("expected %+v, got %+v", actor, got)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, &model.Actor{ID: "op", Role: model.RoleOperator}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken(SecretBytes("another-secret"), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := IssueToken(testSecret, &model.Actor{ID: "op", Role: model.RoleOperator}, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueToken_InvalidActor(t *testing.T) {
	cases := []*model.Actor{
		nil,
		{ID: "", Role: model.RoleOperator},
		{ID: "x", Role: "pope"},
	}
	for _, a := range cases {
		if _, err := IssueToken(testSecret, a, time.Hour); err == nil {
			t.Errorf("expected error for %+v", a)
		}
	}
}

func TestSecretBytes_PadsShortSecret(t *testing.T) {
	if got := len(SecretBytes("short")); got != 32 {
		t.Errorf("expected 32 bytes, got %d", got)
	}
	long := "0123456789012345678901234567890123456789"
	if got := string(SecretBytes(long)); got != long {
		t.Errorf("long secret must be kept as is")
	}
}
