package postgres

import (
	"testing"

	"go.uber.org/zap"
)

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestOrDefault(t *testing.T) {
	if orDefault(0, 10) != 10 || orDefault(-1, 10) != 10 || orDefault(3, 10) != 3 {
		t.Fatal("orDefault misbehaves")
	}
}
