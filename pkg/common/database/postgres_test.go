package database

import (
	"testing"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "labs",
		PostgresPassword: "pw",
		PostgresDB:       "labs",
		PostgresSSLMode:  "require",
	}
	want := "host=db user=labs password=pw dbname=labs port=5433 sslmode=require"
	if got := PostgresDSN(cfg); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestClosePostgresNil(t *testing.T) {
	if err := ClosePostgres(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
