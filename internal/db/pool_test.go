package db

import (
	"context"
	"testing"
)

func TestPoolNilReceiverGuards(t *testing.T) {
	t.Parallel()

	var pool *Pool

	if pool.DB() != nil {
		t.Fatal("nil pool must expose a nil connection handle")
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("closing a nil pool must be a no-op, got %v", err)
	}

	var scanned int
	if err := pool.QueryRow(context.Background(), "SELECT 1").Scan(&scanned); !IsNoRows(err) {
		t.Fatalf("expected ErrNoRows from a nil pool row, got %v", err)
	}
	if _, err := pool.Query(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("expected an error querying a nil pool")
	}
	if _, err := pool.Exec(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("expected an error executing on a nil pool")
	}
	if _, err := pool.BeginTx(context.Background(), TxOptions{}); err == nil {
		t.Fatal("expected an error beginning a tx on a nil pool")
	}
}

func TestRowsNilGuards(t *testing.T) {
	t.Parallel()

	var rows *Rows
	if rows.Next() {
		t.Fatal("nil rows must not iterate")
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("nil rows must carry no error, got %v", err)
	}
	rows.Close()
}
