package factory

import (
	"testing"
)

func TestNewSinkFromDSNSqlite(t *testing.T) {
	sink, err := NewSinkFromDSN("sqlite://:memory:")
	if err != nil {
		t.Fatal(err)
	}
	if sink == nil {
		t.Fatal("nil sink")
	}
}

func TestNewSinkFromDSNBarePath(t *testing.T) {
	// no scheme defaults to SQLite
	sink, err := NewSinkFromDSN(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if sink == nil {
		t.Fatal("nil sink")
	}
}

func TestNewSinkFromDSNErrors(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatal("empty DSN accepted")
	}
	if _, err := NewSinkFromDSN("mysql://localhost/db"); err == nil {
		t.Fatal("unsupported scheme accepted")
	}
}
