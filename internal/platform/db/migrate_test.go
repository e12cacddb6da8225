package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/ehr/orders/migrations"
)

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	src := fstest.MapFS{
		"010_tables.sql":   {Data: []byte("SELECT 10;")},
		"002_second.sql":   {Data: []byte("SELECT 2;")},
		"001_first.sql":    {Data: []byte("SELECT 1;")},
		"readme.sql":       {Data: []byte("-- no version prefix")},
		"abc_invalid.sql":  {Data: []byte("-- non-numeric prefix")},
		"notes.txt":        {Data: []byte("not sql")},
		"nested/003_x.sql": {Data: []byte("SELECT 3;")},
	}

	got, err := NewMigrator(nil, src).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, got[i].Version)
		}
	}
	if got[0].Name != "001_first.sql" || got[0].SQL != "SELECT 1;" {
		t.Errorf("unexpected first migration %+v", got[0])
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	src := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"01_b.sql":  {Data: []byte("SELECT 1;")},
	}
	if _, err := NewMigrator(nil, src).LoadMigrations(); err == nil {
		t.Error("expected an error for two files with version 1")
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	got, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no migrations, got %d", len(got))
	}
}

func TestPendingAndStatus(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "001_a.sql"},
		{Version: 2, Name: "002_b.sql"},
		{Version: 3, Name: "003_c.sql"},
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	applied := map[int]time.Time{1: at, 3: at}

	pending := Pending(all, applied)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("expected only version 2 pending, got %+v", pending)
	}

	status := statusOf(all, applied)
	if len(status) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(status))
	}
	if !status[0].Applied || status[0].AppliedAt == nil || !status[0].AppliedAt.Equal(at) {
		t.Errorf("expected version 1 applied at %v, got %+v", at, status[0])
	}
	if status[1].Applied || status[1].AppliedAt != nil {
		t.Errorf("expected version 2 pending, got %+v", status[1])
	}
}

func TestShippedMigrations(t *testing.T) {
	got, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(got) == 0 || got[0].Version != 1 {
		t.Fatalf("expected the prescription schema as version 1, got %+v", got)
	}
}
