package commands

import (
	"testing"
	"time"

	"github.com/haivivi/geartap/cmd/geartap/internal/config"
	"github.com/haivivi/geartap/pkg/jsontime"
)

func TestSessionListTable(t *testing.T) {
	started := jsontime.Milli(time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC))
	l := sessionList{
		{
			ID:        "aaa",
			Name:      "boot",
			StartedAt: started,
			Bytes:     2048,
		},
		{
			ID:         "bbb",
			Name:       "ota",
			StartedAt:  started,
			StoppedAt:  jsontime.Milli(time.Date(2025, 7, 14, 9, 31, 0, 0, time.UTC)),
			Bytes:      512,
			Dropped:    3,
			ArchiveKey: "captures/bbb",
		},
	}

	header := l.TableHeader()
	rows := l.TableRows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(header) {
			t.Errorf("row %d has %d cells, header has %d", i, len(row), len(header))
		}
	}

	if rows[0][5] != "recording" || rows[0][6] != "-" {
		t.Errorf("active row = %v", rows[0])
	}
	if rows[1][5] != "done" || rows[1][6] != "captures/bbb" || rows[1][4] != "3" {
		t.Errorf("done row = %v", rows[1])
	}
	if rows[0][3] != "2.00 KB" {
		t.Errorf("bytes cell = %q", rows[0][3])
	}
}

func TestArchiveStoreBackends(t *testing.T) {
	t.Run("local default", func(t *testing.T) {
		fs, err := archiveStore(&config.Tap{DataDir: t.TempDir()})
		if err != nil {
			t.Fatalf("archiveStore: %v", err)
		}
		if fs == nil {
			t.Fatal("nil store")
		}
	})

	t.Run("s3", func(t *testing.T) {
		fs, err := archiveStore(&config.Tap{
			DataDir: t.TempDir(),
			Archive: config.Archive{Backend: "s3", Bucket: "caps", Endpoint: "http://127.0.0.1:9000", PathStyle: true},
		})
		if err != nil {
			t.Fatalf("archiveStore: %v", err)
		}
		if fs == nil {
			t.Fatal("nil store")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := archiveStore(&config.Tap{Archive: config.Archive{Backend: "ftp"}}); err == nil {
			t.Fatal("want error for unknown backend")
		}
	})
}
