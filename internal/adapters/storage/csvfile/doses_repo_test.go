package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/unicode/norm"

	"med-adherence-tracker/internal/adapters/storage/storetest"
	"med-adherence-tracker/internal/domain/doses"
)

func TestDoseRepo(t *testing.T) {
	storetest.Run(t, func(t *testing.T) doses.Store {
		return NewDoseRepo(filepath.Join(t.TempDir(), "logs.csv"), storetest.Location())
	})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestDoseRepo_AppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	repo := NewDoseRepo(path, storetest.Location())
	ctx := context.Background()

	ts := time.Date(2024, 1, 1, 8, 0, 0, 0, storetest.Location())
	for _, name := range []string{"朝の薬(1)", "頓服"} {
		if err := repo.Append(ctx, doses.DoseEvent{Medicine: name, TakenAt: ts}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "date,time,name\n2024/01/01,08:00:00,朝の薬(1)\n2024/01/01,08:00:00,頓服\n"
	if string(b) != want {
		t.Fatalf("unexpected file content:\n%s", b)
	}
}

func TestDoseRepo_ReadsLegacyFileWithBOMAndMalformedRows(t *testing.T) {
	path := writeFile(t, "\ufeffdate,time,name\n"+
		"2024/01/01,08:00:00,朝の薬(1)\n"+
		"2024/01/01,25:61:00,頓服\n"+
		"2024/01/01,09:00:00,朝の薬(2)\n")
	repo := NewDoseRepo(path, storetest.Location())

	events, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %v", events)
	}
	if events[1].Medicine != "頓服" || !events[1].Malformed() || events[1].Raw != "2024/01/01 25:61:00" {
		t.Fatalf("expected malformed row kept in place, got %+v", events[1])
	}
	if events[2].Clock() != "09:00:00" {
		t.Fatalf("unexpected last event %+v", events[2])
	}
}

func TestDoseRepo_ColumnsByHeaderName(t *testing.T) {
	path := writeFile(t, "name,date,time\nA,2024/01/01,08:00:00\n")
	repo := NewDoseRepo(path, storetest.Location())

	events, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 || events[0].Medicine != "A" || events[0].Date() != "2024/01/01" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestDoseRepo_MissingColumn(t *testing.T) {
	repo := NewDoseRepo(writeFile(t, "date,name\n2024/01/01,A\n"), storetest.Location())
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected error for missing time column")
	}
}

func TestDoseRepo_DeleteKeepsMalformedRows(t *testing.T) {
	path := writeFile(t, "date,time,name\n"+
		"2024/01/01,08:00:00,A\n"+
		"garbage,,A\n"+
		"2024/01/01,09:00:00,A\n")
	repo := NewDoseRepo(path, storetest.Location())

	w := doses.Date{Year: 2024, Month: time.January, Day: 1}.Bounds(storetest.Location())
	deleted, err := repo.DeleteLatest(context.Background(), "A", w)
	if err != nil || !deleted {
		t.Fatalf("DeleteLatest = %v, %v", deleted, err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, "garbage,,A") || strings.Contains(got, "09:00:00") || !strings.Contains(got, "08:00:00") {
		t.Fatalf("unexpected file after delete:\n%s", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestDoseRepo_MissingFileIsEmpty(t *testing.T) {
	repo := NewDoseRepo(filepath.Join(t.TempDir(), "nope.csv"), storetest.Location())
	events, err := repo.List(context.Background())
	if err != nil || len(events) != 0 {
		t.Fatalf("List = %v, %v", events, err)
	}
}

func TestDoseRepo_AppendFollowsHeaderOrder(t *testing.T) {
	path := writeFile(t, "name,date,time\nA,2024/01/01,08:00:00\n")
	repo := NewDoseRepo(path, storetest.Location())
	ctx := context.Background()

	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, storetest.Location())
	if err := repo.Append(ctx, doses.DoseEvent{Medicine: "B", TakenAt: ts}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	b, _ := os.ReadFile(path)
	if !strings.HasSuffix(string(b), "\nB,2024/01/01,09:00:00\n") {
		t.Fatalf("expected row in header order, got:\n%s", b)
	}

	events, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 || events[1].Medicine != "B" || events[1].Malformed() || events[1].Clock() != "09:00:00" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestDoseRepo_AppendAfterMissingTrailingNewline(t *testing.T) {
	path := writeFile(t, "date,time,name\n2024/01/01,08:00:00,A")
	repo := NewDoseRepo(path, storetest.Location())
	ctx := context.Background()

	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, storetest.Location())
	if err := repo.Append(ctx, doses.DoseEvent{Medicine: "B", TakenAt: ts}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 || events[0].Medicine != "A" || events[1].Medicine != "B" {
		t.Fatalf("expected A and B as separate rows, got %+v", events)
	}
}

func TestDoseRepo_AppendToHeaderOnlyFile(t *testing.T) {
	path := writeFile(t, "date,time,name")
	repo := NewDoseRepo(path, storetest.Location())

	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, storetest.Location())
	if err := repo.Append(context.Background(), doses.DoseEvent{Medicine: "B", TakenAt: ts}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	b, _ := os.ReadFile(path)
	if string(b) != "date,time,name\n2024/01/01,09:00:00,B\n" {
		t.Fatalf("unexpected file content:\n%s", b)
	}
}

func TestDoseRepo_DeleteMatchesNormalizedName(t *testing.T) {
	decomposed := norm.NFD.String("ビタミン")
	path := writeFile(t, "date,time,name\n2024/01/01,08:00:00,"+decomposed+"\n")
	repo := NewDoseRepo(path, storetest.Location())

	w := doses.Date{Year: 2024, Month: time.January, Day: 1}.Bounds(storetest.Location())
	deleted, err := repo.DeleteLatest(context.Background(), "ビタミン", w)
	if err != nil || !deleted {
		t.Fatalf("DeleteLatest = %v, %v", deleted, err)
	}

	events, _ := repo.List(context.Background())
	if len(events) != 0 {
		t.Fatalf("expected legacy row removed, got %+v", events)
	}
}
