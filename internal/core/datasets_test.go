package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

func numberedRows(n int) []workbook.Row {
	rows := make([]workbook.Row, n)
	for i := range rows {
		rows[i] = workbook.Row{"n": workbook.Num(float64(i)), "label": workbook.Text(fmt.Sprintf("row %d", i))}
	}
	return rows
}

func testAsset(name string) Asset {
	return Asset{
		Name:     name,
		Size:     42,
		MimeType: "text/csv",
		Metadata: IngestMetadata{TableName: "t", SubPractice: "s", FileType: "CSV"},
	}
}

func TestPageLimits_Clamp(t *testing.T) {
	p := PageLimits{Default: 100, Max: 5000}
	tests := []struct {
		skip, limit         int
		wantSkip, wantLimit int
	}{
		{0, 0, 0, 100},
		{-5, -1, 0, 100},
		{10, 50, 10, 50},
		{0, 999999, 0, 5000},
		{0, 5000, 0, 5000},
	}
	for _, tt := range tests {
		skip, limit := p.Clamp(tt.skip, tt.limit)
		if skip != tt.wantSkip || limit != tt.wantLimit {
			t.Errorf("Clamp(%d, %d) = (%d, %d), want (%d, %d)",
				tt.skip, tt.limit, skip, limit, tt.wantSkip, tt.wantLimit)
		}
	}
}

func TestDatasetStore_BatchBoundaries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 5000)

	d, err := fx.datasets.Create(ctx, testAsset("big.csv"), []string{"n", "label"}, 0)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	fx.repo.reset(-1)
	updated, err := fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"n", "label"}, numberedRows(12001), 0)
	if err != nil {
		t.Fatalf("ReplaceAllRows() error = %v", err)
	}

	calls := fx.repo.calls()
	want := []int{5000, 5000, 2001}
	if len(calls) != len(want) {
		t.Fatalf("InsertRows calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d inserted %d rows, want %d", i, calls[i], want[i])
		}
	}

	if updated.Metadata.TotalRows != 12001 {
		t.Errorf("returned TotalRows = %d, want 12001", updated.Metadata.TotalRows)
	}
	stored, err := fx.datasets.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Metadata.TotalRows != 12001 {
		t.Errorf("stored TotalRows = %d, want 12001", stored.Metadata.TotalRows)
	}
	if stored.Version != 2 {
		t.Errorf("stored Version = %d, want 2", stored.Version)
	}
}

func TestDatasetStore_InsertRowsReportsFailedBatch(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 10)
	logs := captureLogs(t)

	d, err := fx.datasets.Create(ctx, testAsset("x.csv"), []string{"n"}, 25)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	fx.repo.reset(1)
	err = fx.datasets.InsertRows(ctx, d.ID, numberedRows(25))

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("InsertRows() error = %v, want *StorageError", err)
	}
	if se.Batch != 1 {
		t.Errorf("StorageError.Batch = %d, want 1", se.Batch)
	}
	if calls := fx.repo.calls(); len(calls) != 2 {
		t.Errorf("InsertRows calls = %v, want the third batch skipped", calls)
	}
	if !strings.Contains(logs.String(), "batch=1") {
		t.Errorf("log does not name the failed batch:\n%s", logs.String())
	}
}

func TestDatasetStore_ReplaceAllRowsFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 2)

	d, err := fx.datasets.CreateWithRows(ctx, testAsset("x.csv"), []string{"n", "label"}, numberedRows(3))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}

	fx.repo.reset(1)
	_, err = fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"other"}, numberedRows(5), 0)
	var se *StorageError
	if !errors.As(err, &se) || se.Batch != 1 {
		t.Fatalf("ReplaceAllRows() error = %v, want StorageError for batch 1", err)
	}

	stored, err := fx.datasets.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Metadata.TotalRows != 3 || stored.Version != 1 {
		t.Errorf("metadata = %+v version %d, want 3 rows version 1", stored.Metadata, stored.Version)
	}
	if !sameColumns(stored.Metadata.Columns, []string{"n", "label"}) {
		t.Errorf("Columns = %v, want unchanged", stored.Metadata.Columns)
	}
	n, err := fx.repo.CountRows(ctx, d.ID)
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountRows() = %d, want 3", n)
	}
}

func TestDatasetStore_ReplaceAllRowsVersionCheck(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)

	d, err := fx.datasets.CreateWithRows(ctx, testAsset("x.csv"), []string{"n"}, numberedRows(1))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}

	first, err := fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"n"}, numberedRows(2), d.Version)
	if err != nil {
		t.Fatalf("first save error = %v", err)
	}
	if first.Version != d.Version+1 {
		t.Errorf("Version = %d, want %d", first.Version, d.Version+1)
	}

	_, err = fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"n"}, numberedRows(4), d.Version)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save error = %v, want ErrConflict", err)
	}

	stored, _ := fx.datasets.Get(ctx, d.ID)
	if stored.Metadata.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2 after rejected save", stored.Metadata.TotalRows)
	}

	if _, err := fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"n"}, numberedRows(4), 0); err != nil {
		t.Errorf("unversioned save error = %v, want last writer wins", err)
	}
}

func TestDatasetStore_ReplaceAllRowsUnknownDataset(t *testing.T) {
	fx := newFixture(t, 0)
	_, err := fx.datasets.ReplaceAllRows(context.Background(), "nope", nil, nil, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReplaceAllRows() error = %v, want ErrNotFound", err)
	}
}

func TestDatasetStore_CreateWithRowsCleansUpOnFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 2)

	fx.repo.reset(1)
	_, err := fx.datasets.CreateWithRows(ctx, testAsset("x.csv"), []string{"n"}, numberedRows(5))
	if err == nil {
		t.Fatal("CreateWithRows() expected error")
	}

	all, err := fx.datasets.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListAll() = %d datasets, want none after failed ingest", len(all))
	}
}

func TestDatasetStore_FetchRowsPageClampsLimit(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)

	d, err := fx.datasets.CreateWithRows(ctx, testAsset("x.csv"), []string{"n", "label"}, numberedRows(5001))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}

	page, err := fx.datasets.FetchRowsPage(ctx, d.ID, 0, 999999)
	if err != nil {
		t.Fatalf("FetchRowsPage() error = %v", err)
	}
	if len(page.Rows) != MaxPageLimit {
		t.Errorf("len(Rows) = %d, want %d", len(page.Rows), MaxPageLimit)
	}
	if page.TotalRows != 5001 {
		t.Errorf("TotalRows = %d, want 5001", page.TotalRows)
	}

	page, err = fx.datasets.FetchRowsPage(ctx, d.ID, 5000, 10)
	if err != nil {
		t.Fatalf("FetchRowsPage() error = %v", err)
	}
	if len(page.Rows) != 1 {
		t.Fatalf("last page has %d rows, want 1", len(page.Rows))
	}
	if n, _ := page.Rows[0].Get("n").AsNumber(); n != 5000 {
		t.Errorf("last row n = %v, want 5000", n)
	}
}

func TestDatasetStore_FetchRowsPageUsesStoredTotal(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)

	d, err := fx.datasets.Create(ctx, testAsset("x.csv"), []string{"n"}, 7)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	page, err := fx.datasets.FetchRowsPage(ctx, d.ID, 0, 10)
	if err != nil {
		t.Fatalf("FetchRowsPage() error = %v", err)
	}
	if page.TotalRows != 7 || len(page.Rows) != 0 {
		t.Errorf("page = %d rows, total %d; want 0 rows, total 7", len(page.Rows), page.TotalRows)
	}
}

func TestDatasetStore_ListAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)

	var ids []string
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		d, err := fx.datasets.Create(ctx, testAsset(name), nil, 0)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		ids = append(ids, d.ID)
	}

	all, err := fx.datasets.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListAll) = %d, want 3", len(all))
	}
	for i, d := range all {
		if want := ids[len(ids)-1-i]; d.ID != want {
			t.Errorf("ListAll()[%d] = %s, want %s", i, d.Name, want)
		}
	}
}

func TestDatasetStore_DeleteCascade(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)

	ref, err := fx.disk.Save("report.csv", strings.NewReader("a\n1\n"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	asset := testAsset("report.csv")
	asset.FilePath = ref

	d, err := fx.datasets.CreateWithRows(ctx, asset, []string{"n"}, numberedRows(3))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}

	if err := fx.datasets.DeleteCascade(ctx, d.ID); err != nil {
		t.Fatalf("DeleteCascade() error = %v", err)
	}

	all, _ := fx.datasets.ListAll(ctx)
	for _, other := range all {
		if other.ID == d.ID {
			t.Errorf("ListAll() still contains %s", d.ID)
		}
	}
	if n, _ := fx.repo.CountRows(ctx, d.ID); n != 0 {
		t.Errorf("CountRows() = %d, want 0", n)
	}
	if fx.disk.Exists(ref) {
		t.Errorf("backing file %s still exists", ref)
	}
	if err := fx.datasets.DeleteCascade(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCascade() error = %v, want ErrNotFound", err)
	}
}

func TestDatasetStore_DeleteCascadeOrphanedFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 0)
	logs := captureLogs(t)

	ds := NewDatasetStore(fx.repo, brokenFiles{Files: fx.disk}, 0, PageLimits{})
	asset := testAsset("report.csv")
	asset.FilePath = "123-report.csv"

	d, err := ds.CreateWithRows(ctx, asset, []string{"n"}, numberedRows(2))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}
	if err := ds.DeleteCascade(ctx, d.ID); err != nil {
		t.Fatalf("DeleteCascade() error = %v, want success despite orphaned file", err)
	}
	if _, err := ds.Get(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "123-report.csv") {
		t.Errorf("expected a WARN naming the orphaned file, got:\n%s", out)
	}
}

func TestDatasetStore_AuditEvents(t *testing.T) {
	ctx := WithClient(context.Background(), "10.1.2.3", "test-agent")
	fx := newFixture(t, 0)
	logs := captureLogs(t)

	d, err := fx.datasets.CreateWithRows(ctx, testAsset("x.csv"), []string{"n"}, numberedRows(1))
	if err != nil {
		t.Fatalf("CreateWithRows() error = %v", err)
	}
	if _, err := fx.datasets.ReplaceAllRows(ctx, d.ID, []string{"n"}, numberedRows(2), 0); err != nil {
		t.Fatalf("ReplaceAllRows() error = %v", err)
	}

	out := logs.String()
	for _, want := range []string{"audit.action=replace_rows", "audit.severity=high", "audit.ip=10.1.2.3", "audit.user_agent=test-agent"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit log missing %q:\n%s", want, out)
		}
	}
}
