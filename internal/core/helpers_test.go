package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/insightdesk/internal/files"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// fixture wires the core services over an in-memory repository and a
// temporary upload directory.
type fixture struct {
	repo     *countingRepo
	disk     *files.Disk
	datasets *DatasetStore
	coord    *Coordinator
	ingest   *IngestService
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()

	disk, err := files.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	repo := &countingRepo{Repository: store.NewMemory(), insertLog: &insertLog{failAt: -1}}
	ds := NewDatasetStore(repo, disk, batchSize, PageLimits{Default: DefaultPageLimit, Max: MaxPageLimit})

	return &fixture{
		repo:     repo,
		disk:     disk,
		datasets: ds,
		coord:    NewCoordinator(ds, disk, DefaultPreviewRows),
		ingest:   NewIngestService(ds, disk, NewIngestLimiter(2, 0)),
	}
}

// countingRepo records the size of every InsertRows call and can fail the
// call at index failAt. Transactions share the log of the repo they start on.
type countingRepo struct {
	store.Repository
	*insertLog
}

type insertLog struct {
	mu      sync.Mutex
	batches []int
	failAt  int
}

func (c *countingRepo) InsertRows(ctx context.Context, id string, offset int, rows []workbook.Row) error {
	c.mu.Lock()
	idx := len(c.batches)
	c.batches = append(c.batches, len(rows))
	fail := idx == c.failAt
	c.mu.Unlock()

	if fail {
		return errors.New("write conflict on batch")
	}
	return c.Repository.InsertRows(ctx, id, offset, rows)
}

func (c *countingRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	return c.Repository.WithTx(ctx, func(ctx context.Context, tx store.Repository) error {
		return fn(ctx, &countingRepo{Repository: tx, insertLog: c.insertLog})
	})
}

func (c *insertLog) reset(failAt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = nil
	c.failAt = failAt
}

func (c *insertLog) calls() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.batches...)
}

type fixtureSheet struct {
	name string
	rows [][]any
}

// xlsxBytes builds an in-memory workbook with the given sheets in order.
func xlsxBytes(t *testing.T, sheets ...fixtureSheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			t.Fatalf("NewSheet(%s): %v", sh.name, err)
		}
		for r, row := range sh.rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("CoordinatesToCellName: %v", err)
				}
				if err := f.SetCellValue(sh.name, ref, v); err != nil {
					t.Fatalf("SetCellValue(%s!%s): %v", sh.name, ref, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// twoSheetWorkbook is Sheet1 [A,B] {1,2} and Sheet2 [B,C] {3,4}.
func twoSheetWorkbook(t *testing.T) []byte {
	return xlsxBytes(t,
		fixtureSheet{"Sheet1", [][]any{{"A", "B"}, {"1", "2"}}},
		fixtureSheet{"Sheet2", [][]any{{"B", "C"}, {"3", "4"}}},
	)
}

func validMetadata() string {
	return `{"tableName":"Q3 pipeline","subPractice":"Sales","fileType":"Excel"}`
}

// textRow builds a row of text cells from alternating keys and values.
func textRow(kv ...string) workbook.Row {
	r := make(workbook.Row, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i]] = workbook.Text(kv[i+1])
	}
	return r
}

func rowsEqual(a, b workbook.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// brokenFiles is a Files whose Remove always fails.
type brokenFiles struct {
	Files
}

func (brokenFiles) Remove(string) error { return errors.New("permission denied") }
