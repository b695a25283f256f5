package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/insightdesk/internal/core"
	"github.com/JonMunkholm/insightdesk/internal/files"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

func newDatasets(t *testing.T) *core.DatasetStore {
	t.Helper()
	disk, err := files.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	return core.NewDatasetStore(store.NewMemory(), disk, 10, core.PageLimits{})
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	ds := newDatasets(t)

	for _, name := range []string{"a.csv", "b.csv", "c.txt"} {
		rows := []workbook.Row{{"x": workbook.Text(name)}}
		if _, err := ds.CreateWithRows(ctx, core.Asset{Name: name}, []string{"x"}, rows); err != nil {
			t.Fatalf("CreateWithRows(%s): %v", name, err)
		}
	}

	n, err := ResetAll(ctx, ds)
	if err != nil {
		t.Fatalf("ResetAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ResetAll() = %d, want 3", n)
	}

	left, err := ds.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("len(ListAll()) = %d after reset, want 0", len(left))
	}
}

type failingDatasets struct {
	list   []store.Dataset
	failID string
}

func (f *failingDatasets) ListAll(context.Context) ([]store.Dataset, error) { return f.list, nil }

func (f *failingDatasets) DeleteCascade(_ context.Context, id string) error {
	if id == f.failID {
		return errors.New("boom")
	}
	return nil
}

func TestResetAll_StopsAtFirstFailure(t *testing.T) {
	ds := &failingDatasets{
		list:   []store.Dataset{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		failID: "2",
	}

	n, err := ResetAll(context.Background(), ds)
	if err == nil {
		t.Fatal("ResetAll() error = nil, want failure")
	}
	if n != 1 {
		t.Errorf("ResetAll() = %d, want 1", n)
	}
}
