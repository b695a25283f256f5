package workbook

import "testing"

func texts(cells ...string) []Value {
	out := make([]Value, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = Null()
		} else {
			out[i] = Text(c)
		}
	}
	return out
}

func TestBuildSheetHeaderRules(t *testing.T) {
	records := [][]Value{
		{Text("id"), Null(), Text("name"), Text("id"), Num(2024)},
		texts("1", "dropped", "alice", "one", "x"),
		texts("2", "", "bob"),
	}
	s := buildSheet("S", records)

	wantCols := []string{"id", "name", "2024"}
	if len(s.Columns) != len(wantCols) {
		t.Fatalf("Columns = %v, want %v", s.Columns, wantCols)
	}
	for i := range wantCols {
		if s.Columns[i] != wantCols[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, s.Columns[i], wantCols[i])
		}
	}

	if s.TotalRows != 2 {
		t.Fatalf("TotalRows = %d, want 2", s.TotalRows)
	}

	first := s.Rows[0]
	if got := first.Get("id").String(); got != "one" {
		t.Errorf("duplicate header: id = %q, want right-most value %q", got, "one")
	}
	if _, ok := first[""]; ok {
		t.Error("empty header must not produce a key")
	}

	short := s.Rows[1]
	if got := short.Get("name").String(); got != "bob" {
		t.Errorf("short row name = %q, want %q", got, "bob")
	}
	if !short.Get("id").IsNull() {
		t.Errorf("short row id = %v, want null from the missing right-most cell", short.Get("id"))
	}
	if _, ok := short["2024"]; !ok {
		t.Error("short row should carry every header key")
	}
}

func TestBuildSheetDropsBlankRows(t *testing.T) {
	records := [][]Value{
		texts("a", "b"),
		{Null(), Text("")},
		{},
		texts("", "x"),
		{Text(""), Null(), Text("under empty header")},
	}
	s := buildSheet("S", records)
	if s.TotalRows != 1 || len(s.Rows) != 1 {
		t.Fatalf("TotalRows = %d, len(Rows) = %d, want 1", s.TotalRows, len(s.Rows))
	}
	for _, row := range s.Rows {
		if row.IsBlank() {
			t.Errorf("blank row survived: %v", row)
		}
	}
}

func TestBuildSheetSkipsLeadingBlankRecords(t *testing.T) {
	records := [][]Value{
		{},
		{Null(), Text("")},
		texts("", "a", "b"),
		texts("", "1", "2"),
	}
	s := buildSheet("S", records)
	if len(s.Columns) != 2 || s.Columns[0] != "a" || s.Columns[1] != "b" {
		t.Fatalf("Columns = %v, want [a b]", s.Columns)
	}
	if s.TotalRows != 1 {
		t.Fatalf("TotalRows = %d, want 1", s.TotalRows)
	}
	if got := s.Rows[0].Get("a").String(); got != "1" {
		t.Errorf("a = %q, want %q", got, "1")
	}
}

func TestBuildSheetEmpty(t *testing.T) {
	s := buildSheet("Empty", nil)
	if s.Columns == nil || s.Rows == nil {
		t.Fatal("empty sheet should have non-nil columns and rows")
	}
	if len(s.Columns) != 0 || len(s.Rows) != 0 || s.TotalRows != 0 {
		t.Errorf("empty sheet = %+v, want zero columns and rows", s)
	}

	onlyBlank := buildSheet("Blank", [][]Value{{}, {Null()}})
	if len(onlyBlank.Columns) != 0 || onlyBlank.Rows == nil {
		t.Errorf("sheet of blank records = %+v, want no columns", onlyBlank)
	}

	allBlank := buildSheet("Blank", [][]Value{texts("a"), texts(""), {Null()}})
	if len(allBlank.Rows) != 0 || allBlank.TotalRows != 0 {
		t.Errorf("all-blank sheet TotalRows = %d, want 0", allBlank.TotalRows)
	}
}

func TestSheetWindow(t *testing.T) {
	s := Sheet{Name: "S", Columns: []string{"a"}}
	for i := 0; i < 10; i++ {
		s.Rows = append(s.Rows, Row{"a": Num(float64(i))})
	}
	s.TotalRows = len(s.Rows)

	tests := []struct {
		skip, limit int
		wantLen     int
		wantFirst   float64
	}{
		{0, 3, 3, 0},
		{8, 5, 2, 8},
		{10, 5, 0, 0},
		{-1, 2, 2, 0},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		w := s.Window(tt.skip, tt.limit)
		if len(w.Rows) != tt.wantLen {
			t.Errorf("Window(%d,%d) len = %d, want %d", tt.skip, tt.limit, len(w.Rows), tt.wantLen)
			continue
		}
		if w.TotalRows != 10 {
			t.Errorf("Window(%d,%d) TotalRows = %d, want 10", tt.skip, tt.limit, w.TotalRows)
		}
		if tt.wantLen > 0 {
			if n, _ := w.Rows[0].Get("a").AsNumber(); n != tt.wantFirst {
				t.Errorf("Window(%d,%d) first = %v, want %v", tt.skip, tt.limit, n, tt.wantFirst)
			}
		}
	}
}
