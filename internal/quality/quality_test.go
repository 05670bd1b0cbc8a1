package quality

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

const salesCSV = `Transaction ID,Date and Time,Value,Product Code
T1,2024-01-01 10:00,10.50,P1
T2,2024-01-01 11:00,20.00,P2
T3,2024-01-02 09:30,5.25,P3
`

func mustParse(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tbl
}

func TestParse_HeaderAndRows(t *testing.T) {
	tbl := mustParse(t, salesCSV)

	want := []string{"Transaction ID", "Date and Time", "Value", "Product Code"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	f, ok := tbl.Cell(1, "Value")
	if !ok || f.Value != "20.00" || !f.Present {
		t.Errorf("Cell(1, Value) = %+v, %v", f, ok)
	}
}

func TestParse_ShortRowHasAbsentTrailingFields(t *testing.T) {
	tbl := mustParse(t, "a,b,c\n1\n")

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	a, _ := tbl.Cell(0, "a")
	b, _ := tbl.Cell(0, "b")
	if !a.Present || a.Value != "1" {
		t.Errorf("a = %+v, want present 1", a)
	}
	if b.Present || !b.Missing() {
		t.Errorf("b = %+v, want absent", b)
	}
}

func TestParse_LongRowDropsExtraFields(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2,3\n")
	if got := tbl.Row(0).Len(); got != 2 {
		t.Errorf("Row(0).Len() = %d, want 2", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n", " , \n", "\ufeff", "\ufeff\n", "\ufeff , \n1,2\n"} {
		_, err := Parse(strings.NewReader(in))
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptyInput", in, err)
		}
	}
}

func TestParse_NormalizesHeaders(t *testing.T) {
	tbl := mustParse(t, "\ufeff Transaction ID ,Value,Value\nT1,1,2\n")

	want := []string{"Transaction ID", "Value", "Value (2)"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestRequiredColumns_Cumulative(t *testing.T) {
	sales := RequiredColumns(SalesAnalysis)
	cat := RequiredColumns(CategoricalAnalysis)

	if !reflect.DeepEqual(cat[:len(sales)], sales) {
		t.Errorf("categorical %v does not start with sales %v", cat, sales)
	}
	for _, m := range []Mode{ProductAnalysis, InventoryAnalysis} {
		cols := RequiredColumns(m)
		if !reflect.DeepEqual(cols[:len(cat)], cat) {
			t.Errorf("%s %v does not extend categorical %v", m, cols, cat)
		}
		if len(cols) <= len(cat) {
			t.Errorf("%s adds no columns", m)
		}
	}
	if got := RequiredColumns(Other); len(got) != 0 {
		t.Errorf("Other requires %v, want none", got)
	}
}

func TestRequiredColumns_ReturnsCopy(t *testing.T) {
	cols := RequiredColumns(SalesAnalysis)
	cols[0] = "mutated"
	if RequiredColumns(SalesAnalysis)[0] != "Transaction ID" {
		t.Error("RequiredColumns shares its backing array")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"Sales Analysis", SalesAnalysis},
		{"  categorical analysis ", CategoricalAnalysis},
		{"inventory", InventoryAnalysis},
		{"Product", ProductAnalysis},
		{"other", Other},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseMode("chatbot"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ParseMode(chatbot) error = %v, want ErrUnknownMode", err)
	}
}

func TestValidateColumns(t *testing.T) {
	tbl := mustParse(t, salesCSV)

	if got := ValidateColumns(tbl, SalesAnalysis); len(got) != 0 {
		t.Errorf("ValidateColumns(sales) = %v, want empty", got)
	}

	want := []string{"Product Category", "Product Method", "Customer Segment"}
	if got := ValidateColumns(tbl, CategoricalAnalysis); !reflect.DeepEqual(got, want) {
		t.Errorf("ValidateColumns(categorical) = %v, want %v", got, want)
	}
}

func TestValidateColumns_PreservesDeclaredOrder(t *testing.T) {
	// Header order is the reverse of the requirement order.
	tbl := mustParse(t, "Customer Segment,Value\nx,1\n")

	want := []string{"Transaction ID", "Date and Time", "Product Code", "Product Category", "Product Method"}
	if got := ValidateColumns(tbl, CategoricalAnalysis); !reflect.DeepEqual(got, want) {
		t.Errorf("ValidateColumns = %v, want %v", got, want)
	}
}

func TestValidateColumns_ExtraColumnsIgnored(t *testing.T) {
	tbl := mustParse(t, "Extra,Product Code,Value,Date and Time,Transaction ID,More\n1,2,3,4,5,6\n")
	if got := ValidateColumns(tbl, SalesAnalysis); len(got) != 0 {
		t.Errorf("ValidateColumns = %v, want empty", got)
	}
}

func TestAnalyzeMissingData_NoMissingCells(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		var b strings.Builder
		b.WriteString("a,b,c\n")
		for i := 0; i < n; i++ {
			b.WriteString("x,y,z\n")
		}
		rep := AnalyzeMissingData(mustParse(t, b.String()))
		if rep.Score != 100 {
			t.Errorf("n=%d: Score = %v, want 100", n, rep.Score)
		}
	}
}

func TestAnalyzeMissingData_EmptyColumn(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		var b strings.Builder
		b.WriteString("a,b\n")
		for i := 0; i < n; i++ {
			b.WriteString("x,\n")
		}
		rep := AnalyzeMissingData(mustParse(t, b.String()))
		d := rep.Columns["b"]
		if d.Percentage != 100 || d.Count != n {
			t.Errorf("n=%d: column b = %+v, want 100%% of %d", n, d, n)
		}
		if len(d.Rows) != n || d.Rows[0] != 1 || d.Rows[n-1] != n {
			t.Errorf("n=%d: rows = %v", n, d.Rows)
		}
	}
}

func TestAnalyzeMissingData_OneOfFourColumnsEmpty(t *testing.T) {
	tbl := mustParse(t, "a,b,c,d\n1,2,3,\n4,5,6,\n7,8,9,\n1,1,1,\n")

	rep := AnalyzeMissingData(tbl)
	if rep.Score != 75 {
		t.Errorf("Score = %v, want 75", rep.Score)
	}
	if got := rep.Order; !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Order = %v", got)
	}
}

func TestAnalyzeMissingData_AbsentCountsAsMissing(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,2\n3\n5,6\n")

	d := AnalyzeMissingData(tbl).Columns["b"]
	if d.Count != 1 || !reflect.DeepEqual(d.Rows, []int{2}) {
		t.Errorf("column b = %+v, want row 2 missing", d)
	}
	if d.Percentage != 33.33 {
		t.Errorf("Percentage = %v, want 33.33", d.Percentage)
	}
}

func TestAnalyzeMissingData_ZeroRows(t *testing.T) {
	rep := AnalyzeMissingData(mustParse(t, "a,b\n"))
	if rep.Score != 100 || len(rep.Columns) != 0 {
		t.Errorf("report = %+v, want empty with score 100", rep)
	}
}

func TestAnalyzeDuplicateData_FiveRowsOnePair(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,x\n2,y\n1,x\n3,z\n4,w\n")

	rep := AnalyzeDuplicateData(tbl)
	if rep.DuplicateCount != 1 {
		t.Errorf("DuplicateCount = %d, want 1", rep.DuplicateCount)
	}
	if rep.DuplicatePercentage != 20 {
		t.Errorf("DuplicatePercentage = %v, want 20", rep.DuplicatePercentage)
	}
	if rep.Score != 80 {
		t.Errorf("Score = %v, want 80", rep.Score)
	}
	if len(rep.Groups) != 1 || !reflect.DeepEqual(rep.Groups[0].Rows, []int{1, 3}) {
		t.Errorf("Groups = %+v, want rows 1 and 3", rep.Groups)
	}
}

func TestAnalyzeDuplicateData_SingleCell(t *testing.T) {
	rep := AnalyzeDuplicateData(mustParse(t, "a\n1\n"))
	if rep.DuplicateCount != 0 || rep.Score != 100 {
		t.Errorf("report = %+v, want no duplicates", rep)
	}
}

func TestAnalyzeDuplicateData_ZeroRows(t *testing.T) {
	rep := AnalyzeDuplicateData(mustParse(t, "a\n"))
	if rep.DuplicateCount != 0 || rep.DuplicatePercentage != 0 || rep.Score != 100 {
		t.Errorf("report = %+v", rep)
	}
}

func TestAnalyzeDuplicateData_KeyOrderIndependent(t *testing.T) {
	tbl := NewTable([]string{"x", "y"})
	if err := tbl.appendMap(map[string]string{"x": "1", "y": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.appendMap(map[string]string{"y": "2", "x": "1"}); err != nil {
		t.Fatal(err)
	}
	if got := AnalyzeDuplicateData(tbl).DuplicateCount; got != 1 {
		t.Errorf("DuplicateCount = %d, want 1", got)
	}

	// The same pairs under a different header order share a canonical key.
	other := NewTable([]string{"y", "x"})
	other.AppendRecord([]string{"2", "1"})
	if tbl.CanonicalKey(0) != other.CanonicalKey(0) {
		t.Errorf("canonical keys differ: %q vs %q", tbl.CanonicalKey(0), other.CanonicalKey(0))
	}
}

func TestAnalyzeDuplicateData_RowOrderInvariant(t *testing.T) {
	a := mustParse(t, "a,b\n1,x\n2,y\n1,x\n2,y\n3,z\n")
	b := mustParse(t, "a,b\n3,z\n2,y\n1,x\n2,y\n1,x\n")

	if ga, gb := AnalyzeDuplicateData(a).DuplicateCount, AnalyzeDuplicateData(b).DuplicateCount; ga != gb || ga != 2 {
		t.Errorf("DuplicateCount = %d and %d, want 2 for both", ga, gb)
	}
}

func TestAnalyzeDuplicateData_AbsentDiffersFromEmpty(t *testing.T) {
	tbl := mustParse(t, "a,b\n1,\n1\n")
	if got := AnalyzeDuplicateData(tbl).DuplicateCount; got != 0 {
		t.Errorf("DuplicateCount = %d, want 0", got)
	}
}

func TestCanonicalKey_NoAmbiguousConcatenation(t *testing.T) {
	tbl := NewTable([]string{"a", "b"})
	tbl.AppendRecord([]string{"1:2", "3"})
	tbl.AppendRecord([]string{"1", "2:3"})
	if tbl.CanonicalKey(0) == tbl.CanonicalKey(1) {
		t.Error("distinct rows share a canonical key")
	}
}

func TestScore(t *testing.T) {
	if got := Score(75, 100); got != 87.5 {
		t.Errorf("Score(75, 100) = %v, want 87.5", got)
	}
	if got := Score(100, 100); got != 100 {
		t.Errorf("Score(100, 100) = %v, want 100", got)
	}
}

func TestAnalyze_SalesScenario(t *testing.T) {
	res := Analyze(mustParse(t, salesCSV), SalesAnalysis)

	if len(res.MissingColumns) != 0 {
		t.Fatalf("MissingColumns = %v", res.MissingColumns)
	}
	if res.Missing.Score != 100 || res.Duplicates.Score != 100 || res.Quality != 100 {
		t.Errorf("scores = %v/%v/%v, want 100/100/100", res.Missing.Score, res.Duplicates.Score, res.Quality)
	}
	if !res.Perfect() || res.Warning() != "" {
		t.Errorf("Perfect() = %v, Warning() = %q", res.Perfect(), res.Warning())
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestAnalyze_CategoricalSkipsScans(t *testing.T) {
	res := Analyze(mustParse(t, salesCSV), CategoricalAnalysis)

	want := []string{"Product Category", "Product Method", "Customer Segment"}
	if !reflect.DeepEqual(res.MissingColumns, want) {
		t.Errorf("MissingColumns = %v, want %v", res.MissingColumns, want)
	}
	if res.Scanned() {
		t.Error("scans ran despite missing columns")
	}
	var mce *MissingColumnsError
	if !errors.As(res.Err(), &mce) || !reflect.DeepEqual(mce.Columns, want) {
		t.Errorf("Err() = %v, want MissingColumnsError", res.Err())
	}
}

func TestAnalyze_WarnsBelowPerfect(t *testing.T) {
	tbl := mustParse(t, salesCSV+"T3,2024-01-02 09:30,5.25,P3\n")

	res := Analyze(tbl, SalesAnalysis)
	if res.Perfect() {
		t.Fatal("expected sub-perfect score")
	}
	if res.Warning() == "" {
		t.Error("Warning() is empty for sub-perfect score")
	}
}

func TestAnalyze_WarnsOnSingleDuplicateInLargeTable(t *testing.T) {
	tbl := NewTable(RequiredColumns(SalesAnalysis))
	for i := 0; i < 30000; i++ {
		id := strconv.Itoa(i)
		tbl.AppendRecord([]string{"T" + id, "2024-01-01 10:00", "1.00", "P" + id})
	}
	tbl.AppendRecord([]string{"T0", "2024-01-01 10:00", "1.00", "P0"})

	res := Analyze(tbl, SalesAnalysis)
	if res.Duplicates.DuplicateCount != 1 {
		t.Fatalf("DuplicateCount = %d, want 1", res.Duplicates.DuplicateCount)
	}
	if res.Perfect() {
		t.Errorf("Perfect() = true with a duplicate row (quality %v)", res.Quality)
	}
	if w := res.Warning(); !strings.Contains(w, "1 duplicate rows of 30001") {
		t.Errorf("Warning() = %q", w)
	}
}

func TestAnalyze_WarnsOnSingleMissingCellInLargeTable(t *testing.T) {
	tbl := NewTable(RequiredColumns(SalesAnalysis))
	for i := 0; i < 30000; i++ {
		id := strconv.Itoa(i)
		tbl.AppendRecord([]string{"T" + id, "2024-01-01 10:00", "1.00", "P" + id})
	}
	tbl.AppendRecord([]string{"T-last", "2024-01-01 10:00", "", "P-last"})

	res := Analyze(tbl, SalesAnalysis)
	if res.Perfect() || res.Warning() == "" {
		t.Errorf("missing cell not reported: Perfect() = %v, Warning() = %q", res.Perfect(), res.Warning())
	}
}

func TestTable_EditOperations(t *testing.T) {
	tbl := mustParse(t, "a\n1\n")

	if err := tbl.SetCell(0, "a", "2"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := tbl.SetCell(3, "a", "x"); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("SetCell out of range error = %v", err)
	}
	if err := tbl.SetCell(0, "zz", "x"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("SetCell unknown column error = %v", err)
	}

	name, err := tbl.AddColumn(" b ")
	if err != nil || name != "b" {
		t.Fatalf("AddColumn = %q, %v", name, err)
	}
	if _, err := tbl.AddColumn("b"); err == nil {
		t.Error("AddColumn accepted a duplicate column")
	}
	f, _ := tbl.Cell(0, "b")
	if !f.Present || f.Value != "" {
		t.Errorf("new column cell = %+v, want present empty", f)
	}

	clone := tbl.Clone()
	_ = clone.SetCell(0, "a", "changed")
	if f, _ := tbl.Cell(0, "a"); f.Value != "2" {
		t.Errorf("Clone shares rows with original: %q", f.Value)
	}
}
