package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/studyquiz/pkg/models"
	"github.com/xuri/excelize/v2"
)

type fakeCategories struct {
	ids   map[string]string
	calls int
}

func (f *fakeCategories) FindOrCreate(ctx context.Context, name string) (models.Category, error) {
	f.calls++
	if f.ids == nil {
		f.ids = map[string]string{}
	}
	id, ok := f.ids[name]
	if !ok {
		id = fmt.Sprintf("cat-%d", len(f.ids)+1)
		f.ids[name] = id
	}
	return models.Category{ID: id, Name: name}, nil
}

type fakeQuestions struct {
	batches [][]models.Question
	err     error
}

func (f *fakeQuestions) BulkCreate(ctx context.Context, questions []models.Question) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, questions)
	return nil
}

const sampleCSV = `category_name,type,question_text,correct_answer,options
Science,multiple_choice,"What is the chemical symbol for water?","H2O","O2;CO2;H2;NaCl"
History,short_answer,"In what year did the Titanic sink?","1912",
Science,multiple_choice,"Which gas do plants absorb, mostly?",CO2,"O2,N2,CO2"
Science,essay,"Explain photosynthesis",light,
,short_answer,"No category",x,
`

func TestImportCSV(t *testing.T) {
	cats := &fakeCategories{}
	qs := &fakeQuestions{}
	im := New(cats, qs)

	res, err := im.ImportCSV(context.Background(), strings.NewReader(sampleCSV), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if res.Processed != 5 || res.Imported != 3 || res.Skipped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) != 2 || !strings.HasPrefix(res.Errors[0], "Row 5:") {
		t.Errorf("unexpected errors %v", res.Errors)
	}
	if len(qs.batches) != 1 || len(qs.batches[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %v", qs.batches)
	}
	if cats.calls != 2 {
		t.Errorf("expected categories to be resolved once each, got %d calls", cats.calls)
	}

	water := qs.batches[0][0]
	if water.Text != "What is the chemical symbol for water?" || water.CategoryID != cats.ids["Science"] {
		t.Errorf("unexpected first question %+v", water)
	}
	if !reflect.DeepEqual(water.Options, models.StringList{"O2", "CO2", "H2", "NaCl"}) {
		t.Errorf("unexpected options %v", water.Options)
	}

	titanic := qs.batches[0][1]
	if titanic.Type != models.ShortAnswer || len(titanic.Options) != 0 {
		t.Errorf("unexpected short answer question %+v", titanic)
	}

	plants := qs.batches[0][2]
	if plants.Text != "Which gas do plants absorb, mostly?" {
		t.Errorf("quoted comma split the field: %q", plants.Text)
	}
	if !reflect.DeepEqual(plants.Options, models.StringList{"O2", "N2"}) {
		t.Errorf("comma fallback or answer removal failed: %v", plants.Options)
	}
}

func TestImportCSVWithBOM(t *testing.T) {
	qs := &fakeQuestions{}
	cfg := DefaultConfig()
	cfg.StartRow = 1
	data := "\ufeffGeo,short_answer,Capital of France?,Paris,\n"

	res, err := New(&fakeCategories{}, qs).ImportCSV(context.Background(), strings.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 {
		t.Fatalf("expected 1 import, got %+v", res)
	}
}

func TestImportNothingValid(t *testing.T) {
	qs := &fakeQuestions{}
	data := "category_name,type,question_text,correct_answer,options\n,,,,\nA,bogus,q,a,\n"
	res, err := New(&fakeCategories{}, qs).ImportCSV(context.Background(), strings.NewReader(data), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 0 || res.Skipped != 1 || res.Processed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(qs.batches) != 0 {
		t.Fatal("empty import should not call BulkCreate")
	}
}

func TestImportBulkFailure(t *testing.T) {
	storeErr := errors.New("constraint failed")
	qs := &fakeQuestions{err: storeErr}
	res, err := New(&fakeCategories{}, qs).ImportCSV(context.Background(), strings.NewReader(sampleCSV), DefaultConfig())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if res == nil || res.Imported != 0 {
		t.Fatalf("expected zero imported on failure, got %+v", res)
	}
}

func TestImportXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"category_name", "type", "question_text", "correct_answer", "options"},
		{"Science", "multiple_choice", "Symbol for water?", "H2O", "O2; CO2"},
		{"History", "Short_Answer", "Titanic sank in?", "1912"},
	}
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	qs := &fakeQuestions{}
	res, err := New(&fakeCategories{}, qs).Import(context.Background(), &buf, "questions.xlsx", DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 2 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	got := qs.batches[0]
	if !reflect.DeepEqual(got[0].Options, models.StringList{"O2", "CO2"}) {
		t.Errorf("unexpected options %v", got[0].Options)
	}
	if got[1].Type != models.ShortAnswer {
		t.Errorf("type not normalised: %s", got[1].Type)
	}
}

func TestImportFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := New(&fakeCategories{}, &fakeQuestions{}).ImportFile(context.Background(), path, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 3 {
		t.Fatalf("expected 3 imported, got %+v", res)
	}
}

func TestImportUnsupportedFormat(t *testing.T) {
	_, err := New(&fakeCategories{}, &fakeQuestions{}).Import(context.Background(), strings.NewReader(""), "notes.txt", DefaultConfig())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSplitOptions(t *testing.T) {
	tests := map[string][]string{
		"a;b; c":  {"a", "b", "c"},
		"a, b,c":  {"a", "b", "c"},
		"a,b;c,d": {"a,b", "c,d"},
		"":        {},
		" ; ;":    {},
	}
	for in, want := range tests {
		if got := SplitOptions(in); !reflect.DeepEqual(got, want) {
			t.Errorf("SplitOptions(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColumnToIndex(t *testing.T) {
	tests := map[string]int{"A": 0, "e": 4, "Z": 25, "AA": 26}
	for in, want := range tests {
		if got := columnToIndex(in); got != want {
			t.Errorf("columnToIndex(%q) = %d, want %d", in, got, want)
		}
	}
}
