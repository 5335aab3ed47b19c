package rules

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fentz26/stashsweep/internal/models"
)

func TestDecodeItem(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Item
		wantErr bool
	}{
		{"[123]seal tooth", models.Item{ID: 123, Name: "seal tooth"}, false},
		{"[7]", models.Item{ID: 7}, false},
		{"hermit permit", models.Item{Name: "hermit permit"}, false},
		{"[x]bad", models.Item{}, true},
		{"[12bad", models.Item{}, true},
		{"", models.Item{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DecodeItem(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeItem(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeItem(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRules(t *testing.T) {
	src := strings.Join([]string{
		"# cleanup rules",
		"",
		"[1]seal tooth\tMALL\t2\t150",
		"[2]meat stack\tAUTO",
		"[3]tiny plastic sword\tGIFT\t0\tfriend\tenjoy",
		"[4]dough\tMAKE\t\t[5]flat dough\ttrue",
		"[6]hermit permit\tTODO\t\tuse it at the hermit",
		"[8]shirt\tKEEP\t3",
	}, "\n")

	rs, err := ParseRules(strings.NewReader(src), "cleanup.txt")
	if err != nil {
		t.Fatalf("ParseRules failed: %v", err)
	}
	if len(rs) != 6 {
		t.Fatalf("expected 6 rules, got %d", len(rs))
	}

	mall := rs[1]
	if mall.Action != models.ActionMall || mall.KeepAmount != 2 || mall.MinPrice != 150 {
		t.Errorf("unexpected mall rule %+v", mall)
	}
	gift := rs[3]
	if gift.Recipient != "friend" || gift.Message != "enjoy" {
		t.Errorf("unexpected gift rule %+v", gift)
	}
	mk := rs[4]
	if mk.Target != (models.Item{ID: 5, Name: "flat dough"}) || !mk.CreatableOnly {
		t.Errorf("unexpected make rule %+v", mk)
	}
	if rs[6].Message != "use it at the hermit" {
		t.Errorf("unexpected todo message %q", rs[6].Message)
	}
	if rs[8].Keep() != 0 {
		t.Errorf("KEEP rule keep floor = %d, want 0", rs[8].Keep())
	}
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown action", "[1]x\tSMASH", "unknown action"},
		{"bad keep", "[1]x\tAUTO\ttwo", "keep amount"},
		{"bad price", "[1]x\tMALL\t0\tcheap", "minimum price"},
		{"bad flag", "[1]x\tMAKE\t0\t[2]y\tmaybe", "creatable-only"},
		{"duplicate", "[1]x\tAUTO\n[1]x\tDISC", "duplicate"},
		{"missing id", "x\tAUTO", "must carry an id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules(strings.NewReader(tt.src), "bad.txt")
			if err == nil {
				t.Fatalf("expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.File != "bad.txt" {
				t.Errorf("error file = %q, want bad.txt", pe.File)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	_, err := ParseRules(strings.NewReader("[1]x\tSMASH"), "bad.txt")
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestRulesRoundTrip(t *testing.T) {
	original := models.RuleSet{
		1: {Item: models.Item{ID: 1, Name: "seal tooth"}, Action: models.ActionMall, KeepAmount: 4, MinPrice: 200},
		2: {Item: models.Item{ID: 2, Name: "meat stack"}, Action: models.ActionAuto},
		3: {Item: models.Item{ID: 3, Name: "sword"}, Action: models.ActionGift, Recipient: "friend", Message: "hi there"},
		4: {Item: models.Item{ID: 4, Name: "dough"}, Action: models.ActionMake, Target: models.Item{ID: 5, Name: "flat dough"}},
		6: {Item: models.Item{ID: 6, Name: "permit"}, Action: models.ActionTodo, Message: "go see the hermit"},
		7: {Item: models.Item{ID: 7, Name: "powder"}, Action: models.ActionPulverize, KeepAmount: 10},
	}

	var buf bytes.Buffer
	if err := FormatRules(&buf, original); err != nil {
		t.Fatalf("FormatRules failed: %v", err)
	}
	got, err := ParseRules(&buf, "roundtrip.txt")
	if err != nil {
		t.Fatalf("ParseRules failed: %v", err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestFormatRulesOmitsZeroKeep(t *testing.T) {
	rs := models.RuleSet{
		2: {Item: models.Item{ID: 2, Name: "meat stack"}, Action: models.ActionAuto, KeepAmount: 0},
	}
	var buf bytes.Buffer
	if err := FormatRules(&buf, rs); err != nil {
		t.Fatalf("FormatRules failed: %v", err)
	}
	if got, want := buf.String(), "[2]meat stack\tAUTO\n"; got != want {
		t.Errorf("FormatRules = %q, want %q", got, want)
	}
}

func TestStockRoundTrip(t *testing.T) {
	src := "[10]scroll\tbuy\t5\tconsumables\n[11]potion\tpull\t3\n"
	ss, err := ParseStock(strings.NewReader(src), "stock.txt")
	if err != nil {
		t.Fatalf("ParseStock failed: %v", err)
	}
	if ss[10].Amount != 5 || ss[10].Category != "consumables" || ss[11].Category != "" {
		t.Fatalf("unexpected stock set %+v", ss)
	}

	var buf bytes.Buffer
	if err := FormatStock(&buf, ss); err != nil {
		t.Fatalf("FormatStock failed: %v", err)
	}
	if buf.String() != src {
		t.Errorf("FormatStock = %q, want %q", buf.String(), src)
	}

	if _, err := ParseStock(strings.NewReader("[1]x\tbuy\tlots"), "stock.txt"); err == nil {
		t.Error("expected error for non-integer amount")
	}
}

func TestLoadStockMissingFile(t *testing.T) {
	ss, err := LoadStock(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("LoadStock failed: %v", err)
	}
	if len(ss) != 0 {
		t.Errorf("expected empty stock set, got %d", len(ss))
	}
}

func TestWriteAndLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleanup.txt")
	rs := models.RuleSet{
		9: {Item: models.Item{ID: 9, Name: "twig"}, Action: models.ActionDiscard},
	}
	if err := WriteRules(path, rs); err != nil {
		t.Fatalf("WriteRules failed: %v", err)
	}
	got, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if !reflect.DeepEqual(got, rs) {
		t.Errorf("LoadRules = %+v, want %+v", got, rs)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing rules file")
	}
}
