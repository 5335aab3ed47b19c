// Package rules reads and writes the tab-separated cleanup and stocking rule files.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fentz26/stashsweep/internal/models"
)

// ErrUnknownAction is wrapped by ParseError when a record carries an unknown tag.
var ErrUnknownAction = errors.New("unknown action")

// ParseError describes a malformed record.
type ParseError struct {
	File  string
	Line  int
	Entry string
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s (entry %q)", e.File, e.Line, e.Msg, e.Entry)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncodeItem renders an item as "[id]name".
func EncodeItem(it models.Item) string {
	return fmt.Sprintf("[%d]%s", it.ID, it.Name)
}

// DecodeItem parses "[id]name". A bare name without an id prefix yields an
// item with ID 0, to be resolved by name later.
func DecodeItem(s string) (models.Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Item{}, fmt.Errorf("empty item")
	}
	if !strings.HasPrefix(s, "[") {
		return models.Item{Name: s}, nil
	}
	end := strings.Index(s, "]")
	if end < 0 {
		return models.Item{}, fmt.Errorf("unterminated item id in %q", s)
	}
	id, err := strconv.Atoi(s[1:end])
	if err != nil || id <= 0 {
		return models.Item{}, fmt.Errorf("invalid item id in %q", s)
	}
	return models.Item{ID: id, Name: s[end+1:]}, nil
}

type record struct {
	line   int
	raw    string
	fields []string
}

func (r record) field(i int) string {
	if i < len(r.fields) {
		return strings.TrimSpace(r.fields[i])
	}
	return ""
}

func readRecords(r io.Reader) ([]record, error) {
	var out []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, record{line: n, raw: line, fields: strings.Split(line, "\t")})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseRules reads cleanup rule records. name is used in error messages.
func ParseRules(r io.Reader, name string) (models.RuleSet, error) {
	recs, err := readRecords(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	rs := make(models.RuleSet, len(recs))
	for _, rec := range recs {
		fail := func(msg string, err error) error {
			return &ParseError{File: name, Line: rec.line, Entry: rec.raw, Msg: msg, Err: err}
		}

		item, err := DecodeItem(rec.field(0))
		if err != nil {
			return nil, fail(err.Error(), err)
		}
		if item.ID == 0 {
			return nil, fail("rule item must carry an id", nil)
		}
		if _, dup := rs[item.ID]; dup {
			return nil, fail(fmt.Sprintf("duplicate rule for %s", item), nil)
		}

		action := models.Action(rec.field(1))
		if !action.IsValid() {
			return nil, fail(fmt.Sprintf("unknown action %q", action), ErrUnknownAction)
		}

		rule := models.CleanupRule{Item: item, Action: action}
		if keep := rec.field(2); keep != "" {
			n, err := strconv.Atoi(keep)
			if err != nil || n < 0 {
				return nil, fail(fmt.Sprintf("keep amount %q is not a non-negative integer", keep), err)
			}
			rule.KeepAmount = n
		}

		info, msg := rec.field(3), rec.field(4)
		switch action {
		case models.ActionGift:
			rule.Recipient = info
			rule.Message = msg
		case models.ActionMake:
			target, err := DecodeItem(info)
			if err != nil {
				return nil, fail(fmt.Sprintf("craft target: %v", err), err)
			}
			rule.Target = target
			if msg != "" {
				b, err := strconv.ParseBool(msg)
				if err != nil {
					return nil, fail(fmt.Sprintf("creatable-only flag %q is not a boolean", msg), err)
				}
				rule.CreatableOnly = b
			}
		case models.ActionMall:
			if info != "" {
				p, err := strconv.ParseInt(info, 10, 64)
				if err != nil || p < 0 {
					return nil, fail(fmt.Sprintf("minimum price %q is not a non-negative integer", info), err)
				}
				rule.MinPrice = p
			}
		case models.ActionTodo:
			rule.Message = info
		}

		rs[item.ID] = rule
	}
	return rs, nil
}

// ParseStock reads stocking rule records.
func ParseStock(r io.Reader, name string) (models.StockSet, error) {
	recs, err := readRecords(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	ss := make(models.StockSet, len(recs))
	for _, rec := range recs {
		fail := func(msg string, err error) error {
			return &ParseError{File: name, Line: rec.line, Entry: rec.raw, Msg: msg, Err: err}
		}

		item, err := DecodeItem(rec.field(0))
		if err != nil {
			return nil, fail(err.Error(), err)
		}
		if item.ID == 0 {
			return nil, fail("stocking item must carry an id", nil)
		}
		if _, dup := ss[item.ID]; dup {
			return nil, fail(fmt.Sprintf("duplicate stocking rule for %s", item), nil)
		}
		amount, err := strconv.Atoi(rec.field(2))
		if err != nil || amount < 0 {
			return nil, fail(fmt.Sprintf("amount %q is not a non-negative integer", rec.field(2)), err)
		}
		ss[item.ID] = models.StockingRule{
			Item:     item,
			Type:     rec.field(1),
			Amount:   amount,
			Category: rec.field(3),
		}
	}
	return ss, nil
}

// FormatRules writes the rule set in file format, ordered by item id.
// A keep amount of 0 is omitted.
func FormatRules(w io.Writer, rs models.RuleSet) error {
	bw := bufio.NewWriter(w)
	for _, rule := range rs.Sorted() {
		keep := ""
		if rule.KeepAmount != 0 {
			keep = strconv.Itoa(rule.KeepAmount)
		}
		var info, msg string
		switch rule.Action {
		case models.ActionGift:
			info, msg = rule.Recipient, rule.Message
		case models.ActionMake:
			if rule.Target.ID != 0 {
				info = EncodeItem(rule.Target)
			} else {
				info = rule.Target.Name
			}
			msg = strconv.FormatBool(rule.CreatableOnly)
		case models.ActionMall:
			if rule.MinPrice != 0 {
				info = strconv.FormatInt(rule.MinPrice, 10)
			}
		case models.ActionTodo:
			info = rule.Message
		}
		line := joinFields(EncodeItem(rule.Item), string(rule.Action), keep, info, msg)
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatStock writes the stocking rules in file format, ordered by item id.
func FormatStock(w io.Writer, ss models.StockSet) error {
	bw := bufio.NewWriter(w)
	for _, rule := range ss.Sorted() {
		line := joinFields(EncodeItem(rule.Item), rule.Type, strconv.Itoa(rule.Amount), rule.Category)
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func joinFields(fields ...string) string {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	return strings.Join(fields[:n], "\t")
}

// LoadRules reads a cleanup rule file.
func LoadRules(path string) (models.RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return ParseRules(f, path)
}

// LoadStock reads a stocking rule file. A missing file means no stocking rules.
func LoadStock(path string) (models.StockSet, error) {
	if path == "" {
		return models.StockSet{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.StockSet{}, nil
		}
		return nil, fmt.Errorf("open stock file: %w", err)
	}
	defer f.Close()
	return ParseStock(f, path)
}

// WriteRules writes a cleanup rule file atomically.
func WriteRules(path string, rs models.RuleSet) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create rules file: %w", err)
	}
	if err := FormatRules(f, rs); err != nil {
		f.Close()
		return fmt.Errorf("write rules file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close rules file: %w", err)
	}
	return os.Rename(tmp, path)
}
