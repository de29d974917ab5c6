package quiz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Diagnostic describes a field of a raw question that could not be used as given.
type Diagnostic struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("question %d: %s: %s", d.Index, d.Field, d.Message)
}

// OptionsKind tags the shape the options field arrived in.
type OptionsKind int

const (
	OptionsAbsent OptionsKind = iota
	OptionsStringList
	OptionsLabeledList
	OptionsDelimited
)

func (k OptionsKind) String() string {
	switch k {
	case OptionsStringList:
		return "string_list"
	case OptionsLabeledList:
		return "labeled_list"
	case OptionsDelimited:
		return "delimited"
	default:
		return "absent"
	}
}

// OptionsVariant is the decoded options field. Values is empty when Kind is OptionsAbsent.
type OptionsVariant struct {
	Kind   OptionsKind
	Values []string
}

// AnswerKind tags the shape the answer field arrived in.
type AnswerKind int

const (
	AnswerAbsent AnswerKind = iota
	AnswerText
	AnswerList
)

// AnswerVariant is the decoded answer field. Text is set for AnswerText, List for AnswerList.
type AnswerVariant struct {
	Kind AnswerKind
	Text string
	List []string
}

var labelKeys = []string{"text", "label", "value", "option"}

// delimiters in the order they are tried on a delimited string.
var delimiters = []string{"\n", "|", ";", ","}

// ReadOptions decodes raw into an OptionsVariant. Unsupported shapes are reported and treated as absent.
func ReadOptions(raw any) (OptionsVariant, error) {
	switch v := raw.(type) {
	case nil:
		return OptionsVariant{Kind: OptionsAbsent}, nil
	case string:
		values := splitDelimited(v)
		if len(values) == 0 {
			return OptionsVariant{Kind: OptionsAbsent}, nil
		}
		return OptionsVariant{Kind: OptionsDelimited, Values: values}, nil
	case []any:
		return readOptionList(v)
	default:
		return OptionsVariant{Kind: OptionsAbsent}, fmt.Errorf("unsupported options shape %T", raw)
	}
}

func readOptionList(items []any) (OptionsVariant, error) {
	if len(items) == 0 {
		return OptionsVariant{Kind: OptionsAbsent}, nil
	}

	if _, labeled := items[0].(map[string]any); labeled {
		values := make([]string, 0, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return OptionsVariant{Kind: OptionsAbsent}, fmt.Errorf("option %d is %T in a labeled list", i, item)
			}
			label, ok := firstString(obj, labelKeys)
			if !ok {
				return OptionsVariant{Kind: OptionsAbsent}, fmt.Errorf("option %d has no text, label, value or option key", i)
			}
			values = append(values, label)
		}
		return OptionsVariant{Kind: OptionsLabeledList, Values: values}, nil
	}

	values := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := scalarString(item)
		if !ok {
			return OptionsVariant{Kind: OptionsAbsent}, fmt.Errorf("option %d is %T", i, item)
		}
		if s = strings.TrimSpace(s); s != "" {
			values = append(values, s)
		}
	}
	if len(values) == 0 {
		return OptionsVariant{Kind: OptionsAbsent}, nil
	}
	return OptionsVariant{Kind: OptionsStringList, Values: values}, nil
}

// ReadAnswer decodes raw into an AnswerVariant. Numbers and booleans are stringified.
func ReadAnswer(raw any) (AnswerVariant, error) {
	switch v := raw.(type) {
	case nil:
		return AnswerVariant{Kind: AnswerAbsent}, nil
	case []any:
		list := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := scalarString(item)
			if !ok {
				return AnswerVariant{Kind: AnswerAbsent}, fmt.Errorf("answer element %d is %T", i, item)
			}
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		if len(list) == 0 {
			return AnswerVariant{Kind: AnswerAbsent}, nil
		}
		return AnswerVariant{Kind: AnswerList, List: list}, nil
	default:
		s, ok := scalarString(raw)
		if !ok {
			return AnswerVariant{Kind: AnswerAbsent}, fmt.Errorf("unsupported answer shape %T", raw)
		}
		if s = strings.TrimSpace(s); s == "" {
			return AnswerVariant{Kind: AnswerAbsent}, nil
		}
		return AnswerVariant{Kind: AnswerText, Text: s}, nil
	}
}

// Members returns the answer as a list, splitting delimited text.
func (a AnswerVariant) Members() []string {
	switch a.Kind {
	case AnswerList:
		return a.List
	case AnswerText:
		return splitDelimited(a.Text)
	}
	return nil
}

// Single returns the answer as one string. A single-element list is unwrapped.
func (a AnswerVariant) Single() (string, bool) {
	switch a.Kind {
	case AnswerText:
		return a.Text, true
	case AnswerList:
		if len(a.List) == 1 {
			return a.List[0], true
		}
	}
	return "", false
}

func splitDelimited(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	sep := ""
	for _, d := range delimiters {
		if strings.Contains(s, d) {
			sep = d
			break
		}
	}
	if sep == "" {
		return []string{s}
	}

	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// firstString returns the first non-empty value among keys, in key order.
func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if s, ok := scalarString(raw); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// firstValue returns the first present, non-null value among keys.
func firstValue(obj map[string]any, keys []string) (any, string) {
	for _, key := range keys {
		if raw, ok := obj[key]; ok && raw != nil {
			return raw, key
		}
	}
	return nil, ""
}

// fold lowercases s and strips diacritics so "Vrai/Faux" and "Réponse unique" compare loosely.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}
