package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row: одна строка таблицы выгрузки, имя колонки -> сырое значение
type Row map[string]any

// FieldError называет таблицу и поле, которое не удалось разобрать
type FieldError struct {
	Table string
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v (value %#v)", e.Table, e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

var (
	ErrUnknownObjectType = errors.New("unknown object type")
	errMissing           = errors.New("required field is missing")
)

// get: точное совпадение имени колонки, затем без учёта регистра
// (postgres складывает некавыченные имена в нижний регистр)
func (r Row) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	for _, k := range keys {
		for rk, v := range r {
			if v != nil && strings.EqualFold(rk, k) {
				return v, true
			}
		}
	}
	return nil, false
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(layoutISO)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int64ToInt(t)
	case float64:
		return floatToInt(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int64ToInt(n)
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("not an integer")
		}
		return floatToInt(f)
	case []byte:
		return atoi(string(t))
	case string:
		return atoi(t)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", v)
	}
}

func int64ToInt(n int64) (int, error) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, fmt.Errorf("integer out of range")
	}
	return int(n), nil
}

// floatToInt: только целые значения в диапазоне int (NaN и Inf отбрасываются)
func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	if f < math.MinInt || f >= -math.MinInt {
		return 0, fmt.Errorf("integer out of range")
	}
	return int(f), nil
}

func atoi(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	return n, nil
}

// asFlag: флаги выгрузки это целые 0/1
func asFlag(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string, []byte:
		s := strings.TrimSpace(strings.ToLower(asString(t)))
		switch s {
		case "", "0", "false":
			return false, nil
		case "1", "true":
			return true, nil
		}
		return false, fmt.Errorf("flag must be 0 or 1")
	}
	n, err := asInt(v)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("flag must be 0 or 1")
}
