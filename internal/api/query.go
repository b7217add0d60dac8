package api

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ==== Типы сортировки и параметров листинга ====

type SortKey struct {
	Field string
	Desc  bool
}

type ListParams struct {
	Limit   int
	Offset  int
	Sort    []SortKey
	Filters map[string][]string
	Q       string
}

// ==== Парсинг query-параметров ====

func parseListParams(q url.Values) ListParams {
	limit := 50
	if lv := q.Get("limit"); lv != "" {
		if n, err := strconv.Atoi(lv); err == nil && n >= 0 && n <= 1000 {
			limit = n
		}
	}

	offset := 0
	if ov := q.Get("offset"); ov != "" {
		if n, err := strconv.Atoi(ov); err == nil && n >= 0 {
			offset = n
		}
	}

	// sort=name,-attributes
	var sortKeys []SortKey
	for _, p := range strings.Split(q.Get("sort"), ",") {
		p = strings.TrimSpace(p)
		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = strings.TrimPrefix(p, "-")
		} else {
			p = strings.TrimPrefix(p, "+")
		}
		if p != "" {
			sortKeys = append(sortKeys, SortKey{Field: p, Desc: desc})
		}
	}

	// фильтры (исключаем служебные ключи)
	filters := make(map[string][]string)
	for key, vals := range q {
		switch key {
		case "q", "offset", "limit", "sort":
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			filters[key] = clean
		}
	}

	return ListParams{
		Limit:   limit,
		Offset:  offset,
		Sort:    sortKeys,
		Filters: filters,
		Q:       strings.TrimSpace(q.Get("q")),
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// filterRows: равенство по фильтрам (любое из значений), q ищет подстроку в имени
func filterRows(all []map[string]any, lp ListParams) []map[string]any {
	out := make([]map[string]any, 0, len(all))
	q := strings.ToLower(lp.Q)
	for _, r := range all {
		match := true
		for k, vals := range lp.Filters {
			got := toString(r[k])
			okv := false
			for _, want := range vals {
				if strings.EqualFold(got, want) {
					okv = true
					break
				}
			}
			if !okv {
				match = false
				break
			}
		}
		if match && q != "" {
			match = strings.Contains(strings.ToLower(toString(r["name"])), q)
		}
		if match {
			out = append(out, r)
		}
	}
	return out
}

// cmpValues: числа сравниваются как числа, остальное строкой; nil в конце
func cmpValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return +1
		default:
			return -1
		}
	}
	if ia, ok := a.(int); ok {
		if ib, ok := b.(int); ok {
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return +1
			}
			return 0
		}
	}
	sa, sb := toString(a), toString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return +1
	}
	return 0
}

func sortRows(rows []map[string]any, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := cmpValues(rows[i][k.Field], rows[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc && rows[i][k.Field] != nil && rows[j][k.Field] != nil {
				c = -c
			}
			return c < 0
		}
		return false
	})
}

func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
