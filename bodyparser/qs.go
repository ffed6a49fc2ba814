package bodyparser

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// maxDepth bounds bracket nesting; deeper segments stay in one literal key.
	maxDepth = 32
	// minArrayLimit is the smallest bound on explicit indices that still
	// produce a slice. The bound grows with the number of pairs.
	minArrayLimit = 100
)

// parseForm decodes a URL-encoded body. Pairs are processed in order so
// appended ("a[]") values keep their position.
func parseForm(body string, extended bool, paramLimit int) (map[string]any, error) {
	out := map[string]any{}
	if body == "" {
		return out, nil
	}

	pairs := strings.Split(body, "&")
	if len(pairs) > paramLimit {
		return nil, ErrTooManyParameters
	}

	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid form key %q: %w", rawKey, err)
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			return nil, fmt.Errorf("invalid form value for %q: %w", key, err)
		}
		if key == "" {
			continue
		}

		if !extended {
			addLeaf(out, key, val)
			continue
		}
		insert(out, splitKey(key), val)
	}

	if !extended {
		return flatten(out), nil
	}
	arrayLimit := max(minArrayLimit, len(pairs))
	for k, v := range out {
		out[k] = compact(v, arrayLimit)
	}
	return out, nil
}

// splitKey turns "a[b][][c]" into ["a", "b", "", "c"].
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}
	}

	segs := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		if len(segs) > maxDepth {
			break
		}
		segs = append(segs, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" {
		segs = append(segs, rest)
	}
	return segs
}

// insert places val at segs inside m. During the build every container is
// a map; numeric keys are turned into slices by compact.
func insert(m map[string]any, segs []string, val string) {
	key := segs[0]
	if key == "" {
		key = nextIndex(m)
	}
	if len(segs) == 1 {
		addLeaf(m, key, val)
		return
	}

	child, ok := m[key].(map[string]any)
	if !ok {
		child = map[string]any{}
		if prev, exists := m[key]; exists {
			child["0"] = prev
		}
		m[key] = child
	}
	insert(child, segs[1:], val)
}

// addLeaf stores val, promoting repeated keys to an indexed container.
func addLeaf(m map[string]any, key, val string) {
	switch prev := m[key].(type) {
	case nil:
		m[key] = val
	case map[string]any:
		prev[nextIndex(prev)] = val
	default:
		m[key] = map[string]any{"0": prev, "1": val}
	}
}

// nextIndex returns one past the highest index already in m, so appended
// values never collide with explicit ones.
func nextIndex(m map[string]any) string {
	next := 0
	for k := range m {
		if i, err := strconv.Atoi(k); err == nil && i >= next {
			next = i + 1
		}
	}
	return strconv.Itoa(next)
}

// compact converts maps whose keys are all indices up to limit into slices,
// ordered by index with gaps removed.
func compact(v any, limit int) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = compact(child, limit)
	}

	indices := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i > limit || strconv.Itoa(i) != k {
			return m
		}
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return m
	}
	sort.Ints(indices)

	list := make([]any, len(indices))
	for n, i := range indices {
		list[n] = m[strconv.Itoa(i)]
	}
	return list
}

// flatten renders repeated plain keys as []string.
func flatten(m map[string]any) map[string]any {
	for k, v := range m {
		indexed, ok := v.(map[string]any)
		if !ok {
			continue
		}
		vals := make([]string, len(indexed))
		for i := range vals {
			vals[i], _ = indexed[strconv.Itoa(i)].(string)
		}
		m[k] = vals
	}
	return m
}
