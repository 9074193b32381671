package detect

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// IdentityFunc returns the identity keys a record can be matched on,
// most specific first. Build keys with Key so they are normalized;
// empty strings are ignored. A record with no keys becomes its own entity.
//
// The first key is the record's primary key. Two groups whose primary
// keys share a kind but differ in value never merge, even when a
// secondary key (a controller serial shared by two namespaces) links
// them. Records from the same detector never merge with each other.
type IdentityFunc[T any] func(rec T) []string

// Entity is one resolved physical device.
type Entity[T any] struct {
	Record    T
	Keys      []string
	Sources   []string
	Conflicts []Conflict
}

// Conflict records two sources disagreeing on a field. The higher
// priority value is kept; the other is reported for review.
type Conflict struct {
	Entity      string `json:"entity" yaml:"entity"`
	Field       string `json:"field" yaml:"field"`
	Kept        string `json:"kept" yaml:"kept"`
	KeptFrom    string `json:"kept_from" yaml:"kept_from"`
	Ignored     string `json:"ignored" yaml:"ignored"`
	IgnoredFrom string `json:"ignored_from" yaml:"ignored_from"`
}

// Merge groups partial records by identity and fills each group's record
// field by field, highest priority first. A field already set is never
// overwritten by a later source. Fields tagged `merge:"enrich"` that are
// slices collect the union of every source instead.
func Merge[T any](partials []Partial[T], identity IdentityFunc[T]) []Entity[T] {
	return MergeInto(nil, partials, identity)
}

// MergeInto merges partials into an already resolved state. Existing
// entities outrank every new partial. Merging an empty partial list
// returns existing unchanged.
func MergeInto[T any](existing []Entity[T], partials []Partial[T], identity IdentityFunc[T]) []Entity[T] {
	if len(partials) == 0 {
		return existing
	}

	ordered := append([]Partial[T](nil), partials...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	// Nodes: existing entities first, then partials in priority order.
	// Existing entities share one origin so they stay apart from each other.
	n := len(existing) + len(ordered)
	keysOf := make([][]string, n)
	origins := make([]string, n)
	for i, e := range existing {
		keysOf[i] = dedupe(e.Keys)
		origins[i] = "\x00resolved"
	}
	for i, p := range ordered {
		keysOf[len(existing)+i] = dedupe(identity(p.Record))
		origins[len(existing)+i] = p.Source
	}

	uf := newUnionFind(n)
	for i, keys := range keysOf {
		uf.seed(i, origins[i], keys)
	}
	owner := make(map[string]int)
	for i, keys := range keysOf {
		for _, k := range keys {
			if j, ok := owner[k]; ok {
				uf.union(j, i)
			} else {
				owner[k] = i
			}
		}
	}

	// Components in order of their first member keep output deterministic.
	groups := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	plan := planFor(reflect.TypeFor[T]())
	out := make([]Entity[T], 0, len(roots))
	for _, r := range roots {
		var ent Entity[T]
		origin := make(map[int]string)
		dst := reflect.ValueOf(&ent.Record).Elem()
		for _, i := range groups[r] {
			var src reflect.Value
			var from string
			if i < len(existing) {
				e := existing[i]
				src = reflect.ValueOf(e.Record)
				from = "resolved"
				ent.Sources = appendUnique(ent.Sources, e.Sources...)
				ent.Conflicts = append(ent.Conflicts, e.Conflicts...)
			} else {
				p := ordered[i-len(existing)]
				src = reflect.ValueOf(p.Record)
				from = p.Source
				ent.Sources = appendUnique(ent.Sources, p.Source)
			}
			ent.Keys = appendUnique(ent.Keys, keysOf[i]...)
			fill(dst, src, plan, from, origin, &ent.Conflicts, ent.Keys)
		}
		out = append(out, ent)
	}
	return out
}

type fieldPlan struct {
	index  int
	name   string
	enrich bool
	kind   reflect.Kind
}

var plans sync.Map // reflect.Type -> []fieldPlan

func planFor(t reflect.Type) []fieldPlan {
	if v, ok := plans.Load(t); ok {
		return v.([]fieldPlan)
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("detect: merge requires a struct record, got %s", t))
	}
	var fields []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.String, reflect.Map:
		default:
			panic(fmt.Sprintf("detect: field %s.%s must be a pointer, slice, map or string to express unknown", t.Name(), f.Name))
		}
		fields = append(fields, fieldPlan{
			index:  i,
			name:   f.Name,
			enrich: f.Tag.Get("merge") == "enrich",
			kind:   f.Type.Kind(),
		})
	}
	plans.Store(t, fields)
	return fields
}

func fill(dst, src reflect.Value, plan []fieldPlan, from string, origin map[int]string, conflicts *[]Conflict, keys []string) {
	for _, f := range plan {
		d := dst.Field(f.index)
		s := src.Field(f.index)
		switch f.kind {
		case reflect.Pointer:
			if s.IsNil() {
				continue
			}
			if d.IsNil() {
				cp := reflect.New(s.Type().Elem())
				cp.Elem().Set(s.Elem())
				d.Set(cp)
				origin[f.index] = from
				continue
			}
			if !f.enrich && !reflect.DeepEqual(d.Elem().Interface(), s.Elem().Interface()) {
				*conflicts = append(*conflicts, Conflict{
					Entity:      firstKey(keys),
					Field:       f.name,
					Kept:        fmt.Sprint(d.Elem().Interface()),
					KeptFrom:    origin[f.index],
					Ignored:     fmt.Sprint(s.Elem().Interface()),
					IgnoredFrom: from,
				})
			}
		case reflect.String:
			if s.Len() > 0 && d.Len() == 0 {
				d.SetString(s.String())
				origin[f.index] = from
			}
		case reflect.Slice:
			if s.Len() == 0 {
				continue
			}
			if d.Len() == 0 {
				d.Set(reflect.AppendSlice(reflect.MakeSlice(s.Type(), 0, s.Len()), s))
				origin[f.index] = from
				continue
			}
			if f.enrich {
				for i := 0; i < s.Len(); i++ {
					if !containsValue(d, s.Index(i)) {
						d.Set(reflect.Append(d, s.Index(i)))
					}
				}
			}
		case reflect.Map:
			if s.Len() == 0 {
				continue
			}
			if d.IsNil() {
				d.Set(reflect.MakeMapWithSize(s.Type(), s.Len()))
			}
			iter := s.MapRange()
			for iter.Next() {
				if !d.MapIndex(iter.Key()).IsValid() {
					d.SetMapIndex(iter.Key(), iter.Value())
				}
			}
		}
	}
}

func containsValue(slice, v reflect.Value) bool {
	for i := 0; i < slice.Len(); i++ {
		if reflect.DeepEqual(slice.Index(i).Interface(), v.Interface()) {
			return true
		}
	}
	return false
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func dedupe(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		out = appendUnique(out, k)
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

// unionFind tracks, per component, the detectors it holds and its primary
// key per kind so union can refuse merges that would fold two devices.
type unionFind struct {
	parent  []int
	sources []map[string]bool
	primary []map[string]string
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{
		parent:  p,
		sources: make([]map[string]bool, n),
		primary: make([]map[string]string, n),
	}
}

func (u *unionFind) seed(i int, source string, keys []string) {
	u.sources[i] = map[string]bool{source: true}
	u.primary[i] = make(map[string]string)
	if len(keys) > 0 {
		u.primary[i][keyKind(keys[0])] = keys[0]
	}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union keeps the lower index as root so components are named by their
// highest priority member. It reports false when the components must stay
// apart.
func (u *unionFind) union(a, b int) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return true
	}
	for src := range u.sources[rb] {
		if u.sources[ra][src] {
			return false
		}
	}
	for kind, key := range u.primary[rb] {
		if other, ok := u.primary[ra][kind]; ok && other != key {
			return false
		}
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	for src := range u.sources[rb] {
		u.sources[ra][src] = true
	}
	for kind, key := range u.primary[rb] {
		u.primary[ra][kind] = key
	}
	u.sources[rb], u.primary[rb] = nil, nil
	return true
}

func keyKind(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}
