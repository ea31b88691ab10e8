package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDocStore is an in-process DocStore with the same update semantics as
// MongoDocStore. Values go through a BSON round trip on write so reads decode
// exactly like documents coming back from MongoDB.
type MemoryDocStore struct {
	mu sync.RWMutex
	// Structure: [collection][id]document
	data map[string]map[string]bson.M
}

func NewMemoryDocStore() *MemoryDocStore {
	return &MemoryDocStore{data: make(map[string]map[string]bson.M)}
}

func (s *MemoryDocStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryDocStore) Get(ctx context.Context, collection, id string, dest any) error {
	s.mu.RLock()
	doc, ok := s.data[collection][id]
	var raw []byte
	var err error
	if ok {
		raw, err = bson.Marshal(doc)
	}
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, dest)
}

func (s *MemoryDocStore) Apply(ctx context.Context, collection, id string, m Mutation) error {
	if m.empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.data[collection]
	doc, exists := docs[id]
	if !exists {
		if !m.upserts() {
			return nil
		}
		if docs == nil {
			docs = make(map[string]bson.M)
			s.data[collection] = docs
		}
		doc = bson.M{"_id": id}
	}

	// Work on a copy so a failed mutation leaves the stored document intact
	work := deepCopy(doc).(bson.M)

	for path, v := range m.Set {
		val, err := normalize(v)
		if err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
		if err := setPath(work, path, val); err != nil {
			return err
		}
	}
	if !exists {
		for path, v := range m.SetOnInsert {
			val, err := normalize(v)
			if err != nil {
				return fmt.Errorf("setOnInsert %s: %w", path, err)
			}
			if err := setPath(work, path, val); err != nil {
				return err
			}
		}
	}
	for path, v := range m.Inc {
		cur, _ := getPath(work, path)
		sum, err := addNumbers(cur, v)
		if err != nil {
			return fmt.Errorf("inc %s: %w", path, err)
		}
		if err := setPath(work, path, sum); err != nil {
			return err
		}
	}
	for _, path := range m.Unset {
		unsetPath(work, path)
	}

	docs[id] = work
	return nil
}

func (s *MemoryDocStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

func (s *MemoryDocStore) Top(ctx context.Context, collection, field string, limit int64, dest any) error {
	s.mu.RLock()
	list := make([]bson.M, 0, len(s.data[collection]))
	for _, doc := range s.data[collection] {
		list = append(list, doc)
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, _ := getPath(list[i], field)
		b, _ := getPath(list[j], field)
		return toFloat(a) > toFloat(b)
	})
	if limit > 0 && int64(len(list)) > limit {
		list = list[:limit]
	}
	raw, err := bson.Marshal(bson.M{"items": list})
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return decodeItems(raw, dest)
}

func (s *MemoryDocStore) Range(ctx context.Context, collection, field string, lo, hi float64, dest any) error {
	s.mu.RLock()
	list := make([]bson.M, 0)
	for _, doc := range s.data[collection] {
		v, ok := getPath(doc, field)
		if !ok || !isNumber(v) {
			continue
		}
		if f := toFloat(v); f >= lo && f <= hi {
			list = append(list, doc)
		}
	}
	// Sorted by id so the order does not depend on map iteration
	sort.Slice(list, func(i, j int) bool {
		return fmt.Sprint(list[i]["_id"]) < fmt.Sprint(list[j]["_id"])
	})
	raw, err := bson.Marshal(bson.M{"items": list})
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return decodeItems(raw, dest)
}

func decodeItems(raw []byte, dest any) error {
	var holder struct {
		Items bson.RawValue `bson:"items"`
	}
	if err := bson.Unmarshal(raw, &holder); err != nil {
		return err
	}
	return holder.Items.Unmarshal(dest)
}

// Len returns the number of documents in a collection.
func (s *MemoryDocStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

// normalize converts v into its generic BSON form (bson.M, primitive.A,
// primitive.DateTime, int32/int64, ...).
func normalize(v any) (any, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return deepCopy(out["v"]), nil
}

// deepCopy copies nested documents and arrays, converting primitive.D into bson.M.
func deepCopy(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(bson.M, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case map[string]any:
		out := make(bson.M, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case primitive.D:
		out := make(bson.M, len(t))
		for _, e := range t {
			out[e.Key] = deepCopy(e.Value)
		}
		return out
	case primitive.A:
		out := make(primitive.A, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

func asDoc(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	}
	return nil, false
}

func getPath(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := asDoc(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func setPath(doc bson.M, path string, val any) error {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		v, ok := cur[p]
		if !ok || v == nil {
			next := bson.M{}
			cur[p] = next
			cur = next
			continue
		}
		next, ok := asDoc(v)
		if !ok {
			return fmt.Errorf("cannot create field %q in non-document element %q", path, p)
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = val
	return nil
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := asDoc(cur[p])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

func addNumbers(cur, delta any) (any, error) {
	if cur == nil {
		cur = int64(0)
	}
	switch d := delta.(type) {
	case float32, float64:
		return toFloat(cur) + toFloat(d), nil
	case int, int32, int64:
		switch c := cur.(type) {
		case float32, float64:
			return toFloat(c) + toFloat(d), nil
		case int, int32, int64:
			return toInt(c) + toInt(d), nil
		}
		return nil, fmt.Errorf("cannot apply $inc to non-numeric value %T", cur)
	}
	return nil, fmt.Errorf("cannot increment with non-numeric argument %T", delta)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
