package scenelink

import (
	"reflect"
	"sync"
)

// overrideRecord holds the two override layers for one key.
type overrideRecord struct {
	intermediate Props
	persisted    Props
}

// OverrideStore is the live prop-override table. Effective props for a key
// are source ⊕ persisted ⊕ intermediate, later layers winning. Writing a nil
// value into a layer deletes the key from that layer.
//
// The store is safe for concurrent use: bridge handlers write on the bridge
// goroutine while the scene reads on the frame goroutine. Writes only mark
// keys dirty; the scene re-applies them at the start of its next Update.
type OverrideStore struct {
	mu       sync.Mutex
	records  map[Key]*overrideRecord
	sources  map[Key]Props
	paths    map[Key]string
	deleted  map[Key]bool
	dirty    map[Key]struct{}
	reloaded map[string]struct{}
	onChange []func(Key)
}

// NewOverrideStore creates an empty store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{
		records:  make(map[Key]*overrideRecord),
		sources:  make(map[Key]Props),
		paths:    make(map[Key]string),
		deleted:  make(map[Key]bool),
		dirty:    make(map[Key]struct{}),
		reloaded: make(map[string]struct{}),
	}
}

// OnChange registers fn to be called (outside the store lock) after any
// write affecting key. The scene uses it to schedule a re-render.
func (s *OverrideStore) OnChange(fn func(Key)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// record returns the record for k, creating it lazily. Caller holds s.mu.
func (s *OverrideStore) record(k Key) *overrideRecord {
	r, ok := s.records[k]
	if !ok {
		r = &overrideRecord{intermediate: Props{}, persisted: Props{}}
		s.records[k] = r
		if _, known := s.paths[k]; !known {
			if id, _, err := ParseKey(k); err == nil {
				s.paths[k] = id.Path
			}
		}
	}
	return r
}

// changed marks keys dirty and notifies listeners. Caller holds s.mu; the
// listeners are returned so they can be invoked after unlocking.
func (s *OverrideStore) changed(keys ...Key) []func(Key) {
	for _, k := range keys {
		s.dirty[k] = struct{}{}
	}
	if len(s.onChange) == 0 {
		return nil
	}
	return append([]func(Key){}, s.onChange...)
}

func notify(fns []func(Key), keys ...Key) {
	for _, fn := range fns {
		for _, k := range keys {
			fn(k)
		}
	}
}

func setLayer(layer Props, prop string, value any) {
	if value == nil {
		delete(layer, prop)
		return
	}
	layer[prop] = value
}

// SetProp writes value into the intermediate (preview) layer.
func (s *OverrideStore) SetProp(k Key, prop string, value any) {
	s.mu.Lock()
	setLayer(s.record(k).intermediate, prop, value)
	fns := s.changed(k)
	s.mu.Unlock()
	notify(fns, k)
}

// PersistProp writes value into the persisted layer, which survives hot-reload.
func (s *OverrideStore) PersistProp(k Key, prop string, value any) {
	s.mu.Lock()
	setLayer(s.record(k).persisted, prop, value)
	fns := s.changed(k)
	s.mu.Unlock()
	notify(fns, k)
}

// ResetProp removes prop from the intermediate layer only.
func (s *OverrideStore) ResetProp(k Key, prop string) {
	s.mu.Lock()
	r, ok := s.records[k]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, had := r.intermediate[prop]; !had {
		s.mu.Unlock()
		return
	}
	delete(r.intermediate, prop)
	fns := s.changed(k)
	s.mu.Unlock()
	notify(fns, k)
}

// Reset clears every intermediate layer, discarding all unconfirmed edits.
func (s *OverrideStore) Reset() {
	s.mu.Lock()
	var keys []Key
	for k, r := range s.records {
		if len(r.intermediate) > 0 {
			r.intermediate = Props{}
			keys = append(keys, k)
		}
	}
	fns := s.changed(keys...)
	s.mu.Unlock()
	notify(fns, keys...)
}

// Value returns the effective value of prop for k and whether any layer
// defines it. Unknown keys report no value.
func (s *OverrideStore) Value(k Key, prop string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[k]; ok {
		if v, ok := r.intermediate[prop]; ok {
			return v, true
		}
		if v, ok := r.persisted[prop]; ok {
			return v, true
		}
	}
	v, ok := s.sources[k][prop]
	return v, ok
}

// Effective returns the merged props for k as a fresh map.
func (s *OverrideStore) Effective(k Key) Props {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sources[k].Clone()
	if r, ok := s.records[k]; ok {
		for p, v := range r.persisted {
			out[p] = v
		}
		for p, v := range r.intermediate {
			out[p] = v
		}
	}
	return out
}

// HasOverrides reports whether k has any intermediate or persisted value.
func (s *OverrideStore) HasOverrides(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	return ok && (len(r.intermediate) > 0 || len(r.persisted) > 0)
}

// SetDeleted sets or clears the soft-delete flag for k. The flag is visible
// to IsDeleted immediately, before any file edit lands.
func (s *OverrideStore) SetDeleted(k Key, deleted bool) {
	s.mu.Lock()
	if s.deleted[k] == deleted {
		s.mu.Unlock()
		return
	}
	if deleted {
		s.deleted[k] = true
	} else {
		delete(s.deleted, k)
	}
	fns := s.changed(k)
	s.mu.Unlock()
	notify(fns, k)
}

// IsDeleted reports the soft-delete flag for k.
func (s *OverrideStore) IsDeleted(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted[k]
}

// Register records the source layer for k as rendered from path. It returns
// true when the source is new or differs from the previously registered one.
func (s *OverrideStore) Register(k Key, path string, source Props) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[k] = path
	if source == nil {
		source = Props{}
	}
	prev, ok := s.sources[k]
	if ok && reflect.DeepEqual(prev, source) {
		return false
	}
	s.sources[k] = source.Clone()
	return true
}

// InvalidateFile applies the hot-reload policy for path: intermediate layers
// of keys rendered from path are cleared; persisted layers and other files
// are untouched. The path is marked so the next Prune can drop identities
// that disappeared from it.
func (s *OverrideStore) InvalidateFile(path string) {
	s.mu.Lock()
	var keys []Key
	for k, r := range s.records {
		if s.paths[k] != path {
			continue
		}
		if len(r.intermediate) > 0 {
			r.intermediate = Props{}
			keys = append(keys, k)
		}
	}
	s.reloaded[path] = struct{}{}
	fns := s.changed(keys...)
	s.mu.Unlock()
	notify(fns, keys...)
}

// Prune destroys every record, source and soft-delete flag belonging to a
// reloaded path whose key is not in live. It returns the destroyed keys.
// Files that have not been reloaded since the last Prune are left alone.
func (s *OverrideStore) Prune(live map[Key]struct{}) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reloaded) == 0 {
		return nil
	}
	var gone []Key
	for k, path := range s.paths {
		if _, reloaded := s.reloaded[path]; !reloaded {
			continue
		}
		if _, ok := live[k]; ok {
			continue
		}
		delete(s.records, k)
		delete(s.sources, k)
		delete(s.deleted, k)
		delete(s.paths, k)
		delete(s.dirty, k)
		gone = append(gone, k)
	}
	s.reloaded = make(map[string]struct{})
	return gone
}

// TakeDirty returns and clears the set of keys written since the last call.
func (s *OverrideStore) TakeDirty() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	s.dirty = make(map[Key]struct{})
	return keys
}
