// Package store holds every fabrication entity in memory. Segment-scoped
// entities live in one partition per segment so that unrelated segments never
// share a lock; chain-scoped entities live in flat tables keyed by id.
package store

import (
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

// table keeps rows by id and remembers insertion order
type table struct {
	rows  map[uuid.UUID]model.Entity
	order []uuid.UUID
}

func newTable() *table {
	return &table{rows: make(map[uuid.UUID]model.Entity)}
}

func (t *table) put(e model.Entity) {
	id := e.EntityID()
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = e
}

func (t *table) get(id uuid.UUID) (model.Entity, bool) {
	e, ok := t.rows[id]
	return e, ok
}

func (t *table) remove(id uuid.UUID) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(v uuid.UUID) bool { return v == id })
}

func (t *table) values() []model.Entity {
	out := make([]model.Entity, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// partition is every segment-scoped entity of one segment
type partition struct {
	mu     sync.RWMutex
	tables map[model.EntityType]*table
}

func newPartition() *partition {
	return &partition{tables: make(map[model.EntityType]*table)}
}

// Store is the partitioned in-memory entity store.
//
// Operations on different partitions never block each other. Writers to the
// same partition are expected to be serialized by the segment lifecycle.
type Store struct {
	mu         sync.RWMutex
	partitions map[uuid.UUID]*partition

	// entity id -> segment id, for Get without a segment id
	index sync.Map

	chainMu sync.RWMutex
	flat    map[model.EntityType]*table

	validate *validator.Validate
}

// New creates an empty store. A nil validator gets a default one.
func New(validate *validator.Validate) *Store {
	if validate == nil {
		validate = validator.New()
	}
	return &Store{
		partitions: make(map[uuid.UUID]*partition),
		flat:       make(map[model.EntityType]*table),
		validate:   validate,
	}
}

// Put stores an entity, replacing any entity with the same id.
func (s *Store) Put(e model.Entity) error {
	if e == nil {
		return model.NewStoreError("cannot store a nil entity")
	}
	t := e.EntityType()
	if e.EntityID() == uuid.Nil {
		return model.NewStoreError("%s has no identifier", t)
	}
	rel, ok := model.SchemaOf(t)
	if !ok {
		return model.NewStoreError("unregistered entity type %s", t)
	}
	if err := s.validate.Struct(e); err != nil {
		return model.NewValidationError(err, "invalid %s %s", t, e.EntityID())
	}

	if rel.Scope == model.ScopeSegment {
		se, ok := e.(model.SegmentEntity)
		if !ok {
			return model.NewStoreError("%s is registered as segment-scoped but has no segment reference", t)
		}
		s.putSegmentScoped(se)
		return nil
	}

	if seg, ok := e.(model.Segment); ok {
		return s.putSegment(seg)
	}
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	s.flatTable(t).put(e)
	return nil
}

func (s *Store) putSegmentScoped(e model.SegmentEntity) {
	segmentID := e.SegmentRef()
	if prev, ok := s.index.Load(e.EntityID()); ok && prev.(uuid.UUID) != segmentID {
		if p := s.partition(prev.(uuid.UUID), false); p != nil {
			p.mu.Lock()
			if tbl, ok := p.tables[e.EntityType()]; ok {
				tbl.remove(e.EntityID())
			}
			p.mu.Unlock()
		}
	}

	p := s.partition(segmentID, true)
	p.mu.Lock()
	tbl, ok := p.tables[e.EntityType()]
	if !ok {
		tbl = newTable()
		p.tables[e.EntityType()] = tbl
	}
	tbl.put(e)
	p.mu.Unlock()
	s.index.Store(e.EntityID(), segmentID)
}

// partition returns the partition for a segment, optionally creating it.
func (s *Store) partition(segmentID uuid.UUID, create bool) *partition {
	s.mu.RLock()
	p, ok := s.partitions[segmentID]
	s.mu.RUnlock()
	if ok || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[segmentID]; ok {
		return p
	}
	p = newPartition()
	s.partitions[segmentID] = p
	return p
}

// flatTable must be called with chainMu held for writing.
func (s *Store) flatTable(t model.EntityType) *table {
	tbl, ok := s.flat[t]
	if !ok {
		tbl = newTable()
		s.flat[t] = tbl
	}
	return tbl
}

func (s *Store) getEntity(t model.EntityType, id uuid.UUID) (model.Entity, bool) {
	rel, ok := model.SchemaOf(t)
	if !ok {
		return nil, false
	}
	if rel.Scope == model.ScopeChain {
		s.chainMu.RLock()
		defer s.chainMu.RUnlock()
		tbl, ok := s.flat[t]
		if !ok {
			return nil, false
		}
		return tbl.get(id)
	}

	segmentID, ok := s.index.Load(id)
	if !ok {
		return nil, false
	}
	p := s.partition(segmentID.(uuid.UUID), false)
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	tbl, ok := p.tables[t]
	if !ok {
		return nil, false
	}
	return tbl.get(id)
}

func (s *Store) getAllEntities(segmentID uuid.UUID, t model.EntityType) []model.Entity {
	p := s.partition(segmentID, false)
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	tbl, ok := p.tables[t]
	if !ok {
		return nil
	}
	return tbl.values()
}

// Get returns the entity of type T with the given id.
// T must be a concrete entity struct.
func Get[T model.Entity](s *Store, id uuid.UUID) (T, bool) {
	var zero T
	e, ok := s.getEntity(zero.EntityType(), id)
	if !ok {
		return zero, false
	}
	v, ok := e.(T)
	return v, ok
}

// GetAll returns every entity of type T in a segment's partition, in insertion order.
func GetAll[T model.SegmentEntity](s *Store, segmentID uuid.UUID) []T {
	var zero T
	entities := s.getAllEntities(segmentID, zero.EntityType())
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// GetAllBelongingTo returns the entities of type T in a segment's partition
// whose parent of parentType is one of parentIDs.
func GetAllBelongingTo[T model.SegmentEntity](s *Store, segmentID uuid.UUID, parentType model.EntityType, parentIDs ...uuid.UUID) []T {
	var zero T
	if !model.BelongsTo(zero.EntityType(), parentType) || len(parentIDs) == 0 {
		return nil
	}
	var out []T
	for _, v := range GetAll[T](s, segmentID) {
		parented, ok := any(v).(model.Parented)
		if !ok {
			continue
		}
		parentID, ok := parented.ParentID(parentType)
		if ok && slices.Contains(parentIDs, parentID) {
			out = append(out, v)
		}
	}
	return out
}

// DeleteSegment removes a segment's whole partition. The segment record itself is kept.
func (s *Store) DeleteSegment(segmentID uuid.UUID) {
	s.mu.Lock()
	p, ok := s.partitions[segmentID]
	delete(s.partitions, segmentID)
	s.mu.Unlock()
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tbl := range p.tables {
		for _, id := range tbl.order {
			s.index.CompareAndDelete(id, segmentID)
		}
	}
	p.tables = make(map[model.EntityType]*table)
}

// DeleteAll removes every entity of type T from a segment's partition.
func DeleteAll[T model.SegmentEntity](s *Store, segmentID uuid.UUID) {
	var zero T
	p := s.partition(segmentID, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tbl, ok := p.tables[zero.EntityType()]
	if !ok {
		return
	}
	for _, id := range tbl.order {
		s.index.CompareAndDelete(id, segmentID)
	}
	delete(p.tables, zero.EntityType())
}

// Delete removes a single segment-scoped entity.
func (s *Store) Delete(t model.EntityType, id uuid.UUID) {
	segmentID, ok := s.index.LoadAndDelete(id)
	if !ok {
		return
	}
	p := s.partition(segmentID.(uuid.UUID), false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tbl, ok := p.tables[t]; ok {
		tbl.remove(id)
	}
}

// HasPartition reports whether any entity is stored for the segment.
func (s *Store) HasPartition(segmentID uuid.UUID) bool {
	p := s.partition(segmentID, false)
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, tbl := range p.tables {
		if len(tbl.order) > 0 {
			return true
		}
	}
	return false
}
