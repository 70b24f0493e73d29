package load

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pgmantle/pgmantle/entity"
)

// extractCache memoizes per-file extraction results on disk, keyed by
// the importing package path and the source content hash. Entities
// embed their package identity, so the same bytes under two import
// paths must not share an entry. A stale or unreadable entry is never
// fatal: the file is simply re-extracted.
type extractCache struct {
	dir string
}

func newExtractCache(dir string) *extractCache {
	return &extractCache{dir: dir}
}

// snapshot is the serializable form of one file's entities. The entity
// interface itself cannot round-trip, so concrete kinds travel in
// separate slices with their source order preserved alongside.
type snapshot struct {
	Order      []kindIndex
	Schemas    []*entity.Schema
	Functions  []*entity.Function
	Composites []*entity.CompositeType
	Enums      []*entity.EnumType
	RawSQL     []*entity.RawSQL
	Aggregates []*entity.Aggregate
	Ords       []*entity.OrderingFamily
	Hashes     []*entity.HashFamily
}

type kindIndex struct {
	Kind  int
	Index int
}

const (
	kindSchema = iota
	kindFunction
	kindComposite
	kindEnum
	kindRawSQL
	kindAggregate
	kindOrd
	kindHash
)

func (c *extractCache) get(pkgPath, file string) ([]entity.Entity, bool) {
	key, ok := c.key(pkgPath, file)
	if !ok {
		return nil, false
	}
	buf, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, false
	}
	var snap snapshot
	if err := msgpack.Unmarshal(buf, &snap); err != nil {
		log.Printf("[WARN] extraction cache entry for %s is corrupt, re-extracting: %v", file, err)
		return nil, false
	}
	ents, err := snap.entities()
	if err != nil {
		log.Printf("[WARN] extraction cache entry for %s is inconsistent, re-extracting: %v", file, err)
		return nil, false
	}
	return ents, true
}

func (c *extractCache) put(pkgPath, file string, ents []entity.Entity) {
	key, ok := c.key(pkgPath, file)
	if !ok {
		return
	}
	snap := newSnapshot(ents)
	buf, err := msgpack.Marshal(snap)
	if err != nil {
		log.Printf("[WARN] cannot encode extraction cache entry for %s: %v", file, err)
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		log.Printf("[WARN] cannot create extraction cache dir %s: %v", c.dir, err)
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, key), buf, 0o644); err != nil {
		log.Printf("[WARN] cannot write extraction cache entry for %s: %v", file, err)
	}
}

// key hashes the package path and the file contents; a changed file
// or a moved package misses the cache by construction, so no
// invalidation pass is needed.
func (c *extractCache) key(pkgPath, file string) (string, bool) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}
	h := sha256.New()
	h.Write([]byte(pkgPath))
	h.Write([]byte{0})
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil)) + ".entities", true
}

func newSnapshot(ents []entity.Entity) *snapshot {
	snap := &snapshot{}
	for _, e := range ents {
		switch v := e.(type) {
		case *entity.Schema:
			snap.Order = append(snap.Order, kindIndex{kindSchema, len(snap.Schemas)})
			snap.Schemas = append(snap.Schemas, v)
		case *entity.Function:
			snap.Order = append(snap.Order, kindIndex{kindFunction, len(snap.Functions)})
			snap.Functions = append(snap.Functions, v)
		case *entity.CompositeType:
			snap.Order = append(snap.Order, kindIndex{kindComposite, len(snap.Composites)})
			snap.Composites = append(snap.Composites, v)
		case *entity.EnumType:
			snap.Order = append(snap.Order, kindIndex{kindEnum, len(snap.Enums)})
			snap.Enums = append(snap.Enums, v)
		case *entity.RawSQL:
			snap.Order = append(snap.Order, kindIndex{kindRawSQL, len(snap.RawSQL)})
			snap.RawSQL = append(snap.RawSQL, v)
		case *entity.Aggregate:
			snap.Order = append(snap.Order, kindIndex{kindAggregate, len(snap.Aggregates)})
			snap.Aggregates = append(snap.Aggregates, v)
		case *entity.OrderingFamily:
			snap.Order = append(snap.Order, kindIndex{kindOrd, len(snap.Ords)})
			snap.Ords = append(snap.Ords, v)
		case *entity.HashFamily:
			snap.Order = append(snap.Order, kindIndex{kindHash, len(snap.Hashes)})
			snap.Hashes = append(snap.Hashes, v)
		}
	}
	return snap
}

func (s *snapshot) entities() ([]entity.Entity, error) {
	out := make([]entity.Entity, 0, len(s.Order))
	for _, ki := range s.Order {
		var e entity.Entity
		switch ki.Kind {
		case kindSchema:
			if ki.Index >= len(s.Schemas) {
				return nil, errSnapshotIndex
			}
			e = s.Schemas[ki.Index]
		case kindFunction:
			if ki.Index >= len(s.Functions) {
				return nil, errSnapshotIndex
			}
			e = s.Functions[ki.Index]
		case kindComposite:
			if ki.Index >= len(s.Composites) {
				return nil, errSnapshotIndex
			}
			e = s.Composites[ki.Index]
		case kindEnum:
			if ki.Index >= len(s.Enums) {
				return nil, errSnapshotIndex
			}
			e = s.Enums[ki.Index]
		case kindRawSQL:
			if ki.Index >= len(s.RawSQL) {
				return nil, errSnapshotIndex
			}
			e = s.RawSQL[ki.Index]
		case kindAggregate:
			if ki.Index >= len(s.Aggregates) {
				return nil, errSnapshotIndex
			}
			e = s.Aggregates[ki.Index]
		case kindOrd:
			if ki.Index >= len(s.Ords) {
				return nil, errSnapshotIndex
			}
			e = s.Ords[ki.Index]
		case kindHash:
			if ki.Index >= len(s.Hashes) {
				return nil, errSnapshotIndex
			}
			e = s.Hashes[ki.Index]
		default:
			return nil, errSnapshotIndex
		}
		out = append(out, e)
	}
	return out, nil
}

var errSnapshotIndex = errSnapshot("snapshot index out of range")

type errSnapshot string

func (e errSnapshot) Error() string { return string(e) }
