// Package memstore is an in-memory storage.Store, the zero-dependency
// backend used by unit tests and as a quickstart — grounded on the
// teacher's internal/storage/memory and internal/storage/ephemeral
// packages, which exist for the same reason: exercising the upper layers
// without a real database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type csetBlob struct {
	cset      types.CSet
	blob      []byte
	hasBlob   bool
	commitMsg string
	hasMsg    bool
}

type repoData struct {
	hmap  map[types.KeySHA]string
	byKey map[types.KeySHA]map[int64]*csetBlob
}

func newRepoData() *repoData {
	return &repoData{
		hmap:  make(map[types.KeySHA]string),
		byKey: make(map[types.KeySHA]map[int64]*csetBlob),
	}
}

func (r *repoData) clone() *repoData {
	out := newRepoData()
	for k, v := range r.hmap {
		out.hmap[k] = v
	}
	for ks, m := range r.byKey {
		nm := make(map[int64]*csetBlob, len(m))
		for t, cb := range m {
			cp := *cb
			nm[t] = &cp
		}
		out.byKey[ks] = nm
	}
	return out
}

type storeData struct {
	repos map[types.Repo]*repoData
}

func newStoreData() *storeData {
	return &storeData{repos: make(map[types.Repo]*repoData)}
}

func (d *storeData) clone() *storeData {
	out := newStoreData()
	for repo, rd := range d.repos {
		out.repos[repo] = rd.clone()
	}
	return out
}

func (d *storeData) repoFor(repo types.Repo, create bool) *repoData {
	rd, ok := d.repos[repo]
	if !ok {
		if !create {
			return nil
		}
		rd = newRepoData()
		d.repos[repo] = rd
	}
	return rd
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu   sync.Mutex
	data *storeData
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: newStoreData()}
}

var _ storage.Store = (*Store)(nil)

// Close is a no-op for the in-memory backend.
func (s *Store) Close() error { return nil }

// WithTx snapshots state, runs fn against a non-locking view of the same
// data, and restores the snapshot if fn errors — giving the in-memory
// backend the same all-or-nothing guarantee §5 requires of real backends.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &txView{data: s.data}
	if err := fn(ctx, tx); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// txView implements storage.Store directly against shared data, without
// locking, for use inside an already-locked WithTx call.
type txView struct {
	data *storeData
}

var _ storage.Store = (*txView)(nil)

func (t *txView) Close() error { return nil }

func (t *txView) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	// Nested transactions are flattened: the outer WithTx already owns
	// rollback semantics.
	return fn(ctx, t)
}

func (s *Store) EnsureKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ensureKey(s.data, repo, keySHA, keyValue)
}

func (t *txView) EnsureKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	return ensureKey(t.data, repo, keySHA, keyValue)
}

func ensureKey(d *storeData, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	rd := d.repoFor(repo, true)
	if existing, ok := rd.hmap[keySHA]; ok {
		if existing != keyValue {
			return types.ErrCollision
		}
		return nil
	}
	rd.hmap[keySHA] = keyValue
	return nil
}

func (s *Store) LookupKeyValue(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookupKeyValue(s.data, repo, keySHA)
}

func (t *txView) LookupKeyValue(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (string, error) {
	return lookupKeyValue(t.data, repo, keySHA)
}

func lookupKeyValue(d *storeData, repo types.Repo, keySHA types.KeySHA) (string, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return "", types.ErrNotFound
	}
	v, ok := rd.hmap[keySHA]
	if !ok {
		return "", types.ErrNotFound
	}
	return v, nil
}

func (s *Store) LookupKeySHA(ctx context.Context, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookupKeySHA(s.data, repo, keyValue)
}

func (t *txView) LookupKeySHA(ctx context.Context, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	return lookupKeySHA(t.data, repo, keyValue)
}

func lookupKeySHA(d *storeData, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return types.KeySHA{}, false, nil
	}
	for k, v := range rd.hmap {
		if v == keyValue {
			return k, true, nil
		}
	}
	return types.KeySHA{}, false, nil
}

func (s *Store) PutCSet(ctx context.Context, cset types.CSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putCSet(s.data, cset)
}

func (t *txView) PutCSet(ctx context.Context, cset types.CSet) error {
	return putCSet(t.data, cset)
}

func putCSet(d *storeData, cset types.CSet) error {
	rd := d.repoFor(cset.Repo, true)
	m, ok := rd.byKey[cset.KeySHA]
	if !ok {
		m = make(map[int64]*csetBlob)
		rd.byKey[cset.KeySHA] = m
	}
	key := normalizeTime(cset.Time).UnixNano()
	entry, ok := m[key]
	if !ok {
		entry = &csetBlob{}
		m[key] = entry
	}
	entry.cset = cset
	entry.cset.Time = normalizeTime(cset.Time)
	return nil
}

func (s *Store) PutBlob(ctx context.Context, blob types.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putBlob(s.data, blob)
}

func (t *txView) PutBlob(ctx context.Context, blob types.Blob) error {
	return putBlob(t.data, blob)
}

func putBlob(d *storeData, blob types.Blob) error {
	rd := d.repoFor(blob.Repo, true)
	m, ok := rd.byKey[blob.KeySHA]
	if !ok {
		m = make(map[int64]*csetBlob)
		rd.byKey[blob.KeySHA] = m
	}
	key := normalizeTime(blob.Time).UnixNano()
	entry, ok := m[key]
	if !ok {
		entry = &csetBlob{}
		m[key] = entry
	}
	entry.blob = append([]byte(nil), blob.Data...)
	entry.hasBlob = true
	return nil
}

func (s *Store) GetCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCSet(s.data, repo, keySHA, t)
}

func (t *txView) GetCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return getCSet(t.data, repo, keySHA, tm)
}

func getCSet(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, types.ErrNotFound
	}
	m := rd.byKey[keySHA]
	if m == nil {
		return nil, types.ErrNotFound
	}
	entry, ok := m[normalizeTime(t).UnixNano()]
	if !ok {
		return nil, types.ErrNotFound
	}
	cs := entry.cset
	return &cs, nil
}

func (s *Store) GetBlob(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getBlob(s.data, repo, keySHA, t)
}

func (t *txView) GetBlob(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) ([]byte, error) {
	return getBlob(t.data, repo, keySHA, tm)
}

func getBlob(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]byte, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, types.ErrNotFound
	}
	m := rd.byKey[keySHA]
	if m == nil {
		return nil, types.ErrNotFound
	}
	entry, ok := m[normalizeTime(t).UnixNano()]
	if !ok || !entry.hasBlob {
		return nil, types.ErrNotFound
	}
	return append([]byte(nil), entry.blob...), nil
}

func (s *Store) DeleteChangeset(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleteChangeset(s.data, repo, keySHA, t)
	return nil
}

func (t *txView) DeleteChangeset(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) error {
	deleteChangeset(t.data, repo, keySHA, tm)
	return nil
}

func deleteChangeset(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return
	}
	m := rd.byKey[keySHA]
	if m == nil {
		return
	}
	delete(m, normalizeTime(t).UnixNano())
}

func (s *Store) DeleteAllByKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rd := s.data.repoFor(repo, false)
	if rd == nil {
		return nil
	}
	delete(rd.byKey, keySHA)
	return nil
}

func (t *txView) DeleteAllByKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA) error {
	rd := t.data.repoFor(repo, false)
	if rd == nil {
		return nil
	}
	delete(rd.byKey, keySHA)
	return nil
}

func (s *Store) DeleteAllByRepo(ctx context.Context, repo types.Repo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rd := s.data.repoFor(repo, false); rd != nil {
		rd.byKey = make(map[types.KeySHA]map[int64]*csetBlob)
	}
	return nil
}

func (t *txView) DeleteAllByRepo(ctx context.Context, repo types.Repo) error {
	if rd := t.data.repoFor(repo, false); rd != nil {
		rd.byKey = make(map[types.KeySHA]map[int64]*csetBlob)
	}
	return nil
}

func (s *Store) LastCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastCSet(s.data, repo, keySHA)
}

func (t *txView) LastCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	return lastCSet(t.data, repo, keySHA)
}

func sortedEntries(rd *repoData, keySHA types.KeySHA) []*csetBlob {
	m := rd.byKey[keySHA]
	out := make([]*csetBlob, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cset.Time.Before(out[j].cset.Time) })
	return out
}

func lastCSet(d *storeData, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	entries := sortedEntries(rd, keySHA)
	if len(entries) == 0 {
		return nil, nil
	}
	cs := entries[len(entries)-1].cset
	return &cs, nil
}

func (s *Store) CSetAtTime(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return csetAtTime(s.data, repo, keySHA, t)
}

func (t *txView) CSetAtTime(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return csetAtTime(t.data, repo, keySHA, tm)
}

func csetAtTime(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	m := rd.byKey[keySHA]
	entry, ok := m[normalizeTime(t).UnixNano()]
	if !ok {
		return nil, nil
	}
	cs := entry.cset
	return &cs, nil
}

func (s *Store) NextAfter(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextAfter(s.data, repo, keySHA, t)
}

func (t *txView) NextAfter(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return nextAfter(t.data, repo, keySHA, tm)
}

func nextAfter(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	norm := normalizeTime(t)
	entries := sortedEntries(rd, keySHA)
	for _, e := range entries {
		if e.cset.Time.After(norm) {
			cs := e.cset
			return &cs, nil
		}
	}
	return nil, nil
}

func (s *Store) PrevBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return prevBefore(s.data, repo, keySHA, t)
}

func (t *txView) PrevBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return prevBefore(t.data, repo, keySHA, tm)
}

func prevBefore(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	norm := normalizeTime(t)
	entries := sortedEntries(rd, keySHA)
	var found *types.CSet
	for _, e := range entries {
		if e.cset.Time.After(norm) {
			break
		}
		cs := e.cset
		found = &cs
	}
	return found, nil
}

func (s *Store) NearestNonDeltaAtOrBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nearestNonDelta(s.data, repo, keySHA, t)
}

func (t *txView) NearestNonDeltaAtOrBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return nearestNonDelta(t.data, repo, keySHA, tm)
}

func nearestNonDelta(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	norm := normalizeTime(t)
	entries := sortedEntries(rd, keySHA)
	var found *types.CSet
	for _, e := range entries {
		if e.cset.Time.After(norm) {
			break
		}
		if e.cset.Type == types.Delta {
			continue
		}
		cs := e.cset
		found = &cs
	}
	return found, nil
}

func (s *Store) ListRange(ctx context.Context, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listRange(s.data, repo, keySHA, fromInclusive, toInclusive)
}

func (t *txView) ListRange(ctx context.Context, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	return listRange(t.data, repo, keySHA, fromInclusive, toInclusive)
}

func listRange(d *storeData, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, nil
	}
	from := normalizeTime(fromInclusive)
	to := normalizeTime(toInclusive)
	var out []types.CSet
	for _, e := range sortedEntries(rd, keySHA) {
		if e.cset.Time.Before(from) || e.cset.Time.After(to) {
			continue
		}
		out = append(out, e.cset)
	}
	return out, nil
}

func (s *Store) PutCommitMessage(ctx context.Context, cm types.CommitMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putCommitMessage(s.data, cm)
}

func (t *txView) PutCommitMessage(ctx context.Context, cm types.CommitMessage) error {
	return putCommitMessage(t.data, cm)
}

func putCommitMessage(d *storeData, cm types.CommitMessage) error {
	rd := d.repoFor(cm.Repo, true)
	m, ok := rd.byKey[cm.KeySHA]
	if !ok {
		m = make(map[int64]*csetBlob)
		rd.byKey[cm.KeySHA] = m
	}
	key := normalizeTime(cm.Time).UnixNano()
	entry, ok := m[key]
	if !ok {
		entry = &csetBlob{}
		m[key] = entry
	}
	entry.commitMsg = cm.Message
	entry.hasMsg = true
	return nil
}

func (s *Store) GetCommitMessage(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getCommitMessage(s.data, repo, keySHA, t)
}

func (t *txView) GetCommitMessage(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (string, error) {
	return getCommitMessage(t.data, repo, keySHA, tm)
}

func getCommitMessage(d *storeData, repo types.Repo, keySHA types.KeySHA, t time.Time) (string, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return "", types.ErrNotFound
	}
	m := rd.byKey[keySHA]
	entry, ok := m[normalizeTime(t).UnixNano()]
	if !ok || !entry.hasMsg {
		return "", types.ErrNotFound
	}
	return entry.commitMsg, nil
}

func (s *Store) ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listKeys(s.data, repo, pageToken, pageSize)
}

func (t *txView) ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	return listKeys(t.data, repo, pageToken, pageSize)
}

func listKeys(d *storeData, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	rd := d.repoFor(repo, false)
	if rd == nil {
		return nil, "", nil
	}
	all := make([]storage.KeyEntry, 0, len(rd.hmap))
	for k, v := range rd.hmap {
		all = append(all, storage.KeyEntry{KeySHA: k, KeyValue: v})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].KeyValue < all[j].KeyValue })

	start := 0
	if pageToken != "" {
		for i, e := range all {
			if e.KeyValue > pageToken {
				start = i
				break
			}
			start = i + 1
		}
	}
	if pageSize <= 0 {
		pageSize = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	if start > len(all) {
		start = len(all)
	}
	page := all[start:end]
	next := ""
	if end < len(all) {
		next = page[len(page)-1].KeyValue
	}
	return page, next, nil
}
