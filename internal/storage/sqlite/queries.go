package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rdfvault/revengine/internal/storage"
	"github.com/rdfvault/revengine/internal/types"
)

// execer is satisfied by both *sql.DB (outside a transaction) and *sql.Conn
// (inside one, via txHandle), so query bodies are written once.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func toMillis(t time.Time) int64 { return t.UTC().Truncate(time.Millisecond).UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *Store) EnsureKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	return ensureKey(ctx, s.db, repo, keySHA, keyValue)
}
func (t *txHandle) EnsureKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	return ensureKey(ctx, t.conn, repo, keySHA, keyValue)
}

func ensureKey(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, keyValue string) error {
	var existing string
	err := e.QueryRowContext(ctx, `SELECT key_value FROM hmap WHERE repo_owner=? AND repo_name=? AND key_sha=?`,
		repo.Owner, repo.Name, keySHA.String()).Scan(&existing)
	switch {
	case err == nil:
		if existing != keyValue {
			return types.ErrCollision
		}
		return nil
	case isNoRows(err):
		_, err := e.ExecContext(ctx, `INSERT INTO hmap (repo_owner, repo_name, key_sha, key_value) VALUES (?, ?, ?, ?)`,
			repo.Owner, repo.Name, keySHA.String(), keyValue)
		return types.WrapStoreError("ensure key", err)
	default:
		return types.WrapStoreError("ensure key", err)
	}
}

func (s *Store) LookupKeyValue(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (string, error) {
	return lookupKeyValue(ctx, s.db, repo, keySHA)
}
func (t *txHandle) LookupKeyValue(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (string, error) {
	return lookupKeyValue(ctx, t.conn, repo, keySHA)
}

func lookupKeyValue(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA) (string, error) {
	var v string
	err := e.QueryRowContext(ctx, `SELECT key_value FROM hmap WHERE repo_owner=? AND repo_name=? AND key_sha=?`,
		repo.Owner, repo.Name, keySHA.String()).Scan(&v)
	if err != nil {
		return "", types.WrapStoreError("lookup key value", err)
	}
	return v, nil
}

func (s *Store) LookupKeySHA(ctx context.Context, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	return lookupKeySHA(ctx, s.db, repo, keyValue)
}
func (t *txHandle) LookupKeySHA(ctx context.Context, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	return lookupKeySHA(ctx, t.conn, repo, keyValue)
}

func lookupKeySHA(ctx context.Context, e execer, repo types.Repo, keyValue string) (types.KeySHA, bool, error) {
	var hex string
	err := e.QueryRowContext(ctx, `SELECT key_sha FROM hmap WHERE repo_owner=? AND repo_name=? AND key_value=?`,
		repo.Owner, repo.Name, keyValue).Scan(&hex)
	if isNoRows(err) {
		return types.KeySHA{}, false, nil
	}
	if err != nil {
		return types.KeySHA{}, false, types.WrapStoreError("lookup key sha", err)
	}
	k, err := types.KeySHAFromHex(hex)
	if err != nil {
		return types.KeySHA{}, false, fmt.Errorf("sqlite: corrupt key_sha %q: %w", hex, err)
	}
	return k, true, nil
}

func (s *Store) PutCSet(ctx context.Context, cset types.CSet) error { return putCSet(ctx, s.db, cset) }
func (t *txHandle) PutCSet(ctx context.Context, cset types.CSet) error {
	return putCSet(ctx, t.conn, cset)
}

func putCSet(ctx context.Context, e execer, cset types.CSet) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO csets (repo_owner, repo_name, key_sha, time_ms, type, len)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_owner, repo_name, key_sha, time_ms)
		DO UPDATE SET type = excluded.type, len = excluded.len
	`, cset.Repo.Owner, cset.Repo.Name, cset.KeySHA.String(), toMillis(cset.Time), cset.Type.String(), cset.Len)
	return types.WrapStoreError("put cset", err)
}

func (s *Store) PutBlob(ctx context.Context, blob types.Blob) error { return putBlob(ctx, s.db, blob) }
func (t *txHandle) PutBlob(ctx context.Context, blob types.Blob) error {
	return putBlob(ctx, t.conn, blob)
}

func putBlob(ctx context.Context, e execer, blob types.Blob) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO blobs (repo_owner, repo_name, key_sha, time_ms, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (repo_owner, repo_name, key_sha, time_ms)
		DO UPDATE SET data = excluded.data
	`, blob.Repo.Owner, blob.Repo.Name, blob.KeySHA.String(), toMillis(blob.Time), blob.Data)
	return types.WrapStoreError("put blob", err)
}

func (s *Store) GetCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return getCSet(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) GetCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return getCSet(ctx, t.conn, repo, keySHA, tm)
}

func getCSet(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	var typeStr string
	var length int
	err := e.QueryRowContext(ctx, `SELECT type, len FROM csets WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms=?`,
		repo.Owner, repo.Name, keySHA.String(), toMillis(t)).Scan(&typeStr, &length)
	if err != nil {
		return nil, types.WrapStoreError("get cset", err)
	}
	ctype, ok := types.ParseChangesetType(typeStr)
	if !ok {
		return nil, fmt.Errorf("sqlite: corrupt changeset type %q", typeStr)
	}
	return &types.CSet{Repo: repo, KeySHA: keySHA, Time: toMillisTime(t), Type: ctype, Len: length}, nil
}

func toMillisTime(t time.Time) time.Time { return fromMillis(toMillis(t)) }

func (s *Store) GetBlob(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]byte, error) {
	return getBlob(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) GetBlob(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) ([]byte, error) {
	return getBlob(ctx, t.conn, repo, keySHA, tm)
}

func getBlob(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) ([]byte, error) {
	var data []byte
	err := e.QueryRowContext(ctx, `SELECT data FROM blobs WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms=?`,
		repo.Owner, repo.Name, keySHA.String(), toMillis(t)).Scan(&data)
	if err != nil {
		return nil, types.WrapStoreError("get blob", err)
	}
	return data, nil
}

func (s *Store) DeleteChangeset(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) error {
	return deleteChangeset(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) DeleteChangeset(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) error {
	return deleteChangeset(ctx, t.conn, repo, keySHA, tm)
}

func deleteChangeset(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) error {
	ms := toMillis(t)
	for _, table := range []string{"csets", "blobs", "commit_messages"} {
		if _, err := e.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms=?`, table),
			repo.Owner, repo.Name, keySHA.String(), ms); err != nil {
			return types.WrapStoreErrorf(err, "delete changeset from %s", table)
		}
	}
	return nil
}

func (s *Store) DeleteAllByKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA) error {
	return deleteAllByKey(ctx, s.db, repo, keySHA)
}
func (t *txHandle) DeleteAllByKey(ctx context.Context, repo types.Repo, keySHA types.KeySHA) error {
	return deleteAllByKey(ctx, t.conn, repo, keySHA)
}

func deleteAllByKey(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA) error {
	for _, table := range []string{"csets", "blobs", "commit_messages"} {
		if _, err := e.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE repo_owner=? AND repo_name=? AND key_sha=?`, table),
			repo.Owner, repo.Name, keySHA.String()); err != nil {
			return types.WrapStoreErrorf(err, "delete all by key from %s", table)
		}
	}
	return nil
}

func (s *Store) DeleteAllByRepo(ctx context.Context, repo types.Repo) error {
	return deleteAllByRepo(ctx, s.db, repo)
}
func (t *txHandle) DeleteAllByRepo(ctx context.Context, repo types.Repo) error {
	return deleteAllByRepo(ctx, t.conn, repo)
}

func deleteAllByRepo(ctx context.Context, e execer, repo types.Repo) error {
	// HMap rows are intentionally left in place (§9: never garbage collected).
	for _, table := range []string{"csets", "blobs", "commit_messages"} {
		if _, err := e.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE repo_owner=? AND repo_name=?`, table),
			repo.Owner, repo.Name); err != nil {
			return types.WrapStoreErrorf(err, "delete all by repo from %s", table)
		}
	}
	return nil
}

func (s *Store) LastCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	return lastCSet(ctx, s.db, repo, keySHA)
}
func (t *txHandle) LastCSet(ctx context.Context, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	return lastCSet(ctx, t.conn, repo, keySHA)
}

func lastCSet(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA) (*types.CSet, error) {
	return queryOneCSet(ctx, e, repo, keySHA, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=?
		ORDER BY time_ms DESC LIMIT 1
	`, repo.Owner, repo.Name, keySHA.String())
}

func (s *Store) CSetAtTime(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return csetAtTime(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) CSetAtTime(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return csetAtTime(ctx, t.conn, repo, keySHA, tm)
}

func csetAtTime(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return queryOneCSet(ctx, e, repo, keySHA, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms=?
	`, repo.Owner, repo.Name, keySHA.String(), toMillis(t))
}

func (s *Store) NextAfter(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return nextAfter(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) NextAfter(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return nextAfter(ctx, t.conn, repo, keySHA, tm)
}

func nextAfter(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return queryOneCSet(ctx, e, repo, keySHA, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms > ?
		ORDER BY time_ms ASC LIMIT 1
	`, repo.Owner, repo.Name, keySHA.String(), toMillis(t))
}

func (s *Store) PrevBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return prevBefore(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) PrevBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return prevBefore(ctx, t.conn, repo, keySHA, tm)
}

func prevBefore(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return queryOneCSet(ctx, e, repo, keySHA, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms <= ?
		ORDER BY time_ms DESC LIMIT 1
	`, repo.Owner, repo.Name, keySHA.String(), toMillis(t))
}

func (s *Store) NearestNonDeltaAtOrBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return nearestNonDelta(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) NearestNonDeltaAtOrBefore(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (*types.CSet, error) {
	return nearestNonDelta(ctx, t.conn, repo, keySHA, tm)
}

func nearestNonDelta(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (*types.CSet, error) {
	return queryOneCSet(ctx, e, repo, keySHA, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms <= ? AND type != 'DELTA'
		ORDER BY time_ms DESC LIMIT 1
	`, repo.Owner, repo.Name, keySHA.String(), toMillis(t))
}

// queryOneCSet runs a single-row CSet query, translating sql.ErrNoRows into
// (nil, nil) per the chain-queries contract (§4.D: "all return (nil, nil)
// when no row matches").
func queryOneCSet(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, query string, args ...interface{}) (*types.CSet, error) {
	var ms int64
	var typeStr string
	var length int
	err := e.QueryRowContext(ctx, query, args...).Scan(&ms, &typeStr, &length)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapStoreError("query cset", err)
	}
	ctype, ok := types.ParseChangesetType(typeStr)
	if !ok {
		return nil, fmt.Errorf("sqlite: corrupt changeset type %q", typeStr)
	}
	return &types.CSet{Repo: repo, KeySHA: keySHA, Time: fromMillis(ms), Type: ctype, Len: length}, nil
}

func (s *Store) ListRange(ctx context.Context, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	return listRange(ctx, s.db, repo, keySHA, fromInclusive, toInclusive)
}
func (t *txHandle) ListRange(ctx context.Context, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	return listRange(ctx, t.conn, repo, keySHA, fromInclusive, toInclusive)
}

func listRange(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, fromInclusive, toInclusive time.Time) ([]types.CSet, error) {
	rows, err := e.QueryContext(ctx, `
		SELECT time_ms, type, len FROM csets
		WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms BETWEEN ? AND ?
		ORDER BY time_ms ASC
	`, repo.Owner, repo.Name, keySHA.String(), toMillis(fromInclusive), toMillis(toInclusive))
	if err != nil {
		return nil, types.WrapStoreError("list range", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.CSet
	for rows.Next() {
		var ms int64
		var typeStr string
		var length int
		if err := rows.Scan(&ms, &typeStr, &length); err != nil {
			return nil, types.WrapStoreError("scan cset row", err)
		}
		ctype, ok := types.ParseChangesetType(typeStr)
		if !ok {
			return nil, fmt.Errorf("sqlite: corrupt changeset type %q", typeStr)
		}
		out = append(out, types.CSet{Repo: repo, KeySHA: keySHA, Time: fromMillis(ms), Type: ctype, Len: length})
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapStoreError("iterate cset rows", err)
	}
	return out, nil
}

func (s *Store) PutCommitMessage(ctx context.Context, cm types.CommitMessage) error {
	return putCommitMessage(ctx, s.db, cm)
}
func (t *txHandle) PutCommitMessage(ctx context.Context, cm types.CommitMessage) error {
	return putCommitMessage(ctx, t.conn, cm)
}

func putCommitMessage(ctx context.Context, e execer, cm types.CommitMessage) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO commit_messages (repo_owner, repo_name, key_sha, time_ms, message)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (repo_owner, repo_name, key_sha, time_ms)
		DO UPDATE SET message = excluded.message
	`, cm.Repo.Owner, cm.Repo.Name, cm.KeySHA.String(), toMillis(cm.Time), cm.Message)
	return types.WrapStoreError("put commit message", err)
}

func (s *Store) GetCommitMessage(ctx context.Context, repo types.Repo, keySHA types.KeySHA, t time.Time) (string, error) {
	return getCommitMessage(ctx, s.db, repo, keySHA, t)
}
func (t *txHandle) GetCommitMessage(ctx context.Context, repo types.Repo, keySHA types.KeySHA, tm time.Time) (string, error) {
	return getCommitMessage(ctx, t.conn, repo, keySHA, tm)
}

func getCommitMessage(ctx context.Context, e execer, repo types.Repo, keySHA types.KeySHA, t time.Time) (string, error) {
	var msg string
	err := e.QueryRowContext(ctx, `SELECT message FROM commit_messages WHERE repo_owner=? AND repo_name=? AND key_sha=? AND time_ms=?`,
		repo.Owner, repo.Name, keySHA.String(), toMillis(t)).Scan(&msg)
	if err != nil {
		return "", types.WrapStoreError("get commit message", err)
	}
	return msg, nil
}

func (s *Store) ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	return listKeys(ctx, s.db, repo, pageToken, pageSize)
}
func (t *txHandle) ListKeys(ctx context.Context, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	return listKeys(ctx, t.conn, repo, pageToken, pageSize)
}

func listKeys(ctx context.Context, e execer, repo types.Repo, pageToken string, pageSize int) ([]storage.KeyEntry, string, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	rows, err := e.QueryContext(ctx, `
		SELECT key_sha, key_value FROM hmap
		WHERE repo_owner=? AND repo_name=? AND key_value > ?
		ORDER BY key_value ASC LIMIT ?
	`, repo.Owner, repo.Name, pageToken, pageSize+1)
	if err != nil {
		return nil, "", types.WrapStoreError("list keys", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.KeyEntry
	for rows.Next() {
		var hex, value string
		if err := rows.Scan(&hex, &value); err != nil {
			return nil, "", types.WrapStoreError("scan key row", err)
		}
		k, err := types.KeySHAFromHex(hex)
		if err != nil {
			return nil, "", fmt.Errorf("sqlite: corrupt key_sha %q: %w", hex, err)
		}
		out = append(out, storage.KeyEntry{KeySHA: k, KeyValue: value})
	}
	if err := rows.Err(); err != nil {
		return nil, "", types.WrapStoreError("iterate key rows", err)
	}

	next := ""
	if len(out) > pageSize {
		next = out[pageSize-1].KeyValue
		out = out[:pageSize]
	}
	return out, next, nil
}
