package store

import (
	"sync"
	"time"

	"github.com/debemdeboas/posse/internal/model"
)

// MemoryStore keeps everything in process memory. Suited for tests and
// throwaway runs; records do not survive a restart.
type MemoryStore struct { // implements Store
	mu sync.Mutex

	records      map[model.PostID]map[string]*model.SentWebmention
	snapshots    map[model.PostID]snapshot
	syndications map[model.PostID]map[string]string
}

type snapshot struct {
	body []byte
	hash string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[model.PostID]map[string]*model.SentWebmention),
		snapshots:    make(map[model.PostID]snapshot),
		syndications: make(map[model.PostID]map[string]string),
	}
}

func (m *MemoryStore) Record(postID model.PostID, target, source string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byTarget, ok := m.records[postID]
	if !ok {
		byTarget = make(map[string]*model.SentWebmention)
		m.records[postID] = byTarget
	}

	byTarget[target] = &model.SentWebmention{
		PostID: postID,
		Target: target,
		Source: source,
		Status: model.WebmentionConfirmed,
		SentAt: sentAt.UTC(),
	}
	return nil
}

func (m *MemoryStore) Query(postID model.PostID) ([]model.SentWebmention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []model.SentWebmention
	for _, rec := range m.records[postID] {
		if rec.Status != model.WebmentionRetracted {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (m *MemoryStore) MarkRetracted(postID model.PostID, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[postID][target]; ok {
		rec.Status = model.WebmentionRetracted
	}
	return nil
}

func (m *MemoryStore) DeleteAll(postID model.PostID) ([]model.SentWebmention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected []model.SentWebmention
	for _, rec := range m.records[postID] {
		if rec.Status != model.WebmentionRetracted {
			affected = append(affected, *rec)
			rec.Status = model.WebmentionRetracted
		}
	}
	return affected, nil
}

func (m *MemoryStore) SaveSnapshot(postID model.PostID, body []byte, bodyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(body))
	copy(buf, body)
	m.snapshots[postID] = snapshot{body: buf, hash: bodyHash}
	return nil
}

func (m *MemoryStore) SnapshotHash(postID model.PostID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[postID]
	if !ok {
		return "", ErrSnapshotNotFound
	}
	return snap.hash, nil
}

func (m *MemoryStore) DeleteSnapshot(postID model.PostID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, postID)
	return nil
}

func (m *MemoryStore) RecordSyndication(postID model.PostID, platform, account, remoteURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byAccount, ok := m.syndications[postID]
	if !ok {
		byAccount = make(map[string]string)
		m.syndications[postID] = byAccount
	}
	byAccount[platform+"/"+account] = remoteURL
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
