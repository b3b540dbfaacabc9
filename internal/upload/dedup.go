package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"time"

	"filehost/internal/model"
)

// dedupResult carries the outcome of the content-hash check. When isNew is
// false the reassembled bytes have been discarded and object points at the
// already stored content.
type dedupResult struct {
	isNew     bool
	object    *model.StoredObject
	assembled *reassembledFile
}

// deduplicate hashes the reassembled file and reserves its content hash in
// the metadata store. Matching hashes are treated as identical content: a
// sha256 collision would silently alias two files, which is an accepted
// tradeoff of content-addressed storage.
func (p *Pipeline) deduplicate(ctx context.Context, s *session, asm *reassembledFile) (*dedupResult, error) {
	s.setStatus(StatusDeduplicating)

	hash, err := hashFile(asm.path)
	if err != nil {
		return nil, &StorageError{Op: "hash", Err: err}
	}

	// Fast path: content already stored.
	existing, err := p.repo.FindObjectByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return p.duplicateOf(s, existing, asm), nil
	}

	// Reserve the hash. Two concurrent uploads of identical content both
	// reach this insert; exactly one wins and the loser takes the dedup path.
	inserted, obj, err := p.repo.InsertObjectIfAbsent(ctx, &model.StoredObject{
		ContentHash: hash,
		StoragePath: objectKey(hash),
		Size:        asm.size,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return p.duplicateOf(s, obj, asm), nil
	}

	return &dedupResult{isNew: true, object: obj, assembled: asm}, nil
}

// duplicateOf discards the reassembled bytes and reuses the stored object.
func (p *Pipeline) duplicateOf(s *session, obj *model.StoredObject, asm *reassembledFile) *dedupResult {
	if err := os.Remove(asm.path); err != nil {
		p.log.Warn().Err(err).Str("upload_id", s.id).Msg("failed to remove duplicate reassembled file")
	}
	p.metrics.dedupHits.Inc()
	p.log.Info().
		Str("event", "dedup_hit").
		Str("upload_id", s.id).
		Str("content_hash", obj.ContentHash).
		Msg("identical content already stored, reusing object")
	return &dedupResult{isNew: false, object: obj, assembled: asm}
}

// hashFile streams the file through sha256.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// objectKey derives the permanent storage key from a content hash, fanned out
// over two directory levels to keep listings small.
func objectKey(hash string) string {
	return path.Join("objects", hash[:2], hash[2:4], hash)
}
