package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// PutEmbedding stores a content hash's embedding vector and logs the usage
// that produced it. Called fire-and-forget by the embedding sink after a
// step's output is persisted (spec §4.5 step 6); failures here must never
// surface to the caller of compute_step/compute_derivation.
func (s *Store) PutEmbedding(hash model.Hash, modelName string, vector []float32, promptTokens int) error {
	encoded := encodeVector(vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "begin put_embedding tx")
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO hash_embeddings(content_hash, model_name, embedding, dimensions) VALUES (?, ?, ?, ?)`,
		string(hash), modelName, encoded, len(vector),
	); err != nil {
		tx.Rollback()
		return enginerr.Wrap(enginerr.KindDBError, err, "store embedding for %s", hash)
	}

	if _, err := tx.Exec(
		`INSERT INTO embedding_usage_log(log_id, content_hash, model_name, timestamp, prompt_tokens) VALUES (?, ?, ?, ?, ?)`,
		newID(), string(hash), modelName, time.Now().Unix(), promptTokens,
	); err != nil {
		tx.Rollback()
		return enginerr.Wrap(enginerr.KindDBError, err, "log embedding usage for %s", hash)
	}

	if err := tx.Commit(); err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "commit put_embedding tx")
	}
	return nil
}

// GetEmbedding reads back a content hash's stored embedding for modelName.
func (s *Store) GetEmbedding(hash model.Hash, modelName string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encoded []byte
	var dims int
	err := s.db.QueryRow(
		`SELECT embedding, dimensions FROM hash_embeddings WHERE content_hash = ? AND model_name = ?`,
		string(hash), modelName,
	).Scan(&encoded, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, enginerr.Wrap(enginerr.KindDBError, err, "get embedding for %s", hash)
	}
	return decodeVector(encoded, dims), true, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte, dims int) []float32 {
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
