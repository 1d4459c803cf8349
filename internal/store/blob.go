package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

// =============================================================================
// Raw File Storage
// =============================================================================

// WriteFile stores the bytes of src as ordered chunks and records the file
// metadata. Size and SHA256 of meta are computed from src.
func (t *Tx) WriteFile(ctx context.Context, meta types.StoredFile, src io.Reader) (types.StoredFile, error) {
	if meta.UploadedAt.IsZero() {
		meta.UploadedAt = time.Now().UTC()
	}

	hash := sha256.New()
	buf := make([]byte, t.chunkSize)

	var (
		size int64
		seq  int
	)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			chunk := buf[:n]
			hash.Write(chunk)
			size += int64(n)

			if _, execErr := t.tx.ExecContext(ctx,
				`INSERT INTO stored_file_chunks (file_id, seq, data) VALUES (?, ?, ?)`,
				meta.FileID, seq, chunk); execErr != nil {
				return meta, Persistence(execErr, "insert file chunk")
			}
			seq++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return meta, fmt.Errorf("read upload: %w", err)
		}
	}

	meta.Size = size
	meta.SHA256 = hex.EncodeToString(hash.Sum(nil))

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO stored_files (file_id, author, uploaded_at, size_bytes, sha256) VALUES (?, ?, ?, ?, ?)`,
		meta.FileID, meta.Author, meta.UploadedAt.UTC(), meta.Size, meta.SHA256)
	if err != nil {
		return meta, Persistence(err, "insert stored file")
	}

	return meta, nil
}

// GetStoredFile returns the metadata of the raw bytes kept for fileID.
func (s *Store) GetStoredFile(ctx context.Context, fileID string) (*types.StoredFile, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := s.readContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, author, uploaded_at, size_bytes, sha256 FROM stored_files WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, Persistence(err, "query stored file")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, Persistence(err, "query stored file")
		}
		return nil, fmt.Errorf("file '%s': %w", fileID, ErrFileNotFound)
	}

	var f types.StoredFile
	if err := rows.Scan(&f.FileID, &f.Author, &f.UploadedAt, &f.Size, &f.SHA256); err != nil {
		return nil, Persistence(err, "scan stored file")
	}
	f.UploadedAt = f.UploadedAt.UTC()

	return &f, nil
}

// CopyFile writes the stored bytes of fileID to w in chunk order and
// returns the number of bytes written. Chunks are fetched one at a time.
func (s *Store) CopyFile(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var written int64
	for seq := 0; ; seq++ {
		chunk, ok, err := s.fileChunk(ctx, fileID, seq)
		if err != nil {
			return written, err
		}
		if !ok {
			break
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write chunk %d: %w", seq, err)
		}
	}

	return written, nil
}

func (s *Store) fileChunk(ctx context.Context, fileID string, seq int) ([]byte, bool, error) {
	ctx, cancel := s.readContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM stored_file_chunks WHERE file_id = ? AND seq = ?`, fileID, seq)
	if err != nil {
		return nil, false, Persistence(err, "query file chunk")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, false, Persistence(err, "scan file chunk")
	}
	return data, true, nil
}
