package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

func TestWriteFileRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// 8-byte chunks: 3 full chunks and one partial
	payload := []byte(strings.Repeat("abcdefgh", 3) + "xyz")
	sum := sha256.Sum256(payload)

	var meta types.StoredFile
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		meta, err = tx.WriteFile(ctx, types.StoredFile{FileID: "a.csv", Author: "Ivan"}, bytes.NewReader(payload))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if meta.Size != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), meta.Size)
	}
	if meta.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected checksum %s", meta.SHA256)
	}

	stored, err := s.GetStoredFile(ctx, "a.csv")
	if err != nil {
		t.Fatalf("GetStoredFile failed: %v", err)
	}
	if stored.Author != "Ivan" || stored.Size != meta.Size || stored.SHA256 != meta.SHA256 {
		t.Errorf("unexpected metadata %+v", stored)
	}

	var out bytes.Buffer
	n, err := s.CopyFile(ctx, "a.csv", &out)
	if err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if n != int64(len(payload)) || !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("expected %q, got %q", payload, out.Bytes())
	}
}

func TestWriteFileExactChunkMultiple(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	payload := []byte("12345678abcdefgh")
	err := s.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.WriteFile(ctx, types.StoredFile{FileID: "b", Author: "x"}, bytes.NewReader(payload))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var out bytes.Buffer
	if _, err := s.CopyFile(ctx, "b", &out); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if out.String() != string(payload) {
		t.Errorf("expected %q, got %q", payload, out.String())
	}
}

func TestGetStoredFileNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetStoredFile(context.Background(), "missing")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}
