// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
)

// ErrJournalCorrupted indicates an entry failed its checksum or decode.
var ErrJournalCorrupted = errors.New("journal entry corrupted")

const journalPrefix = "journal/"

// Entry is one recorded change of a document.
type Entry struct {
	DocumentID string           `json:"document_id"`
	Path       string           `json:"path,omitempty"`
	Generation uint64           `json:"generation"`
	Edits      []morph.TextEdit `json:"edits"`
	Remapped   int              `json:"remapped"`
	Forgotten  int              `json:"forgotten"`

	// TextHash is the hex SHA-256 of the document text after the change.
	TextHash   string    `json:"text_hash"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Journal records document changes in a store database.
//
// Description:
//
//	Entries are keyed journal/<docID>/<generation> with the generation zero
//	padded, so a prefix scan returns a document's history in order. Each
//	value is [4-byte CRC32][gob entry].
//
// Thread Safety: Safe for concurrent use.
type Journal struct {
	db     *DB
	logger *slog.Logger
}

// NewJournal returns a journal on db. A nil logger uses slog.Default().
func NewJournal(db *DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger}
}

func journalKeyPrefix(docID string) string {
	return journalPrefix + docID + "/"
}

func journalKey(docID string, generation uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", journalKeyPrefix(docID), generation))
}

// HashText returns the hex SHA-256 of text, as stored in Entry.TextHash.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Record stores change as the entry for its generation. Changes without
// edits are skipped.
func (j *Journal) Record(ctx context.Context, doc *morph.Document, change morph.Change) error {
	if len(change.Edits) == 0 {
		return nil
	}
	ctx, span := otel.Tracer("sculpt.store").Start(ctx, "Journal.Record",
		trace.WithAttributes(
			attribute.String("document_id", doc.ID()),
			attribute.Int64("generation", int64(change.Generation)),
		),
	)
	defer span.End()

	entry := Entry{
		DocumentID: doc.ID(),
		Path:       doc.Path(),
		Generation: change.Generation,
		Edits:      change.Edits,
		Remapped:   change.Remapped,
		Forgotten:  change.Forgotten,
		TextHash:   HashText(doc.Text()),
		RecordedAt: time.Now().UTC(),
	}
	data, err := encodeEntry(entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode entry: %w", err)
	}

	err = j.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(journalKey(entry.DocumentID, entry.Generation), data)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write entry: %w", err)
	}

	j.logger.Debug("change journaled",
		slog.String("document_id", entry.DocumentID),
		slog.Uint64("generation", entry.Generation),
		slog.Int("edits", len(entry.Edits)),
		slog.Int("bytes", len(data)))
	return nil
}

// Observer returns a morph observer that records every change of the
// documents it is attached to. Write failures are logged.
func (j *Journal) Observer() morph.Observer {
	return func(doc *morph.Document, change morph.Change) {
		if err := j.Record(context.Background(), doc, change); err != nil {
			j.logger.Warn("journal record failed",
				slog.String("document_id", doc.ID()),
				slog.String("error", err.Error()))
		}
	}
}

// History returns the recorded entries of docID in generation order.
func (j *Journal) History(ctx context.Context, docID string) ([]Entry, error) {
	prefix := []byte(journalKeyPrefix(docID))
	var out []Entry
	err := j.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = decodeEntry(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("entry %s: %w", item.Key(), err)
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}

// Truncate deletes the history of docID and returns the number of entries
// removed.
func (j *Journal) Truncate(ctx context.Context, docID string) (int, error) {
	prefix := []byte(journalKeyPrefix(docID))
	var keys [][]byte
	err := j.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	err = j.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("truncate %s: %w", docID, err)
	}
	return len(keys), nil
}

// generationOf parses the generation out of a journal key.
func generationOf(key []byte) (uint64, error) {
	i := bytes.LastIndexByte(key, '/')
	if i < 0 {
		return 0, fmt.Errorf("%w: malformed key %q", ErrJournalCorrupted, key)
	}
	return strconv.ParseUint(string(key[i+1:]), 10, 64)
}

// Latest returns the generation of the newest entry of docID, or ok=false
// when it has no history.
func (j *Journal) Latest(ctx context.Context, docID string) (generation uint64, ok bool, err error) {
	prefix := []byte(journalKeyPrefix(docID))
	err = j.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key <= the seek key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		g, err := generationOf(it.Item().Key())
		if err != nil {
			return err
		}
		generation, ok = g, true
		return nil
	})
	return generation, ok, err
}

// encodeEntry encodes an entry with a CRC32 checksum.
func encodeEntry(entry Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&entry); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	crc := crc32.ChecksumIEEE(buf.Bytes())

	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out[:4], crc)
	copy(out[4:], buf.Bytes())
	return out, nil
}

// decodeEntry validates the checksum and decodes an entry.
func decodeEntry(data []byte) (Entry, error) {
	if len(data) < 5 {
		return Entry{}, fmt.Errorf("%w: entry too short", ErrJournalCorrupted)
	}
	stored := binary.BigEndian.Uint32(data[:4])
	body := data[4:]
	if computed := crc32.ChecksumIEEE(body); stored != computed {
		return Entry{}, fmt.Errorf("%w: stored=%08x computed=%08x", ErrJournalCorrupted, stored, computed)
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&entry); err != nil {
		return Entry{}, fmt.Errorf("%w: gob decode: %v", ErrJournalCorrupted, err)
	}
	return entry, nil
}
