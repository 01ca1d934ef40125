package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/models"
)

// FileBackend persists all token records in a single encrypted file.
// The whole file is re-encrypted and rewritten on every mutation; there is no
// partial-write format. Writes go through a temp file plus rename so a crash
// never leaves a truncated blob behind.
type FileBackend struct {
	mu     sync.Mutex
	path   string
	cipher *Cipher
}

// NewFileBackend creates a file backend at the given path.
func NewFileBackend(path string, cipher *Cipher) *FileBackend {
	return &FileBackend{path: path, cipher: cipher}
}

func (f *FileBackend) Get(_ context.Context, tokenType string) (*models.TokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.loadAll()
	if err != nil {
		return nil, err
	}

	rec, ok := records[tokenType]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *FileBackend) Set(_ context.Context, record *models.TokenRecord, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.loadAll()
	if err != nil {
		// An unreadable file is treated as empty rather than blocking new
		// logins; the rewrite below replaces it wholesale.
		records = map[string]*models.TokenRecord{}
	}

	records[record.Type] = record
	return f.saveAll(records)
}

func (f *FileBackend) Delete(_ context.Context, tokenType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.loadAll()
	if err != nil {
		return err
	}

	if _, ok := records[tokenType]; !ok {
		return nil
	}

	delete(records, tokenType)
	return f.saveAll(records)
}

func (f *FileBackend) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

func (f *FileBackend) loadAll() (map[string]*models.TokenRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*models.TokenRecord{}, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	if len(data) == 0 {
		return map[string]*models.TokenRecord{}, nil
	}

	plain, err := f.cipher.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("decrypting token file: %w", err)
	}

	records := map[string]*models.TokenRecord{}
	if err := json.Unmarshal(plain, &records); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	return records, nil
}

func (f *FileBackend) saveAll(records map[string]*models.TokenRecord) error {
	plain, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding token records: %w", err)
	}

	encrypted, err := f.cipher.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypting token file: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating token dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}
