package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chrisjgf/portfolio/internal/apperr"
	"github.com/chrisjgf/portfolio/internal/models"
)

// Store owns the single encrypted vault file and the in-memory session.
// State machine: Absent (no file) → Locked (file, no session) → Unlocked
// (session holds password + decrypted document) → Locked again on Lock or
// process restart.
type Store struct {
	path string // absolute path to the encrypted vault file

	mu      sync.Mutex
	sess    *session
	lastSum string // hex SHA-256 of the blob we last persisted ourselves
}

// session is the one password/document pair held while unlocked. It is an
// explicit object rather than package-level state so lock/unlock are real
// transitions and tests can run stores side by side.
type session struct {
	password []byte
	doc      *models.Document
}

// NewStore creates a store for the vault file at path. The parent directory
// is created if missing; the file itself is only created by Setup.
func NewStore(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("vault: mkdir: %w", err)
	}
	return &Store{path: abs}, nil
}

// Path returns the absolute path of the vault file.
func (s *Store) Path() string { return s.path }

// Status reports whether the vault file exists and whether a session is
// active. Pure observation, no side effects.
type Status struct {
	Exists   bool `json:"exists"`
	Unlocked bool `json:"unlocked"`
}

// Status returns the current vault state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path)
	return Status{Exists: err == nil, Unlocked: s.sess != nil}
}

// Setup creates a brand new vault protected by password. Fails with
// apperr.ErrAlreadyExists if a vault file is already present. On success
// the store transitions straight to Unlocked.
func (s *Store) Setup(password string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	doc := models.NewDocument()
	sess := &session{password: []byte(password), doc: doc}
	if err := s.persist(sess); err != nil {
		return nil, err
	}
	s.sess = sess
	return doc.Clone(), nil
}

// Unlock decrypts the vault file with password and starts a session.
// A wrong password and a corrupted file are both apperr.ErrAuthentication.
func (s *Store) Unlock(password string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("vault: read: %w", err)
	}

	pw := []byte(password)
	plaintext, err := Decrypt(blob, pw)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(plaintext)
	if err != nil {
		return nil, err
	}

	if s.sess != nil {
		zeroBytes(s.sess.password)
	}
	s.sess = &session{password: pw, doc: doc}
	return doc.Clone(), nil
}

// Lock discards the session. Idempotent; valid in any state. The password
// bytes are zeroed before being dropped.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		zeroBytes(s.sess.password)
		s.sess = nil
	}
}

// active is the single gate every data operation passes through: it returns
// the session or apperr.ErrLocked. Callers must hold s.mu.
func (s *Store) active() (*session, error) {
	if s.sess == nil {
		return nil, apperr.ErrLocked
	}
	return s.sess, nil
}

// Read returns a copy of the decrypted document.
func (s *Store) Read() (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	return sess.doc.Clone(), nil
}

// Write replaces the in-memory document and re-encrypts the whole document
// to disk under the session password. The file is replaced atomically: a
// failed write leaves the previous blob intact.
func (s *Store) Write(doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return err
	}
	next := doc.Clone()
	prev := sess.doc
	sess.doc = next
	if err := s.persist(sess); err != nil {
		sess.doc = prev
		return err
	}
	return nil
}

// Update applies mutate to a copy of the current document and persists the
// result. Read, mutation, and persist happen in one critical section, so an
// edit made while a caller was busy elsewhere (a provider round trip, say)
// is never overwritten by stale state; callers pass only the merge step in.
// A mutate error aborts with nothing changed.
func (s *Store) Update(mutate func(*models.Document) error) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	next := sess.doc.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	prev := sess.doc
	sess.doc = next
	if err := s.persist(sess); err != nil {
		sess.doc = prev
		return nil, err
	}
	return next.Clone(), nil
}

// Export returns the persisted ciphertext verbatim.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.active(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("vault: export: %w", err)
	}
	return blob, nil
}

// Import replaces the vault with an externally supplied blob. The blob must
// decrypt under the *current* session password (import never changes the
// active password) and the payload must carry a holdings list. File and
// in-memory document are replaced together; on any failure neither changes.
func (s *Store) Import(blob []byte) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}

	plaintext, err := Decrypt(blob, sess.password)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(plaintext)
	if err != nil {
		return nil, err
	}

	if err := s.writeFileAtomic(blob); err != nil {
		return nil, err
	}
	sess.doc = doc
	return doc.Clone(), nil
}

// DeleteHistoryEntry removes the snapshot at index and persists the change.
// Returns the remaining history.
func (s *Store) DeleteHistoryEntry(index int) ([]models.HistorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.doc.History) {
		return nil, apperr.ErrInvalidIndex
	}

	next := sess.doc.Clone()
	next.History = append(next.History[:index], next.History[index+1:]...)
	prev := sess.doc
	sess.doc = next
	if err := s.persist(sess); err != nil {
		sess.doc = prev
		return nil, err
	}
	out := make([]models.HistorySnapshot, len(next.History))
	copy(out, next.History)
	return out, nil
}

// IsOwnWrite reports whether a hex SHA-256 of the on-disk blob matches the
// last blob this store persisted. Used by the watcher to tell our own
// atomic renames apart from external mutation.
func (s *Store) IsOwnWrite(sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sum != "" && sum == s.lastSum
}

// persist encrypts the session document and atomically replaces the vault
// file. Callers must hold s.mu.
func (s *Store) persist(sess *session) error {
	plaintext, err := json.Marshal(sess.doc)
	if err != nil {
		return fmt.Errorf("vault: marshal: %w", err)
	}
	blob, err := Encrypt(plaintext, sess.password)
	if err != nil {
		return err
	}
	return s.writeFileAtomic(blob)
}

// writeFileAtomic writes blob via tmp file → fsync → rename so a crash or
// failure mid-write never corrupts the previous vault file.
func (s *Store) writeFileAtomic(blob []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".vault-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(blob); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	s.lastSum = hexSum(blob)
	return nil
}

// decodeDocument parses a decrypted payload. A payload without a holdings
// array is rejected with apperr.ErrSchema, as is malformed JSON (the blob
// authenticated, so this is a format problem, not tampering).
func decodeDocument(plaintext []byte) (*models.Document, error) {
	var probe struct {
		Holdings *[]models.Holding `json:"holdings"`
	}
	if err := json.Unmarshal(plaintext, &probe); err != nil {
		return nil, apperr.ErrSchema
	}
	if probe.Holdings == nil {
		return nil, apperr.ErrSchema
	}

	doc := models.NewDocument()
	if err := json.Unmarshal(plaintext, doc); err != nil {
		return nil, apperr.ErrSchema
	}
	if doc.Holdings == nil {
		doc.Holdings = []models.Holding{}
	}
	if doc.PriceCache == nil {
		doc.PriceCache = models.PriceCache{}
	}
	if doc.History == nil {
		doc.History = []models.HistorySnapshot{}
	}
	return doc, nil
}

func hexSum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
