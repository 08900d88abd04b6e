package session

import (
	"bytes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/picklecourt/courtdesk/internal"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// CurrentSchemaVersion is the payload version written by Encode.
	CurrentSchemaVersion = 1

	sealFormatVersion = 1
	saltSize          = 16

	kdfTime    uint32 = 1
	kdfMemory  uint32 = 19 * 1024
	kdfThreads uint8  = 1
)

var (
	// ErrStorageKeyMissing is returned when persistence is requested without a secret.
	ErrStorageKeyMissing = errors.New("session: storage encryption key missing")
	// ErrSealedBlobInvalid is returned for blobs that fail to open.
	ErrSealedBlobInvalid = errors.New("session: sealed blob invalid")
	// ErrUnsupportedSchema is returned for payloads written by a newer client.
	ErrUnsupportedSchema = errors.New("session: unsupported session schema version")
)

type payload struct {
	Version int       `json:"v"`
	SavedAt time.Time `json:"saved_at"`
	Session Session   `json:"session"`
}

// Encode serializes s into the versioned payload.
func Encode(s *Session, now time.Time) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session: nil session")
	}
	return json.Marshal(payload{Version: CurrentSchemaVersion, SavedAt: now.UTC(), Session: *s})
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (*Session, error) {
	var p payload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("session: decode payload: %w", err)
	}
	if p.Version < 1 || p.Version > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, p.Version)
	}
	return &p.Session, nil
}

// Sealer encrypts payloads with a key derived from a storage secret. Each Sealer
// derives one key for its own salt up front and re-derives only when opening a blob
// written under a different salt.
type Sealer struct {
	secret []byte
	salt   []byte
	aead   cipher.AEAD

	mu    sync.Mutex
	cache map[string]cipher.AEAD
}

// NewSealer derives the sealing key from secret. An empty secret is
// ErrStorageKeyMissing.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrStorageKeyMissing
	}
	salt, err := internal.RandomBytes(saltSize)
	if err != nil {
		return nil, err
	}
	s := &Sealer{secret: []byte(secret), salt: salt, cache: make(map[string]cipher.AEAD)}
	aead, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	s.aead = aead
	s.cache[string(salt)] = aead
	return s, nil
}

func (s *Sealer) derive(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.secret, salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
	return chacha20poly1305.NewX(key)
}

// Seal encrypts plaintext bound to label. Layout: version | salt | nonce | ciphertext.
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	nonce, err := internal.RandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+saltSize+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, sealFormatVersion)
	out = append(out, s.salt...)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plaintext, []byte(label)), nil
}

// Open reverses Seal. Any tampering, truncation or label mismatch is
// ErrSealedBlobInvalid.
func (s *Sealer) Open(blob []byte, label string) ([]byte, error) {
	header := 1 + saltSize + chacha20poly1305.NonceSizeX
	if len(blob) < header+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: short blob", ErrSealedBlobInvalid)
	}
	if blob[0] != sealFormatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrSealedBlobInvalid, blob[0])
	}
	salt := blob[1 : 1+saltSize]
	nonce := blob[1+saltSize : header]

	s.mu.Lock()
	aead, ok := s.cache[string(salt)]
	s.mu.Unlock()
	if !ok {
		var err error
		aead, err = s.derive(salt)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[string(salt)] = aead
		s.mu.Unlock()
	}

	plaintext, err := aead.Open(nil, nonce, blob[header:], []byte(label))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedBlobInvalid, err)
	}
	return plaintext, nil
}
