package snapshot

import (
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Spec is the file- and environment-loadable shape of Config, usually
// populated through the confloader package.
type Spec struct {
	Dir            string         `koanf:"dir"`
	RetentionCount int            `koanf:"retention_count"`
	RetentionDays  int            `koanf:"retention_days"`
	Compression    int            `koanf:"compression"`
	Encryption     EncryptionSpec `koanf:"encryption"`
}

// EncryptionSpec configures at-rest encryption from a config source.
// Either Key or Passphrase may be set; Key wins when both are.
type EncryptionSpec struct {
	// Algorithm is "aes-gcm", "chacha20-poly1305", or empty for
	// hardware-based selection.
	Algorithm string `koanf:"algorithm"`

	// Key is a hex-encoded 32-byte key.
	Key string `koanf:"key"`

	// Passphrase derives the key via Argon2id.
	Passphrase string `koanf:"passphrase"`

	// Salt is the hex-encoded salt from the first derivation.
	// Required with Passphrase when decrypting existing snapshots.
	Salt string `koanf:"salt"`
}

// Config resolves the spec into a manager configuration, building the
// cipher if encryption is configured.
func (s Spec) Config(logger *slog.Logger) (Config, error) {
	cfg := Config{
		Dir:            s.Dir,
		RetentionCount: s.RetentionCount,
		RetentionDays:  s.RetentionDays,
		Compression:    s.Compression,
		Logger:         logger,
	}

	key, err := s.Encryption.key()
	if err != nil {
		return Config{}, err
	}
	if key == nil {
		return cfg, nil
	}
	defer ZeroKey(key)

	var c Cipher
	if s.Encryption.Algorithm == "" {
		c, err = NewCipher(key)
	} else {
		c, err = NewCipherOfType(key, CipherType(s.Encryption.Algorithm))
	}
	if err != nil {
		return Config{}, err
	}
	cfg.Cipher = c
	return cfg, nil
}

func (e EncryptionSpec) key() ([]byte, error) {
	if e.Key != "" {
		key, err := hex.DecodeString(e.Key)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode encryption key: %w", err)
		}
		return key, nil
	}
	if e.Passphrase == "" {
		return nil, nil
	}

	var salt []byte
	if e.Salt != "" {
		var err error
		salt, err = hex.DecodeString(e.Salt)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode salt: %w", err)
		}
	}
	key, _, err := DeriveKey([]byte(e.Passphrase), salt)
	if err != nil {
		return nil, err
	}
	return key, nil
}
