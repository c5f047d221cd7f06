package credential

import (
	"errors"
	"strings"
)

// Kind selects the write-time sealing strategy.
type Kind uint8

const (
	// KindPlaintext stores the secret verbatim. Tutorial baseline only.
	KindPlaintext Kind = iota
	// KindFastHash stores an unsalted SHA-256 digest.
	KindFastHash
	// KindAdaptive stores a bcrypt hash with an embedded per-call salt.
	KindAdaptive
	// KindEncrypted stores the secret encrypted under a process-wide key.
	KindEncrypted
)

const (
	tagPlaintext = "$plain$"
	tagFastHash  = "$sha256$"
	tagAdaptive  = "$2" // bcrypt prefix family: $2a$, $2b$, $2y$
	tagEncrypted = "$aesgcm$"
)

var (
	// ErrUnknownKind is returned when a stored value carries no recognized
	// kind tag.
	ErrUnknownKind = errors.New("unknown credential kind")
	// ErrSealedInvalid is returned when a stored value's tag is recognized
	// but the payload cannot be decoded or decrypted.
	ErrSealedInvalid = errors.New("sealed credential invalid")
	// ErrKeyRequired is returned by New when KindEncrypted is configured
	// without a 32-byte key.
	ErrKeyRequired = errors.New("encrypted strategy requires a 32-byte key")
)

// Config holds the write-time strategy and its per-kind parameters.
type Config struct {
	Kind Kind
	// BcryptCost applies to KindAdaptive. Zero means bcrypt.DefaultCost.
	BcryptCost int
	// EncryptionKey applies to KindEncrypted and must be exactly 32 bytes.
	// It is also consulted on Verify whenever a stored value is encrypted,
	// regardless of the configured write kind.
	EncryptionKey []byte
}

// Codec seals secrets with the configured strategy and verifies presented
// secrets against any recognized stored form.
//
// Codec instances are intended to be configured during initialization and
// then treated as immutable.
type Codec struct {
	config Config
}

// New validates cfg and returns a ready Codec.
func New(cfg Config) (*Codec, error) {
	switch cfg.Kind {
	case KindPlaintext, KindFastHash, KindAdaptive, KindEncrypted:
	default:
		return nil, ErrUnknownKind
	}
	if cfg.Kind == KindEncrypted && len(cfg.EncryptionKey) != 32 {
		return nil, ErrKeyRequired
	}
	if len(cfg.EncryptionKey) != 0 && len(cfg.EncryptionKey) != 32 {
		return nil, ErrKeyRequired
	}
	if cfg.BcryptCost < 0 || cfg.BcryptCost > maxBcryptCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Codec{config: cfg}, nil
}

// Seal transforms secret into its stored representation using the
// configured kind.
func (c *Codec) Seal(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}

	switch c.config.Kind {
	case KindPlaintext:
		return sealPlaintext(secret), nil
	case KindFastHash:
		return sealFastHash(secret), nil
	case KindAdaptive:
		return sealAdaptive(secret, c.config.BcryptCost)
	case KindEncrypted:
		return sealEncrypted(secret, c.config.EncryptionKey)
	default:
		return "", ErrUnknownKind
	}
}

// Verify compares presented against the stored sealed value, dispatching on
// the stored value's kind tag.
func (c *Codec) Verify(presented, stored string) (bool, error) {
	switch KindOf(stored) {
	case KindPlaintext:
		return verifyPlaintext(presented, stored), nil
	case KindFastHash:
		return verifyFastHash(presented, stored), nil
	case KindAdaptive:
		return verifyAdaptive(presented, stored)
	case KindEncrypted:
		if len(c.config.EncryptionKey) != 32 {
			return false, ErrKeyRequired
		}
		return verifyEncrypted(presented, stored, c.config.EncryptionKey)
	default:
		return false, ErrUnknownKind
	}
}

// NeedsReseal reports whether the stored value was sealed under a different
// kind than the one currently configured. Callers re-seal on the next
// successful verification.
func (c *Codec) NeedsReseal(stored string) bool {
	kind, err := storedKind(stored)
	if err != nil {
		return false
	}
	return kind != c.config.Kind
}

// KindOf reports the kind tag of a stored value. Unrecognized values return
// Kind(255).
func KindOf(stored string) Kind {
	kind, err := storedKind(stored)
	if err != nil {
		return Kind(255)
	}
	return kind
}

func storedKind(stored string) (Kind, error) {
	switch {
	case strings.HasPrefix(stored, tagPlaintext):
		return KindPlaintext, nil
	case strings.HasPrefix(stored, tagFastHash):
		return KindFastHash, nil
	case strings.HasPrefix(stored, tagEncrypted):
		return KindEncrypted, nil
	case strings.HasPrefix(stored, tagAdaptive):
		return KindAdaptive, nil
	default:
		return 0, ErrUnknownKind
	}
}
