package security

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when signing material is missing, malformed, or of an unsupported type.
var ErrInvalidKey = errors.New("invalid key")

// SigningSettings describes where the token signing material comes from.
// Secret selects HS256; otherwise PrivateKey and PublicKey (inline PEM or file path) select RS256/ES256.
type SigningSettings struct {
	Secret     string
	PrivateKey string
	PublicKey  string
	Issuer     string
	Audience   string
}

// NewTokenProviderFromSettings builds a TokenProvider from s.
func NewTokenProviderFromSettings(s SigningSettings, opts ...Option) (*TokenProvider, error) {
	if s.PrivateKey != "" || s.PublicKey != "" {
		priv, err := ParsePrivateKey(s.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := ParsePublicKey(s.PublicKey)
		if err != nil {
			return nil, err
		}
		return NewTokenProvider(priv, pub, s.Issuer, s.Audience, opts...)
	}
	return NewHMACTokenProvider([]byte(s.Secret), s.Issuer, s.Audience, opts...)
}

// LoadPEM returns s as bytes when it is inline PEM (literal "\n" sequences are expanded), otherwise reads the file at path s.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

func decodePEM(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses a PEM private key (PKCS#1 RSA, PKCS#8, or SEC 1 EC).
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if signer, ok := key.(crypto.Signer); ok {
			return signer, nil
		}
	}
	return nil, ErrInvalidKey
}

// ParsePublicKey parses a PEM public key (PKCS#1 RSA or PKIX).
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodePEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, ErrInvalidKey
}
