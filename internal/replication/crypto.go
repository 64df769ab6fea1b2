package replication

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"steerd.dev/steerd/internal/metrics"
)

// ErrAuthFailed is returned when a received envelope's HMAC does not
// verify, e.g. because it was encrypted with a different shared key.
var ErrAuthFailed = errors.New("replication: message authentication failed")

// cryptor derives AES-CBC and HMAC-SHA256 keys from a single shared secret
// via HKDF, and seals/opens wire envelopes with them.
type cryptor struct {
	encKey  [32]byte
	hmacKey [32]byte
}

func newCryptor(sharedKey string) (*cryptor, error) {
	if sharedKey == "" {
		return nil, errors.New("replication: empty shared key")
	}
	h := hkdf.New(sha256.New, []byte(sharedKey), nil, []byte("steerd-replication-v1"))
	var material [64]byte
	if _, err := io.ReadFull(h, material[:]); err != nil {
		return nil, fmt.Errorf("replication: derive keys: %w", err)
	}
	c := &cryptor{}
	copy(c.encKey[:], material[:32])
	copy(c.hmacKey[:], material[32:])
	return c, nil
}

// seal encrypts plaintext with AES-CBC under a random IV and appends an
// HMAC-SHA256 MAC over IV||ciphertext. Layout: iv(16) || ciphertext || mac(32).
func (c *cryptor) seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.encKey[:])
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, iv)
	cbc.CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, c.hmacKey[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	sum := mac.Sum(nil)

	out := make([]byte, 0, len(iv)+len(ciphertext)+len(sum))
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, sum...)
	return out, nil
}

// open verifies and decrypts an envelope produced by seal. Every failure is
// counted in metrics.CryptoErrors.
func (c *cryptor) open(envelope []byte) (plain []byte, err error) {
	defer func() {
		if err != nil {
			metrics.Get().CryptoErrors.Inc()
		}
	}()
	if len(envelope) < aes.BlockSize+sha256.Size {
		return nil, errors.New("replication: envelope too short")
	}
	macStart := len(envelope) - sha256.Size
	iv := envelope[:aes.BlockSize]
	ciphertext := envelope[aes.BlockSize:macStart]
	gotMAC := envelope[macStart:]

	mac := hmac.New(sha256.New, c.hmacKey[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	wantMAC := mac.Sum(nil)
	if !hmac.Equal(gotMAC, wantMAC) {
		return nil, ErrAuthFailed
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("replication: ciphertext not block-aligned")
	}
	block, err := aes.NewCipher(c.encKey[:])
	if err != nil {
		return nil, err
	}
	plainPadded := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, iv)
	cbc.CryptBlocks(plainPadded, ciphertext)

	return pkcs7Unpad(plainPadded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("replication: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("replication: invalid padding")
	}
	return data[:len(data)-padLen], nil
}
