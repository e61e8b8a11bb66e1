package streamzip

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// WinZip AE-2 constants (§4.6).
const (
	aesSaltLen       = 16
	aesKeyLen        = 32
	aesVerifierLen   = 2
	aesMACLen        = 10
	aesOverheadBytes = aesSaltLen + aesVerifierLen + aesMACLen // 28
	pbkdf2Iterations = 1000
)

// aesEncryptWriter implements the WinZip AE-2 envelope: on creation it emits
// a random salt and the two-byte password verifier derived alongside the
// encryption and authentication keys; every subsequent Write AES-256-CTR
// encrypts its input with a little-endian 128 bit counter and feeds the
// ciphertext into a running HMAC-SHA1; Close appends the first 10 bytes of
// that HMAC's digest.
//
// AE-2 mandates CRC suppression: the MAC, not the ZIP CRC32 field, carries
// the integrity guarantee, so callers must force the stored CRC32 to zero
// once a member is encrypted (see encoder.go).
type aesEncryptWriter struct {
	dst    io.Writer
	stream *littleEndianCTR
	mac    hash.Hash
}

// newAESEncryptWriter derives keys from password and salt (read from
// randSource) via PBKDF2-HMAC-SHA1 and immediately writes the salt and
// password verifier to dst.
func newAESEncryptWriter(dst io.Writer, password string, randSource io.Reader) (*aesEncryptWriter, error) {
	salt := make([]byte, aesSaltLen)
	if _, err := io.ReadFull(randSource, salt); err != nil {
		return nil, err
	}
	if _, err := dst.Write(salt); err != nil {
		return nil, err
	}

	keyMaterial := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 2*aesKeyLen+aesVerifierLen, sha1.New)
	encKey := keyMaterial[:aesKeyLen]
	macKey := keyMaterial[aesKeyLen : 2*aesKeyLen]
	verifier := keyMaterial[2*aesKeyLen:]

	if _, err := dst.Write(verifier); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}

	return &aesEncryptWriter{
		dst:    dst,
		stream: newLittleEndianCTR(block),
		mac:    hmac.New(sha1.New, macKey),
	}, nil
}

func (w *aesEncryptWriter) Write(p []byte) (int, error) {
	ciphertext := make([]byte, len(p))
	w.stream.XORKeyStream(ciphertext, p)
	w.mac.Write(ciphertext)
	if _, err := w.dst.Write(ciphertext); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close emits the truncated HMAC-SHA1 tag that authenticates this member's
// ciphertext. It does not close dst.
func (w *aesEncryptWriter) Close() error {
	_, err := w.dst.Write(w.mac.Sum(nil)[:aesMACLen])
	return err
}

// littleEndianCTR is AES-CTR with a 128 bit counter stored little-endian and
// starting at zero, as WinZip's AE-2 mode requires.
//
// crypto/cipher's own NewCTR increments its counter block as a big-endian
// integer, which produces a different keystream than AE-2's little-endian
// counter from the second block onward, so it cannot be reused here;
// no library in the retrieved example pack implements the little-endian
// variant either (see DESIGN.md).
type littleEndianCTR struct {
	block   cipher.Block
	counter [aes.BlockSize]byte
	stream  [aes.BlockSize]byte
	used    int
}

func newLittleEndianCTR(block cipher.Block) *littleEndianCTR {
	return &littleEndianCTR{block: block, used: aes.BlockSize}
}

func (c *littleEndianCTR) XORKeyStream(dst, src []byte) {
	for i := range src {
		if c.used == aes.BlockSize {
			c.block.Encrypt(c.stream[:], c.counter[:])
			c.increment()
			c.used = 0
		}
		dst[i] = src[i] ^ c.stream[c.used]
		c.used++
	}
}

// increment adds one to the counter, treating it as a little-endian
// integer: the carry propagates from the first byte onward.
func (c *littleEndianCTR) increment() {
	for i := range c.counter {
		c.counter[i]++
		if c.counter[i] != 0 {
			return
		}
	}
}
