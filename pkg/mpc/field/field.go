// Package field provides the scalar field arithmetic the rest of the
// protocol is built on: a prime-order group's scalar ring, with the
// operations the BGW protocol needs (add, mul, inverse, random
// sampling, conversion from small integers).
//
// The concrete field is the edwards25519 scalar field exposed by kyber,
// the same suite the rest of the pack's DKG code uses.
package field

import (
	"io"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
)

// Scalar is an element of the prime field. It is always non-nil and
// always belongs to the package's edwards25519 scalar group.
type Scalar = kyber.Scalar

// suite is the shared edwards25519 group instance. kyber groups are
// stateless and safe for concurrent use by every party goroutine.
var suite = edwards25519.NewBlakeSHA256Ed25519()

// Zero returns the additive identity.
func Zero() Scalar { return suite.Scalar().Zero() }

// One returns the multiplicative identity.
func One() Scalar { return suite.Scalar().One() }

// FromUint64 converts a small non-negative integer into a field element.
func FromUint64(v uint64) Scalar { return suite.Scalar().SetInt64(int64(v)) }

// Random draws a uniformly random scalar from r. r must be a
// cryptographically strong source; the field never seeds its own RNG.
func Random(r io.Reader) Scalar { return suite.Scalar().Pick(cipherStream{r}) }

// Add returns a+b without mutating either operand.
func Add(a, b Scalar) Scalar { return suite.Scalar().Add(a, b) }

// Sub returns a-b without mutating either operand.
func Sub(a, b Scalar) Scalar { return suite.Scalar().Sub(a, b) }

// Mul returns a*b without mutating either operand.
func Mul(a, b Scalar) Scalar { return suite.Scalar().Mul(a, b) }

// Neg returns -a without mutating a.
func Neg(a Scalar) Scalar { return suite.Scalar().Neg(a) }

// Inv returns a^-1. Inverting zero is a programming error (it has no
// inverse in a field) and panics, per spec: arithmetic errors are
// caller bugs, not recoverable protocol conditions.
func Inv(a Scalar) Scalar {
	if a.Equal(Zero()) {
		panic("field: inverse of zero")
	}
	return suite.Scalar().Inv(a)
}

// Equal reports whether a and b represent the same field element.
func Equal(a, b Scalar) bool { return a.Equal(b) }

// MarshalCanonical serializes s to its canonical little-endian
// representation, matching the wire format in message.Message.
func MarshalCanonical(s Scalar) ([]byte, error) { return s.MarshalBinary() }

// UnmarshalCanonical parses a canonical little-endian scalar encoding.
func UnmarshalCanonical(data []byte) (Scalar, error) {
	s := suite.Scalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return s, nil
}

// cipherStream adapts an io.Reader to kyber's cipher.Stream interface
// (the minimal subset kyber.Scalar.Pick actually calls: XORKeyStream).
type cipherStream struct{ r io.Reader }

func (c cipherStream) XORKeyStream(dst, src []byte) {
	buf := make([]byte, len(src))
	if _, err := io.ReadFull(c.r, buf); err != nil {
		panic("field: random source exhausted: " + err.Error())
	}
	for i := range src {
		dst[i] = src[i] ^ buf[i]
	}
}
