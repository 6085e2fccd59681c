// Package sharing implements Shamir secret sharing and Lagrange
// reconstruction over the field package's scalar ring.
package sharing

import (
	"errors"
	"io"

	"github.com/pangea-net/bgw-node/pkg/mpc/field"
)

// ErrDuplicateX is returned by Reconstruct when two input shares carry
// the same x-coordinate: the Lagrange denominator for that pair is
// zero and interpolation cannot proceed.
var ErrDuplicateX = errors.New("sharing: duplicate x-coordinate in share set")

// ErrEmptyShares is returned by Reconstruct when given no shares.
var ErrEmptyShares = errors.New("sharing: reconstruct requires at least one share")

// ErrInvalidParams is returned by Split when threshold/party-count
// preconditions are violated.
var ErrInvalidParams = errors.New("sharing: require 0 <= t < n and n >= 1")

// Share is one evaluation point (x, y) of a degree-d polynomial whose
// constant term is the shared secret. x is never the zero scalar:
// x=0 is reserved for the secret itself.
type Share struct {
	X field.Scalar
	Y field.Scalar
}

// Split constructs a random degree-t polynomial f with f(0) = secret
// and returns its evaluations at x = 1..n. The polynomial has exactly
// t+1 coefficients (a_0 = secret, a_1..a_t drawn uniformly from rnd) —
// using only t coefficients would silently drop to degree t-1 and
// weaken the sharing's threshold.
func Split(secret field.Scalar, t, n int, rnd io.Reader) ([]Share, error) {
	if t < 0 || n < 1 || t >= n {
		return nil, ErrInvalidParams
	}

	coeffs := make([]field.Scalar, t+1)
	coeffs[0] = secret
	for i := 1; i <= t; i++ {
		coeffs[i] = field.Random(rnd)
	}

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		x := field.FromUint64(uint64(i + 1))
		shares[i] = Share{X: x, Y: evalPoly(coeffs, x)}
	}
	return shares, nil
}

// evalPoly evaluates coeffs (low-degree-first) at x via Horner's method.
func evalPoly(coeffs []field.Scalar, x field.Scalar) field.Scalar {
	y := field.Zero()
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = field.Add(field.Mul(y, x), coeffs[i])
	}
	return y
}

// Reconstruct recovers f(0) via Lagrange interpolation from shares.
// If len(shares) is at least deg(f)+1 and every share is authentic,
// the result is the original secret; with fewer shares it returns an
// arbitrary field element the caller cannot distinguish from a valid
// secret (the semi-honest threshold guarantee, not a property this
// function can check).
func Reconstruct(shares []Share) (field.Scalar, error) {
	if len(shares) == 0 {
		return nil, ErrEmptyShares
	}

	secret := field.Zero()
	for i, si := range shares {
		num := field.One()
		den := field.One()
		for j, sj := range shares {
			if i == j {
				continue
			}
			diff := field.Sub(sj.X, si.X)
			if field.Equal(diff, field.Zero()) {
				return nil, ErrDuplicateX
			}
			num = field.Mul(num, sj.X)
			den = field.Mul(den, diff)
		}
		lagrange := field.Mul(num, field.Inv(den))
		secret = field.Add(secret, field.Mul(si.Y, lagrange))
	}
	return secret, nil
}
