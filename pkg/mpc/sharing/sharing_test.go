package sharing

import (
	"crypto/rand"
	"testing"

	"github.com/pangea-net/bgw-node/pkg/mpc/field"
)

// TestSplitReconstruct_S1 pins spec scenario S1: shamir_share(1234, t=2,
// n=5) reconstructed from the size-(t+1) windows shares[0:3] and
// shares[2:5] recovers 1234. These windows would also reconstruct under
// the historical t-coefficient (degree t-1) bug; TestSplitDegree pins
// the degree itself.
func TestSplitReconstruct_S1(t *testing.T) {
	secret := field.FromUint64(1234)
	shares, err := Split(secret, 2, 5, rand.Reader)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 shares, got %d", len(shares))
	}

	got, err := Reconstruct(shares[0:3])
	if err != nil {
		t.Fatalf("Reconstruct(shares[0:3]): %v", err)
	}
	if !field.Equal(got, secret) {
		t.Fatalf("Reconstruct(shares[0:3]) = %v, want %v", got, secret)
	}

	got, err = Reconstruct(shares[2:5])
	if err != nil {
		t.Fatalf("Reconstruct(shares[2:5]): %v", err)
	}
	if !field.Equal(got, secret) {
		t.Fatalf("Reconstruct(shares[2:5]) = %v, want %v", got, secret)
	}
}

// TestSplitDegree checks the polynomial has exactly t+1 coefficients:
// a size-(t+1) subset that skips low-index shares must reconstruct the
// secret (so the degree is at most t), and the first t shares must not
// (a degree t-1 polynomial, the historical bug, would let them).
func TestSplitDegree(t *testing.T) {
	secret := field.FromUint64(987654321)
	const threshold = 4
	const parties = 9
	shares, err := Split(secret, threshold, parties, rand.Reader)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	// A valid size-(t+1) subset must reconstruct regardless of which
	// t+1 shares are chosen, including ones that skip low-index shares.
	subset := []Share{shares[1], shares[3], shares[5], shares[7], shares[8]}
	got, err := Reconstruct(subset)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !field.Equal(got, secret) {
		t.Fatalf("degree-t polynomial check failed: got %v want %v", got, secret)
	}

	short, err := Reconstruct(shares[:threshold])
	if err != nil {
		t.Fatalf("Reconstruct(shares[:t]): %v", err)
	}
	if field.Equal(short, secret) {
		t.Fatalf("t shares reconstructed the secret; polynomial degree is below t")
	}
}

func TestSplitInvalidParams(t *testing.T) {
	if _, err := Split(field.Zero(), 5, 5, rand.Reader); err != ErrInvalidParams {
		t.Fatalf("expected ErrInvalidParams for t==n, got %v", err)
	}
	if _, err := Split(field.Zero(), -1, 5, rand.Reader); err != ErrInvalidParams {
		t.Fatalf("expected ErrInvalidParams for negative t, got %v", err)
	}
}

// TestAdditiveHomomorphism: reconstructing the pointwise sum of two
// sharings of s1, s2 yields s1+s2.
func TestAdditiveHomomorphism(t *testing.T) {
	s1 := field.FromUint64(7)
	s2 := field.FromUint64(35)

	shares1, _ := Split(s1, 2, 5, rand.Reader)
	shares2, _ := Split(s2, 2, 5, rand.Reader)

	sum := make([]Share, 5)
	for i := range sum {
		sum[i] = Share{X: shares1[i].X, Y: field.Add(shares1[i].Y, shares2[i].Y)}
	}

	got, err := Reconstruct(sum[:3])
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := field.Add(s1, s2)
	if !field.Equal(got, want) {
		t.Fatalf("additive homomorphism failed: got %v want %v", got, want)
	}
}

// TestConstMulHomomorphism: reconstructing c*sharing(s) yields c*s.
func TestConstMulHomomorphism(t *testing.T) {
	s := field.FromUint64(11)
	c := field.FromUint64(9)

	shares, _ := Split(s, 2, 5, rand.Reader)
	scaled := make([]Share, len(shares))
	for i, sh := range shares {
		scaled[i] = Share{X: sh.X, Y: field.Mul(c, sh.Y)}
	}

	got, err := Reconstruct(scaled[:3])
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := field.Mul(c, s)
	if !field.Equal(got, want) {
		t.Fatalf("const-mul homomorphism failed: got %v want %v", got, want)
	}
}

// TestReconstructDuplicateX pins spec scenario S5.
func TestReconstructDuplicateX(t *testing.T) {
	x := field.FromUint64(1)
	shares := []Share{
		{X: x, Y: field.FromUint64(10)},
		{X: x, Y: field.FromUint64(20)},
	}
	if _, err := Reconstruct(shares); err != ErrDuplicateX {
		t.Fatalf("expected ErrDuplicateX, got %v", err)
	}
}

// TestThresholdTightness: reconstruction from strictly fewer than t+1
// shares almost certainly does not equal the secret.
func TestThresholdTightness(t *testing.T) {
	secret := field.FromUint64(42)
	shares, err := Split(secret, 3, 7, rand.Reader)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	got, err := Reconstruct(shares[:2])
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if field.Equal(got, secret) {
		t.Fatalf("reconstruction from t-1 shares unexpectedly matched the secret (probability ~0)")
	}
}

func TestReconstructEmpty(t *testing.T) {
	if _, err := Reconstruct(nil); err != ErrEmptyShares {
		t.Fatalf("expected ErrEmptyShares, got %v", err)
	}
}
