package merkle

import (
	"crypto/sha256"
	"fmt"
)

// The honest-prover side of RFC 6962: computing roots and proofs from a full
// list of leaf hashes. Verification code never needs these; they exist for
// proof producers and for differential testing of the verifiers against an
// independently computed tree.

// Root computes the tree head over the given leaf hashes. The empty tree
// hashes to SHA-256 of the empty string.
func Root(leafHashes [][]byte) ([]byte, error) {
	if err := checkLeaves(leafHashes); err != nil {
		return nil, err
	}
	if len(leafHashes) == 0 {
		sum := sha256.Sum256(nil)
		return sum[:], nil
	}
	return subtreeRoot(leafHashes), nil
}

// InclusionProof computes the RFC 6962 §2.1.1 audit path for the leaf at
// index, ordered from the leaf's sibling up to the root's child.
func InclusionProof(leafHashes [][]byte, index int) ([][]byte, error) {
	if err := checkLeaves(leafHashes); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(leafHashes) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidSize, index)
	}
	return auditPath(leafHashes, index), nil
}

// ConsistencyProof computes the RFC 6962 §2.1.2 proof that the tree over
// leafHashes[:size2] extends the tree over leafHashes[:size1].
func ConsistencyProof(leafHashes [][]byte, size1, size2 int) ([][]byte, error) {
	if err := checkLeaves(leafHashes); err != nil {
		return nil, err
	}
	if size1 <= 0 || size1 > size2 || size2 > len(leafHashes) {
		return nil, fmt.Errorf("%w: sizes %d, %d", ErrInvalidSize, size1, size2)
	}
	return subProof(size1, leafHashes[:size2], true), nil
}

func checkLeaves(leafHashes [][]byte) error {
	for i, leaf := range leafHashes {
		if len(leaf) != HashSize {
			return fmt.Errorf("leaf %d: %w", i, ErrInvalidHashLen)
		}
	}
	return nil
}

func subtreeRoot(hashes [][]byte) []byte {
	if len(hashes) == 1 {
		return hashes[0]
	}
	k := splitPoint(len(hashes))
	return HashNode(subtreeRoot(hashes[:k]), subtreeRoot(hashes[k:]))
}

func auditPath(hashes [][]byte, index int) [][]byte {
	if len(hashes) == 1 {
		return nil
	}
	k := splitPoint(len(hashes))
	if index < k {
		return append(auditPath(hashes[:k], index), subtreeRoot(hashes[k:]))
	}
	return append(auditPath(hashes[k:], index-k), subtreeRoot(hashes[:k]))
}

func subProof(m int, hashes [][]byte, complete bool) [][]byte {
	if m == len(hashes) {
		if complete {
			return nil
		}
		return [][]byte{subtreeRoot(hashes)}
	}
	k := splitPoint(len(hashes))
	if m <= k {
		return append(subProof(m, hashes[:k], complete), subtreeRoot(hashes[k:]))
	}
	return append(subProof(m-k, hashes[k:], false), subtreeRoot(hashes[:k]))
}

// splitPoint is the largest power of two strictly less than n.
func splitPoint(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}
