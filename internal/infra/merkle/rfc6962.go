// Package merkle implements the RFC 6962 Merkle tree hashing and proof
// verification used to anchor attestations in transparency logs. All
// functions are pure; none do I/O or hold state.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/bits"

	"genesisgraph/internal/domain"
)

const (
	// HashSize is the byte length of every leaf, node and root hash.
	HashSize = sha256.Size

	// MaxTreeSize bounds tree sizes to a practical limit.
	MaxTreeSize = int64(1)<<62 - 1

	// MaxProofNodes bounds proof path depth. A tree of MaxTreeSize leaves
	// never needs a longer path.
	MaxProofNodes = 64

	leafHashPrefix = 0x00
	nodeHashPrefix = 0x01
)

var (
	ErrInvalidHashLen = errors.New("merkle: hash must be 32 bytes")
	ErrInvalidSize    = errors.New("merkle: invalid tree size")
)

// HashLeaf computes SHA256(0x00 || data). The domain-separation prefix keeps
// leaf hashes from colliding with interior node hashes.
func HashLeaf(data []byte) []byte {
	h := sha256.New()
	h.Write([]byte{leafHashPrefix})
	h.Write(data)
	return h.Sum(nil)
}

// HashNode computes SHA256(0x01 || left || right).
func HashNode(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{nodeHashPrefix})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// VerifyInclusion checks an RFC 6962 audit path: that the leaf with the
// given hash sits at leafIndex in the tree of treeSize leaves whose root is
// rootHash. Structural violations return a typed error; a proof that was
// attempted and failed returns (false, nil).
func VerifyInclusion(leafHash []byte, treeSize, leafIndex int64, proof [][]byte, rootHash []byte) (bool, error) {
	if treeSize <= 0 || treeSize > MaxTreeSize {
		return false, fmt.Errorf("%w: %w: %d", domain.ErrProofStructure, ErrInvalidSize, treeSize)
	}
	if leafIndex < 0 || leafIndex >= treeSize {
		return false, fmt.Errorf("%w: leaf index %d out of range for tree size %d",
			domain.ErrProofStructure, leafIndex, treeSize)
	}
	if len(proof) > MaxProofNodes {
		return false, fmt.Errorf("%w: proof too long: %d nodes (max %d)",
			domain.ErrProofStructure, len(proof), MaxProofNodes)
	}
	if len(leafHash) != HashSize {
		return false, fmt.Errorf("%w: leaf %w", domain.ErrProofStructure, ErrInvalidHashLen)
	}
	if len(rootHash) != HashSize {
		return false, fmt.Errorf("%w: root %w", domain.ErrProofStructure, ErrInvalidHashLen)
	}
	for i, node := range proof {
		if len(node) != HashSize {
			return false, fmt.Errorf("%w: proof node %d %w", domain.ErrProofStructure, i, ErrInvalidHashLen)
		}
	}

	// Decompose the path into the inner part, where the direction depends on
	// the leaf index bit, and the border part along the right edge of the
	// tree, where the sibling is always on the left.
	index := uint64(leafIndex)
	inner := innerPathLen(index, uint64(treeSize))
	border := bits.OnesCount64(index >> inner)
	if len(proof) != inner+border {
		return false, fmt.Errorf("%w: wrong proof size %d, want %d",
			domain.ErrProofStructure, len(proof), inner+border)
	}

	hash := leafHash
	for i, node := range proof {
		if i < inner && (index>>uint(i))&1 == 0 {
			hash = HashNode(hash, node)
		} else {
			hash = HashNode(node, hash)
		}
	}
	return bytes.Equal(hash, rootHash), nil
}

// VerifyConsistency checks an RFC 6962 consistency proof: that the tree of
// size2 leaves with root rootHash2 is an append-only extension of the tree
// of size1 leaves with root rootHash1.
func VerifyConsistency(size1, size2 int64, rootHash1, rootHash2 []byte, proof [][]byte) (bool, error) {
	if size1 < 0 || size1 > MaxTreeSize {
		return false, fmt.Errorf("%w: %w: %d", domain.ErrProofStructure, ErrInvalidSize, size1)
	}
	if size2 < 0 || size2 > MaxTreeSize {
		return false, fmt.Errorf("%w: %w: %d", domain.ErrProofStructure, ErrInvalidSize, size2)
	}
	if size1 > size2 {
		return false, fmt.Errorf("%w: size1 %d exceeds size2 %d", domain.ErrProofStructure, size1, size2)
	}
	if len(rootHash1) != HashSize || len(rootHash2) != HashSize {
		return false, fmt.Errorf("%w: root %w", domain.ErrProofStructure, ErrInvalidHashLen)
	}
	if len(proof) > MaxProofNodes {
		return false, fmt.Errorf("%w: proof too long: %d nodes (max %d)",
			domain.ErrProofStructure, len(proof), MaxProofNodes)
	}
	for i, node := range proof {
		if len(node) != HashSize {
			return false, fmt.Errorf("%w: proof node %d %w", domain.ErrProofStructure, i, ErrInvalidHashLen)
		}
	}

	// The empty tree is an append-only prefix of everything.
	if size1 == 0 {
		return true, nil
	}
	if size1 == size2 {
		if len(proof) != 0 {
			return false, fmt.Errorf("%w: proof must be empty for equal tree sizes", domain.ErrProofStructure)
		}
		return bytes.Equal(rootHash1, rootHash2), nil
	}
	if len(proof) == 0 {
		return false, fmt.Errorf("%w: empty proof", domain.ErrProofStructure)
	}

	// The proof is a suffix of the inclusion path for leaf size1-1 in the
	// larger tree, chained from the complete subtree of 2^shift leaves that
	// ends the smaller tree. When size1 is exactly that power of two the old
	// root itself has to be the seed and is not repeated in the proof.
	n1, n2 := uint64(size1), uint64(size2)
	inner := innerPathLen(n1-1, n2)
	shift := bits.TrailingZeros64(n1)
	inner -= shift

	seed, start := proof[0], 1
	if n1 == 1<<uint(shift) {
		seed, start = rootHash1, 0
	}
	border := bits.OnesCount64((n1 - 1) >> uint(inner+shift))
	if len(proof) != start+inner+border {
		return false, fmt.Errorf("%w: wrong proof size %d, want %d",
			domain.ErrProofStructure, len(proof), start+inner+border)
	}
	proof = proof[start:]

	// mask tracks which side the finished subtree sits on at each level,
	// starting the chain at level shift.
	mask := (n1 - 1) >> uint(shift)

	// Reconstruct the old root: only the steps where the finished subtree is
	// a right child contribute to it.
	hash1 := seed
	for i, node := range proof[:inner] {
		if (mask>>uint(i))&1 == 1 {
			hash1 = HashNode(node, hash1)
		}
	}
	for _, node := range proof[inner:] {
		hash1 = HashNode(node, hash1)
	}
	if !bytes.Equal(hash1, rootHash1) {
		return false, nil
	}

	// Reconstruct the new root: every step contributes, sides chosen by mask.
	hash2 := seed
	for i, node := range proof[:inner] {
		if (mask>>uint(i))&1 == 0 {
			hash2 = HashNode(hash2, node)
		} else {
			hash2 = HashNode(node, hash2)
		}
	}
	for _, node := range proof[inner:] {
		hash2 = HashNode(node, hash2)
	}
	return bytes.Equal(hash2, rootHash2), nil
}

// innerPathLen is the number of path steps below the point where the paths
// of leaf `index` and the last leaf of a tree of `size` leaves diverge.
func innerPathLen(index, size uint64) int {
	return bits.Len64(index ^ (size - 1))
}
