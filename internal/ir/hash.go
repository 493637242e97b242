package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "sheetbridge/snapshot/v1"
	DomainCommit   = "sheetbridge/commit/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes the content hash of a UI snapshot.
// Two snapshots with the same name, image and payload hash identically
// regardless of map iteration order.
func SnapshotHash(name, img string, data IRObject) (string, error) {
	if data == nil {
		data = IRObject{}
	}
	canonical, err := MarshalCanonical(IRObject{
		"name": IRString(name),
		"img":  IRString(img),
		"data": data,
	})
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// CommitID computes the identity of one commit attempt on a document.
func CommitID(documentID string, seq int64, snapshotHash string) string {
	data := fmt.Sprintf("%s\x00%d\x00%s", documentID, seq, snapshotHash)
	return hashWithDomain(DomainCommit, []byte(data))
}
