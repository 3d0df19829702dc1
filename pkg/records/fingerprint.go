package records

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a stable content hash of recs. Record order does not
// matter; keyword order inside a record does not matter either.
func Fingerprint(recs []ContentRecord) (string, error) {
	canonical := make([]ContentRecord, len(recs))
	for i, r := range recs {
		r.Keywords = r.NormalizedKeywords()
		r.PublishedAt = r.PublishedAt.UTC()
		canonical[i] = r
	}
	sort.SliceStable(canonical, func(i, j int) bool {
		if canonical[i].Kind != canonical[j].Kind {
			return canonical[i].Kind < canonical[j].Kind
		}
		return canonical[i].ID < canonical[j].ID
	})

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	if err := json.NewEncoder(h).Encode(canonical); err != nil {
		return "", fmt.Errorf("fingerprint: encode records: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
