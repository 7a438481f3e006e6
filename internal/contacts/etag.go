package contacts

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"
)

// ComputeETag fingerprints the contact content. Identity, bookkeeping and
// membership fields do not take part.
func ComputeETag(c *Contact) string {
	cp := *c
	cp.ID = 0
	cp.ETag = ""
	cp.DateModified = time.Time{}
	cp.GroupUUIDs = nil

	h := fnv.New64a()
	b, err := json.Marshal(&cp)
	if err != nil {
		// Properties are already valid JSON, so this cannot happen in practice.
		_, _ = fmt.Fprintf(h, "%+v", cp)
	} else {
		_, _ = h.Write(b)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
