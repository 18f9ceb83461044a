package blob

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewKey returns an object key for an uploaded attachment. The timestamp
// keeps bucket listings roughly chronological; the uuid removes the
// collision window between concurrent uploads within the same millisecond.
// Only the extension of the client-supplied name survives into the key, for
// content-type inference by downstream consumers.
func NewKey(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))

	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
}
