package identity

import (
	"strconv"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must prefix keys by record kind so identifiers never collide.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// MappingUUID identifies a stored mapping row by its position and source path.
func MappingUUID(position int, sourcePath string) uuid.UUID {
	return UUID("cms-sync:mapping:" + strconv.Itoa(position) + ":" + strings.ToLower(strings.TrimSpace(sourcePath)))
}

// RunUUID identifies a stored sync run.
func RunUUID(runKey string) uuid.UUID {
	return UUID("cms-sync:run:" + strings.TrimSpace(runKey))
}

// RunResultUUID identifies one item result within a stored run.
func RunResultUUID(runID uuid.UUID, position int) uuid.UUID {
	return UUID("cms-sync:run_result:" + runID.String() + ":" + strconv.Itoa(position))
}

// NodeUUID identifies an in-memory remote node by its path.
func NodeUUID(path string) uuid.UUID {
	return UUID("cms-sync:node:" + strings.ToLower(strings.TrimSpace(path)))
}

// FormatGUID renders id in the braced upper-case form the authoring API uses.
func FormatGUID(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}
