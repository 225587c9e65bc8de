package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns "<prefix>_<uuid>".
func GenerateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
