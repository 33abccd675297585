package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// objectKey returns a unique key under uploads/yyyy/mm/dd/. When name is
// given its base name ends the key so downloads keep a readable file name.
func objectKey(now time.Time, name string) string {
	key := fmt.Sprintf("uploads/%d/%02d/%02d/%v", now.Year(), now.Month(), now.Day(), uuid.New())
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return key
	}
	return key + "/" + base
}
