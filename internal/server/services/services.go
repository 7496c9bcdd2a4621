// Package services implements the chat core's operations as explicit
// service-layer functions: validate, persist, then emit side effects, all
// inside one transaction per request. There are no hidden lifecycle hooks;
// every derived-state update (conversation pointers, system messages,
// permission recomputation) is spelled out here.
package services

import (
	"errors"

	"github.com/secrypt/secrypt/internal/chat"
)

// storageErr classifies an error crossing the repository boundary. Domain
// errors pass through; anything else becomes an opaque StorageError.
func storageErr(err error) error {
	var domainErr *chat.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return chat.NewStorage(err)
}
