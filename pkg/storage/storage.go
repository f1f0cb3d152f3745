package storage

import "errors"

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// ReaderWriter is the minimal object-store surface shared by the storage
// proxy client and the response offload store.
type ReaderWriter interface {
	Write(key string, data []byte) error
	Read(key string) ([]byte, error)
	Delete(key string) error
	List(prefix string) ([]ObjectInfo, error)
}
