package storage

import "tixel/internal/ports"

// Provider is the storage contract shared by the API and the worker.
// It aliases ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
