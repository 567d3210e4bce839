// Package storage writes downloaded images into the output directory.
//
// The Manager type handles:
//   - Creating the output directory
//   - Naming files as {name}_{asset segment}
//   - Detecting files that are already on disk, backed by a bounded LRU cache
//   - Streaming image bodies to disk in large chunks through a temporary file
//
// Usage:
//
//	manager, err := storage.NewManager("wallpapers", storage.DefaultCacheSize)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fileName := storage.FileName("Spiderman", "https://images.example/101.jpg")
//	if !manager.Exists(fileName) {
//	    path, err := manager.Save(body, fileName)
//	    ...
//	}
package storage
