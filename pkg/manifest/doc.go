// Package manifest saves and loads the file name -> link map of a download run.
//
// A manifest is a small JSON document:
//
//	{
//	  "keyword": "ironman",
//	  "target_dir": "wallpapers/ironman",
//	  "run_id": "6f1c...",
//	  "images": {"Iron Man": "https://images.example/123.jpg"},
//	  "created_at": "2026-10-19T08:00:00Z",
//	  "version": 1
//	}
//
// Files are replaced atomically: the manifest is written to a temporary file
// in the same directory, synced, then renamed over the old one.
package manifest
