package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/haivivi/geartap/pkg/storage"
)

// archivePrefix is where capture files land in the archive backend.
const archivePrefix = "captures"

// Archive uploads a finished session's capture file to fs and records
// the archive key on the session. It returns the key the file was
// stored under.
func Archive(ctx context.Context, s *Store, fs storage.FileStore, id string) (string, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.Active() {
		return "", fmt.Errorf("capture: session %s is still recording", id)
	}
	if sess.File == "" {
		return "", fmt.Errorf("capture: session %s has no capture file", id)
	}

	src, err := os.Open(sess.File)
	if err != nil {
		return "", fmt.Errorf("capture: open %s: %w", sess.File, err)
	}
	defer src.Close()

	key := path.Join(archivePrefix, sess.ID)
	w, err := fs.Write(ctx, key)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("capture: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("capture: upload %s: %w", key, err)
	}

	sess.ArchiveKey = key
	if err := s.Put(ctx, sess); err != nil {
		return "", err
	}
	return key, nil
}
