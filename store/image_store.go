package store

import (
	"image"
	"os"

	"github.com/pkg/errors"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/stego"
)

// ImageStore keeps the chain embedded in a PNG. Saving re-embeds into the
// configured cover, else into the current image, else into a generated cover.
type ImageStore struct {
	path      string
	coverPath string
	opts      exchange.ExportOptions
	lock      *JSONFileStore
}

// NewImageStore creates an image-backed store at path
func NewImageStore(path, coverPath string, opts exchange.ExportOptions) *ImageStore {
	return &ImageStore{
		path:      path,
		coverPath: coverPath,
		opts:      opts,
		lock:      NewJSONFileStore(path),
	}
}

// Load extracts the chain from the image; a missing image is an empty ledger.
// A chain that fails verification is still returned so it can be inspected
// and repaired.
func (s *ImageStore) Load() ([]ledger.Block, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return []ledger.Block{}, nil
	}
	res, err := exchange.ImportFile(s.path)
	if err != nil {
		return nil, err
	}
	if !res.Validation.Valid {
		logx.Warn("STORE", "Image ledger ", s.path, " fails verification at block ", res.Validation.FirstInvalid, ": ", res.Validation.Reason)
	}
	return res.Blocks, nil
}

// Save embeds blocks and writes the image atomically
func (s *ImageStore) Save(blocks []ledger.Block) error {
	cover, err := s.cover()
	if err != nil {
		return err
	}

	out, err := exchange.ExportLedger(blocks, cover, s.opts)
	if ledgererr.Is(err, ledgererr.ErrCodeCapacity) && cover != nil && s.coverPath == "" {
		logx.Info("STORE", "Existing image too small, generating a new cover")
		out, err = exchange.ExportLedger(blocks, nil, s.opts)
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(stego.SavePNG(s.path, out), "save %s", s.path)
}

func (s *ImageStore) cover() (image.Image, error) {
	path := s.coverPath
	if path == "" {
		if _, err := os.Stat(s.path); err != nil {
			return nil, nil
		}
		path = s.path
	}
	img, err := stego.LoadPNG(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load cover %s", path)
	}
	return img, nil
}

// Lock takes the advisory lock next to the image
func (s *ImageStore) Lock() error {
	return s.lock.Lock()
}

// Unlock releases the advisory lock
func (s *ImageStore) Unlock() error {
	return s.lock.Unlock()
}

// Close releases the lock if still held
func (s *ImageStore) Close() error {
	return s.lock.Close()
}
