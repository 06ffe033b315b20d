package exchange

import (
	"image"
	"os"

	"github.com/pkg/errors"

	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/stego"
)

// ExportFile embeds blocks into the PNG at coverPath (or a generated cover when
// coverPath is empty) and writes the result to outPath.
func ExportFile(blocks []ledger.Block, coverPath, outPath string, opts ExportOptions) (image.Image, error) {
	var cover image.Image
	if coverPath != "" {
		img, err := stego.LoadPNG(coverPath)
		if err != nil {
			return nil, errors.Wrapf(err, "load cover %s", coverPath)
		}
		cover = img
	}

	out, err := ExportLedger(blocks, cover, opts)
	if err != nil {
		return nil, err
	}
	if err := stego.SavePNG(outPath, out); err != nil {
		return nil, errors.Wrapf(err, "save %s", outPath)
	}
	return out, nil
}

// ImportFile runs ImportLedger on the PNG at path
func ImportFile(path string) (ImportResult, error) {
	img, err := stego.LoadPNG(path)
	if err != nil {
		return ImportResult{}, errors.Wrapf(err, "load %s", path)
	}
	return ImportLedger(img)
}

// VerifyFile runs VerifyOnly on the PNG at path
func VerifyFile(path string, wantDigest bool) (Report, error) {
	img, err := stego.LoadPNG(path)
	if err != nil {
		return Report{}, errors.Wrapf(err, "load %s", path)
	}
	return VerifyOnly(img, wantDigest)
}

// ReadLedgerFile parses a JSON ledger file
func ReadLedgerFile(path string) ([]ledger.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read ledger %s", path)
	}
	return ledger.ParseLedger(data)
}
