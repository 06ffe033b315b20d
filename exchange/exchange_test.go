package exchange

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/stego"
)

func rgbCover(side int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func genesisLedger(t *testing.T) (*ledger.Ledger, ledger.Block, ledger.Block) {
	t.Helper()
	l := ledger.New()
	b0, err := l.Append(ledger.Text("genesis"))
	require.NoError(t, err)
	b1, err := l.Append(ledger.Text("second"))
	require.NoError(t, err)
	return l, b0, b1
}

func TestExportImportEndToEnd(t *testing.T) {
	l, b0, b1 := genesisLedger(t)
	assert.Equal(t, b0.Hash, b1.PrevHash)

	img, err := ExportLedger(l.Blocks(), rgbCover(64), DefaultExportOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	res, err := ImportLedger(img)
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid)
	assert.Equal(t, int64(-1), res.Validation.FirstInvalid)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, "second", res.Blocks[1].Payload.Text)
	assert.Equal(t, b0.Hash, res.Blocks[0].Hash)

	imported := ledger.FromBlocks(res.Blocks)
	assert.True(t, imported.Verify().Valid)
}

func TestExportGeneratesCover(t *testing.T) {
	l := ledger.New()
	_, err := l.Append(ledger.Text("g"))
	require.NoError(t, err)

	img, err := ExportLedger(l.Blocks(), nil, DefaultExportOptions())
	require.NoError(t, err)
	assert.Equal(t, stego.DefaultMinSide, img.Bounds().Dx())
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	for i := 0; i < 200; i++ {
		_, err := l.Append(ledger.Record(map[string]interface{}{"chapter": i, "summary": "a longer chapter summary line"}))
		require.NoError(t, err)
	}
	big, err := ExportLedger(l.Blocks(), nil, ExportOptions{})
	require.NoError(t, err)
	assert.Greater(t, big.Bounds().Dx(), stego.DefaultMinSide)

	res, err := ImportLedger(big)
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid)
	assert.Len(t, res.Blocks, 201)
}

func TestExportResizesCover(t *testing.T) {
	l, _, _ := genesisLedger(t)

	tiny := rgbCover(8)
	_, err := ExportLedger(l.Blocks(), tiny, DefaultExportOptions())
	assert.True(t, ledgererr.Is(err, ledgererr.ErrCodeCapacity))

	opts := DefaultExportOptions()
	opts.TargetSize = 64
	img, err := ExportLedger(l.Blocks(), tiny, opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	opts.TargetSize = 9
	_, err = ExportLedger(l.Blocks(), tiny, opts)
	assert.True(t, ledgererr.Is(err, ledgererr.ErrCodeCapacity))
}

func TestImportReportsBrokenChain(t *testing.T) {
	l, _, _ := genesisLedger(t)
	_, err := l.Append(ledger.Text("third"))
	require.NoError(t, err)

	blocks := l.Blocks()
	blocks[1].Payload = ledger.Text("rewritten")

	img, err := ExportLedger(blocks, rgbCover(64), DefaultExportOptions())
	require.NoError(t, err)

	res, err := ImportLedger(img)
	require.NoError(t, err)
	assert.False(t, res.Validation.Valid)
	assert.Equal(t, int64(1), res.Validation.FirstInvalid)
	assert.Len(t, res.Blocks, 3)

	report, err := VerifyOnly(img, false)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(1), report.FirstInvalid)
	assert.Empty(t, report.Digest)
}

func TestImportFailsOnCorruptedImage(t *testing.T) {
	l, _, _ := genesisLedger(t)
	img, err := ExportLedger(l.Blocks(), rgbCover(64), DefaultExportOptions())
	require.NoError(t, err)

	rgba := img.(*image.RGBA)
	// channel 40 sits in the payload region: pixel 13, green
	rgba.Pix[13*4+1] ^= 1

	_, err = ImportLedger(rgba)
	assert.True(t, ledgererr.Is(err, ledgererr.ErrCodeIntegrity))
	_, err = VerifyOnly(rgba, true)
	assert.True(t, ledgererr.Is(err, ledgererr.ErrCodeIntegrity))
}

func TestVerifyOnlyDigest(t *testing.T) {
	l, _, _ := genesisLedger(t)
	img, err := ExportLedger(l.Blocks(), nil, DefaultExportOptions())
	require.NoError(t, err)

	report, err := VerifyOnly(img, true)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Blocks)

	digest, err := l.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, report.Digest)

	canonical, err := l.Canonical()
	require.NoError(t, err)
	assert.Equal(t, len(canonical), report.PayloadBytes)
	assert.Equal(t, PayloadDigest(canonical), report.Digest)
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	l, _, _ := genesisLedger(t)

	coverPath := filepath.Join(dir, "cover.png")
	require.NoError(t, stego.SavePNG(coverPath, rgbCover(64)))
	outPath := filepath.Join(dir, "out", "ledger.png")

	_, err := ExportFile(l.Blocks(), coverPath, outPath, DefaultExportOptions())
	require.NoError(t, err)

	res, err := ImportFile(outPath)
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid)

	report, err := VerifyFile(outPath, true)
	require.NoError(t, err)
	assert.True(t, report.Valid)

	_, err = ImportFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	_, err = ExportFile(l.Blocks(), filepath.Join(dir, "nope.png"), outPath, DefaultExportOptions())
	assert.Error(t, err)
}

func TestTransparentCoverSurvivesPNGBytes(t *testing.T) {
	l, _, _ := genesisLedger(t)

	img, err := ExportLedger(l.Blocks(), image.NewRGBA(image.Rect(0, 0, 64, 64)), DefaultExportOptions())
	require.NoError(t, err)
	data, err := stego.EncodePNG(img)
	require.NoError(t, err)

	reloaded, err := stego.ReadPNG(bytes.NewReader(data))
	require.NoError(t, err)
	res, err := ImportLedger(reloaded)
	require.NoError(t, err)
	assert.True(t, res.Validation.Valid)
	assert.Len(t, res.Blocks, 2)
}
