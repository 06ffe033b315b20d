package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/vessel/config"
	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

// resetFlags restores every flag to its default so runs do not leak into each other
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	runtimeCfg = nil
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGFILE", filepath.Join(dir, "vessel.log"))
	cfgPath := filepath.Join(dir, "absent.ini")
	ledgerPath := filepath.Join(dir, "ledger.json")
	common := []string{"--config", cfgPath, "--ledger", ledgerPath}

	require.NoError(t, run(t, append(common, "append", "--text", "genesis")...))
	require.NoError(t, run(t, append(common, "append", "--text", "second")...))
	require.NoError(t, run(t, append(common, "verify")...))
	require.NoError(t, run(t, append(common, "show", "--json")...))

	pngPath := filepath.Join(dir, "out", "ledger.png")
	require.NoError(t, run(t, append(common, "export", "--size", "64", "--out", pngPath)...))
	require.NoError(t, run(t, append(common, "verify", "--image", pngPath, "--digest")...))

	s := store.NewJSONFileStore(ledgerPath)
	blocks, err := s.Load()
	require.NoError(t, err)
	digest, err := ledger.DigestBlocks(blocks)
	require.NoError(t, err)
	require.NoError(t, run(t, append(common, "digest", "--image", pngPath, "--expect", digest)...))
	assert.Error(t, run(t, append(common, "digest", "--expect", ledger.GenesisPrevHash)...))

	otherPath := filepath.Join(dir, "other.json")
	require.NoError(t, run(t, "--config", cfgPath, "--ledger", otherPath, "import", pngPath, "--mode", "replace"))
	imported, err := store.NewJSONFileStore(otherPath).Load()
	require.NoError(t, err)
	assert.Equal(t, blocks, imported)

	extracted := filepath.Join(dir, "extracted.json")
	require.NoError(t, run(t, append(common, "extract", pngPath, "--out", extracted)...))
	fromFile, err := store.NewJSONFileStore(extracted).Load()
	require.NoError(t, err)
	assert.Equal(t, blocks, fromFile)
}

func TestVerifyAndRehashCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGFILE", filepath.Join(dir, "vessel.log"))
	ledgerPath := filepath.Join(dir, "ledger.json")
	common := []string{"--config", filepath.Join(dir, "absent.ini"), "--ledger", ledgerPath}

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, run(t, append(common, "append", "--text", text)...))
	}

	s := store.NewJSONFileStore(ledgerPath)
	blocks, err := s.Load()
	require.NoError(t, err)
	blocks[1].Payload = ledger.Text("edited")
	require.NoError(t, s.Save(blocks))

	err = run(t, append(common, "verify")...)
	assert.True(t, ledgererr.Is(err, ledgererr.ErrCodeChainInvalid))

	assert.Error(t, run(t, append(common, "rehash", "--dry-run", "--fail-on-drift")...))
	require.NoError(t, run(t, append(common, "rehash")...))
	require.NoError(t, run(t, append(common, "verify")...))
}

func TestEmbedAndReveal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGFILE", filepath.Join(dir, "vessel.log"))
	cfgPath := filepath.Join(dir, "absent.ini")

	first := filepath.Join(dir, "chapter1.json")
	second := filepath.Join(dir, "chapter2.json")
	require.NoError(t, os.WriteFile(first, []byte(`{"chapter":1}`), 0644))
	require.NoError(t, os.WriteFile(second, []byte(`{"chapter":2,"title":"tide"}`), 0644))

	artifacts := filepath.Join(dir, "artifacts")
	require.NoError(t, run(t, "--config", cfgPath, "embed", first, second, "--out-dir", artifacts, "--workers", "2"))

	revealed := filepath.Join(dir, "revealed")
	require.NoError(t, run(t, "--config", cfgPath, "reveal",
		filepath.Join(artifacts, "chapter1.json.png"),
		filepath.Join(artifacts, "chapter2.json.png"),
		"--out-dir", revealed))

	data, err := os.ReadFile(filepath.Join(revealed, "chapter2.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"chapter":2,"title":"tide"}`, string(data))
}

func TestEmbedRejectsCollidingNames(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGFILE", filepath.Join(dir, "vessel.log"))
	cfgPath := filepath.Join(dir, "absent.ini")

	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, "notes.txt"), []byte(sub), 0644))
	}

	artifacts := filepath.Join(dir, "artifacts")
	err := run(t, "--config", cfgPath, "embed",
		filepath.Join(dir, "a", "notes.txt"), filepath.Join(dir, "b", "notes.txt"),
		"--out-dir", artifacts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt.png")
	assert.NoFileExists(t, filepath.Join(artifacts, "notes.txt.png"))

	outputs, err := outputPaths([]string{"x/one.png", "y/two.png"}, "out", "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("out", "one"), filepath.Join("out", "two")}, outputs)

	_, err = outputPaths([]string{"x/one.png", "y/one.png"}, "out", "")
	assert.Error(t, err)
}

func TestReadRecord(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "memory.yml")
	require.NoError(t, os.WriteFile(yml, []byte("speaker: ada\nturn: 3\ntags: [calm, tide]\nnested:\n  ok: true\n"), 0644))
	p, err := readRecord(yml)
	require.NoError(t, err)
	assert.Equal(t, ledger.PayloadRecord, p.Kind)
	assert.Equal(t, `{"nested":{"ok":true},"speaker":"ada","tags":["calm","tide"],"turn":3}`, p.String())

	js := filepath.Join(dir, "memory.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"turn":3,"nested":{"ok":true},"speaker":"ada","tags":["calm","tide"]}`), 0644))
	q, err := readRecord(js)
	require.NoError(t, err)
	assert.True(t, p.Equal(q))

	require.NoError(t, os.WriteFile(js, []byte(`[1,2]`), 0644))
	_, err = readRecord(js)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	blocks := make([]ledger.Block, 5)
	for i := range blocks {
		blocks[i].Index = uint64(i)
	}
	assert.Len(t, window(blocks, 0, 0), 5)
	assert.Len(t, window(blocks, 3, 0), 2)
	assert.Len(t, window(blocks, 1, 2), 2)
	assert.Empty(t, window(blocks, 9, 0))

	assert.Equal(t, "chapter", artifactName("/tmp/chapter.png"))
	assert.Equal(t, "notes.txt", artifactName("notes.txt"))

	cfg := &config.Config{Ledger: *config.DefaultLedgerConfig(), Stego: *config.DefaultStegoConfig()}
	cfg.Stego.MinSide = 48
	cfg.Stego.Fill = "200,10,10"
	globalOpts = cliOptions{backend: "bolt", ledgerPath: "ledger.db"}
	defer func() { globalOpts = cliOptions{} }()
	sc, err := storeConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, store.BoltStoreType, sc.Type)
	assert.Equal(t, "ledger.db", sc.Path)
	require.NotNil(t, sc.Export)
	assert.Equal(t, 48, sc.Export.MinSide)
	assert.Equal(t, uint8(200), sc.Export.Fill.R)

	cfg.Stego.Fill = "red"
	_, err = storeConfig(cfg)
	assert.Error(t, err)
}
