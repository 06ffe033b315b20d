package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/vessel/config"
	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/jsonx"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.JSONFileStore) {
	t.Helper()
	s := store.NewJSONFileStore(filepath.Join(t.TempDir(), "ledger.json"))
	srv := httptest.NewServer(NewAPIServer(s, exchange.DefaultExportOptions(), config.APIConfig{}).GetRouter())
	t.Cleanup(srv.Close)
	return srv, s
}

func post(t *testing.T, url, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestAppendAndRead(t *testing.T) {
	srv, s := newTestServer(t)

	resp, body := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"genesis"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var genesis ledger.Block
	require.NoError(t, genesis.UnmarshalJSON(body))
	assert.Equal(t, uint64(0), genesis.Index)
	assert.Equal(t, ledger.GenesisPrevHash, genesis.PrevHash)

	resp, body = post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":{"chapter":2,"mood":"calm"}}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = get(t, srv.URL+"/ledger")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blocks, err := ledger.ParseLedger(body)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, ledger.PayloadRecord, blocks[1].Payload.Kind)

	resp, body = get(t, srv.URL+"/ledger/blocks/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second ledger.Block
	require.NoError(t, second.UnmarshalJSON(body))
	assert.Equal(t, genesis.Hash, second.PrevHash)

	resp, _ = get(t, srv.URL+"/ledger/blocks/9")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, srv.URL+"/ledger/verify")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result ledger.ValidationResult
	require.NoError(t, jsonx.Unmarshal(body, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Length)
	assert.Equal(t, int64(-1), result.FirstInvalid)

	stored, err := s.Load()
	require.NoError(t, err)
	want, err := ledger.DigestBlocks(stored)
	require.NoError(t, err)

	resp, body = get(t, srv.URL+"/ledger/digest?base58=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var digest DigestResp
	require.NoError(t, jsonx.Unmarshal(body, &digest))
	assert.Equal(t, want, digest.Digest)
	assert.NotEmpty(t, digest.Base58)
	assert.Equal(t, 2, digest.Length)
}

func TestAppendRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":42}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var le ledgererr.LedgerError
	require.NoError(t, jsonx.Unmarshal(body, &le))
	assert.Equal(t, ledgererr.ErrCodeSerialization, le.Code)

	resp, _ = post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConcurrentAppendsAreSerialised(t *testing.T) {
	srv, s := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/ledger/blocks", "application/json",
				bytes.NewReader([]byte(fmt.Sprintf(`{"payload":"entry %d"}`, i))))
			if err == nil {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	blocks, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, blocks, 16)
	assert.True(t, ledger.VerifyBlocks(blocks).Valid)
}

func TestImportMergeAndConflict(t *testing.T) {
	srv, s := newTestServer(t)
	for _, text := range []string{"a", "b", "c"} {
		resp, _ := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"`+text+`"}`))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	local, err := s.Load()
	require.NoError(t, err)

	extended := ledger.FromBlocks(local)
	_, err = extended.Append(ledger.Text("d"))
	require.NoError(t, err)
	_, err = extended.Append(ledger.Text("e"))
	require.NoError(t, err)
	source, err := extended.Canonical()
	require.NoError(t, err)

	resp, body := post(t, srv.URL+"/ledger/import?mode=merge", "application/json", source)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var result ledger.ImportResult
	require.NoError(t, jsonx.Unmarshal(body, &result))
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 5, result.Length)

	forked := ledger.New()
	for _, text := range []string{"a", "x"} {
		_, err := forked.Append(ledger.Text(text))
		require.NoError(t, err)
	}
	conflict, err := forked.Canonical()
	require.NoError(t, err)

	resp, body = post(t, srv.URL+"/ledger/import", "application/json", conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	blocks, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, blocks, 5)

	resp, _ = post(t, srv.URL+"/ledger/import?mode=append", "application/json", conflict)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportVerifyAndImportImage(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, text := range []string{"genesis", "second"} {
		resp, _ := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"`+text+`"}`))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, png := get(t, srv.URL+"/ledger/export?size=64")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, body := post(t, srv.URL+"/stego/verify?digest=true", "image/png", png)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var report exchange.Report
	require.NoError(t, jsonx.Unmarshal(body, &report))
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Blocks)
	assert.Len(t, report.Digest, 64)

	other, otherStore := newTestServer(t)
	resp, body = post(t, other.URL+"/ledger/import?mode=replace", "image/png", png)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	blocks, err := otherStore.Load()
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "second", blocks[1].Payload.Text)

	resp, _ = post(t, srv.URL+"/stego/verify", "image/png", []byte("not a png"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/ledger/export?size=4")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRehashDryRunAndRepair(t *testing.T) {
	srv, s := newTestServer(t)
	for _, text := range []string{"a", "b", "c"} {
		resp, _ := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"`+text+`"}`))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	blocks, err := s.Load()
	require.NoError(t, err)
	blocks[1].Payload = ledger.Text("edited")
	require.NoError(t, s.Save(blocks))

	resp, body := post(t, srv.URL+"/ledger/rehash?dry_run=true", "application/json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result ledger.RehashResult
	require.NoError(t, jsonx.Unmarshal(body, &result))
	assert.True(t, result.DryRun)
	assert.Equal(t, []uint64{1, 2}, result.Drifted)

	stored, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ledger.VerifyBlocks(stored).Valid)

	resp, _ = post(t, srv.URL+"/ledger/rehash", "application/json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err = s.Load()
	require.NoError(t, err)
	assert.True(t, ledger.VerifyBlocks(stored).Valid)
	assert.Equal(t, "edited", stored[1].Payload.Text)
}

func TestWriteLimit(t *testing.T) {
	s := store.NewJSONFileStore(filepath.Join(t.TempDir(), "ledger.json"))
	srv := httptest.NewServer(NewAPIServer(s, exchange.DefaultExportOptions(), config.APIConfig{WriteLimit: 2}).GetRouter())
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp, _ := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"x"}`))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, _ := post(t, srv.URL+"/ledger/blocks", "application/json", []byte(`{"payload":"x"}`))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/ledger/verify")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
