package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingBeforeInitIsNoop(t *testing.T) {
	if vesselMetrics != nil {
		t.Skip("metrics already initialised")
	}
	assert.NotPanics(t, func() {
		SetChainLength(3)
		IncreaseAppendedBlocks()
		RecordOperationError(OpAppend, "")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	InitMetrics()
	InitMetrics()

	SetChainLength(7)
	IncreaseAppendedBlocks()
	RecordVerifyFailure("hash")
	AddDriftedBlocks(2)
	RecordOperationError(OpImport, "import_conflict")
	RecordOperationDuration(OpVerify, 15*time.Millisecond)
	RecordEmbeddedBytes(1024)
	RecordExtractedBytes(1024)

	router := mux.NewRouter()
	RegisterMetrics(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "vessel_chain_length 7")
	assert.Contains(t, text, `vessel_verify_failures_total{reason="hash"} 1`)
	assert.Contains(t, text, `vessel_operation_errors_total{code="import_conflict",operation="import"} 1`)
	assert.Contains(t, text, "vessel_rehash_drifted_blocks_total 2")
}
