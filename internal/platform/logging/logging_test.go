package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestError_WritesJSONLine(t *testing.T) {
	buf := capture(t)

	Error(Fields{Service: "sales-service", TxID: "tx-1", Step: "payment"}, errors.New("boom"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "error", got["level"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "tx-1", got["txid"])
	assert.NotEmpty(t, got["timestamp"])
	assert.NotContains(t, got, "business_entity_id")
}
