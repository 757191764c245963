package reliability

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryDumper(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	d, err := NewDirectoryDumper(dir, quietLogger())
	require.NoError(t, err)

	header := http.Header{"Content-Type": []string{"application/soap+xml"}}
	sink, err := d.OnBeginRequest(ModeRequest, "abc/123@go-as4", header, 2)
	require.NoError(t, err)
	_, err = sink.Write([]byte("<Envelope/>"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	d.OnEndRequest(ModeRequest, "abc/123@go-as4", errors.New("ignored"))

	name := d.FileName(ModeRequest, "abc/123@go-as4", 2)
	assert.Equal(t, filepath.Join(dir, "abc_123@go-as4-request-2.as4"), name)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Content-Type: application/soap+xml\r\n\r\n"))
	assert.True(t, strings.HasSuffix(string(data), "<Envelope/>"))
}

func TestMessageMode_String(t *testing.T) {
	assert.Equal(t, "request", ModeRequest.String())
	assert.Equal(t, "response", ModeResponse.String())
}
