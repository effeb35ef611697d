package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { _ = Setup("info", "text", nil) })

	var buf bytes.Buffer
	require.NoError(t, Setup("debug", "json", &buf))
	logrus.WithField("beacon", "GO_500").Debug("point skipped")

	assert.Contains(t, buf.String(), `"beacon":"GO_500"`)
	assert.Contains(t, buf.String(), `"msg":"point skipped"`)

	assert.Error(t, Setup("loud", "text", &buf))
	assert.Error(t, Setup("info", "xml", &buf))
}

func TestOpenFile(t *testing.T) {
	w, err := OpenFile("")
	require.NoError(t, err)
	_, err = w.Write([]byte("dropped"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	w, err = OpenFile(filepath.Join(t.TempDir(), "heatmap.log"))
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
