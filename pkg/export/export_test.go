package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Action", "Resource", "User"},
		Rows: []map[string]string{
			{"Action": "create", "Resource": "user", "User": "Budi"},
			{"Action": "update", "Resource": "user", "User": "Siti, Admin"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Action,Resource,User\ncreate,user,Budi\nupdate,user,\"Siti, Admin\"\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{}, "")
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exp := NewPDFExporter()
	exp.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	ds := sampleDataset()
	ds.Rows = append(ds.Rows, map[string]string{"Action": "delete", "Resource": "complaint", "User": "a very long name that will not fit inside a single table column at all"})

	out, err := exp.Render(ds, "Activity Log")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", exp.ContentType())
	assert.Equal(t, "pdf", exp.Extension())
}
