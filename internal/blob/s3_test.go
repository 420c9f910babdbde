package blob

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *S3Store {
	return NewS3Store(Options{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		Bucket:       "sharebox",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		UsePathStyle: true,
	}, nil)
}

func TestPresignUpload(t *testing.T) {
	s := newTestStore()

	raw, err := s.PresignUpload(context.Background(), "uploads/abc/report.pdf", "application/pdf", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/sharebox/uploads/abc/report.pdf", u.Path)

	q := u.Query()
	assert.Equal(t, "3600", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("X-Amz-SignedHeaders"), "content-type")
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
}

func TestPresignDownload(t *testing.T) {
	s := newTestStore()

	raw, err := s.PresignDownload(context.Background(), "uploads/abc/report.pdf", "report.pdf", 24*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "86400", q.Get("X-Amz-Expires"))
	assert.Equal(t, "attachment; filename=report.pdf", q.Get("response-content-disposition"))
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "attachment; filename=report.pdf"},
		{"my report.pdf", `attachment; filename="my report.pdf"`},
		{"résumé.pdf", "attachment; filename*=utf-8''r%C3%A9sum%C3%A9.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := ContentDisposition(tt.filename)
			if !strings.EqualFold(got, tt.want) {
				t.Errorf("ContentDisposition(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDeleteMany_Empty(t *testing.T) {
	s := newTestStore()
	assert.NoError(t, s.DeleteMany(context.Background(), nil))
}
