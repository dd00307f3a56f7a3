package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileRepo struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (f *fakeFileRepo) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.contentType, f.data = key, contentType, data
	return "http://s3.local/exports/" + key, nil
}

func TestExportService_Export(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")
	ctx := context.Background()

	active := input("Lucia", "Fernandez", "30111222")
	active.EndDate = "2024-06-01"
	_, err := svc.Add(ctx, active)
	require.NoError(t, err)

	expired := input("Ana", "Lucero", "40123123")
	expired.StartDate = "2024-01-01"
	expired.EndDate = "2024-01-31"
	_, err = svc.Add(ctx, expired)
	require.NoError(t, err)

	files := &fakeFileRepo{}
	export, err := NewExportService(svc, files).Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, export.Rows)
	assert.True(t, strings.HasPrefix(export.Key, "exports/members-"))
	assert.Equal(t, "text/csv", files.contentType)

	lines := strings.Split(strings.TrimSpace(string(files.data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,first_name,last_name,national_id,discipline,start_date,end_date,status,days_remaining", lines[0])
	// expired members come first in display order
	assert.Contains(t, lines[1], "Lucero")
	assert.True(t, strings.HasSuffix(lines[1], ",expired,-39"))
	assert.Contains(t, lines[2], ",active,")
}

func TestExportService_Unavailable(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")

	_, err := NewExportService(svc, nil).Export(context.Background())
	assert.ErrorIs(t, err, ErrExportUnavailable)
}

func TestExportService_UploadFailure(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")

	_, err := NewExportService(svc, &fakeFileRepo{err: errors.New("bucket gone")}).Export(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersist)
}
