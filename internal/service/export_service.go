package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/oklog/ulid/v2"
)

// ErrExportUnavailable is returned when no object storage is configured
var ErrExportUnavailable = errors.New("roster export storage is not configured")

var rosterHeader = []string{
	"id", "first_name", "last_name", "national_id", "discipline",
	"start_date", "end_date", "status", "days_remaining",
}

// ExportService renders the member roster as CSV and uploads it
type ExportService struct {
	members *MembershipService
	files   domain.FileRepository
}

// NewExportService creates the service. files may be nil, in which case
// Export returns ErrExportUnavailable.
func NewExportService(members *MembershipService, files domain.FileRepository) *ExportService {
	return &ExportService{members: members, files: files}
}

// Export uploads the roster in display order under exports/members-<ulid>.csv
func (s *ExportService) Export(ctx context.Context) (*domain.RosterExport, error) {
	if s.files == nil {
		return nil, ErrExportUnavailable
	}

	members, err := s.members.Members(ctx)
	if err != nil {
		return nil, err
	}
	today := s.members.Today()

	data, err := RenderRosterCSV(domain.SortForDisplay(members, today), today)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/members-%s.csv", ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
	url, err := s.files.Upload(ctx, data, key, "text/csv")
	if err != nil {
		return nil, domain.PersistError("upload roster", err)
	}

	return &domain.RosterExport{
		Key:         key,
		URL:         url,
		Rows:        len(members),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// RenderRosterCSV writes one row per member with its derived status
func RenderRosterCSV(members []*domain.Member, today time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(rosterHeader); err != nil {
		return nil, err
	}
	for _, m := range members {
		remaining := ""
		if d, ok := domain.DaysRemaining(m.EndDate, today); ok {
			remaining = strconv.Itoa(d)
		}
		row := []string{
			m.ID, m.FirstName, m.LastName, m.NationalID, string(m.Discipline),
			m.StartDate, m.EndDate, string(domain.DeriveStatus(m.EndDate, today)), remaining,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
