package drive

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/service"
)

// IngestService imports order CSVs straight from a Drive folder into the
// store, so the shop's exported order files don't need manual re-uploading.
type IngestService struct {
	driveService *Service
	inventory    *service.InventoryService
}

func NewIngestService(driveService *Service, inventory *service.InventoryService) *IngestService {
	return &IngestService{
		driveService: driveService,
		inventory:    inventory,
	}
}

// IngestFile streams one Drive file through the order importer without
// touching local disk.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (*domain.ImportReport, error) {
	pr, pw := io.Pipe()
	go func() {
		err := s.driveService.DownloadFile(fileID, pw)
		pw.CloseWithError(err)
	}()

	return s.inventory.ImportOrders(ctx, pr)
}

// FileReport pairs one ingested Drive file with its import outcome.
type FileReport struct {
	FileID   string               `json:"file_id"`
	Name     string               `json:"name"`
	Report   *domain.ImportReport `json:"report,omitempty"`
	ErrorMsg string               `json:"error,omitempty"`
}

// IngestFolder imports every CSV in a Drive folder. A file that fails to
// parse is reported and the rest of the folder still imports.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) ([]FileReport, error) {
	files, err := s.driveService.ListFiles(folderID)
	if err != nil {
		return nil, err
	}

	var reports []FileReport
	for _, f := range files {
		select {
		case <-ctx.Done():
			return reports, ctx.Err()
		default:
		}

		if strings.ToLower(filepath.Ext(f.Name)) != ".csv" {
			continue
		}

		fr := FileReport{FileID: f.ID, Name: f.Name}
		report, err := s.IngestFile(ctx, f.ID)
		if err != nil {
			log.Error().Err(err).Str("file", f.Name).Msg("drive ingest failed")
			fr.ErrorMsg = err.Error()
		} else {
			fr.Report = report
		}
		reports = append(reports, fr)
	}

	return reports, nil
}
