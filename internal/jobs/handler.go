package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/gcs"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/pipeline"
)

// Importer ingests a CSV statement for a user. pipeline.Service implements it.
type Importer interface {
	ImportCSV(ctx context.Context, user auth.User, r io.Reader, contribute bool) (*pipeline.BatchReport, error)
}

// NewImportHandler returns a JobHandler that runs ImportJobs through importer.
// Statements are read from the job payload, or from source when the job
// names a location.
func NewImportHandler(importer Importer, source gcs.StatementSource) JobHandler {
	return func(ctx context.Context, imp *ImportJob) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", imp.JobID).
			Str("user_id", imp.UserID).
			Logger()
		ctx = logger.WithContext(ctx, log)

		var r io.Reader
		switch {
		case len(imp.Payload) > 0:
			r = bytes.NewReader(imp.Payload)
		case imp.Source != "" && source != nil:
			log.Debug().Str("file", gcs.FilenameFromURI(imp.Source)).Msg("Opening statement")
			rc, err := source.OpenStatement(ctx, imp.Source)
			if err != nil {
				return err
			}
			defer rc.Close()
			r = rc
		default:
			return fmt.Errorf("job has no statement to import")
		}

		user := auth.User{UID: imp.UserID, DisplayName: imp.DisplayName}
		report, err := importer.ImportCSV(ctx, user, r, imp.Contribute)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("job has no signed-in user")
		}

		imp.Imported = report.Imported
		imp.Allocated = report.Allocated
		imp.Skipped = report.Skipped
		imp.RowErrors = imp.RowErrors[:0]
		for _, rowErr := range report.Errors {
			imp.RowErrors = append(imp.RowErrors, rowErr.Error())
		}

		log.Info().
			Int("imported", imp.Imported).
			Int("allocated", imp.Allocated).
			Int("skipped", imp.Skipped).
			Int("row_errors", len(imp.RowErrors)).
			Msg("Statement import finished")
		return nil
	}
}
