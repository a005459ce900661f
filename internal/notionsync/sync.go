// Package notionsync mirrors a user's savings goals onto a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/jomei/notionapi"
)

// SyncReport counts what a sync did, or would do in dry-run mode.
type SyncReport struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// SyncGoals makes the Notion database match goals. Pages are matched on the
// Goal ID property: matched pages are updated, missing goals get new pages,
// and pages with no or unknown Goal ID are archived. Individual page failures
// are logged and counted; only a failed database query aborts the sync.
func SyncGoals(ctx context.Context, notionClient NotionService, databaseID string, goals []domain.Goal, dryRun bool) (*SyncReport, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Int("goal_count", len(goals)).
		Bool("dry_run", dryRun).
		Msg("Starting goal sync to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return nil, fmt.Errorf("SyncGoals: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	valid := make(map[string]bool, len(goals))
	for _, g := range goals {
		valid[g.ID] = true
	}

	report := &SyncReport{}
	pageFor := make(map[string]string, len(pages))
	for _, page := range pages {
		goalID := extractGoalID(page)
		pageID := string(page.ID)

		// Duplicate pages for one goal are stale too.
		if goalID != "" && valid[goalID] && pageFor[goalID] == "" {
			pageFor[goalID] = pageID
			continue
		}

		plog := log.With().Str("goal_id", goalID).Str("page_id", pageID).Logger()
		if dryRun {
			plog.Info().Msg("[DRY RUN] Would archive stale Notion page")
			report.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, pageID); err != nil {
			plog.Warn().Err(err).Msg("Failed to archive stale Notion page")
			report.Failed++
			continue
		}
		plog.Info().Msg("Archived stale Notion page")
		report.Archived++
	}

	for _, g := range goals {
		glog := log.With().Str("goal_id", g.ID).Str("goal", g.Name).Logger()
		props := GoalToNotionProperties(g)

		if pageID, ok := pageFor[g.ID]; ok {
			if dryRun {
				glog.Info().Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				report.Updated++
				continue
			}
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				glog.Warn().Err(err).Str("page_id", pageID).Msg("Failed to update Notion page")
				report.Failed++
				continue
			}
			glog.Debug().Str("page_id", pageID).Msg("Updated Notion page")
			report.Updated++
			continue
		}

		if dryRun {
			glog.Info().Msg("[DRY RUN] Would create Notion page")
			report.Created++
			continue
		}
		page, err := notionClient.CreatePage(ctx, databaseID, props)
		if err != nil {
			glog.Warn().Err(err).Msg("Failed to create Notion page")
			report.Failed++
			continue
		}
		glog.Info().Str("page_id", string(page.ID)).Msg("Created Notion page")
		report.Created++
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("archived", report.Archived).
		Int("failed", report.Failed).
		Msg("Goal sync completed")

	return report, nil
}

// queryAllNotionPages follows the query cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
