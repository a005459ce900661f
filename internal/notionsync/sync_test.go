package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// MockNotionService is a mock implementation of NotionService.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc    func(ctx context.Context, pageID string) error

	created  []notionapi.Properties
	updated  []string
	archived []string
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.created = append(m.created, properties)
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: "new-page"}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.updated = append(m.updated, pageID)
	if m.UpdatePageFunc != nil {
		return m.UpdatePageFunc(ctx, pageID, properties)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, filter)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	if m.ArchivePageFunc != nil {
		return m.ArchivePageFunc(ctx, pageID)
	}
	return nil
}

func goalPage(pageID, goalID string) notionapi.Page {
	props := notionapi.Properties{}
	if goalID != "" {
		props[PropGoalID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: goalID}},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(pageID), Properties: props}
}

func testGoals() []domain.Goal {
	created := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	return []domain.Goal{
		{ID: "g1", Name: "Car", Total: decimal.NewFromInt(1000), AmountPerPaycheck: decimal.NewNullDecimal(decimal.NewFromInt(100)), Balance: decimal.NewFromInt(250), DateCreated: created},
		{ID: "g2", Name: "Trip", Total: decimal.NewFromInt(500), AmountPerPaycheck: decimal.NewNullDecimal(decimal.NewFromInt(50)), Balance: decimal.Zero, DateCreated: created},
	}
}

func TestSyncGoals(t *testing.T) {
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{
				goalPage("p1", "g1"),
				goalPage("p-dup", "g1"),
				goalPage("p-old", "deleted-goal"),
				goalPage("p-blank", ""),
			}}, nil
		},
	}

	report, err := SyncGoals(context.Background(), mock, "db", testGoals(), false)
	if err != nil {
		t.Fatalf("SyncGoals failed: %v", err)
	}

	if report.Created != 1 || report.Updated != 1 || report.Archived != 3 || report.Failed != 0 {
		t.Errorf("report = %+v, want 1 created, 1 updated, 3 archived", report)
	}
	if len(mock.updated) != 1 || mock.updated[0] != "p1" {
		t.Errorf("updated = %v, want [p1]", mock.updated)
	}
	if len(mock.created) != 1 {
		t.Fatalf("created %d pages, want 1", len(mock.created))
	}
	title, ok := mock.created[0][PropName].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Trip" {
		t.Errorf("created page title = %+v", mock.created[0][PropName])
	}
}

func TestSyncGoals_DryRun(t *testing.T) {
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{
				goalPage("p1", "g1"),
				goalPage("p-old", "gone"),
			}}, nil
		},
	}

	report, err := SyncGoals(context.Background(), mock, "db", testGoals(), true)
	if err != nil {
		t.Fatalf("SyncGoals failed: %v", err)
	}
	if report.Created != 1 || report.Updated != 1 || report.Archived != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(mock.created)+len(mock.updated)+len(mock.archived) != 0 {
		t.Error("dry run must not write to Notion")
	}
}

func TestSyncGoals_Pagination(t *testing.T) {
	calls := 0
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if filter.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{goalPage("p1", "g1")},
					HasMore:    true,
					NextCursor: "next",
				}, nil
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{goalPage("p2", "g2")}}, nil
		},
	}

	report, err := SyncGoals(context.Background(), mock, "db", testGoals(), false)
	if err != nil {
		t.Fatalf("SyncGoals failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("QueryDatabase called %d times, want 2", calls)
	}
	if report.Updated != 2 || report.Created != 0 {
		t.Errorf("report = %+v, want 2 updated", report)
	}
}

func TestSyncGoals_Errors(t *testing.T) {
	t.Run("query failure aborts", func(t *testing.T) {
		mock := &MockNotionService{
			QueryDatabaseFunc: func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
				return nil, errors.New("unauthorized")
			},
		}
		if _, err := SyncGoals(context.Background(), mock, "db", testGoals(), false); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("page failures are counted", func(t *testing.T) {
		mock := &MockNotionService{
			CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
				return nil, errors.New("rate limited")
			},
		}
		report, err := SyncGoals(context.Background(), mock, "db", testGoals(), false)
		if err != nil {
			t.Fatalf("SyncGoals failed: %v", err)
		}
		if report.Failed != 2 || report.Created != 0 {
			t.Errorf("report = %+v, want 2 failed", report)
		}
	})
}

func TestGoalToNotionProperties(t *testing.T) {
	g := testGoals()[0]
	props := GoalToNotionProperties(g)

	tests := []struct {
		prop string
		want float64
	}{
		{PropTarget, 1000},
		{PropBalance, 250},
		{PropPerPaycheck, 100},
		{PropProgress, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.prop, func(t *testing.T) {
			n, ok := props[tt.prop].(notionapi.NumberProperty)
			if !ok {
				t.Fatalf("%s is %T", tt.prop, props[tt.prop])
			}
			if n.Number != tt.want {
				t.Errorf("%s = %v, want %v", tt.prop, n.Number, tt.want)
			}
		})
	}

	if _, ok := props[PropCreated].(notionapi.DateProperty); !ok {
		t.Error("missing Created date")
	}

	g.AmountPerPaycheck = decimal.NullDecimal{}
	if _, ok := GoalToNotionProperties(g)[PropPerPaycheck]; ok {
		t.Error("unreadable per-paycheck amount must be omitted")
	}
}
