package notionsync

import (
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the goal board database.
const (
	PropName        = "Name"
	PropGoalID      = "Goal ID"
	PropTarget      = "Target"
	PropPerPaycheck = "Per Paycheck"
	PropBalance     = "Balance"
	PropProgress    = "Progress"
	PropCreated     = "Created"
)

// GoalToNotionProperties converts a goal to board properties. Per Paycheck is
// left out when the stored amount is unreadable.
func GoalToNotionProperties(g domain.Goal) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: []notionapi.RichText{textOf(g.Name)},
		},
		PropGoalID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{textOf(g.ID)},
		},
		PropTarget:   notionapi.NumberProperty{Number: g.Total.InexactFloat64()},
		PropBalance:  notionapi.NumberProperty{Number: g.Balance.InexactFloat64()},
		PropProgress: notionapi.NumberProperty{Number: g.Progress().Round(4).InexactFloat64()},
	}

	if g.AmountPerPaycheck.Valid {
		props[PropPerPaycheck] = notionapi.NumberProperty{
			Number: g.AmountPerPaycheck.Decimal.InexactFloat64(),
		}
	}

	if !g.DateCreated.IsZero() {
		created := notionapi.Date(g.DateCreated)
		props[PropCreated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &created},
		}
	}

	return props
}

func textOf(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// extractGoalID reads the Goal ID property of a page. Returns "" when absent.
func extractGoalID(page notionapi.Page) string {
	prop, ok := page.Properties[PropGoalID]
	if !ok {
		return ""
	}
	richText, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(richText.RichText) == 0 {
		return ""
	}
	if richText.RichText[0].PlainText != "" {
		return richText.RichText[0].PlainText
	}
	if richText.RichText[0].Text != nil {
		return richText.RichText[0].Text.Content
	}
	return ""
}
