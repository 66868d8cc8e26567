package notion

import (
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the ledger database.
const (
	PropDescription   = "Description"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropTransactionID = "Transaction ID"
)

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// TransactionToNotionProperties converts a ledger entry to page properties.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	date := notionapi.Date(tx.Date)

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &date,
			},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
	}

	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category,
			},
		}
	}

	return props
}

// extractTransactionID reads the Transaction ID property of a queried page.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
