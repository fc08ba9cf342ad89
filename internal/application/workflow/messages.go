package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/domain/subscription"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/telegram"
)

func paymentPendingMessage(sub subscription.Subscription, baseURL string) string {
	var b strings.Builder
	b.WriteString("💳 <b>New payment pending review</b>\n\n")
	fmt.Fprintf(&b, "👤 User: <b>%s</b>\n", telegram.EscapeHTML(displayUser(sub.Username, sub.UserID)))
	if sub.PlanName != "" {
		fmt.Fprintf(&b, "📦 Plan: %s\n", telegram.EscapeHTML(sub.PlanName))
	}
	fmt.Fprintf(&b, "📅 Duration: %d days\n", sub.DurationDays)
	if sub.Price > 0 {
		fmt.Fprintf(&b, "💰 Price: %.2f %s\n", sub.Price, telegram.EscapeHTML(sub.Currency))
	}
	fmt.Fprintf(&b, "🕐 Submitted: %s", sub.SubmittedAt.UTC().Format("2006-01-02 15:04"))
	if link := dashboardLink(baseURL, "payments"); link != "" {
		b.WriteString("\n\n" + link)
	}
	return b.String()
}

func paymentResolvedMessage(sub subscription.Subscription, approved bool, adminName string) string {
	user := telegram.EscapeHTML(displayUser(sub.Username, sub.UserID))
	admin := telegram.EscapeHTML(adminName)
	if approved {
		end := ""
		if sub.EndDate != nil {
			end = sub.EndDate.UTC().Format(time.DateOnly)
		}
		return fmt.Sprintf("✅ <b>Payment approved</b>\n\n👤 %s\n📅 Valid until: %s\n👮 Approved by %s", user, end, admin)
	}
	return fmt.Sprintf("❌ <b>Payment rejected</b>\n\n👤 %s\n👮 Rejected by %s", user, admin)
}

func mediaPendingMessage(req mediarequest.MediaRequest, baseURL string) string {
	var b strings.Builder
	icon := "🎬"
	if req.MediaType == mediarequest.TypeTV {
		icon = "📺"
	}
	fmt.Fprintf(&b, "%s <b>New media request</b>\n\n", icon)
	fmt.Fprintf(&b, "🎞 <b>%s</b>\n", telegram.EscapeHTML(req.DisplayTitle()))
	fmt.Fprintf(&b, "👤 Requested by: %s\n", telegram.EscapeHTML(displayUser(req.Username, req.UserID)))
	if req.ReleaseStatus != "" {
		fmt.Fprintf(&b, "📡 Release: %s\n", telegram.EscapeHTML(req.ReleaseStatus))
	}
	if req.Overview != "" {
		fmt.Fprintf(&b, "\n%s", telegram.EscapeHTML(truncate(req.Overview, 300)))
	}
	if link := dashboardLink(baseURL, "requests"); link != "" {
		b.WriteString("\n\n" + link)
	}
	return b.String()
}

func mediaResolvedMessage(req mediarequest.MediaRequest, approved bool, adminName string) string {
	title := telegram.EscapeHTML(req.DisplayTitle())
	admin := telegram.EscapeHTML(adminName)
	if approved {
		return fmt.Sprintf("✅ <b>Request approved</b>\n\n🎞 %s\n👮 Approved by %s", title, admin)
	}
	return fmt.Sprintf("❌ <b>Request rejected</b>\n\n🎞 %s\n👮 Rejected by %s", title, admin)
}

func expiredMessage(sub subscription.Subscription) string {
	end := ""
	if sub.EndDate != nil {
		end = sub.EndDate.UTC().Format(time.DateOnly)
	}
	return fmt.Sprintf("⏰ <b>Subscription expired</b>\n\n👤 %s\n📅 Ended: %s",
		telegram.EscapeHTML(displayUser(sub.Username, sub.UserID)), end)
}

func approveRejectKeyboard(approve, reject Command) *telegram.InlineKeyboardMarkup {
	return telegram.NewInlineKeyboard(
		telegram.NewInlineKeyboardRow(
			telegram.NewInlineKeyboardButton("✅ Approve", CallbackData(approve)),
			telegram.NewInlineKeyboardButton("❌ Reject", CallbackData(reject)),
		),
	)
}

func rootFolderKeyboard(requestID string, folders []string) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(folders))
	for i, folder := range folders {
		rows = append(rows, telegram.NewInlineKeyboardRow(
			telegram.NewInlineKeyboardButton("📁 "+folder, CallbackData(ChooseRootFolder{ID: requestID, Index: i})),
		))
	}
	return telegram.NewInlineKeyboard(rows...)
}

// dashboardLink builds a "review in dashboard" anchor when a public base URL
// is configured; empty otherwise.
func dashboardLink(baseURL, page string) string {
	if baseURL == "" {
		return ""
	}
	return fmt.Sprintf(`🔗 <a href="%s/%s">Open in dashboard</a>`, strings.TrimRight(baseURL, "/"), page)
}

func displayUser(username, userID string) string {
	if username != "" {
		return username
	}
	return userID
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
