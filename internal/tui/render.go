package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/app"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/fetch"
)

const cardHeight = 5 // border + three lines

// View renders the screen.
func (m Model) View() string {
	styles := m.theme.Styles()

	top := []string{m.renderHeader(styles)}
	if m.view.Offline {
		top = append(top, styles.Banner.Width(m.width).
			Render("OFFLINE  showing what is loaded; press o to check again"))
	}
	if m.mode == ModeSearch {
		top = append(top, m.search.View())
	}

	bottom := []string{}
	if m.view.Message != "" {
		bottom = append(bottom, styles.DangerText.Render(truncate(m.view.Message, m.width-2))+
			styles.FaintText.Render("  esc to dismiss"))
	}
	bottom = append(bottom, m.renderCommandBar(styles))

	used := lipgloss.Height(strings.Join(top, "\n")) + lipgloss.Height(strings.Join(bottom, "\n"))
	bodyHeight := m.height - used
	if bodyHeight < cardHeight {
		bodyHeight = cardHeight
	}

	var body string
	switch m.mode {
	case ModeReviews:
		body = m.renderReviews(styles, bodyHeight)
	case ModeNotifications:
		body = m.renderNotifications(styles, bodyHeight)
	case ModeFavorites:
		body = m.renderFavorites(styles, bodyHeight)
	case ModeLogs:
		body = m.renderLogs(styles, bodyHeight)
	default:
		body = m.renderCatalog(styles, bodyHeight)
	}

	parts := append(top, body)
	parts = append(parts, bottom...)
	return strings.Join(parts, "\n")
}

// renderHeader renders the status line.
func (m Model) renderHeader(styles Styles) string {
	v := m.view
	sep := "  "
	parts := []string{styles.Logo.Render("catalog")}

	if v.Offline {
		parts = append(parts, styles.DangerText.Render("● OFFLINE"))
	} else {
		parts = append(parts, styles.SuccessText.Render("● ONLINE"))
	}

	parts = append(parts,
		styles.MutedText.Render("Category:")+" "+styles.Text.Render(v.Filter.Committed.Category),
		styles.MutedText.Render("Sort:")+" "+styles.Text.Render(v.Filter.Committed.Sort.Label()),
	)
	if q := v.Filter.Committed.Search; q != "" {
		parts = append(parts, styles.AccentText.Render("/"+truncate(q, 24)))
	}
	if v.Filter.Pending {
		parts = append(parts, styles.FaintText.Render("typing"))
	}
	if v.Stats.TotalProducts > 0 {
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("%d products, %d reviews, avg %.1f",
			v.Stats.TotalProducts, v.Stats.TotalReviews, v.Stats.AverageRating)))
	}

	unread := styles.MutedText
	if v.Unread > 0 {
		unread = styles.WarningText
	}
	parts = append(parts,
		unread.Render(fmt.Sprintf("Inbox: %d", v.Unread)),
		styles.MutedText.Render(fmt.Sprintf("Favorites: %d", len(v.Favorites))),
	)

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderCommandBar renders the key hints for the current mode.
func (m Model) renderCommandBar(styles Styles) string {
	hints := m.keys.hints(m.mode)
	segments := make([]string, 0, len(hints)+1)
	for _, b := range hints {
		h := b.Help()
		segments = append(segments, styles.AccentText.Render(h.Key)+":"+styles.MutedText.Render(h.Desc))
	}
	segments = append(segments, styles.AccentText.Render("t")+":"+styles.FaintText.Render(m.theme.Name))
	return styles.Footer.Width(m.width).Render(strings.Join(segments, "  "))
}

func (m Model) renderCatalog(styles Styles, height int) string {
	v := m.view

	if v.ListStatus == fetch.LoadingReplace && (len(v.Products) == 0 || v.Stale) {
		return styles.InfoText.Render(m.spinner.View() + " Loading products")
	}
	if len(v.Products) == 0 {
		if v.ListErr != nil {
			return m.renderListError(styles, v.ListErr)
		}
		if v.Filter.Committed.Filtered() {
			return styles.MutedText.Render("No products match. Press r to reset filters.")
		}
		return styles.MutedText.Render("No products yet.")
	}

	cols := m.columns()
	cardWidth := m.width/cols - 1
	if cardWidth < 20 {
		cardWidth = 20
	}

	visibleRows := (height - 1) / cardHeight
	if visibleRows < 1 {
		visibleRows = 1
	}
	row := m.cursor / cols
	first := 0
	if row >= visibleRows {
		first = row - visibleRows + 1
	}

	var lines []string
	for r := first; r < first+visibleRows; r++ {
		start := r * cols
		if start >= len(v.Products) {
			break
		}
		end := min(start+cols, len(v.Products))
		cards := make([]string, 0, cols)
		for i := start; i < end; i++ {
			cards = append(cards, m.renderCard(styles, v.Products[i], cardWidth, i == m.cursor))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	lines = append(lines, m.renderListFooter(styles))
	return strings.Join(lines, "\n")
}

func (m Model) renderCard(styles Styles, p app.ProductRow, width int, selected bool) string {
	inner := width - 4
	heart := styles.FaintText.Render("♡")
	if p.Favorite {
		heart = styles.DangerText.Render("♥")
	}
	title := truncate(p.Name, inner-2) + " " + heart

	price := "no price"
	if p.Price != nil {
		price = fmt.Sprintf("$%.2f", *p.Price)
	}
	rating := "no reviews"
	if p.AverageRating != nil {
		rating = fmt.Sprintf("★ %.1f (%d)", *p.AverageRating, p.ReviewCount)
	}
	category := p.Category
	if category == "" && len(p.Categories) > 0 {
		category = p.Categories[0]
	}

	body := strings.Join([]string{
		styles.Text.Bold(true).Render(title),
		styles.AccentText.Render(price) + "  " + styles.WarningText.Render(rating),
		styles.FaintText.Render(truncate(category, inner)),
	}, "\n")

	style := styles.Card
	if selected {
		style = styles.SelectedCard
	}
	return style.Width(width - 2).Render(body)
}

// renderListFooter shows the append state below the loaded pages.
func (m Model) renderListFooter(styles Styles) string {
	v := m.view
	count := fmt.Sprintf("%d of %d", len(v.Products), v.Total)
	switch {
	case v.ListStatus == fetch.LoadingAppend:
		return styles.InfoText.Render(m.spinner.View() + " Loading more  " + count)
	case v.ListStatus == fetch.LoadingReplace:
		return styles.InfoText.Render(m.spinner.View() + " Refreshing  " + count)
	case v.ListErr != nil:
		return styles.DangerText.Render(errs.Message(v.ListErr)) + styles.FaintText.Render("  x to retry")
	case v.HasMore:
		return styles.MutedText.Render(count + "  n for more")
	default:
		return styles.FaintText.Render(count + "  end of list")
	}
}

func (m Model) renderListError(styles Styles, err error) string {
	return styles.DangerText.Render(errs.Message(err)) + "\n" +
		styles.MutedText.Render("Press x to retry or o to check the connection.")
}

func (m Model) renderReviews(styles Styles, height int) string {
	rv := m.view.Reviews
	title := "Reviews"
	for _, p := range m.view.Products {
		if p.ID == rv.ProductID {
			title = "Reviews for " + p.Name
			break
		}
	}
	if rv.Rating > 0 {
		title += fmt.Sprintf(" (%d★ only)", rv.Rating)
	}

	var lines []string
	switch {
	case rv.Status == fetch.LoadingReplace && len(rv.Items) == 0:
		lines = append(lines, styles.InfoText.Render(m.spinner.View()+" Loading reviews"))
	case rv.Err != nil && len(rv.Items) == 0:
		lines = append(lines, styles.DangerText.Render(errs.Message(rv.Err)))
	case len(rv.Items) == 0:
		lines = append(lines, styles.MutedText.Render("No reviews yet."))
	}

	first, shown := visible(rv.Items, m.panelCursor, (height-4)/3)
	for i, r := range shown {
		idx := first + i
		marker := "  "
		if idx == m.panelCursor {
			marker = styles.AccentText.Render("> ")
		}
		vote := styles.MutedText.Render(fmt.Sprintf("helpful %d", r.Helpful))
		if r.Voted {
			vote = styles.SuccessText.Render(fmt.Sprintf("helpful %d ✓", r.Helpful))
		}
		lines = append(lines,
			marker+styles.WarningText.Render(stars(r.Rating))+"  "+styles.Text.Bold(true).Render(r.ReviewerName)+
				"  "+styles.FaintText.Render(r.CreatedAt.Format("2006-01-02"))+"  "+vote,
			"  "+styles.Text.Render(truncate(r.Comment, m.width-8)),
			"",
		)
	}

	switch {
	case rv.Status == fetch.LoadingAppend:
		lines = append(lines, styles.InfoText.Render(m.spinner.View()+" Loading more reviews"))
	case rv.HasMore:
		lines = append(lines, styles.MutedText.Render(fmt.Sprintf("%d of %d  n for more", len(rv.Items), rv.Total)))
	}

	return m.renderPanel(styles, title, lines, height)
}

func (m Model) renderNotifications(styles Styles, height int) string {
	items := m.view.Notifications
	title := fmt.Sprintf("Inbox (%d unread)", m.view.Unread)

	var lines []string
	if len(items) == 0 {
		lines = append(lines, styles.MutedText.Render("Nothing here."))
	}
	first, shown := visible(items, m.panelCursor, (height-4)/2)
	for i, n := range shown {
		idx := first + i
		marker := "  "
		if idx == m.panelCursor {
			marker = styles.AccentText.Render("> ")
		}
		dot := styles.FaintText.Render("○")
		if !n.Read {
			dot = styles.WarningText.Render("●")
		}
		head := styles.Text.Bold(!n.Read).Render(n.Title)
		if n.IsLocal() {
			head += styles.FaintText.Render("  sending")
		}
		lines = append(lines,
			marker+dot+" "+head+"  "+styles.FaintText.Render(n.CreatedAt.Format("2006-01-02 15:04")),
			"    "+styles.MutedText.Render(truncate(n.Body, m.width-10)),
		)
	}
	return m.renderPanel(styles, title, lines, height)
}

func (m Model) renderFavorites(styles Styles, height int) string {
	items := m.view.Favorites
	title := fmt.Sprintf("Favorites (%d)", len(items))

	var lines []string
	if len(items) == 0 {
		lines = append(lines, styles.MutedText.Render("Press f on a product to keep it here."))
	}
	first, shown := visible(items, m.panelCursor, height-4)
	for i, f := range shown {
		idx := first + i
		marker := "  "
		if idx == m.panelCursor {
			marker = styles.AccentText.Render("> ")
		}
		price := ""
		if f.Price != nil {
			price = fmt.Sprintf("$%.2f", *f.Price)
		}
		lines = append(lines, marker+styles.DangerText.Render("♥ ")+styles.Text.Render(f.Name)+
			"  "+styles.AccentText.Render(price)+"  "+styles.FaintText.Render("added "+f.AddedAt.Format("2006-01-02")))
	}
	return m.renderPanel(styles, title, lines, height)
}

func (m Model) renderLogs(styles Styles, height int) string {
	title := "Session log"
	var lines []string
	switch {
	case m.logErr != nil:
		lines = append(lines, styles.DangerText.Render(m.logErr.Error()))
	case len(m.logs) == 0:
		lines = append(lines, styles.MutedText.Render("No log entries yet."))
	}

	first, shown := visible(m.logs, m.panelCursor, height-4)
	for i, e := range shown {
		marker := "  "
		if first+i == m.panelCursor {
			marker = styles.AccentText.Render("> ")
		}
		var b strings.Builder
		b.WriteString(marker)
		if !e.Time.IsZero() {
			b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")) + " ")
		}
		if e.Level != "" {
			b.WriteString(levelStyle(styles, e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))) + " ")
		}
		if e.Component != "" {
			b.WriteString(styles.InfoText.Render("["+e.Component+"]") + " ")
		}
		b.WriteString(styles.Text.Render(e.Message))
		for _, f := range e.Fields {
			b.WriteString(" " + styles.FaintText.Render(f.Key+"=") + styles.MutedText.Render(f.Value))
		}
		lines = append(lines, truncateStyled(b.String(), m.width-6))
	}
	return m.renderPanel(styles, title, lines, height)
}

func levelStyle(styles Styles, level string) lipgloss.Style {
	switch level {
	case "error":
		return styles.DangerText
	case "warn":
		return styles.WarningText.Bold(true)
	case "debug":
		return styles.InfoText
	default:
		return styles.SuccessText
	}
}

// truncateStyled cuts an already styled line to width cells.
func truncateStyled(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func (m Model) renderPanel(styles Styles, title string, lines []string, height int) string {
	content := styles.AccentText.Bold(true).Render(title) + "\n\n" + strings.Join(lines, "\n")
	return styles.Panel.Width(m.width - 2).Height(height - 2).Render(content)
}

// visible returns the window of at most size items that keeps cursor on
// screen, and the index of its first item.
func visible[T any](items []T, cursor, size int) (int, []T) {
	size = max(size, 1)
	first := 0
	if cursor >= size {
		first = cursor - size + 1
	}
	if first >= len(items) {
		return 0, nil
	}
	return first, items[first:min(first+size, len(items))]
}

func stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// truncate truncates a string to max runes with ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
