// Package templates holds the templ components for the visualizer page.
// page_templ.go is generated from page.templ by `templ generate`.
package templates

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/vizboard/internal/core"
)

// PageParams is everything the full page needs.
type PageParams struct {
	View        core.View
	Alert       *core.UserMessage
	MaxFileSize int64
}

func panelID(index int) string {
	return fmt.Sprintf("panel-%d", index)
}

func panelAction(index int) string {
	return fmt.Sprintf("/panels/%d", index)
}

// chartURL includes the panel's selection so the browser refetches the image
// only when the chart can have changed.
func chartURL(datasetID string, pv core.PanelView) string {
	q := url.Values{}
	q.Set("d", datasetID)
	q.Set("k", pv.Kind.Slug())
	for i, c := range pv.Columns {
		q.Set("c"+strconv.Itoa(i), c)
	}
	return fmt.Sprintf("/panels/%d/chart.png?%s", pv.Index, q.Encode())
}

func listOrNone(cols []string) string {
	if len(cols) == 0 {
		return "none"
	}
	return strings.Join(cols, ", ")
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %cB", float64(n)/float64(div), "KMGT"[exp])
}
