// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dashboard

import "pinotboard/cli/internal/chart"

// Title is the page heading.
const Title = "Real-Time Page Visit Tracking Dashboard"

// NoDataText replaces a chart whose query returned nothing or failed.
const NoDataText = "No data available or unable to load data."

// Panel is one chart slot: a fixed query and the columns it is drawn from.
type Panel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	SQL   string `json:"sql"`
	X     string `json:"x"`
	Y     string `json:"y"`
	Color string `json:"color,omitempty"`
}

// Spec returns the chart selection for p.
func (p Panel) Spec() chart.Spec {
	return chart.Spec{Title: p.Title, X: p.X, Y: p.Y, Color: p.Color}
}

const (
	avgViewtimeSQL = `
        SELECT GENDER, SEGMENT, AVG(VIEWTIME) AS avg_viewtime
        FROM Aggregate5
        WHERE VIEWTIME IS NOT NULL 
        GROUP BY GENDER, SEGMENT
        ORDER BY avg_viewtime DESC;`

	topViewtimeSQL = `
        SELECT SEGMENT, SUM(VIEWTIME) AS total_viewtime
        FROM Aggregate5
        WHERE VIEWTIME IS NOT NULL
        GROUP BY SEGMENT
        ORDER BY total_viewtime DESC
        LIMIT 3;`

	ascViewtimeSQL = `
        SELECT SEGMENT, SUM(VIEWTIME) AS total_viewtime
        FROM Aggregate5
        GROUP BY SEGMENT
        ORDER BY total_viewtime ASC;`

	viewsSQL = `
        SELECT SEGMENT, GENDER, COUNT(*) AS total_views
        FROM Aggregate5
        GROUP BY SEGMENT, GENDER
        ORDER BY total_views DESC;`
)

// Panels returns the four dashboard panels in display order: the first two form
// the top row, the last two the bottom row.
func Panels() []Panel {
	return []Panel{
		{
			ID:    "avg-viewtime",
			Title: "Average Viewtime by Gender and Segment",
			SQL:   avgViewtimeSQL,
			X:     "SEGMENT",
			Y:     "avg_viewtime",
			Color: "GENDER",
		},
		{
			ID:    "top-viewtime",
			Title: "Total Viewtime by Segment (Top 3)",
			SQL:   topViewtimeSQL,
			X:     "SEGMENT",
			Y:     "total_viewtime",
		},
		{
			ID:    "asc-viewtime",
			Title: "Total Viewtime by Segment (Ascending Order)",
			SQL:   ascViewtimeSQL,
			X:     "SEGMENT",
			Y:     "total_viewtime",
		},
		{
			ID:    "views",
			Title: "Total Views by Segment and Gender",
			SQL:   viewsSQL,
			X:     "SEGMENT",
			Y:     "total_views",
			Color: "GENDER",
		},
	}
}
