// Package report renders optimization outcomes as charts, optionally
// snapshotted to PNG through headless Chrome.
package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"backtune/internal/runner"
	"backtune/internal/store"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground  = "#060c1b"
	colorTextPrimary = "#eceff4"
	colorScoreBar    = "#a78bfa"

	chartWidthPx  = 1400
	chartHeightPx = 520

	// curves beyond this are noise on one chart
	maxCurves = 12
)

var curveColors = []string{
	"#3b82f6", "#34d399", "#fbbf24", "#f472b6", "#22d3ee", "#fb7185",
	"#a78bfa", "#f97316", "#84cc16", "#e879f9", "#2dd4bf", "#f87171",
}

type ImageResult struct {
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

// JobReportInput carries everything needed to chart one finished job.
type JobReportInput struct {
	JobID   string
	Title   string
	Log     *runner.MetricLog
	Results []store.Result
}

// BuildHTML renders the job report page: the best runs' equity curves on
// one line chart plus a score bar per trial.
func BuildHTML(input JobReportInput) ([]byte, error) {
	if input.Log == nil {
		return nil, fmt.Errorf("report needs a metric log")
	}
	if len(input.Results) == 0 {
		return nil, fmt.Errorf("report for %s has no results", input.JobID)
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildEquityChart(input), buildScoreChart(input))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render report page: %w", err)
	}
	return buf.Bytes(), nil
}

func buildEquityChart(input JobReportInput) *charts.Line {
	title := input.Title
	if title == "" {
		title = fmt.Sprintf("Equity curves %s", input.JobID)
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	shown := input.Results
	if len(shown) > maxCurves {
		shown = shown[:maxCurves]
	}
	var axis []string
	for i, res := range shown {
		series := input.Log.Series(res.Name)
		if len(series) == 0 {
			continue
		}
		if axis == nil {
			axis = make([]string, 0, len(series))
			for _, p := range series {
				axis = append(axis, p.Time.UTC().Format("01-02 15:04"))
			}
			line.SetXAxis(axis)
		}
		data := make([]opts.LineData, 0, len(series))
		for _, p := range series {
			data = append(data, opts.LineData{Value: p.Value})
		}
		color := curveColors[i%len(curveColors)]
		line.AddSeries(res.Name, data, charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}))
	}
	return line
}

func buildScoreChart(input JobReportInput) *charts.Bar {
	sorted := make([]store.Result, len(input.Results))
	copy(sorted, input.Results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	names := make([]string, 0, len(sorted))
	data := make([]opts.BarData, 0, len(sorted))
	for _, r := range sorted {
		names = append(names, r.Name)
		data = append(data, opts.BarData{Value: r.Score})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Scores by trial", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(names)
	bar.AddSeries("score", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorScoreBar}))
	return bar
}

// RenderPNG builds the report page and screenshots it with headless Chrome.
func RenderPNG(ctx context.Context, input JobReportInput) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	html, err := BuildHTML(input)
	if err != nil {
		return ImageResult{}, err
	}
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, 2*chartHeightPx+120)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    fmt.Sprintf("%s_report.png", strings.ToLower(input.JobID)),
		Description: fmt.Sprintf("optimization report for job %s (%d trials)", input.JobID, len(input.Results)),
	}, nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a usable Chrome once per process.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
