// internal/monitor/report.go
package monitor

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"

	"github.com/rovshanmuradov/lp-yield/internal/types"
	"github.com/rovshanmuradov/lp-yield/internal/yield"
)

// Reporter writes one cycle's result somewhere.
type Reporter interface {
	Report(report types.CycleReport) error
}

// NewReporter returns the reporter for format ("text" or "json").
func NewReporter(format string, w io.Writer) (Reporter, error) {
	switch format {
	case "", "text":
		return NewTextReporter(w), nil
	case "json":
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format: %q", format)
	}
}

// TextReporter prints a styled block per cycle.
type TextReporter struct {
	mu    sync.Mutex
	w     io.Writer
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	na    lipgloss.Style
	fail  lipgloss.Style
}

// NewTextReporter styles output for the terminal behind w; plain text when w is not a terminal.
func NewTextReporter(w io.Writer) *TextReporter {
	r := lipgloss.NewRenderer(w)
	return &TextReporter{
		w:     w,
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00E5FF")),
		label: r.NewStyle().Width(20).Foreground(lipgloss.Color("#B4BCC8")),
		value: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2AFFAA")),
		na:    r.NewStyle().Foreground(lipgloss.Color("#FFB500")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}

func (t *TextReporter) Report(report types.CycleReport) error {
	var b strings.Builder

	b.WriteString(t.title.Render(report.Pair + ":"))
	b.WriteString(" ")
	b.WriteString(report.Time.Format(time.TimeOnly))
	b.WriteString("\n")

	rows := []struct {
		label string
		v     float64
	}{
		{"APY in LP Reward:", report.Yield.AnnualLPYield},
		{"APY in Farm Base:", report.Yield.AnnualFarmYield},
		{"Total APY:", report.Yield.TotalCompoundedYield},
	}
	for _, row := range rows {
		b.WriteString("  ")
		b.WriteString(t.label.Render(row.label))
		b.WriteString(t.percent(row.v))
		b.WriteString("\n")
	}

	for _, r := range []struct {
		name string
		r    types.Reading
	}{
		{"price", report.Snapshot.Price},
		{"base_volume", report.Snapshot.BaseVolume24h},
		{"liquidity", report.Snapshot.Liquidity},
	} {
		if !r.r.OK() {
			b.WriteString("  ")
			b.WriteString(t.fail.Render(fmt.Sprintf("fetch failed: %v", r.r.Err)))
			b.WriteString("\n")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextReporter) percent(fraction float64) string {
	if !yield.IsFinite(fraction) {
		return t.na.Render("n/a")
	}
	return t.value.Render(FormatPercent(fraction))
}

// FormatPercent renders a fraction as a percentage rounded to two decimals,
// with thousands separators.
func FormatPercent(fraction float64) string {
	pct := fraction * 100
	if rounded := math.Round(pct*100) / 100; yield.IsFinite(rounded) {
		pct = rounded
	}
	return humanize.CommafWithDigits(pct, 2) + " %"
}

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// jsonReport mirrors CycleReport. Non-finite numbers become null and failed
// readings are listed in Errors, so a fetched zero and a failed fetch differ.
type jsonReport struct {
	CycleID        string            `json:"cycle_id"`
	Pair           string            `json:"pair"`
	Time           time.Time         `json:"time"`
	Price          *float64          `json:"price"`
	BaseVolume     *float64          `json:"base_volume"`
	Liquidity      *float64          `json:"liquidity"`
	DailyLPYield   *float64          `json:"daily_lp_yield"`
	DailyFarmYield *float64          `json:"daily_farm_yield"`
	AnnualLPPct    *float64          `json:"lp_apy_pct"`
	AnnualFarmPct  *float64          `json:"farm_apy_pct"`
	TotalPct       *float64          `json:"total_apy_pct"`
	Errors         map[string]string `json:"errors,omitempty"`
}

func (j *JSONReporter) Report(report types.CycleReport) error {
	out := jsonReport{
		CycleID:        report.CycleID,
		Pair:           report.Pair,
		Time:           report.Time.UTC(),
		Price:          reading(report.Snapshot.Price),
		BaseVolume:     reading(report.Snapshot.BaseVolume24h),
		Liquidity:      reading(report.Snapshot.Liquidity),
		DailyLPYield:   finite(report.Yield.DailyLPYield),
		DailyFarmYield: finite(report.Yield.DailyFarmYield),
		AnnualLPPct:    finite(report.Yield.AnnualLPYield * 100),
		AnnualFarmPct:  finite(report.Yield.AnnualFarmYield * 100),
		TotalPct:       finite(report.Yield.TotalCompoundedYield * 100),
	}

	for name, r := range map[string]types.Reading{
		"price":       report.Snapshot.Price,
		"base_volume": report.Snapshot.BaseVolume24h,
		"liquidity":   report.Snapshot.Liquidity,
	} {
		if !r.OK() {
			if out.Errors == nil {
				out.Errors = make(map[string]string)
			}
			out.Errors[name] = r.Err.Error()
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(out)
}

func reading(r types.Reading) *float64 {
	if !r.OK() {
		return nil
	}
	return finite(r.Value)
}

func finite(v float64) *float64 {
	if !yield.IsFinite(v) {
		return nil
	}
	return &v
}
