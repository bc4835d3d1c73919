// Package report renders backtest results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/sweep"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const labelWidth = 16

type row struct {
	label  string
	values []string
}

func signed(v decimal.Decimal, s string) string {
	switch {
	case v.IsPositive():
		return gainStyle.Render(s)
	case v.IsNegative():
		return lossStyle.Render(s)
	default:
		return valueStyle.Render(s)
	}
}

func usd(v decimal.Decimal) string     { return v.StringFixed(2) }
func percent(v decimal.Decimal) string { return v.StringFixed(2) + "%" }

// fraction renders a ratio such as a drawdown as a percentage.
func fraction(v decimal.Decimal) string {
	return percent(v.Mul(decimal.NewFromInt(100)))
}

func table(header []string, rows []row) string {
	var b strings.Builder
	if len(header) > 0 {
		b.WriteString(fmt.Sprintf("%-*s", labelWidth, ""))
		for _, h := range header {
			b.WriteString(labelStyle.Render(fmt.Sprintf("%18s", h)))
		}
		b.WriteString("\n")
	}
	for i, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, r.label)))
		for _, v := range r.values {
			b.WriteString(fmt.Sprintf("%18s", v))
		}
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func metricRows(m portfolio.Metrics) []row {
	return []row{
		{"Deposited", []string{usd(m.DepositedUSD)}},
		{"Balance", []string{usd(m.BalanceUSD)}},
		{"Asset value", []string{usd(m.AssetToUSD)}},
		{"Total", []string{usd(m.TotalUSD)}},
		{"Fees", []string{usd(m.FeesUSD)}},
		{"Profit", []string{signed(m.ProfitUSD, usd(m.ProfitUSD))}},
		{"Profit %", []string{signed(m.ProfitPercent, percent(m.ProfitPercent))}},
		{"Drawdown", []string{signed(m.Drawdown, fraction(m.Drawdown))}},
		{"Buys", []string{fmt.Sprint(m.BuyCount)}},
		{"Sells", []string{fmt.Sprint(m.SellCount)}},
		{"Average cost", []string{usd(m.AverageCost)}},
		{"Last price", []string{usd(m.ActualPrice)}},
	}
}

// Metrics writes the metrics of a single run.
func Metrics(w io.Writer, title string, m portfolio.Metrics) error {
	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+boxStyle.Render(table(nil, metricRows(m))))
	return err
}

func summaryRows(a, b sweep.Summary) []row {
	pair := func(label string, f func(sweep.Summary) decimal.Decimal, format func(decimal.Decimal) string, colored bool) row {
		va, vb := f(a), f(b)
		sa, sb := format(va), format(vb)
		if colored {
			sa, sb = signed(va, sa), signed(vb, sb)
		}
		return row{label, []string{sa, sb}}
	}

	return []row{
		pair("Deposited", func(s sweep.Summary) decimal.Decimal { return s.DepositedUSD }, usd, false),
		pair("Balance", func(s sweep.Summary) decimal.Decimal { return s.BalanceUSD }, usd, false),
		pair("Asset value", func(s sweep.Summary) decimal.Decimal { return s.AssetToUSD }, usd, false),
		pair("Total", func(s sweep.Summary) decimal.Decimal { return s.TotalUSD }, usd, false),
		pair("Fees", func(s sweep.Summary) decimal.Decimal { return s.FeesUSD }, usd, false),
		pair("Profit", func(s sweep.Summary) decimal.Decimal { return s.ProfitUSD }, usd, true),
		pair("Profit %", func(s sweep.Summary) decimal.Decimal { return s.ProfitPercent }, percent, true),
		pair("Drawdown", func(s sweep.Summary) decimal.Decimal { return s.Drawdown }, fraction, true),
		pair("Buys", func(s sweep.Summary) decimal.Decimal { return s.BuyCount }, usd, false),
		pair("Sells", func(s sweep.Summary) decimal.Decimal { return s.SellCount }, usd, false),
	}
}

// Comparison writes averaged baseline and challenger metrics side by side.
func Comparison(w io.Writer, cmp sweep.Comparison) error {
	title := fmt.Sprintf("%s vs %s, %d windows", cmp.BaselineName, cmp.ChallengerName, len(cmp.Windows))
	body := table([]string{cmp.BaselineName, cmp.ChallengerName}, summaryRows(cmp.Baseline, cmp.Challenger))

	diff := cmp.Challenger.ProfitUSD.Sub(cmp.Baseline.ProfitUSD)
	footer := fmt.Sprintf("%s profit difference: %s", cmp.ChallengerName, signed(diff, usd(diff)))

	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+boxStyle.Render(body)+"\n"+footer)
	return err
}

func sizing(p domain.SizingPolicy) string {
	switch p.Kind {
	case domain.SizingTable:
		return fmt.Sprintf("table[%d]", len(p.Ratios))
	case domain.SizingFixed:
		return fmt.Sprintf("fixed %s", p.Base.StringFixed(3))
	default:
		return fmt.Sprintf("%s %s/%s", p.Kind, p.Base.StringFixed(3), p.Step.StringFixed(3))
	}
}

// Candidates writes the best top search candidates. A non-positive top writes all.
func Candidates(w io.Writer, candidates []sweep.Candidate, top int) error {
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-4s %8s %8s %18s %18s %12s %10s", "#", "under", "over", "buy", "sell", "profit", "profit %")))
	for i, c := range candidates[:top] {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-4d %8s %8s %18s %18s ",
			i+1,
			c.Params.RatioUnderToBuy.StringFixed(3),
			c.Params.RatioOverToSell.StringFixed(3),
			sizing(c.Params.BuySizing),
			sizing(c.Params.SellSizing)))
		b.WriteString(signed(c.Summary.ProfitUSD, fmt.Sprintf("%12s", usd(c.Summary.ProfitUSD))))
		b.WriteString(" ")
		b.WriteString(signed(c.Summary.ProfitPercent, fmt.Sprintf("%10s", percent(c.Summary.ProfitPercent))))
	}

	title := fmt.Sprintf("top %d of %d parameter sets", top, len(candidates))
	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+boxStyle.Render(b.String()))
	return err
}
