package setup

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/config"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

// DefaultPath file written by the wizard.
const DefaultPath = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	source          string
	dataFile        string
	pair            string
	startDate       string
	endDate         string
	fee             string
	depositValue    string
	depositInterval string
	dcaInterval     string
	strict          bool
	ratioUnderToBuy string
	ratioOverToSell string
	ratioBetween    string
	trendPeriod     string
}

func defaultAnswers() answers {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return answers{
		source:          config.SourceCSV,
		pair:            "BTC_USD",
		startDate:       end.AddDate(-1, 0, 0).Format(time.DateOnly),
		endDate:         end.Format(time.DateOnly),
		fee:             "0.001",
		depositValue:    "10",
		depositInterval: string(domain.IntervalDaily),
		dcaInterval:     string(domain.IntervalDaily),
		ratioUnderToBuy: "2",
		ratioOverToSell: "2.5",
		ratioBetween:    "0",
		trendPeriod:     "0",
	}
}

// configTmp converts the answers and checks them the same way config.Load does.
func (a answers) configTmp() (config.ConfigTmp, error) {
	trend, err := strconv.Atoi(a.trendPeriod)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("trend period must be an integer: %w", err)
	}

	tmp := config.ConfigTmp{
		Pair:            a.pair,
		Fee:             a.fee,
		DepositValue:    a.depositValue,
		DepositInterval: a.depositInterval,
		DCAInterval:     a.dcaInterval,
		Strict:          a.strict,
		StartDate:       a.startDate,
		EndDate:         a.endDate,
		Source:          a.source,
		Strategy: config.StrategyTmp{
			RatioUnderToBuy:   a.ratioUnderToBuy,
			RatioOverToSell:   a.ratioOverToSell,
			RatioBetweenSells: a.ratioBetween,
			TrendPeriod:       trend,
		},
	}
	if a.source == config.SourceCSV {
		tmp.DataFile = a.dataFile
	}

	if _, err := tmp.Config(); err != nil {
		return config.ConfigTmp{}, err
	}
	return tmp, nil
}

func step(title string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DCABENCH CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DCABENCH CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Describe the account you want to backtest.\n"))

	// candles
	fmt.Println(stepStyle.Render("STEP 1: MARKET DATA"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do daily candles come from?").
				Options(
					huh.NewOption("CSV file (timestamp,open,high,low,close)", config.SourceCSV),
					huh.NewOption("Binance klines", config.SourceBinance),
					huh.NewOption("Bybit spot klines", config.SourceBybit),
					huh.NewOption("Hyperliquid candles", config.SourceHyperliquid),
				).
				Value(&a.source),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.source == config.SourceCSV {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("CSV file").
					Value(&a.dataFile).
					Validate(notEmpty),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// asset and range
	step("STEP 2: ASSET AND DATES")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pair").
				Description("BASE_QUOTE or a bare asset quoted in USD (e.g. BTC_USD, ETH)").
				Value(&a.pair).
				Validate(func(s string) error {
					_, err := domain.ParsePair(s)
					return err
				}),
			huh.NewInput().
				Title("Start date").
				Description("2006-01-02").
				Value(&a.startDate).
				Validate(validateDate),
			huh.NewInput().
				Title("End date").
				Description("2006-01-02").
				Value(&a.endDate).
				Validate(validateDate),
		),
	).Run()
	if err != nil {
		return err
	}

	// account
	step("STEP 3: ACCOUNT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fee").
				Description("Fraction of every trade, e.g. 0.001").
				Value(&a.fee).
				Validate(validateFee),
			huh.NewInput().
				Title("Deposit value (USD)").
				Value(&a.depositValue).
				Validate(validatePositive),
			huh.NewSelect[string]().
				Title("Deposit interval").
				Options(intervalOptions()...).
				Value(&a.depositInterval),
			huh.NewSelect[string]().
				Title("DCA interval").
				Options(intervalOptions()...).
				Value(&a.dcaInterval),
			huh.NewConfirm().
				Title("Strict mode?").
				Description("Reject overspending instead of logging a warning").
				Value(&a.strict),
		),
	).Run()
	if err != nil {
		return err
	}

	// improved strategy
	step("STEP 4: DCA IMPROVED")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ratio under to buy").
				Description("Buy while close < average cost * ratio").
				Value(&a.ratioUnderToBuy).
				Validate(validatePositive),
			huh.NewInput().
				Title("Ratio over to sell").
				Description("Sell while close > average cost * ratio").
				Value(&a.ratioOverToSell).
				Validate(validatePositive),
			huh.NewInput().
				Title("Ratio between sells").
				Value(&a.ratioBetween).
				Validate(validateNonNegative),
			huh.NewInput().
				Title("Trend EMA period").
				Description("0 disables the trend filter").
				Value(&a.trendPeriod),
		),
	).Run()
	if err != nil {
		return err
	}

	tmp, err := a.configTmp()
	if err != nil {
		return err
	}

	// confirmation
	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Source: %s\nPair: %s\nRange: %s .. %s\nDeposit: %s %s\nDCA: %s\n",
		a.source, a.pair, a.startDate, a.endDate, a.depositValue, a.depositInterval, a.dcaInterval,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

func intervalOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("Daily", string(domain.IntervalDaily)),
		huh.NewOption("Weekly", string(domain.IntervalWeekly)),
		huh.NewOption("Monthly", string(domain.IntervalMonthly)),
		huh.NewOption("Yearly", string(domain.IntervalYearly)),
	}
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return fmt.Errorf("must be a date like 2006-01-02")
	}
	return nil
}

func validateFee(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be in [0, 1)")
	}
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNonNegative(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
