package external

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/openclaw/mission-control/config"
)

// Sheet ranges read by the finance views.
const (
	summaryTab      = "Master Summary"
	summaryRange    = "A1:H50"
	holdingsRange   = "A1:Z100"
	accountsTab     = "Accounts"
	accountsRange   = "A1:Z10"
	fullPortfolio   = "Full Portfolio"
	schwabRawTab    = "Schwab Raw"
	schwabRawRange  = "A1:J1"
	schwabUpdateCol = 9
)

var etfs = map[string]bool{
	"QQQ": true, "SPY": true, "VOO": true, "IVV": true, "DIA": true, "VTI": true, "SCHB": true,
	"ITOT": true, "VTV": true, "VUG": true, "VIG": true, "XLE": true, "XLF": true, "XLV": true,
	"XLK": true, "XLI": true, "XLP": true, "XLY": true, "XLC": true, "XHB": true, "XSD": true,
	"IBIT": true, "BITO": true, "ETHA": true, "ARKB": true, "FBTC": true, "GBTC": true,
}

var mutualFunds = map[string]bool{
	"VLXVX": true, "VASGX": true, "VSIAX": true, "VMGMX": true, "VSMAX": true, "VSGAX": true,
	"VTSAX": true, "VGSLX": true, "VWUSX": true, "VBTLX": true, "FDGRX": true, "FXAIX": true,
	"FSKAX": true, "FTIHX": true,
}

// Category classifies a holding's ticker.
type Category string

const (
	CategoryStock      Category = "stock"
	CategoryETF        Category = "etf"
	CategoryMutualFund Category = "mutual_fund"
	CategoryOption     Category = "option"
)

// Categorize maps a ticker to its holding category. Option symbols contain
// a space or a slash.
func Categorize(ticker string) Category {
	switch {
	case strings.ContainsAny(ticker, " /"):
		return CategoryOption
	case etfs[ticker]:
		return CategoryETF
	case mutualFunds[ticker]:
		return CategoryMutualFund
	}
	return CategoryStock
}

// ParseMoney reads "$1,234.50" style cells. Unparseable input is 0.
func ParseMoney(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Sheets reads spreadsheet ranges through the portfolio script, which
// prints {"values": [[...]]} or a bare matrix.
type Sheets struct {
	Runner Runner
	Python string
	Script string
}

// Values returns the cells of tab!rng as strings.
func (s *Sheets) Values(ctx context.Context, tab, rng string) ([][]string, error) {
	out, err := s.Runner.Run(ctx, Command{Name: s.Python, Args: []string{s.Script, tab, rng}})
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(out.Stdout) {
		return nil, fmt.Errorf("Failed to parse JSON: %s", truncateOutput(out.Stdout))
	}
	root := gjson.Parse(out.Stdout)
	if v := root.Get("values"); root.IsObject() && v.Exists() {
		root = v
	}
	var rows [][]string
	for _, r := range root.Array() {
		row := []string{}
		for _, cell := range r.Array() {
			row = append(row, cell.String())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func truncateOutput(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// PortfolioLine is one row of the master summary.
type PortfolioLine struct {
	Name       string `json:"name"`
	Allocation string `json:"allocation"`
	Invested   string `json:"invested"`
	Current    string `json:"current"`
	ReturnPct  string `json:"returnPct"`
	ToInvest   string `json:"toInvest"`
}

// SummaryTotal is the TOTAL row of the master summary.
type SummaryTotal struct {
	Invested  string `json:"invested"`
	Current   string `json:"current"`
	ReturnPct string `json:"returnPct"`
	ToInvest  string `json:"toInvest"`
}

// MasterSummary is the cross-portfolio overview.
type MasterSummary struct {
	Portfolios []PortfolioLine `json:"portfolios"`
	Total      SummaryTotal    `json:"total"`
}

// Holding is one position in a themed portfolio.
type Holding struct {
	Ticker       string `json:"ticker"`
	Company      string `json:"company"`
	Shares       string `json:"shares"`
	CostBasis    string `json:"costBasis"`
	CurrentValue string `json:"currentValue"`
	ReturnPct    string `json:"returnPct"`
}

// PortfolioDetail is a configured portfolio with its holdings.
type PortfolioDetail struct {
	config.Portfolio
	Holdings []Holding `json:"holdings"`
}

// AccountHolding is one position inside a brokerage account.
type AccountHolding struct {
	Ticker      string   `json:"ticker"`
	Shares      string   `json:"shares"`
	AvgPrice    string   `json:"avgPrice"`
	MarketValue string   `json:"marketValue"`
	Value       float64  `json:"value"`
	Category    Category `json:"category"`
}

// HoldingGroups splits an account's holdings by category, each sorted by
// value descending.
type HoldingGroups struct {
	Stocks      []AccountHolding `json:"stocks"`
	ETFs        []AccountHolding `json:"etfs"`
	MutualFunds []AccountHolding `json:"mutualFunds"`
	Options     []AccountHolding `json:"options"`
}

// Account is a brokerage account with its aggregated value.
type Account struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Total    float64       `json:"total"`
	Holdings HoldingGroups `json:"holdings"`
}

// AccountsReport lists accounts by total value descending.
type AccountsReport struct {
	Accounts    []Account `json:"accounts"`
	Total       float64   `json:"total"`
	LastUpdated *string   `json:"lastUpdated"`
}

// Finance builds the finance views from spreadsheet data.
type Finance struct {
	Sheets     *Sheets
	Portfolios []config.Portfolio
}

// Portfolio returns the configured portfolio with id.
func (f *Finance) Portfolio(id string) (config.Portfolio, bool) {
	for _, p := range f.Portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return config.Portfolio{}, false
}

// Summary reads the master summary up to its TOTAL row.
func (f *Finance) Summary(ctx context.Context) (*MasterSummary, error) {
	rows, err := f.Sheets.Values(ctx, summaryTab, summaryRange)
	if err != nil {
		return nil, err
	}
	return parseSummary(rows), nil
}

func parseSummary(rows [][]string) *MasterSummary {
	sum := &MasterSummary{Portfolios: []PortfolioLine{}}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(row[0])
		if first == "TOTAL" {
			sum.Total = SummaryTotal{
				Invested:  cell(row, 2),
				Current:   cell(row, 3),
				ReturnPct: cell(row, 4),
				ToInvest:  cell(row, 5),
			}
			return sum
		}
		if first == "" || first == "Portfolio" {
			continue
		}
		sum.Portfolios = append(sum.Portfolios, PortfolioLine{
			Name:       first,
			Allocation: cell(row, 1),
			Invested:   cell(row, 2),
			Current:    cell(row, 3),
			ReturnPct:  cell(row, 4),
			ToInvest:   cell(row, 5),
		})
	}
	return sum
}

// Holdings reads the positions of portfolio p.
func (f *Finance) Holdings(ctx context.Context, p config.Portfolio) (*PortfolioDetail, error) {
	rows, err := f.Sheets.Values(ctx, p.TabName, holdingsRange)
	if err != nil {
		return nil, err
	}
	return &PortfolioDetail{Portfolio: p, Holdings: parseHoldings(rows)}, nil
}

// parseHoldings maps columns by header name. Older tabs without recognizable
// headers use fixed positions.
func parseHoldings(rows [][]string) []Holding {
	holdings := []Holding{}
	if len(rows) < 2 {
		return holdings
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		h = strings.ToLower(h)
		switch {
		case strings.Contains(h, "ticker"):
			col["ticker"] = i
		case strings.Contains(h, "shares") && !strings.Contains(h, "avg"):
			col["shares"] = i
		case strings.Contains(h, "invested") && !strings.Contains(h, "avg"):
			col["costBasis"] = i
		case strings.Contains(h, "current") && strings.Contains(h, "value"):
			col["currentValue"] = i
		case (strings.Contains(h, "gain") || strings.Contains(h, "loss")) && strings.Contains(h, "%"):
			col["returnPct"] = i
		}
	}
	for key, fallback := range map[string]int{"ticker": 0, "shares": 3, "costBasis": 4, "currentValue": 7, "returnPct": 9} {
		if _, ok := col[key]; !ok {
			col[key] = fallback
		}
	}

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		ticker := strings.TrimSpace(cell(row, col["ticker"]))
		if ticker == "" || strings.Contains(strings.ToLower(ticker), "total") {
			continue
		}
		shares := cell(row, col["shares"])
		if shares == "" {
			continue
		}
		holdings = append(holdings, Holding{
			Ticker:       ticker,
			Shares:       shares,
			CostBasis:    cell(row, col["costBasis"]),
			CurrentValue: cell(row, col["currentValue"]),
			ReturnPct:    cell(row, col["returnPct"]),
		})
	}
	return holdings
}

// Accounts aggregates the full portfolio by brokerage account.
func (f *Finance) Accounts(ctx context.Context) (*AccountsReport, error) {
	accountRows, err := f.Sheets.Values(ctx, accountsTab, accountsRange)
	if err != nil {
		return nil, err
	}
	holdingRows, err := f.Sheets.Values(ctx, fullPortfolio, holdingsRange)
	if err != nil {
		return nil, err
	}
	rawRows, err := f.Sheets.Values(ctx, schwabRawTab, schwabRawRange)
	if err != nil {
		return nil, err
	}
	report := buildAccounts(accountRows, holdingRows)
	if len(rawRows) > 0 {
		if v := cell(rawRows[0], schwabUpdateCol); v != "" {
			report.LastUpdated = &v
		}
	}
	return report, nil
}

func buildAccounts(accountRows, holdingRows [][]string) *AccountsReport {
	var order []string
	accounts := map[string]*Account{}
	for i := 1; i < len(accountRows); i++ {
		row := accountRows[i]
		id := cell(row, 0)
		if id == "" {
			continue
		}
		if _, dup := accounts[id]; !dup {
			order = append(order, id)
		}
		accounts[id] = &Account{
			ID:   id,
			Name: orDefault(cell(row, 1), "Unknown"),
			Type: orDefault(cell(row, 2), "Unknown"),
			Holdings: HoldingGroups{
				Stocks: []AccountHolding{}, ETFs: []AccountHolding{},
				MutualFunds: []AccountHolding{}, Options: []AccountHolding{},
			},
		}
	}

	for i := 1; i < len(holdingRows); i++ {
		row := holdingRows[i]
		if len(row) < 6 {
			continue
		}
		id, ticker := row[0], row[2]
		if id == "" || ticker == "" || ticker == "#N/A" {
			continue
		}
		acct, ok := accounts[id]
		if !ok {
			continue
		}
		h := AccountHolding{
			Ticker:      ticker,
			Shares:      row[3],
			AvgPrice:    row[4],
			MarketValue: row[5],
			Value:       ParseMoney(row[5]),
			Category:    Categorize(ticker),
		}
		acct.Total += h.Value
		switch h.Category {
		case CategoryETF:
			acct.Holdings.ETFs = append(acct.Holdings.ETFs, h)
		case CategoryMutualFund:
			acct.Holdings.MutualFunds = append(acct.Holdings.MutualFunds, h)
		case CategoryOption:
			acct.Holdings.Options = append(acct.Holdings.Options, h)
		default:
			acct.Holdings.Stocks = append(acct.Holdings.Stocks, h)
		}
	}

	report := &AccountsReport{Accounts: []Account{}}
	for _, id := range order {
		acct := accounts[id]
		for _, group := range [][]AccountHolding{acct.Holdings.Stocks, acct.Holdings.ETFs, acct.Holdings.MutualFunds, acct.Holdings.Options} {
			sort.SliceStable(group, func(a, b int) bool { return group[a].Value > group[b].Value })
		}
		report.Total += acct.Total
		report.Accounts = append(report.Accounts, *acct)
	}
	sort.SliceStable(report.Accounts, func(a, b int) bool {
		return report.Accounts[a].Total > report.Accounts[b].Total
	})
	return report
}
