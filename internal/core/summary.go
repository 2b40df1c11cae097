package core

// Summary holds the running totals shown next to the ledger.
type Summary struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	Balance       float64 `json:"balance"`
}

// Summarize adds up income and expenses. No rounding is applied here.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			s.TotalIncome += tx.Amount
		case Expense:
			s.TotalExpenses += tx.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses
	return s
}
