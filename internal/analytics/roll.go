package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
)

// rollDay sums a day column bottom-up: subcategory cells into category
// totals into section totals. Placeholder rows with empty display names
// contribute to the sums but are never rendered.
func rollDay(s *schema.Schema, snap *document.Snapshot, col int, opts Options) map[string]*SecNode {
	out := map[string]*SecNode{}
	for secCode, sec := range s.Expenses.Sections {
		secSum := decimal.Zero
		secNode := &SecNode{Name: sec.Name}
		if opts.Level != LevelSection {
			secNode.Cats = map[string]*CatNode{}
		}
		for catCode, cat := range sec.Cats {
			catSum := decimal.Zero
			catNode := &CatNode{Name: cat.Name}
			if opts.Level == LevelSubcategory {
				catNode.Subs = map[string]*SubNode{}
			}
			if len(cat.Subs) == 0 {
				catSum = value(snap, cat.Row, col)
			}
			for subCode, sub := range cat.Subs {
				v := value(snap, sub.Row, col)
				catSum = catSum.Add(v)
				if opts.ZeroSuppress && v.IsZero() {
					continue
				}
				if opts.Level == LevelSubcategory && sub.Name != "" {
					catNode.Subs[subCode] = &SubNode{Name: sub.Name, Amount: v}
				}
			}
			secSum = secSum.Add(catSum)
			if opts.ZeroSuppress && catSum.IsZero() {
				continue
			}
			catNode.Amount = catSum
			if opts.Level != LevelSection && cat.Name != "" {
				secNode.Cats[catCode] = catNode
			}
		}
		if opts.ZeroSuppress && secSum.IsZero() {
			continue
		}
		if sec.Name == "" {
			continue
		}
		secNode.Amount = secSum
		out[secCode] = secNode
	}
	return out
}

// rollMonth reads the month boundary column, where the document itself
// maintains subtotal cells per section and category.
func rollMonth(s *schema.Schema, snap *document.Snapshot, col int, opts Options) map[string]*SecNode {
	out := map[string]*SecNode{}
	for secCode, sec := range s.Expenses.Sections {
		secSum := value(snap, sec.TotalRow, col)
		if opts.ZeroSuppress && secSum.IsZero() {
			continue
		}
		if sec.Name == "" {
			continue
		}
		secNode := &SecNode{Name: sec.Name, Amount: secSum}
		if opts.Level == LevelSection {
			out[secCode] = secNode
			continue
		}
		secNode.Cats = map[string]*CatNode{}
		for catCode, cat := range sec.Cats {
			catSum := value(snap, cat.Row, col)
			if opts.ZeroSuppress && catSum.IsZero() {
				continue
			}
			if cat.Name == "" {
				continue
			}
			catNode := &CatNode{Name: cat.Name, Amount: catSum}
			if opts.Level == LevelSubcategory {
				catNode.Subs = map[string]*SubNode{}
				for subCode, sub := range cat.Subs {
					v := value(snap, sub.Row, col)
					if opts.ZeroSuppress && v.IsZero() {
						continue
					}
					if sub.Name == "" {
						continue
					}
					catNode.Subs[subCode] = &SubNode{Name: sub.Name, Amount: v}
				}
			}
			secNode.Cats[catCode] = catNode
		}
		out[secCode] = secNode
	}
	return out
}

// incomeLines flattens the income tree into items. Section level renders
// only the total; category level renders category lines; subcategory level
// adds subcategory lines. Sums always cover the full tree.
func incomeLines(s *schema.Schema, snap *document.Snapshot, col int, opts Options) (decimal.Decimal, []IncomeItem) {
	total := decimal.Zero
	var items []IncomeItem
	for catCode, cat := range s.Income.Cats {
		v := value(snap, cat.Row, col)
		total = total.Add(v)
		if opts.Level != LevelSection && cat.Name != "" && (!opts.ZeroSuppress || !v.IsZero()) {
			items = append(items, IncomeItem{Code: catCode, Name: cat.Name, Amount: v})
		}
		for subCode, sub := range cat.Subs {
			sv := value(snap, sub.Row, col)
			total = total.Add(sv)
			if opts.Level == LevelSubcategory && sub.Name != "" && (!opts.ZeroSuppress || !sv.IsZero()) {
				items = append(items, IncomeItem{Code: subCode, Name: sub.Name, Amount: sv})
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return total, items
}

// creditorLines reads each creditor's net owed row.
func creditorLines(s *schema.Schema, snap *document.Snapshot, col int, zeroSuppress bool) (decimal.Decimal, map[string]*CreditorItem) {
	total := decimal.Zero
	items := map[string]*CreditorItem{}
	for name, cred := range s.Creditors {
		balance := value(snap, cred.NetRow(), col)
		if zeroSuppress && balance.IsZero() {
			continue
		}
		total = total.Add(balance)
		items[name] = &CreditorItem{Name: name, Balance: balance}
	}
	return total, items
}

// accumulate folds one day into the running period totals.
func accumulate(totals *PeriodTotals, day *DayBreakdown) {
	totals.Income.Total = totals.Income.Total.Add(day.Income.Total)
	for _, item := range day.Income.Items {
		acc, ok := totals.Income.Items[item.Code]
		if !ok {
			acc = &IncomeItem{Code: item.Code, Name: item.Name}
			totals.Income.Items[item.Code] = acc
		}
		acc.Amount = acc.Amount.Add(item.Amount)
	}

	totals.Expense.Total = totals.Expense.Total.Add(day.Expense.Total)
	for secCode, sec := range day.Expense.Tree {
		accSec, ok := totals.Expense.Tree[secCode]
		if !ok {
			accSec = &SecNode{Name: sec.Name, Cats: map[string]*CatNode{}}
			totals.Expense.Tree[secCode] = accSec
		}
		accSec.Amount = accSec.Amount.Add(sec.Amount)
		for catCode, cat := range sec.Cats {
			accCat, ok := accSec.Cats[catCode]
			if !ok {
				accCat = &CatNode{Name: cat.Name, Subs: map[string]*SubNode{}}
				accSec.Cats[catCode] = accCat
			}
			accCat.Amount = accCat.Amount.Add(cat.Amount)
			for subCode, sub := range cat.Subs {
				accSub, ok := accCat.Subs[subCode]
				if !ok {
					accSub = &SubNode{Name: sub.Name}
					accCat.Subs[subCode] = accSub
				}
				accSub.Amount = accSub.Amount.Add(sub.Amount)
			}
		}
	}

	totals.Creditors.Total = totals.Creditors.Total.Add(day.Creditors.Total)
	for name, cred := range day.Creditors.Items {
		acc, ok := totals.Creditors.Items[name]
		if !ok {
			acc = &CreditorItem{Name: name}
			totals.Creditors.Items[name] = acc
		}
		acc.Balance = acc.Balance.Add(cred.Balance)
	}
}
