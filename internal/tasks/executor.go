package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Artemka2031/finance-control-sub000/internal/ledgercell"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
)

// Executor applies one mutation to the remote document. Every write is a
// read-modify-write against the current remote state, never a cached value:
// the mutation lock only serializes writers inside this process, external
// edits are overwritten without merging.
type Executor struct {
	sheets  sheet.Client
	builder *schema.Builder
	store   Store
	log     zerolog.Logger
}

func NewExecutor(sheets sheet.Client, builder *schema.Builder, store Store, log zerolog.Logger) *Executor {
	return &Executor{
		sheets:  sheets,
		builder: builder,
		store:   store,
		log:     log.With().Str("component", "executor").Logger(),
	}
}

// Execute runs a task. Removal types resolve the referenced completed task
// first, validate the type pairing, and re-derive row, column and amount
// from its stored payload.
func (e *Executor) Execute(ctx context.Context, taskType TaskType, payload json.RawMessage) (*Result, error) {
	remove := false
	if taskType.IsRemoval() {
		original, err := e.resolveRemoval(ctx, taskType, payload)
		if err != nil {
			return nil, err
		}
		payload = original.Payload
		taskType = original.Type
		remove = true
	}

	s, err := e.builder.Schema(ctx)
	if err != nil {
		return nil, err
	}

	switch taskType {
	case TaskTypeAddExpense:
		return e.expense(ctx, s, payload, remove)
	case TaskTypeAddIncome:
		return e.income(ctx, s, payload, remove)
	case TaskTypeRecordBorrowing, TaskTypeRecordRepayment, TaskTypeRecordSaving:
		return e.creditor(ctx, s, taskType, payload, remove)
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
}

func (e *Executor) resolveRemoval(ctx context.Context, taskType TaskType, payload json.RawMessage) (*Task, error) {
	var ref RemovalPayload
	if err := json.Unmarshal(payload, &ref); err != nil {
		return nil, fmt.Errorf("decode removal payload: %w", err)
	}
	if ref.TaskID == "" {
		return nil, fmt.Errorf("task_id is required for removal operations")
	}
	original, err := e.store.GetTask(ctx, ref.TaskID)
	if err != nil {
		return nil, err
	}
	if original.Status != TaskStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCompleted, ref.TaskID, original.Status)
	}
	if expected := removalPairs[taskType]; original.Type != expected {
		return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrTypeMismatch, ref.TaskID, original.Type, expected)
	}
	return original, nil
}

func (e *Executor) expense(ctx context.Context, s *schema.Schema, payload json.RawMessage, remove bool) (*Result, error) {
	var p ExpensePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode expense payload: %w", err)
	}
	if p.Section == "" || p.Category == "" || p.Subcategory == "" || !p.Amount.IsPositive() {
		return nil, fmt.Errorf("expense payload requires section, category, subcategory and a positive amount")
	}
	col, err := s.DateColumn(p.Date)
	if err != nil {
		return nil, err
	}
	row, err := s.ExpenseRow(p.Section, p.Category, p.Subcategory)
	if err != nil {
		return nil, err
	}
	if remove {
		if err := e.removeEntry(ctx, row, col, p.Amount); err != nil {
			return nil, err
		}
		return &Result{Status: "success", Message: "Expense removed for " + p.Date, Date: p.Date}, nil
	}
	if err := e.addEntry(ctx, row, col, p.Amount, p.Comment); err != nil {
		return nil, err
	}
	return &Result{Status: "success", Message: "Expense added for " + p.Date, Date: p.Date}, nil
}

func (e *Executor) income(ctx context.Context, s *schema.Schema, payload json.RawMessage, remove bool) (*Result, error) {
	var p IncomePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode income payload: %w", err)
	}
	if p.Category == "" || !p.Amount.IsPositive() {
		return nil, fmt.Errorf("income payload requires category and a positive amount")
	}
	col, err := s.DateColumn(p.Date)
	if err != nil {
		return nil, err
	}
	row, err := s.IncomeRow(p.Category, p.Subcategory)
	if err != nil {
		return nil, err
	}
	if remove {
		if err := e.removeEntry(ctx, row, col, p.Amount); err != nil {
			return nil, err
		}
		return &Result{Status: "success", Message: "Income removed for " + p.Date, Date: p.Date}, nil
	}
	if err := e.addEntry(ctx, row, col, p.Amount, p.Comment); err != nil {
		return nil, err
	}
	return &Result{Status: "success", Message: "Income added for " + p.Date, Date: p.Date}, nil
}

// creditor mutations write the new absolute balance instead of appending a
// term: derived rows track a running balance, not a list of transactions.
func (e *Executor) creditor(ctx context.Context, s *schema.Schema, taskType TaskType, payload json.RawMessage, remove bool) (*Result, error) {
	var p CreditorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode creditor payload: %w", err)
	}
	if p.Creditor == "" || !p.Amount.IsPositive() {
		return nil, fmt.Errorf("creditor payload requires creditor and a positive amount")
	}
	col, err := s.DateColumn(p.Date)
	if err != nil {
		return nil, err
	}
	block, err := s.CreditorBlock(p.Creditor)
	if err != nil {
		return nil, err
	}
	var row int
	var verb string
	switch taskType {
	case TaskTypeRecordBorrowing:
		row, verb = block.BorrowRow(), "Borrowing"
	case TaskTypeRecordRepayment:
		row, verb = block.RepayRow(), "Repayment"
	case TaskTypeRecordSaving:
		row, verb = block.SaveRow(), "Saving"
	}

	formula, err := e.sheets.ReadCellFormula(ctx, row, col)
	if err != nil {
		return nil, err
	}
	balance := ledgercell.Value(formula)

	if remove {
		next := balance.Sub(p.Amount)
		if err := e.sheets.WriteCell(ctx, row, col, ledgercell.SetValue(next)); err != nil {
			return nil, err
		}
		if err := e.dropNoteLine(ctx, row, col, p.Amount); err != nil {
			return nil, err
		}
		return &Result{Status: "success", Message: verb + " removed for " + p.Date, Date: p.Date}, nil
	}

	next := balance.Add(p.Amount)
	if err := e.sheets.WriteCell(ctx, row, col, ledgercell.SetValue(next)); err != nil {
		return nil, err
	}
	if p.Comment != "" {
		if err := e.appendNoteLine(ctx, row, col, p.Amount, p.Comment); err != nil {
			return nil, err
		}
	}
	return &Result{Status: "success", Message: verb + " recorded for " + p.Date, Date: p.Date}, nil
}

func (e *Executor) addEntry(ctx context.Context, row, col int, amount decimal.Decimal, comment string) error {
	formula, err := e.sheets.ReadCellFormula(ctx, row, col)
	if err != nil {
		return err
	}
	if err := e.sheets.WriteCell(ctx, row, col, ledgercell.AppendTerm(formula, amount)); err != nil {
		return err
	}
	if comment == "" {
		return nil
	}
	return e.appendNoteLine(ctx, row, col, amount, comment)
}

func (e *Executor) removeEntry(ctx context.Context, row, col int, amount decimal.Decimal) error {
	formula, err := e.sheets.ReadCellFormula(ctx, row, col)
	if err != nil {
		return err
	}
	next, err := ledgercell.RemoveTerm(formula, amount)
	if err != nil {
		return err
	}
	if err := e.sheets.WriteCell(ctx, row, col, next); err != nil {
		return err
	}
	return e.dropNoteLine(ctx, row, col, amount)
}

func (e *Executor) appendNoteLine(ctx context.Context, row, col int, amount decimal.Decimal, comment string) error {
	note, err := e.readNote(ctx, row, col)
	if err != nil {
		return err
	}
	line := amount.StringFixed(2) + " " + comment
	return e.sheets.WriteNote(ctx, row, col, ledgercell.AppendNoteLine(note, line))
}

func (e *Executor) dropNoteLine(ctx context.Context, row, col int, amount decimal.Decimal) error {
	note, err := e.readNote(ctx, row, col)
	if err != nil {
		return err
	}
	return e.sheets.WriteNote(ctx, row, col, ledgercell.RemoveNoteLine(note, amount))
}

func (e *Executor) readNote(ctx context.Context, row, col int) (string, error) {
	notes, err := e.sheets.ReadNotes(ctx)
	if err != nil {
		return "", err
	}
	return notes[sheet.A1(row, col)], nil
}
