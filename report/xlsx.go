/*
Package report exports leave balances as an XLSX workbook.

SHEETS:
  Balances:  One row per employee as of the report date
  Carryover: Year-start carryover snapshots for the report year

  Employees whose balance cannot be computed (no active policy) get a row
  with the error text instead of numbers, so one bad row does not lose the
  whole report.

USAGE:
  gen := report.NewGenerator(engine, store)
  f, err := gen.Build(ctx, asOf)
  defer f.Close()
  f.Write(w)
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/xuri/excelize/v2"
)

const (
	BalanceSheet   = "Balances"
	CarryoverSheet = "Carryover"
)

var balanceHeader = []any{
	"Employee ID", "Name", "Hired", "Tenure",
	"Entitlement", "Accrued", "Carried Over", "Manual Carryover",
	"Taken", "Shutdown Days", "Voluntary Days", "Pending",
	"Available", "Effective Balance", "Can Borrow", "Carryover Expiry", "Error",
}

var carryoverHeader = []any{"Employee ID", "Year", "Carried Over", "Recorded At"}

type Generator struct {
	Engine *leave.Engine
	Store  leave.Store
}

func NewGenerator(engine *leave.Engine, store leave.Store) *Generator {
	return &Generator{Engine: engine, Store: store}
}

// Build creates the workbook for asOf. The caller closes the file.
func (g *Generator) Build(ctx context.Context, asOf generic.TimePoint) (*excelize.File, error) {
	employees, err := g.Store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	snapshots, err := g.Store.ListCarryoverSnapshots(ctx, asOf.Year())
	if err != nil {
		return nil, fmt.Errorf("list carryover snapshots: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", BalanceSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(CarryoverSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRow(f, BalanceSheet, 1, balanceHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, emp := range employees {
		row, err := g.balanceRow(ctx, emp, asOf)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := writeRow(f, BalanceSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeRow(f, CarryoverSheet, 1, carryoverHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, s := range snapshots {
		row := []any{string(s.EmployeeID), s.Year, s.CarriedOver.InexactFloat64(), s.CreatedAt.Format("2006-01-02 15:04")}
		if err := writeRow(f, CarryoverSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// Write builds the workbook and streams it to w.
func (g *Generator) Write(ctx context.Context, w io.Writer, asOf generic.TimePoint) error {
	f, err := g.Build(ctx, asOf)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func (g *Generator) balanceRow(ctx context.Context, emp leave.Employee, asOf generic.TimePoint) ([]any, error) {
	row := []any{string(emp.ID), emp.Name, emp.HiredAt.String()}

	b, err := g.Engine.CalculateLeaveBalance(ctx, emp.ID, emp.HiredAt, emp.ManualCarryOverDays, asOf)
	if err != nil {
		if errors.Is(err, leave.ErrNoActivePolicy) {
			row = append(row, make([]any, len(balanceHeader)-len(row)-1)...)
			return append(row, err.Error()), nil
		}
		return nil, err
	}

	expiry := ""
	if b.CarriedOverExpiry != nil {
		expiry = b.CarriedOverExpiry.String()
	}
	return append(row,
		b.Tenure.String(),
		b.AnnualEntitlement.InexactFloat64(),
		b.Accrued.InexactFloat64(),
		b.CarriedOver.InexactFloat64(),
		b.CarriedOverIsManual,
		b.Taken.InexactFloat64(),
		b.CompanyShutdownDays.InexactFloat64(),
		b.VoluntaryDays.InexactFloat64(),
		b.PendingDays.InexactFloat64(),
		b.Available.InexactFloat64(),
		b.EffectiveBalance.InexactFloat64(),
		b.CanBorrow,
		expiry,
		"",
	), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
