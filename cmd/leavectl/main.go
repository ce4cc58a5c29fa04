/*
main.go - Command-line entry point

PURPOSE:
  Initializes the leave engine over a SQLite store and runs a small
  console demonstration of the full lifecycle: roster setup, holiday
  calendar, submission, approval and the fiscal-year balance view.

COMMAND-LINE FLAGS:
  -db      SQLite database path (default: leave.db)
           Use ":memory:" for a throwaway run
  -demo    Seed demo data and walk one request through the lifecycle

EXAMPLES:
  # Run the demo against a throwaway database
  ./leavectl -db=":memory:" -demo

  # Print balances from an existing database
  ./leavectl -db="./data/leave.db"

SEE ALSO:
  - leave/engine.go: Request state machine
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	demo := flag.Bool("demo", false, "seed demo data and run one request lifecycle")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	engine := leave.NewEngine(store, leave.Options{})
	ctx := context.Background()

	if *demo {
		if err := runDemo(ctx, engine, store); err != nil {
			log.Fatalf("Demo failed: %v", err)
		}
		return
	}

	if err := printSummary(ctx, engine); err != nil {
		log.Fatalf("Failed to print summary: %v", err)
	}
}

func runDemo(ctx context.Context, engine *leave.Engine, store *sqlite.Store) error {
	employeeID := leave.EmployeeID(uuid.NewString())
	approverID := leave.EmployeeID(uuid.NewString())

	if err := store.CreateEmployee(ctx, &leave.Employee{
		ID:         employeeID,
		Code:       "EMP001",
		Name:       "Demo Employee",
		Department: "Engineering",
		HireDate:   time.Now().UTC().AddDate(-2, 0, 0),
		Active:     true,
	}); err != nil {
		return fmt.Errorf("seed employee: %w", err)
	}

	// Next Monday through Friday.
	start := time.Now().UTC()
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, 4)

	request, err := engine.Submit(ctx, leave.SubmitInput{
		EmployeeID: employeeID,
		Category:   leave.CategoryAnnual,
		StartDate:  start,
		EndDate:    end,
		Reason:     "demo request",
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	log.Printf("Submitted %s: %s days, fiscal year %d, status %s",
		request.ID, request.TotalDays, request.FiscalYear, request.Status)

	approved, err := engine.Approve(ctx, request.ID, approverID)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	log.Printf("Approved %s at %s", approved.ID, approved.ApprovedAt.Format(time.RFC3339))

	view, err := engine.BalanceView(ctx, employeeID, request.FiscalYear)
	if err != nil {
		return fmt.Errorf("balance view: %w", err)
	}
	printBalance(view)
	return nil
}

func printSummary(ctx context.Context, engine *leave.Engine) error {
	fiscalYear := leave.FiscalYearOf(time.Now().UTC())

	summaries, err := engine.FiscalYearSummary(ctx, fiscalYear)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintf(os.Stdout, "No balances recorded for fiscal year %d\n", fiscalYear)
		return nil
	}

	fmt.Fprintf(os.Stdout, "Fiscal year %d\n", fiscalYear)
	for _, s := range summaries {
		fmt.Fprintf(os.Stdout, "\n%s (%s)\n", s.Employee.Name, s.Employee.Code)
		printBalance(s.Balance)
	}
	return nil
}

func printBalance(view *leave.BalanceSnapshot) {
	for _, cb := range view.Categories {
		fmt.Fprintf(os.Stdout, "  %-8s entitled %-6s used %-6s remaining %s\n",
			cb.Category, cb.Entitlement, cb.Used, cb.Remaining)
	}
	if view.CarryForward.IsPositive() {
		fmt.Fprintf(os.Stdout, "  carried forward: %s\n", view.CarryForward)
	}
}
