package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
)

func (a *App) staffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Librarian area",
	}
	cmd.AddCommand(
		a.staffBookingsCommand(),
		a.bookingAction("approve", "Approve a pending booking", failApprove, a.circulation.Approve),
		a.bookingAction("issue", "Hand out a reserved copy", failIssue, a.circulation.Issue),
		a.bookingAction("cancel", "Cancel a booking", failCancel, a.circulation.StaffCancel),
		a.staffIssuancesCommand(),
		a.returnCommand(),
		a.staffFinesCommand(),
		a.fineAction("pay", "Mark a fine paid", failPay, a.circulation.StaffPayFine),
		a.fineAction("write-off", "Close a fine without payment", failWriteOff, a.circulation.WriteOff),
		a.dashboardCommand(),
		a.inventoryCommand(),
	)
	return requireRoles(cmd, staffRoles...)
}

func (a *App) staffBookingsCommand() *cobra.Command {
	var q, status string
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Search bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.circulation.Bookings(cmd.Context(), q, status)
			if err != nil {
				return err
			}
			return printBookings(a.out, items)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "search text, Russian status words allowed")
	cmd.Flags().StringVar(&status, "status", "", "PENDING|RESERVED|ISSUED|CANCELLED|EXPIRED")
	return cmd
}

func (a *App) bookingAction(use, short, fallback string, do func(ctx context.Context, id int64) (circulation.Booking, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <booking id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := do(cmd.Context(), loanID)
			if err != nil {
				return fail(fallback, err)
			}
			fmt.Fprintf(a.out, "Бронь %d: %s.\n", b.ID, b.Status)
			return nil
		},
	}
}

func (a *App) staffIssuancesCommand() *cobra.Command {
	var q, status string
	cmd := &cobra.Command{
		Use:   "issuances",
		Short: "Search issuances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st circulation.IssuanceStatus
			if status != "" {
				var ok bool
				if st, ok = circulation.ParseIssuanceStatus(strings.ToUpper(status)); !ok {
					return errors.Errorf("unknown status %q", status)
				}
			}
			items, err := a.circulation.Issuances(cmd.Context(), q, st)
			if err != nil {
				return err
			}
			return printIssuances(a.out, items)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "search text, Russian status words allowed")
	cmd.Flags().StringVar(&status, "status", "", "OPEN|OVERDUE|RETURNED")
	return cmd
}

func (a *App) returnCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan id>",
		Short: "Take a copy back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.circulation.Return(cmd.Context(), loanID); err != nil {
				return fail(failReturn, err)
			}
			fmt.Fprintln(a.out, "Возврат оформлен.")
			return nil
		},
	}
}

func (a *App) staffFinesCommand() *cobra.Command {
	var q, state string
	cmd := &cobra.Command{
		Use:   "fines",
		Short: "Search fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.circulation.Fines(cmd.Context(), q, api.FineState(strings.ToUpper(state)))
			if err != nil {
				return err
			}
			return printFines(a.out, items)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "search text")
	cmd.Flags().StringVar(&state, "state", "", "UNPAID|PAID|CANCELLED")
	return cmd
}

func (a *App) fineAction(use, short, fallback string, do func(ctx context.Context, id int64) (api.Fine, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <fine id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fineID, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := do(cmd.Context(), fineID)
			if err != nil {
				return fail(fallback, err)
			}
			fmt.Fprintf(a.out, "Штраф %d: %s.\n", f.ID, f.State)
			return nil
		},
	}
}

func (a *App) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of active bookings, overdue issuances and unpaid fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.circulation.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Активные брони: %d\nПросроченные выдачи: %d\nНеоплаченные штрафы: %d на сумму %s\n",
				d.ActiveBookings, d.OverdueIssuances, d.UnpaidFines, amount(d.UnpaidTotal))
			if len(d.RecentBookings) > 0 {
				fmt.Fprintln(a.out, "\nПоследние брони:")
				if err := printBookings(a.out, d.RecentBookings); err != nil {
					return err
				}
			}
			if len(d.Overdue) > 0 {
				fmt.Fprintln(a.out, "\nПросрочено:")
				if err := printIssuances(a.out, d.Overdue); err != nil {
					return err
				}
			}
			if len(d.Unpaid) > 0 {
				fmt.Fprintln(a.out, "\nНе оплачено:")
				return printFines(a.out, d.Unpaid)
			}
			return nil
		},
	}
}

func (a *App) inventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Copies per library",
	}

	var bookID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List inventory records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.catalog.RawInventories(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(a.out, "ID", "BOOK", "LIBRARY", "TOTAL", "AVAILABLE")
			for _, inv := range items {
				if bookID != 0 && inv.BookID != bookID {
					continue
				}
				t.row(id(inv.ID), id(inv.BookID), id(inv.LibraryID),
					fmt.Sprint(inv.TotalCopies), fmt.Sprint(inv.AvailableCopies))
			}
			return t.flush()
		},
	}
	list.Flags().Int64Var(&bookID, "book", 0, "only this book")

	var req api.InventoryRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Put a book on a library's shelves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := a.catalog.CreateInventory(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Запись %d: книга %d, библиотека %d, копий %d.\n", inv.ID, inv.BookID, inv.LibraryID, inv.TotalCopies)
			return nil
		},
	}
	add.Flags().Int64Var(&req.BookID, "book", 0, "book id")
	add.Flags().Int64Var(&req.LibraryID, "library", 0, "library id")
	add.Flags().IntVar(&req.TotalCopies, "copies", 0, "total copies")
	_ = add.MarkFlagRequired("book")
	_ = add.MarkFlagRequired("library")

	var copies int
	set := &cobra.Command{
		Use:   "set <inventory id>",
		Short: "Change the number of copies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invID, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := a.catalog.PatchInventory(cmd.Context(), invID, api.InventoryRequest{TotalCopies: copies})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Запись %d: копий %d, доступно %d.\n", inv.ID, inv.TotalCopies, inv.AvailableCopies)
			return nil
		},
	}
	set.Flags().IntVar(&copies, "copies", 0, "total copies")
	_ = set.MarkFlagRequired("copies")

	cmd.AddCommand(list, add, set)
	return cmd
}
