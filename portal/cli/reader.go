package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-portal/portal/internal/catalog"
	"github.com/Astemirdum/library-portal/portal/internal/session"
)

func (a *App) readerCommands() []*cobra.Command {
	everyone := append(append([]session.Role{}, readerRoles...), staffRoles...)
	return []*cobra.Command{
		requireRoles(a.catalogCommand(), everyone...),
		requireRoles(a.suggestCommand(), everyone...),
		requireRoles(a.bookCommand(), everyone...),
		requireRoles(a.reserveCommand(), readerRoles...),
		requireRoles(a.reservationsCommand(), readerRoles...),
		requireRoles(a.cancelCommand(), readerRoles...),
		requireRoles(a.loansCommand(), readerRoles...),
		requireRoles(a.renewCommand(), readerRoles...),
		requireRoles(a.finesCommand(), readerRoles...),
		requireRoles(a.payCommand(), readerRoles...),
	}
}

func optionalYear(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func (a *App) catalogCommand() *cobra.Command {
	var (
		q                catalog.Query
		sortBy           string
		yearFrom, yearTo int
		facets           bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := catalog.ParseSort(sortBy)
			if err != nil {
				return err
			}
			q.Sort = s
			q.YearFrom, q.YearTo = optionalYear(yearFrom), optionalYear(yearTo)
			items, err := a.catalog.Catalog(cmd.Context(), q)
			if err != nil {
				return err
			}
			if err := printMaterials(a.out, items); err != nil {
				return err
			}
			if !facets {
				return nil
			}
			f, err := a.catalog.Facets(cmd.Context())
			if err != nil {
				return err
			}
			years := make([]string, 0, len(f.Years))
			for _, y := range f.Years {
				years = append(years, strconv.Itoa(y))
			}
			fmt.Fprintf(a.out, "Жанры: %s\nГоды: %s\n", strings.Join(f.Genres, ", "), strings.Join(years, ", "))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&q.Q, "query", "q", "", "title, author, genre or year text")
	fl.StringVar(&q.Author, "author", "", "author name part")
	fl.StringVar(&q.Genre, "genre", "", "exact genre")
	fl.IntVar(&yearFrom, "year-from", 0, "first publication year")
	fl.IntVar(&yearTo, "year-to", 0, "last publication year")
	fl.BoolVar(&q.AvailableOnly, "available", false, "only materials with free copies")
	fl.StringVar(&sortBy, "sort", "", "relevance|title_asc|title_desc|available_desc|year_desc|year_asc")
	fl.BoolVar(&facets, "facets", false, "also list genres and years")
	return cmd
}

func (a *App) suggestCommand() *cobra.Command {
	var byAuthor bool
	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Suggest titles or authors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.catalog.Suggest(cmd.Context(), strings.Join(args, " "), byAuthor)
			if err != nil {
				return err
			}
			for _, s := range items {
				fmt.Fprintln(a.out, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&byAuthor, "author", false, "suggest authors instead of titles")
	return cmd
}

func (a *App) bookCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Show a material and its copies per library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, ok, err := a.catalog.Material(ctx, bookID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Материал не найден.")
				return nil
			}
			fmt.Fprintf(a.out, "%s\n%s\n%s · %s\n%s\nДоступно: %d из %d\n",
				m.Title, m.Authors, m.Genre, m.Year, m.Description, m.AvailableCopies, m.TotalCopies)

			inventories, err := a.catalog.RawInventories(ctx)
			if err != nil {
				return err
			}
			addresses, err := a.catalog.LibraryAddresses(ctx)
			if err != nil {
				return err
			}
			defaultID, err := a.catalog.DefaultLibraryID(ctx)
			if err != nil {
				return err
			}
			t := newTable(a.out, "LIBRARY", "ADDRESS", "AVAILABLE")
			for _, inv := range inventories {
				if inv.BookID != bookID {
					continue
				}
				lib := id(inv.LibraryID)
				if inv.LibraryID == defaultID {
					lib += "*"
				}
				t.row(lib, orPlaceholder(addresses[inv.LibraryID]),
					fmt.Sprintf("%d/%d", inv.AvailableCopies, inv.TotalCopies))
			}
			return t.flush()
		},
	}
}

func (a *App) reserveCommand() *cobra.Command {
	var libraryID int64
	cmd := &cobra.Command{
		Use:   "reserve <book id>",
		Short: "Book a copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.circulation.Reserve(cmd.Context(), bookID, libraryID)
			if err != nil {
				return fail(failReserve, err)
			}
			fmt.Fprintf(a.out, "Бронь %d создана: %s, статус %s, до %s.\n", b.ID, b.Title, b.Status, b.BookingDeadline)
			fmt.Fprintf(a.out, "Библиотека %d: %s.\n", b.LibraryID, orPlaceholder(b.Address))
			return nil
		},
	}
	cmd.Flags().Int64Var(&libraryID, "library", 0, "library id, any library with free copies when unset")
	return cmd
}

func (a *App) reservationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reservations",
		Short: "List my bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.circulation.MyBookings(cmd.Context())
			if err != nil {
				return err
			}
			return printBookings(a.out, items)
		},
	}
}

func (a *App) cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking id>",
		Short: "Cancel my booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.circulation.CancelBooking(cmd.Context(), loanID); err != nil {
				return fail(failCancel, err)
			}
			fmt.Fprintln(a.out, "Бронь отменена.")
			return nil
		},
	}
}

func (a *App) loansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "loans",
		Short: "List my issuances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.circulation.MyIssuances(cmd.Context())
			if err != nil {
				return err
			}
			return printIssuances(a.out, items)
		},
	}
}

func (a *App) renewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "renew <loan id>",
		Short: "Extend an issuance by a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			iss, err := a.circulation.Renew(cmd.Context(), loanID)
			if err != nil {
				return fail(failRenew, err)
			}
			fmt.Fprintf(a.out, "Выдача продлена до %s.\n", iss.ReturnDeadline)
			return nil
		},
	}
}

func (a *App) finesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fines",
		Short: "List my fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.circulation.MyFines(cmd.Context())
			if err != nil {
				return err
			}
			return printFines(a.out, items)
		},
	}
}

func (a *App) payCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <fine id>",
		Short: "Pay my fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fineID, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := a.circulation.PayFine(cmd.Context(), fineID)
			if err != nil {
				return fail(failPay, err)
			}
			fmt.Fprintf(a.out, "Штраф %d: %s.\n", f.ID, f.State)
			return nil
		},
	}
}
