package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
)

const emptyList = "Нет записей."

type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, header ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	t.row(header...)
	return t
}

func (t *table) row(cells ...string) {
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) flush() error {
	return t.w.Flush()
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseID(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return v, nil
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orPlaceholder(s string) string {
	if s == "" {
		return catalog.Placeholder
	}
	return s
}

func printMaterials(out io.Writer, items []catalog.Material) error {
	if len(items) == 0 {
		fmt.Fprintln(out, emptyList)
		return nil
	}
	t := newTable(out, "ID", "TITLE", "AUTHORS", "GENRE", "YEAR", "AVAILABLE")
	for _, m := range items {
		t.row(id(m.BookID), m.Title, m.Authors, m.Genre, m.Year,
			fmt.Sprintf("%d/%d", m.AvailableCopies, m.TotalCopies))
	}
	return t.flush()
}

func printBookings(out io.Writer, items []circulation.Booking) error {
	if len(items) == 0 {
		fmt.Fprintln(out, emptyList)
		return nil
	}
	t := newTable(out, "ID", "STATUS", "DATE", "DEADLINE", "READER", "TITLE", "LIBRARY")
	for _, b := range items {
		t.row(id(b.ID), string(b.Status), b.BookingDate, b.BookingDeadline, id(b.ReaderID),
			b.Title, orPlaceholder(b.Address))
	}
	return t.flush()
}

func printIssuances(out io.Writer, items []circulation.Issuance) error {
	if len(items) == 0 {
		fmt.Fprintln(out, emptyList)
		return nil
	}
	t := newTable(out, "ID", "STATUS", "ISSUED", "DUE", "RETURNED", "RENEWALS", "READER", "TITLE", "LIBRARY")
	for _, iss := range items {
		t.row(id(iss.ID), string(iss.Status), iss.IssuanceDate, iss.ReturnDeadline,
			orPlaceholder(iss.ReturnedAt), strconv.Itoa(iss.RenewCount), id(iss.ReaderID),
			iss.Title, orPlaceholder(iss.Address))
	}
	return t.flush()
}

func printFines(out io.Writer, items []api.Fine) error {
	if len(items) == 0 {
		fmt.Fprintln(out, emptyList)
		return nil
	}
	t := newTable(out, "ID", "STATE", "AMOUNT", "DUE", "READER", "DESCRIPTION")
	for _, f := range items {
		state := string(f.State)
		if f.WrittenOff {
			state += " (written off)"
		}
		t.row(id(f.ID), state, amount(f.Amount), f.DueDate.UTC().Format("2006-01-02"),
			id(f.ReaderID), orPlaceholder(f.Description))
	}
	return t.flush()
}
