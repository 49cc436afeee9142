package service

import (
	"context"
	"io"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// saleCSVRow is one exported sale line with its sale header repeated.
type saleCSVRow struct {
	ReceiptNo     string `csv:"receipt_no"`
	Date          string `csv:"date"`
	CustomerName  string `csv:"customer_name"`
	PaymentMethod string `csv:"payment_method"`
	ItemName      string `csv:"item_name"`
	ItemID        string `csv:"item_id"`
	UnitPrice     string `csv:"unit_price"`
	Quantity      int    `csv:"quantity"`
	LineTotal     string `csv:"line_total"`
	Subtotal      string `csv:"sale_subtotal"`
	Discount      string `csv:"sale_discount"`
	Tax           string `csv:"sale_tax"`
	Total         string `csv:"sale_total"`
}

const exportPageSize = 500

// ExportSalesCSV writes every sale created in [from, to) to w, one row per
// line, oldest sale first.
func ExportSalesCSV(ctx context.Context, sales SaleService, from, to time.Time, w io.Writer) (int, error) {
	var rows []saleCSVRow
	err := sales.ScanSales(ctx, from, to, exportPageSize, func(page []model.Sale) error {
		for i := range page {
			rows = append(rows, saleRows(&page[i])...)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		// header only
		rows = []saleCSVRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return 0, errors.Wrap(err, "write sales csv")
	}
	return len(rows), nil
}

func saleRows(s *model.Sale) []saleCSVRow {
	rows := make([]saleCSVRow, 0, len(s.Lines))
	for _, l := range s.Lines {
		rows = append(rows, saleCSVRow{
			ReceiptNo:     s.ReceiptNo,
			Date:          s.CreatedAt.Format(time.RFC3339),
			CustomerName:  s.Customer.Name,
			PaymentMethod: string(s.PaymentMethod),
			ItemName:      l.Name,
			ItemID:        l.ItemID.String(),
			UnitPrice:     l.UnitPrice.StringFixed(2),
			Quantity:      l.Quantity,
			LineTotal:     l.LineTotal.StringFixed(2),
			Subtotal:      s.Subtotal.StringFixed(2),
			Discount:      s.DiscountAmount.StringFixed(2),
			Tax:           s.TaxAmount.StringFixed(2),
			Total:         s.Total.StringFixed(2),
		})
	}
	return rows
}
