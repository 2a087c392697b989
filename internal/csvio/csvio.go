package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	enc "github.com/MrJamesThe3rd/comanda/internal/encoding"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// Header is the export column layout. Consumers read columns by position, so the order is fixed.
var Header = []string{
	"data", "dinheiro", "pix", "debito", "credito",
	"total_bruto", "taxa_debito", "taxa_credito", "total_liquido",
	"studio_share", "edu_share", "kam_share",
}

var ErrImport = errors.New("import failed")

// ImportError means the file as a whole could not be imported.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return "import failed: " + e.Reason
}

func (e *ImportError) Is(target error) bool {
	return target == ErrImport
}

// Export writes Header followed by one row per transaction.
func Export(w io.Writer, txs []*transaction.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tx := range txs {
		if err := cw.Write(Row(tx)); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

// Row renders tx in Header order.
func Row(tx *transaction.Transaction) []string {
	return []string{
		tx.Date.Format(time.DateOnly),
		money(tx.Dinheiro), money(tx.Pix), money(tx.Debito), money(tx.Credito),
		money(tx.TotalBruto), money(tx.TaxaDebito), money(tx.TaxaCredito), money(tx.TotalLiquido),
		money(tx.StudioShare), money(tx.EduShare), money(tx.KamShare),
	}
}

func money(d decimal.Decimal) string {
	return d.String()
}

// SkippedRow is a data row Parse could not turn into a transaction.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Result struct {
	Rows    []transaction.CreateParams
	Skipped []SkippedRow
}

// dateLayouts are the accepted date formats: ISO and the pt-BR spreadsheet default.
var dateLayouts = []string{time.DateOnly, "02/01/2006"}

// Parse reads a CSV whose first line is a header and whose first five columns are
// the date and the four raw amounts. Any further columns are ignored; derived values
// are always recomputed. Unparsable amounts count as zero. Rows with a bad date or a
// zero total are skipped and reported.
func Parse(r io.Reader) (*Result, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	res := &Result{}
	rows := 0

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &ImportError{Reason: fmt.Sprintf("malformed csv: %v", err)}
		}

		rows++
		if rows == 1 {
			continue
		}

		line, _ := reader.FieldPos(0)

		params, reason := parseRecord(rec)
		if reason != "" {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}

		res.Rows = append(res.Rows, params)
	}

	if rows < 2 {
		return nil, &ImportError{Reason: "file needs a header and at least one data row"}
	}

	if len(res.Rows) == 0 {
		return nil, &ImportError{Reason: "no valid rows"}
	}

	return res, nil
}

func parseRecord(rec []string) (transaction.CreateParams, string) {
	if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
		return transaction.CreateParams{}, "missing date"
	}

	date, ok := parseDate(rec[0])
	if !ok {
		return transaction.CreateParams{}, fmt.Sprintf("unrecognized date %q", strings.TrimSpace(rec[0]))
	}

	cols := make([]string, 4)
	copy(cols, rec[1:min(len(rec), 5)])

	amounts := calculation.ParseAmounts(cols[0], cols[1], cols[2], cols[3])
	if amounts.IsZero() {
		return transaction.CreateParams{}, "all amounts are zero"
	}

	return transaction.CreateParams{
		Date:    date.Format(time.DateOnly),
		Amounts: amounts,
	}, ""
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}

	return time.Time{}, false
}

// sniffDelimiter picks ';' for files whose header has semicolons but no commas,
// which is how spreadsheets in a pt-BR locale save CSV.
func sniffDelimiter(data []byte) rune {
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Contains(header, []byte(";")) && !bytes.Contains(header, []byte(",")) {
		return ';'
	}

	return ','
}
