// Package dataset reads and writes the flat tabular form of labeled transactions.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/domain"
)

// DisplayDateLayout is the human-readable date column format.
const DisplayDateLayout = "01/02/2006, 03:04:05 PM"

// Header lists the CSV columns in order.
var Header = []string{
	"ID", "From", "To", "Type", "Amount", "Payment Method", "Card Number", "Expiry Date",
	"CVV", "Account Number", "IFSC Code", "Contact Number", "Date", "is_suspicious",
	"suspicion_reasons", "timestamp",
}

const (
	colID = iota
	colFrom
	colTo
	colType
	colAmount
	colPaymentMethod
	colCardNumber
	colExpiryDate
	colCVV
	colAccountNumber
	colIFSCCode
	colContactNumber
	colDate
	colSuspicious
	colReasons
	colTimestamp
)

// Write encodes txs as CSV with a header row.
func Write(w io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, tx := range txs {
		row, err := encodeRow(tx)
		if err != nil {
			return errors.Wrapf(err, "encode row %d", i+1)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WriteFile writes txs to path, creating parent directories.
func WriteFile(path string, txs []domain.Transaction) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return Write(file, txs)
}

// Read decodes a CSV produced by Write. Columns are located by header name.
func Read(r io.Reader) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}
		tx, err := decodeRow(record, index)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ReadFile loads the dataset stored at path.
func ReadFile(path string) ([]domain.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	txs, err := Read(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return txs, nil
}

func encodeRow(tx domain.Transaction) ([]string, error) {
	reasons := tx.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	encodedReasons, err := json.Marshal(reasons)
	if err != nil {
		return nil, err
	}
	row := make([]string, len(Header))
	row[colID] = tx.ID
	row[colFrom] = tx.SenderID
	row[colTo] = tx.ReceiverID
	row[colType] = string(tx.Type)
	row[colAmount] = tx.Amount.String()
	row[colPaymentMethod] = tx.PaymentMethod
	row[colCardNumber] = tx.CardNumber
	row[colExpiryDate] = tx.ExpiryDate
	row[colCVV] = tx.CVV
	row[colAccountNumber] = tx.AccountNumber
	row[colIFSCCode] = tx.IFSCCode
	row[colContactNumber] = tx.ContactNumber
	row[colDate] = tx.Timestamp.Format(DisplayDateLayout)
	row[colSuspicious] = strconv.FormatBool(tx.Suspicious)
	row[colReasons] = string(encodedReasons)
	row[colTimestamp] = tx.Timestamp.Format(time.RFC3339)
	return row, nil
}

// required columns must be present; the rest default to empty.
var required = map[int]bool{
	colFrom: true, colTo: true, colType: true, colAmount: true, colTimestamp: true, colSuspicious: true,
}

func columnIndex(header []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[name] = i
	}
	index := make([]int, len(Header))
	for col, name := range Header {
		pos, ok := positions[name]
		if !ok {
			if required[col] {
				return nil, errors.Errorf("missing column %q", name)
			}
			pos = -1
		}
		index[col] = pos
	}
	return index, nil
}

func decodeRow(record []string, index []int) (domain.Transaction, error) {
	field := func(col int) string {
		pos := index[col]
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return record[pos]
	}

	sender, receiver := field(colFrom), field(colTo)
	if sender == "" || receiver == "" {
		return domain.Transaction{}, errors.New("empty From or To")
	}
	if sender == receiver {
		return domain.Transaction{}, errors.Errorf("sender %q is also the receiver", sender)
	}
	txType := domain.TransactionType(field(colType))
	if !txType.Valid() {
		return domain.Transaction{}, errors.Errorf("unknown transaction type %q", txType)
	}

	amount, err := decimal.NewFromString(field(colAmount))
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "parse amount")
	}
	ts, err := time.Parse(time.RFC3339, field(colTimestamp))
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "parse timestamp")
	}
	suspicious, err := strconv.ParseBool(field(colSuspicious))
	if err != nil {
		return domain.Transaction{}, errors.Wrap(err, "parse is_suspicious")
	}
	var reasons []string
	if raw := field(colReasons); raw != "" {
		if err := json.Unmarshal([]byte(raw), &reasons); err != nil {
			return domain.Transaction{}, errors.Wrap(err, "parse suspicion_reasons")
		}
	}
	if len(reasons) == 0 {
		reasons = nil
	}

	return domain.Transaction{
		ID:            field(colID),
		SenderID:      sender,
		ReceiverID:    receiver,
		Type:          txType,
		Amount:        amount,
		PaymentMethod: field(colPaymentMethod),
		CardNumber:    field(colCardNumber),
		ExpiryDate:    field(colExpiryDate),
		CVV:           field(colCVV),
		AccountNumber: field(colAccountNumber),
		IFSCCode:      field(colIFSCCode),
		ContactNumber: field(colContactNumber),
		Timestamp:     ts,
		Suspicious:    suspicious,
		Reasons:       reasons,
	}, nil
}
