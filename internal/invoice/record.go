package invoice

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/pharma-billing/internal/lineitem"
)

// RecordLine is the persisted form of a line: inputs only. Derived amounts are
// recomputed on every read.
type RecordLine struct {
	LineNo      int    `json:"lineNo"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	lineitem.Inputs
}

// Record is what the persistence collaborator stores for a submitted invoice.
type Record struct {
	ID          uuid.UUID    `json:"id"`
	Number      string       `json:"number"`
	CustomerID  string       `json:"customerId,omitempty"`
	SellerState string       `json:"sellerState,omitempty"`
	BuyerState  string       `json:"buyerState,omitempty"`
	Params      Params       `json:"params"`
	Lines       []RecordLine `json:"lines"`
	Payable     float64      `json:"payable"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

// ToRecord strips a draft down to its persisted inputs.
func ToRecord(d Draft) Record {
	rec := Record{
		ID:          d.ID,
		Number:      d.Number,
		CustomerID:  d.CustomerID,
		SellerState: d.SellerState,
		BuyerState:  d.BuyerState,
		Params:      d.Params,
		Lines:       make([]RecordLine, 0, len(d.Lines)),
	}
	for i, l := range d.Lines {
		rec.Lines = append(rec.Lines, RecordLine{
			LineNo:      i + 1,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Inputs:      l.Inputs,
		})
	}
	return rec
}

// FromRecord rebuilds a draft from persisted inputs. Callers recompute it.
func FromRecord(rec Record) Draft {
	d := Draft{
		ID:          rec.ID,
		Number:      rec.Number,
		CustomerID:  rec.CustomerID,
		SellerState: rec.SellerState,
		BuyerState:  rec.BuyerState,
		Params:      rec.Params,
		Lines:       make([]Line, 0, len(rec.Lines)),
	}
	for _, rl := range rec.Lines {
		d.Lines = append(d.Lines, Line{
			ID:          uuid.NewSHA1(rec.ID, []byte(rl.ProductID+"#"+strconv.Itoa(rl.LineNo))),
			ProductID:   rl.ProductID,
			ProductName: rl.ProductName,
			Item:        lineitem.New(rl.Inputs),
		})
	}
	return d
}
