package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/pharma-billing/internal/common"
	"github.com/noah-isme/pharma-billing/internal/lineitem"
	"github.com/noah-isme/pharma-billing/internal/pricing"
	"github.com/noah-isme/pharma-billing/internal/rounding"
	"github.com/noah-isme/pharma-billing/internal/words"
)

const maxBodyBytes = 1 << 20

// Handler exposes invoice drafting and submission endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler constructs a Handler with a struct validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New(validator.WithRequiredStructEnabled())}
}

type lineRequest struct {
	ID                    string         `json:"id" validate:"omitempty,uuid"`
	ProductID             string         `json:"productId" validate:"required,max=64"`
	ProductName           string         `json:"productName" validate:"max=200"`
	AvailableStock        *common.Number `json:"availableStock"`
	QuantitySold          common.Number  `json:"quantitySold"`
	FreeQuantity          common.Number  `json:"freeQuantity"`
	BaseRate              common.Number  `json:"baseRate"`
	TaxRatePercent        common.Number  `json:"taxRatePercent"`
	SchemeDiscountPercent common.Number  `json:"schemeDiscountPercent"`
}

type chargesRequest struct {
	Shipping       common.Number `json:"shipping"`
	Handling       common.Number `json:"handling"`
	Other          common.Number `json:"other"`
	Taxable        bool          `json:"taxable"`
	TaxRatePercent common.Number `json:"taxRatePercent"`
}

type draftRequest struct {
	ID                     string         `json:"id" validate:"omitempty,uuid"`
	Number                 string         `json:"number" validate:"max=64"`
	CustomerID             string         `json:"customerId" validate:"max=64"`
	SellerState            string         `json:"sellerState" validate:"max=8"`
	BuyerState             string         `json:"buyerState" validate:"max=8"`
	Lines                  []lineRequest  `json:"lines" validate:"max=500,dive"`
	InvoiceDiscountPercent common.Number  `json:"invoiceDiscountPercent"`
	Charges                chargesRequest `json:"charges"`
	RoundingPolicy         string         `json:"roundingPolicy" validate:"omitempty,oneof=round ceil floor nearest_0_05 nearest_0_50 nearest_1"`
}

type seedRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
}

type editRequest struct {
	Line           lineRequest    `json:"line"`
	Field          string         `json:"field" validate:"required"`
	Value          common.Number  `json:"value"`
	AvailableStock *common.Number `json:"availableStock"`
}

func (l lineRequest) toLine() Line {
	line := Line{
		ProductID:   strings.TrimSpace(l.ProductID),
		ProductName: strings.TrimSpace(l.ProductName),
		Item: lineitem.New(lineitem.Inputs{
			QuantitySold:          l.QuantitySold.Float(),
			FreeQuantity:          l.FreeQuantity.Float(),
			BaseRate:              l.BaseRate.Float(),
			TaxRatePercent:        l.TaxRatePercent.Float(),
			SchemeDiscountPercent: l.SchemeDiscountPercent.Float(),
		}),
	}
	if id, err := uuid.Parse(l.ID); err == nil {
		line.ID = id
	} else {
		line.ID = uuid.New()
	}
	if l.AvailableStock != nil {
		stock := l.AvailableStock.Float()
		line.AvailableStock = &stock
	}
	return line
}

func (d draftRequest) toDraft() Draft {
	draft := Draft{
		Number:      strings.TrimSpace(d.Number),
		CustomerID:  strings.TrimSpace(d.CustomerID),
		SellerState: d.SellerState,
		BuyerState:  d.BuyerState,
		Lines:       make([]Line, 0, len(d.Lines)),
		Params: Params{
			InvoiceDiscountPercent: d.InvoiceDiscountPercent.Float(),
			Charges: pricing.Charges{
				Shipping:       d.Charges.Shipping.Float(),
				Handling:       d.Charges.Handling.Float(),
				Other:          d.Charges.Other.Float(),
				Taxable:        d.Charges.Taxable,
				TaxRatePercent: d.Charges.TaxRatePercent.Float(),
			},
			RoundingPolicy: rounding.ParsePolicy(d.RoundingPolicy, ""),
		},
	}
	if id, err := uuid.Parse(d.ID); err == nil {
		draft.ID = id
	}
	for _, l := range d.Lines {
		draft.Lines = append(draft.Lines, l.toLine())
	}
	return draft
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return false
	}
	if h.Validate == nil {
		return true
	}
	if err := h.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
			common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "validation failed", fields)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return false
	}
	return true
}

// Preview recomputes a draft and returns the lines, totals and amount in words.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.Svc.Preview(r.Context(), req.toDraft())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// SeedLine returns a quantity-one line for a product.
func (h *Handler) SeedLine(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if !h.decode(w, r, &req) {
		return
	}
	line, err := h.Svc.SeedLine(r.Context(), req.ProductID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, line)
}

// EditLine applies one field edit to a line and returns the recomputed line.
func (h *Handler) EditLine(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	field, err := lineitem.ParseField(req.Field)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "field is not editable", map[string]string{"field": req.Field})
		return
	}
	line := req.Line.toLine()
	if req.AvailableStock != nil {
		stock := req.AvailableStock.Float()
		line.AvailableStock = &stock
	}
	if err := lineitem.Apply(&line.Item, lineitem.Edit{Field: field, Value: req.Value.Float()}, line.Stock()); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, err.Error(), nil)
		return
	}
	if !finiteAmounts(line.Amounts) {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeTotalsUnavailable, "line amounts out of range", nil)
		return
	}
	common.Data(w, http.StatusOK, line)
}

// Submit persists a draft as an invoice.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !h.decode(w, r, &req) {
		return
	}
	sub, err := h.Svc.Submit(r.Context(), req.toDraft())
	if err != nil {
		if !common.IsAppError(err) {
			h.Svc.Logger.Error().Err(err).Msg("submit invoice")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, sub)
}

// Get re-reads a submitted invoice with freshly derived amounts.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid invoice id", nil)
		return
	}
	sub, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if !common.IsAppError(err) {
			h.Svc.Logger.Error().Err(err).Str("invoice_id", id.String()).Msg("load invoice")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sub)
}

// AmountInWords renders ?amount= in Indian-English words. Missing or invalid
// amounts render as zero.
func (h *Handler) AmountInWords(w http.ResponseWriter, r *http.Request) {
	amount := common.FloatDefault(r.URL.Query().Get("amount"), 0)
	common.Data(w, http.StatusOK, map[string]any{
		"amount": amount,
		"words":  words.AmountToWords(amount),
	})
}
