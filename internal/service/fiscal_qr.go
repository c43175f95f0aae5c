package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"bakerycrm/internal/model"

	"github.com/skip2/go-qrcode"
)

const afipQRBaseURL = "https://www.afip.gob.ar/fe/qr/?p="

var afipVoucherCodes = map[string]int{
	model.InvoiceTypeA:   1,
	model.InvoiceTypeNDA: 2,
	model.InvoiceTypeNCA: 3,
	model.InvoiceTypeB:   6,
	model.InvoiceTypeNDB: 7,
	model.InvoiceTypeNCB: 8,
	model.InvoiceTypeC:   11,
	model.InvoiceTypeNDC: 12,
	model.InvoiceTypeNCC: 13,
	model.InvoiceTypeM:   51,
}

var afipDocumentCodes = map[string]int{
	model.DocumentCUIT: 80,
	model.DocumentCUIL: 86,
	model.DocumentCE:   91,
	model.DocumentDNI:  96,
}

// fiscalQRPayload follows AFIP's RG 4892 QR layout.
type fiscalQRPayload struct {
	Ver        int     `json:"ver"`
	Fecha      string  `json:"fecha"`
	Cuit       int64   `json:"cuit"`
	PtoVta     int     `json:"ptoVta"`
	TipoCmp    int     `json:"tipoCmp"`
	NroCmp     int64   `json:"nroCmp"`
	Importe    float64 `json:"importe"`
	Moneda     string  `json:"moneda"`
	Ctz        int     `json:"ctz"`
	TipoDocRec int     `json:"tipoDocRec"`
	NroDocRec  int64   `json:"nroDocRec"`
	TipoCodAut string  `json:"tipoCodAut"`
	CodAut     int64   `json:"codAut"`
}

// FiscalQRURL builds the verification URL printed on an invoice.
func FiscalQRURL(invoice *model.Invoice, issuerCUIT string) (string, error) {
	if invoice.CAE == "" {
		return "", validationf("invoice %s has no authorization code", invoice.InvoiceNumber)
	}
	seq, err := model.ParseInvoiceSequence(invoice.InvoiceNumber)
	if err != nil {
		return "", err
	}
	pos, err := strconv.Atoi(invoice.PointOfSale)
	if err != nil {
		return "", validationf("invalid point of sale %q", invoice.PointOfSale)
	}
	cae, err := strconv.ParseInt(invoice.CAE, 10, 64)
	if err != nil {
		return "", validationf("invalid authorization code %q", invoice.CAE)
	}

	importe, _ := invoice.Total.Round(2).Float64()
	payload := fiscalQRPayload{
		Ver:        1,
		Fecha:      invoice.IssueDate.Format("2006-01-02"),
		Cuit:       digitsOnly(issuerCUIT),
		PtoVta:     pos,
		TipoCmp:    afipVoucherCodes[invoice.InvoiceType],
		NroCmp:     seq,
		Importe:    importe,
		Moneda:     "PES",
		Ctz:        1,
		TipoDocRec: afipDocumentCodes[invoice.DocumentType],
		NroDocRec:  digitsOnly(invoice.DocumentNumber),
		TipoCodAut: "E",
		CodAut:     cae,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR payload: %w", err)
	}
	return afipQRBaseURL + base64.StdEncoding.EncodeToString(raw), nil
}

// FiscalQRPNG renders the verification URL as a PNG image.
func FiscalQRPNG(invoice *model.Invoice, issuerCUIT string, size int) ([]byte, error) {
	url, err := FiscalQRURL(invoice, issuerCUIT)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

func digitsOnly(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, _ := strconv.ParseInt(b.String(), 10, 64)
	return n
}
