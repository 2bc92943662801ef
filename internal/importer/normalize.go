package importer

import (
	"strconv"
	"strings"
	"time"
)

// Row is the typed form of one data row after header mapping. A zero value
// ("" or nil) means the field was absent or unparseable; absence is never a
// normalization error.
type Row struct {
	CPF string
	NB  string

	Nome           string
	DataNascimento string
	Especie        string

	Endereco string
	Bairro   string
	Cidade   string
	UF       string
	CEP      string

	Telefone1 string
	Telefone2 string
	Email1    string
	Email2    string

	Contrato        string
	BancoEmprestimo string

	ValorEmprestimo *float64
	ValorParcela    *float64
	Prazo           *int
	Taxa            *float64
	SaldoDevedor    *float64

	InicioDesconto string
	DataAverbacao  string
	Competencia    string
	Situacao       string
}

// NormalizeRow converts the raw cells of one row into a typed Row using the
// header map built from the file's first row. Cells beyond the header width
// and cells in unmapped columns are ignored.
func NormalizeRow(cells []string, hm HeaderMap) Row {
	var row Row
	for idx, field := range hm {
		if idx < 0 || idx >= len(cells) {
			continue
		}
		raw := strings.TrimSpace(cells[idx])
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}

		switch field {
		case FieldCPF:
			row.CPF = NormalizeCPF(raw)
		case FieldNB:
			row.NB = raw
		case FieldNome:
			row.Nome = raw
		case FieldDataNascimento:
			row.DataNascimento = normalizeDate(raw)
		case FieldEspecie:
			row.Especie = raw
		case FieldEndereco:
			row.Endereco = raw
		case FieldBairro:
			row.Bairro = raw
		case FieldCidade:
			row.Cidade = raw
		case FieldUF:
			row.UF = raw
		case FieldCEP:
			row.CEP = raw
		case FieldTelefone1:
			row.Telefone1 = raw
		case FieldTelefone2:
			row.Telefone2 = raw
		case FieldEmail1:
			row.Email1 = raw
		case FieldEmail2:
			row.Email2 = raw
		case FieldContrato:
			row.Contrato = raw
		case FieldBancoEmprestimo:
			row.BancoEmprestimo = raw
		case FieldValorEmprestimo:
			row.ValorEmprestimo = normalizeNumber(raw)
		case FieldValorParcela:
			row.ValorParcela = normalizeNumber(raw)
		case FieldPrazo:
			row.Prazo = normalizeInt(raw)
		case FieldTaxa:
			row.Taxa = normalizeNumber(raw)
		case FieldSaldoDevedor:
			row.SaldoDevedor = normalizeNumber(raw)
		case FieldInicioDesconto:
			row.InicioDesconto = normalizeDate(raw)
		case FieldDataAverbacao:
			row.DataAverbacao = normalizeDate(raw)
		case FieldCompetencia:
			row.Competencia = normalizeDate(raw)
		case FieldSituacao:
			row.Situacao = raw
		}
	}
	return row
}

// NormalizeCPF strips everything but digits, keeps the last 11 digits when
// longer, and left-pads with zeros when shorter. Empty input stays empty;
// the accumulator treats that as a hard per-row error.
func NormalizeCPF(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) > 11 {
		return digits[len(digits)-11:]
	}
	return strings.Repeat("0", 11-len(digits)) + digits
}

// Excel serial day 1 is 1900-01-01, counted from the epoch below (the
// off-by-one absorbs the fictitious 1900 leap day).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxSerialDay = 2958465 // 9999-12-31

// normalizeDate accepts DD/MM/YYYY, YYYY-MM-DD, unseparated YYYYMMDD and
// spreadsheet serial day numbers, and returns the date as YYYY-MM-DD.
// Anything else yields "" — an absent value, not an error.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)

	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	if len(s) == 8 {
		if t, err := time.Parse("20060102", s); err == nil {
			return t.Format("2006-01-02")
		}
	}

	// Serial day number, as XLSX cells frequently arrive.
	if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= maxSerialDay {
		return serialEpoch.AddDate(0, 0, n).Format("2006-01-02")
	}

	return ""
}

// normalizeNumber parses a cell that should hold a monetary or rate value.
// Everything except digits, comma, dot and minus is stripped; comma is the
// decimal separator, with dots treated as thousands marks when a comma is
// present. Unparseable input yields nil.
func normalizeNumber(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func normalizeInt(s string) *int {
	f := normalizeNumber(s)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
