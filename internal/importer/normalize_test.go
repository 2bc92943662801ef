package importer

import "testing"

func TestNormalizeCPF(t *testing.T) {
	cases := map[string]string{
		"123.456.789-09":  "12345678909",
		"12345678909":     "12345678909",
		"  12345678909  ": "12345678909",
		"123":             "00000000123",
		"9912345678909":   "12345678909", // longer than 11: keep the tail
		"abc":             "",
		"":                "",
	}
	for in, want := range cases {
		if got := NormalizeCPF(in); got != want {
			t.Errorf("NormalizeCPF(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"15/03/1960": "1960-03-15",
		"1960-03-15": "1960-03-15",
		"19600315":   "1960-03-15",
		"21990":      "1960-03-15", // spreadsheet serial day
		"31/02/2020": "",
		"not a date": "",
		"":           "",
		"-5":         "",
	}
	for in, want := range cases {
		if got := normalizeDate(in); got != want {
			t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		nil_ bool
	}{
		{"1234.56", 1234.56, false},
		{"1234,56", 1234.56, false},
		{"1.234,56", 1234.56, false},
		{"R$ 1.234,56", 1234.56, false},
		{"-10,5", -10.5, false},
		{"1500", 1500, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got := normalizeNumber(c.in)
		if c.nil_ {
			if got != nil {
				t.Errorf("normalizeNumber(%q) = %v, want nil", c.in, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("normalizeNumber(%q) = nil, want %v", c.in, c.want)
			continue
		}
		if *got != c.want {
			t.Errorf("normalizeNumber(%q) = %v, want %v", c.in, *got, c.want)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	hm := BuildHeaderMap([]string{"CPF", "NOME", "NB", "CONTRATO", "BANCO", "VALOR_PARCELA", "DATA_NASCIMENTO"})

	row := NormalizeRow([]string{"123.456.789-09", "  Maria Silva  ", "1234567890", "C-001", "033", "1.250,00", "15/03/1960"}, hm)

	if row.CPF != "12345678909" {
		t.Errorf("CPF = %q", row.CPF)
	}
	if row.Nome != "Maria Silva" {
		t.Errorf("Nome = %q", row.Nome)
	}
	if row.NB != "1234567890" {
		t.Errorf("NB = %q", row.NB)
	}
	if row.Contrato != "C-001" {
		t.Errorf("Contrato = %q", row.Contrato)
	}
	if row.BancoEmprestimo != "033" {
		t.Errorf("BancoEmprestimo = %q", row.BancoEmprestimo)
	}
	if row.ValorParcela == nil || *row.ValorParcela != 1250.0 {
		t.Errorf("ValorParcela = %v", row.ValorParcela)
	}
	if row.DataNascimento != "1960-03-15" {
		t.Errorf("DataNascimento = %q", row.DataNascimento)
	}
}

func TestNormalizeRow_NullAndShortRows(t *testing.T) {
	hm := BuildHeaderMap([]string{"CPF", "NOME", "EMAIL"})

	// "null" cells and cells past the row width are treated as absent.
	row := NormalizeRow([]string{"12345678909", "NULL"}, hm)
	if row.Nome != "" {
		t.Errorf("expected empty Nome for NULL cell, got %q", row.Nome)
	}
	if row.Email1 != "" {
		t.Errorf("expected empty Email1 for missing cell, got %q", row.Email1)
	}
	if row.CPF != "12345678909" {
		t.Errorf("CPF = %q", row.CPF)
	}
}
