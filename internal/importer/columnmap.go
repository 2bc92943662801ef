package importer

import "strings"

// Canonical field names. Every recognized spreadsheet header resolves to
// one of these; everything else is dropped for the whole run.
const (
	FieldCPF            = "cpf"
	FieldNB             = "nb"
	FieldNome           = "nome"
	FieldDataNascimento = "data_nascimento"
	FieldEspecie        = "especie"
	FieldEndereco       = "endereco"
	FieldBairro         = "bairro"
	FieldCidade         = "cidade"
	FieldUF             = "uf"
	FieldCEP            = "cep"
	FieldTelefone1      = "telefone1"
	FieldTelefone2      = "telefone2"
	FieldEmail1         = "email1"
	FieldEmail2         = "email2"

	FieldContrato        = "contrato"
	FieldBancoEmprestimo = "banco_emprestimo"
	FieldValorEmprestimo = "valor_emprestimo"
	FieldValorParcela    = "valor_parcela"
	FieldPrazo           = "prazo"
	FieldInicioDesconto  = "inicio_desconto"
	FieldDataAverbacao   = "data_averbacao"
	FieldSituacao        = "situacao"
	FieldCompetencia     = "competencia"
	FieldTaxa            = "taxa"
	FieldSaldoDevedor    = "saldo_devedor"
)

// fieldSynonyms lists the header spellings seen in partner base-off files.
// Matching is case- and punctuation-insensitive, so "BANCO_EMPRESTIMO",
// "banco emprestimo" and "BancoEmprestimo" are all the same synonym.
var fieldSynonyms = map[string][]string{
	FieldCPF:            {"CPF", "NR_CPF", "NUM_CPF", "CPF_CLIENTE", "CPF_BENEFICIARIO"},
	FieldNB:             {"NB", "BENEFICIO", "NR_BENEFICIO", "NUM_BENEFICIO", "MATRICULA"},
	FieldNome:           {"NOME", "NOME_CLIENTE", "NOME_COMPLETO", "BENEFICIARIO"},
	FieldDataNascimento: {"DATA_NASCIMENTO", "DT_NASCIMENTO", "NASCIMENTO", "DATA_NASC", "DT_NASC"},
	FieldEspecie:        {"ESPECIE", "CD_ESPECIE", "COD_ESPECIE"},
	FieldEndereco:       {"ENDERECO", "LOGRADOURO", "RUA"},
	FieldBairro:         {"BAIRRO"},
	FieldCidade:         {"CIDADE", "MUNICIPIO"},
	FieldUF:             {"UF", "ESTADO", "SG_UF"},
	FieldCEP:            {"CEP"},
	FieldTelefone1:      {"TELEFONE", "TELEFONE1", "FONE1", "CELULAR", "DDD_FONE1"},
	FieldTelefone2:      {"TELEFONE2", "FONE2", "CELULAR2", "DDD_FONE2"},
	FieldEmail1:         {"EMAIL", "EMAIL1", "E_MAIL"},
	FieldEmail2:         {"EMAIL2"},

	FieldContrato:        {"CONTRATO", "NR_CONTRATO", "NUM_CONTRATO", "NUMERO_CONTRATO"},
	FieldBancoEmprestimo: {"BANCO_EMPRESTIMO", "BANCO", "CD_BANCO", "COD_BANCO", "BANCO_EMP"},
	FieldValorEmprestimo: {"VALOR_EMPRESTIMO", "VL_EMPRESTIMO", "VALOR_CONTRATO", "VL_CONTRATO", "VALOR_LIBERADO"},
	FieldValorParcela:    {"VALOR_PARCELA", "VL_PARCELA", "PARCELA"},
	FieldPrazo:           {"PRAZO", "QTD_PARCELAS", "NUM_PARCELAS", "PRAZO_MESES"},
	FieldInicioDesconto:  {"INICIO_DESCONTO", "DT_INICIO_DESCONTO", "INICIO_DESC"},
	FieldDataAverbacao:   {"DATA_AVERBACAO", "DT_AVERBACAO", "AVERBACAO"},
	FieldSituacao:        {"SITUACAO", "SITUACAO_CONTRATO", "STATUS_CONTRATO"},
	FieldCompetencia:     {"COMPETENCIA", "DT_COMPETENCIA"},
	FieldTaxa:            {"TAXA", "TAXA_JUROS", "JUROS"},
	FieldSaldoDevedor:    {"SALDO_DEVEDOR", "SALDO", "VL_SALDO"},
}

// synonymIndex maps every pre-normalized synonym to its canonical field,
// built once at package init so header matching is a single lookup.
var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]string {
	idx := make(map[string]string)
	for field, synonyms := range fieldSynonyms {
		for _, s := range synonyms {
			idx[normalizeHeader(s)] = field
		}
	}
	return idx
}

// normalizeHeader upper-cases a header and strips everything that is not a
// letter or digit, so punctuation and spacing differences never matter.
func normalizeHeader(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range h {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HeaderMap maps a column index in the source file to a canonical field
// name. It is built once from the header row and reused for every data row.
type HeaderMap map[int]string

// BuildHeaderMap resolves the literal header row of an import file.
// Unrecognized columns are dropped silently; their cells are ignored for
// the whole run.
func BuildHeaderMap(headers []string) HeaderMap {
	hm := make(HeaderMap)
	for i, h := range headers {
		normalized := normalizeHeader(h)
		if normalized == "" {
			continue
		}
		if field, ok := synonymIndex[normalized]; ok {
			hm[i] = field
		}
	}
	return hm
}
