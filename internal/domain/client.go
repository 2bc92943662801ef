package domain

// Client is one beneficiary row as accumulated from an import file.
// CPF is the natural key: exactly one Client per CPF survives an import run.
type Client struct {
	ID int64

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

	ImportBatchID int64
	ImportedBy    int64
}
