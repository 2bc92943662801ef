package domain

// Contract is one loan contract tied to a client. The composite key is
// (CPF, Contrato); ClienteID is resolved only after the owning client row
// has been persisted.
type Contract struct {
	ID        int64
	ClienteID int64

	CPF      string
	Contrato string

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

	ImportBatchID int64
}
