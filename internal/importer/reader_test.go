package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func collectChunks(t *testing.T, r ChunkReader, size int) ([][][]string, []bool) {
	t.Helper()
	var chunks [][][]string
	var lastFlags []bool
	err := r.ReadChunks(context.Background(), size, func(rows [][]string, index int, last bool) error {
		if index != len(chunks) {
			t.Errorf("chunk index = %d, want %d", index, len(chunks))
		}
		chunks = append(chunks, rows)
		lastFlags = append(lastFlags, last)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadChunks: %v", err)
	}
	return chunks, lastFlags
}

func TestCSVReader_SemicolonWithQuotes(t *testing.T) {
	data := "CPF;NOME;NB\n" +
		"12345678909;\"Silva; Maria\";111\n" +
		"98765432100;Joao;222\n"

	r, err := OpenReader("base.csv", []byte(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if got := r.Headers(); len(got) != 3 || got[0] != "CPF" || got[1] != "NOME" || got[2] != "NB" {
		t.Fatalf("Headers = %v", got)
	}
	if r.TotalRows() != 2 {
		t.Errorf("TotalRows = %d, want 2", r.TotalRows())
	}

	chunks, lastFlags := collectChunks(t, r, 500)
	if len(chunks) != 1 || !lastFlags[0] {
		t.Fatalf("expected a single last chunk, got %d chunks (last=%v)", len(chunks), lastFlags)
	}
	rows := chunks[0]
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Silva; Maria" {
		t.Errorf("quoted field broken: %q", rows[0][1])
	}
}

func TestCSVReader_CommaAndShortRows(t *testing.T) {
	data := "CPF,NOME,NB\n12345678909,Maria\n"

	r, err := OpenReader("base.csv", []byte(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	chunks, _ := collectChunks(t, r, 500)
	rows := chunks[0]
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	// Short rows are padded to header width.
	if len(rows[0]) != 3 || rows[0][2] != "" {
		t.Errorf("row not padded: %v", rows[0])
	}
}

func TestCSVReader_Windows1252(t *testing.T) {
	// "JOSÉ" in Windows-1252: É is 0xC9, invalid as UTF-8.
	data := append([]byte("NOME;CPF\nJOS"), 0xC9)
	data = append(data, []byte(";12345678909\n")...)

	r, err := OpenReader("base.csv", data)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	chunks, _ := collectChunks(t, r, 500)
	if got := chunks[0][0][0]; got != "JOSÉ" {
		t.Errorf("expected decoded JOSÉ, got %q", got)
	}
}

func TestCSVReader_TotalRowsSkipsBlankLines(t *testing.T) {
	data := "CPF;NB\n12345678909;1\n\n98765432100;2\n\r\n\n"

	r, err := OpenReader("base.csv", []byte(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.TotalRows() != 2 {
		t.Errorf("TotalRows = %d, want 2", r.TotalRows())
	}

	chunks, _ := collectChunks(t, r, 500)
	if got := len(chunks[0]); got != r.TotalRows() {
		t.Errorf("read %d rows but TotalRows reported %d", got, r.TotalRows())
	}
}

func TestCSVReader_EmptyFile(t *testing.T) {
	if _, err := OpenReader("base.csv", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestOpenReader_UnsupportedExtension(t *testing.T) {
	if _, err := OpenReader("base.txt", []byte("x")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestChunking_SizesAndLastFlag(t *testing.T) {
	var b strings.Builder
	b.WriteString("CPF;NB\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "%011d;%d\n", i+1, i+1)
	}

	r, err := OpenReader("base.csv", []byte(b.String()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	chunks, lastFlags := collectChunks(t, r, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	sizes := []int{2, 2, 1}
	for i, c := range chunks {
		if len(c) != sizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, len(c), sizes[i])
		}
	}
	wantLast := []bool{false, false, true}
	for i, last := range lastFlags {
		if last != wantLast[i] {
			t.Errorf("chunk %d last = %v, want %v", i, last, wantLast[i])
		}
	}
}

func TestChunking_ExactMultiple(t *testing.T) {
	data := "CPF;NB\n00000000001;1\n00000000002;2\n"

	r, err := OpenReader("base.csv", []byte(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	chunks, lastFlags := collectChunks(t, r, 2)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !lastFlags[0] {
		t.Error("the only full chunk must be flagged last")
	}
}

func TestChunking_ContextCancel(t *testing.T) {
	r, err := OpenReader("base.csv", []byte("CPF;NB\n00000000001;1\n"))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = r.ReadChunks(ctx, 500, func(rows [][]string, index int, last bool) error {
		t.Fatal("callback must not run after cancel")
		return nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestXLSXReader(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"CPF", "NOME", "NB"},
		{"12345678909", "Maria", "111"},
		{"98765432100", "Joao", "222"},
		{"55544433322", "Ana", "333"},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	r, err := OpenReader("base.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if got := r.Headers(); len(got) != 3 || got[0] != "CPF" {
		t.Fatalf("Headers = %v", got)
	}
	if r.TotalRows() != -1 {
		t.Errorf("streamed xlsx must report unknown total, got %d", r.TotalRows())
	}

	chunks, lastFlags := collectChunks(t, r, 2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if lastFlags[0] || !lastFlags[1] {
		t.Errorf("last flags = %v", lastFlags)
	}
	if chunks[0][0][0] != "12345678909" || chunks[1][0][1] != "Ana" {
		t.Errorf("row content mismatch: %v / %v", chunks[0][0], chunks[1][0])
	}
}
