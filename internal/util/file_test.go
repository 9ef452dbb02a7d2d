package util

import (
	"archive/zip"
	"bytes"
	"testing"
)

func zipBytes(t *testing.T, name string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	w.Write([]byte("<xml/>"))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestValidateImportFile(t *testing.T) {
	exts := []string{".xlsx", ".xlsm", ".docx", ".txt"}
	cases := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"bank.txt", []byte("1+1=?|single|1;2|B|\n"), false},
		{"bank.xlsx", zipBytes(t, "xl/workbook.xml"), false},
		{"bank.docx", zipBytes(t, "word/document.xml"), false},
		{"notes.pdf", []byte("%PDF-1.4\n"), true},
		{"fake.txt", []byte("%PDF-1.4\n"), true},
	}
	for _, tc := range cases {
		err := ValidateImportFile(tc.name, tc.data, exts, 1<<20)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateImportFile(%s) err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}

	if err := ValidateImportFile("big.txt", bytes.Repeat([]byte("a"), 10), exts, 5); err == nil {
		t.Error("oversized file should be rejected")
	}
}
