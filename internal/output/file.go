package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"

	"github.com/Clinical-Genomics/strdrop/internal/drops"
	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

// Create opens an output destination. "-" or "" is stdout; paths ending in
// .gz are BGZF-compressed.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		return &bgzfFile{Writer: bgzf.NewWriter(f, 1), f: f}, nil
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// bgzfFile closes the BGZF stream (writing the EOF block) before the file.
type bgzfFile struct {
	*bgzf.Writer
	f *os.File
}

func (b *bgzfFile) Close() error {
	if err := b.Writer.Close(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

// AnnotateFile copies the VCF at inputPath to w with drop annotations.
func AnnotateFile(inputPath string, w io.Writer, scope Scope, calls []*drops.Call) error {
	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	vw := NewVCFWriter(w, parser.Header(), scope, calls)
	if err := vw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for {
		v, err := parser.Next()
		if err != nil {
			return err
		}
		if v == nil {
			break
		}
		if err := vw.Write(v); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return vw.Flush()
}
