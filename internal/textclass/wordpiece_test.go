package textclass

import (
	"os"
	"path/filepath"
	"testing"
)

func testVocab() map[string]int64 {
	return map[string]int64{
		"[PAD]":  0,
		"[UNK]":  1,
		"[CLS]":  2,
		"[SEP]":  3,
		"you":    4,
		"are":    5,
		"worth":  6,
		"##less": 7,
	}
}

func TestEncodeKnownWords(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())
	ids, attn := tok.Encode("you are worthless", 8)

	want := []int64{2, 4, 5, 6, 7, 3, 0, 0}
	if len(ids) != 8 {
		t.Fatalf("len(ids) = %d", len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	wantAttn := []int64{1, 1, 1, 1, 1, 1, 0, 0}
	for i := range wantAttn {
		if attn[i] != wantAttn[i] {
			t.Fatalf("attn = %v, want %v", attn, wantAttn)
		}
	}
}

func TestEncodeUnknownWordIsUNK(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())
	ids, _ := tok.Encode("xyzzy", 5)
	if ids[1] != 1 {
		t.Fatalf("expected [UNK] id at position 1, got %v", ids)
	}
}

func TestEncodeLowercases(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())
	ids, _ := tok.Encode("YOU ARE", 5)
	if ids[1] != 4 || ids[2] != 5 {
		t.Fatalf("expected lowercased lookup, got %v", ids)
	}
}

func TestEncodeTruncatesToSeqLen(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())
	ids, attn := tok.Encode("you are you are you are you are", 4)
	if len(ids) != 4 || len(attn) != 4 {
		t.Fatalf("len(ids)=%d len(attn)=%d", len(ids), len(attn))
	}
	if ids[0] != 2 {
		t.Fatalf("first token must be [CLS], got %d", ids[0])
	}
	if ids[3] != 3 {
		t.Fatalf("last token must be [SEP], got %d", ids[3])
	}
}

func TestLoadWordPieceTokenizerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	content := "[PAD]\n[UNK]\n[CLS]\n[SEP]\nhello\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}

	tok, err := LoadWordPieceTokenizer(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids, _ := tok.Encode("hello", 4)
	if ids[1] != 4 {
		t.Fatalf("expected hello -> 4, got %v", ids)
	}
}

func TestLoadWordPieceTokenizerMissingFile(t *testing.T) {
	if _, err := LoadWordPieceTokenizer(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing vocab")
	}
}
