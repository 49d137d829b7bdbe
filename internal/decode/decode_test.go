package decode_test

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/antchfx/xmlquery"

	"go-simple-scraper/internal/decode"
	"go-simple-scraper/internal/model"
)

func gz(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestDecode_GzipJSONRoundTrip(t *testing.T) {
	raw := []byte(`{"name":"repo","stars":3,"tags":["a","b"],"owner":{"login":"x"}}`)
	res, err := decode.Decoder{}.Decode("http://h/api", header("Content-Encoding", "gzip", "Content-Type", "application/json; charset=utf-8"), gz(t, raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindJSON {
		t.Fatalf("kind = %v, want json", res.Kind)
	}
	want := map[string]any{
		"name":  "repo",
		"stars": float64(3),
		"tags":  []any{"a", "b"},
		"owner": map[string]any{"login": "x"},
	}
	if !reflect.DeepEqual(res.JSON, want) {
		t.Fatalf("json = %#v, want %#v", res.JSON, want)
	}
}

func TestDecode_CorruptGzipDegradesToRawBytes(t *testing.T) {
	body := []byte("definitely not gzip")
	res, err := decode.Decoder{}.Decode("http://h/x", header("Content-Encoding", "gzip", "Content-Type", "application/json"), body)
	if err != nil {
		t.Fatalf("decode should not fail on bad gzip: %v", err)
	}
	if res.Kind != model.KindDecodeFailure || !bytes.Equal(res.Body, body) {
		t.Fatalf("result = %v %q, want decode failure with original bytes", res.Kind, res.Body)
	}
}

func TestDecode_CorruptDeflateIsFatal(t *testing.T) {
	_, err := decode.Decoder{}.Decode("http://h/x", header("Content-Encoding", "deflate", "Content-Type", "text/plain"), []byte("nope"))
	if err == nil {
		t.Fatal("expected error for corrupt deflate body")
	}
}

func TestDecode_DeflateText(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write([]byte("hello"))
	_ = w.Close()
	res, err := decode.Decoder{}.Decode("http://h/x", header("Content-Encoding", "deflate", "Content-Type", "text/plain"), buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindRaw || string(res.Body) != "hello" {
		t.Fatalf("result = %v %q", res.Kind, res.Body)
	}
}

func TestDecode_XMLTree(t *testing.T) {
	res, err := decode.Decoder{}.Decode("http://h/x", header("Content-Type", "text/xml"), []byte(`<root><item id="1">a</item><item id="2">b</item></root>`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindXML || res.XML == nil {
		t.Fatalf("kind = %v", res.Kind)
	}
	items := xmlquery.Find(res.XML, "//item")
	if len(items) != 2 || items[1].InnerText() != "b" || items[0].SelectAttr("id") != "1" {
		t.Fatalf("unexpected xml tree: %d items", len(items))
	}
}

func TestDecode_ImageSavedWithExtension(t *testing.T) {
	dir := t.TempDir()
	res, err := decode.Decoder{DownloadDir: dir}.Decode("http://h/img/sample", header("Content-Type", "image/png"), []byte("\x89PNG"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindFile || res.Path != filepath.Join(dir, "sample.png") {
		t.Fatalf("result = %v %q", res.Kind, res.Path)
	}
	if b, _ := os.ReadFile(res.Path); string(b) != "\x89PNG" {
		t.Fatalf("file content = %q", b)
	}
}

func TestDecode_ApplicationForcesDecompression(t *testing.T) {
	dir := t.TempDir()
	res, err := decode.Decoder{DownloadDir: dir}.Decode("http://h/dl/data.bin", header("Content-Type", "application/octet-stream"), gz(t, []byte("payload")))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindFile {
		t.Fatalf("kind = %v", res.Kind)
	}
	if b, _ := os.ReadFile(res.Path); string(b) != "payload" {
		t.Fatalf("file content = %q", b)
	}
}

func TestDecode_NoHeadersIsEmpty(t *testing.T) {
	res, err := decode.Decoder{}.Decode("http://h/x", nil, []byte("ignored"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindEmpty || res.Body != nil {
		t.Fatalf("result = %v %q, want empty", res.Kind, res.Body)
	}
}

func TestDecode_OtherTypesAreRaw(t *testing.T) {
	res, err := decode.Decoder{}.Decode("http://h/x", header("Content-Type", "text/html"), []byte("<p>hi</p>"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindRaw || string(res.Body) != "<p>hi</p>" {
		t.Fatalf("result = %v %q", res.Kind, res.Body)
	}
}
