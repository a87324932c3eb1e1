package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/welthhq/welth/internal/domain"
)

type fakeGenerator struct {
	text string
	err  error

	gotModel    string
	gotContents []*genai.Content
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func newTestScanner(gen *fakeGenerator) *Scanner {
	return &Scanner{
		gen:   gen,
		model: "gemini-2.5-flash",
		now:   func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) },
	}
}

func TestScanParsesModelOutput(t *testing.T) {
	gen := &fakeGenerator{text: `{"amount": 42.50, "date": "2024-03-09", "description": "Coffee and pastries", "merchantName": "Blue Bottle", "category": "food"}`}
	s := newTestScanner(gen)

	rec, err := s.Scan(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if !rec.Amount.Equal(decimal.NewFromFloat(42.50)) {
		t.Errorf("amount = %s, want 42.5", rec.Amount)
	}
	if got := rec.Date.Format("2006-01-02"); got != "2024-03-09" {
		t.Errorf("date = %s, want 2024-03-09", got)
	}
	if rec.MerchantName != "Blue Bottle" || rec.Category != "food" {
		t.Errorf("merchant/category = %q/%q", rec.MerchantName, rec.Category)
	}
	if gen.gotModel != "gemini-2.5-flash" {
		t.Errorf("model = %q", gen.gotModel)
	}
	if len(gen.gotContents) != 1 || len(gen.gotContents[0].Parts) != 2 {
		t.Fatalf("unexpected contents shape")
	}
	if blob := gen.gotContents[0].Parts[0].InlineData; blob == nil || blob.MIMEType != "image/png" {
		t.Errorf("inline data not forwarded")
	}
}

func TestScanStripsCodeFences(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"amount\": 10, \"date\": \"2024-03-01\", \"description\": \"Taxi\", \"merchantName\": \"Cabco\", \"category\": \"transportation\"}\n```"}
	s := newTestScanner(gen)

	rec, err := s.Scan(context.Background(), []byte("jpg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rec.Description != "Taxi" || !rec.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("got %+v", rec)
	}
}

func TestScanFallsBackOnGarbage(t *testing.T) {
	gen := &fakeGenerator{text: "I could not read this image, sorry!"}
	s := newTestScanner(gen)

	rec, err := s.Scan(context.Background(), []byte("jpg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !rec.Amount.IsZero() {
		t.Errorf("fallback amount = %s, want 0", rec.Amount)
	}
	if rec.Description != "Could not parse receipt" || rec.MerchantName != "Unknown" || rec.Category != "other-expense" {
		t.Errorf("fallback record = %+v", rec)
	}
	if got := rec.Date.Format("2006-01-02"); got != "2024-03-10" {
		t.Errorf("fallback date = %s, want today", got)
	}
}

func TestScanValidatesUpload(t *testing.T) {
	s := newTestScanner(&fakeGenerator{})

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"empty file", nil, "image/png"},
		{"bad mime", []byte("x"), "application/pdf"},
		{"too large", make([]byte, MaxFileSize+1), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Scan(context.Background(), tt.data, tt.mime)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestScanUpstreamFailure(t *testing.T) {
	s := newTestScanner(&fakeGenerator{err: errors.New("deadline exceeded")})

	_, err := s.Scan(context.Background(), []byte("x"), "image/webp")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Here you go: {\"a\":1} enjoy", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestObjectNameAndFilename(t *testing.T) {
	obj, err := ObjectName("gs://receipts-bucket/receipts/u1/abc.png")
	if err != nil {
		t.Fatalf("ObjectName: %v", err)
	}
	if obj != "receipts/u1/abc.png" {
		t.Errorf("object = %q", obj)
	}
	if got := Filename("gs://receipts-bucket/receipts/u1/abc.png"); got != "abc.png" {
		t.Errorf("filename = %q", got)
	}
	if _, err := ObjectName("https://example.com/x"); err == nil {
		t.Error("expected error for non-gs URI")
	}
}
